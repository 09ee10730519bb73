package services

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fluxcrm/backend/internal/infrastructure/persistence"
	"github.com/fluxcrm/backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testNow = time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

func newRelationshipServiceWithMock(t *testing.T) (*RelationshipService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewRelationshipService(
		persistence.NewSchemaRepository(db),
		persistence.NewRelationshipRepository(db),
		persistence.NewRecordRepository(db),
		persistence.NewTransactionManager(db),
		fixedClock{testNow},
	), mock
}

func relationshipColumns() []string {
	return []string{"id", "from_module_id", "to_module_id", "name", "api_name", "type", "settings", "created_at", "updated_at"}
}

func recordColumns() []string {
	return []string{"id", "module_id", "data", "created_by", "updated_by", "created_at", "updated_at", "deleted_at"}
}

const (
	findRelsByToModule = "SELECT * FROM `module_relationships` WHERE `to_module_id` = ?"
	findRelByID        = "SELECT * FROM `module_relationships` WHERE `id` = ? LIMIT 1"
	softDeleteRecord   = "UPDATE `module_records` SET `deleted_at` = ?, `updated_at` = ?, `updated_by` = ? WHERE `id` = ?"
)

// Deleting a contact referenced by a deal through a cascading relationship
// soft-deletes the deal as well.
func TestHandleCascadeDelete(t *testing.T) {
	svc, mock := newRelationshipServiceWithMock(t)

	mock.ExpectBegin()

	// Relationships pointing at the contacts module: deals.contact_id, cascading
	mock.ExpectQuery(regexp.QuoteMeta(findRelsByToModule)).
		WithArgs("mod-contacts").
		WillReturnRows(sqlmock.NewRows(relationshipColumns()).
			AddRow("rel-1", "mod-deals", "mod-contacts", "Deal Contact", "contact_id", "one_to_many",
				`{"cascade_delete":true}`, testNow, testNow))

	// Deals whose document holds contact_id = rec-42
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT * FROM `module_records` WHERE `module_id` = ? AND `deleted_at` IS NULL AND JSON_UNQUOTE(JSON_EXTRACT(`data`, '$.\"contact_id\"')) = ?")).
		WithArgs("mod-deals", "rec-42").
		WillReturnRows(sqlmock.NewRows(recordColumns()).
			AddRow("rec-99", "mod-deals", `{"contact_id":"rec-42","title":"Big Deal"}`, "u1", "u1", testNow, testNow, nil))

	// Recursion into the deal: nothing cascades onto deals, nothing to clean
	mock.ExpectQuery(regexp.QuoteMeta(findRelsByToModule)).
		WithArgs("mod-deals").
		WillReturnRows(sqlmock.NewRows(relationshipColumns()))
	mock.ExpectQuery(regexp.QuoteMeta(findRelsByToModule)).
		WithArgs("mod-deals").
		WillReturnRows(sqlmock.NewRows(relationshipColumns()))

	// The referencing deal is soft-deleted
	mock.ExpectExec(regexp.QuoteMeta(softDeleteRecord)).
		WithArgs(testNow, testNow, "user-1", "rec-99").
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectCommit()

	err := svc.HandleCascadeDelete(context.Background(), "mod-contacts", "rec-42", "user-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A non-cascading scalar reference is nulled when its target goes away.
func TestCleanupOrphanedReferencesScalar(t *testing.T) {
	svc, mock := newRelationshipServiceWithMock(t)

	mock.ExpectBegin()

	mock.ExpectQuery(regexp.QuoteMeta(findRelsByToModule)).
		WithArgs("mod-contacts").
		WillReturnRows(sqlmock.NewRows(relationshipColumns()).
			AddRow("rel-1", "mod-deals", "mod-contacts", "Deal Contact", "contact_id", "one_to_many",
				`{"cascade_delete":false}`, testNow, testNow))

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT * FROM `module_records` WHERE `module_id` = ? AND `deleted_at` IS NULL AND JSON_UNQUOTE(JSON_EXTRACT(`data`, '$.\"contact_id\"')) = ?")).
		WithArgs("mod-deals", "rec-42").
		WillReturnRows(sqlmock.NewRows(recordColumns()).
			AddRow("rec-99", "mod-deals", `{"contact_id":"rec-42"}`, "u1", "u1", testNow, testNow, nil))

	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE `module_records` SET `data` = JSON_SET(`data`, '$.\"contact_id\"', CAST(? AS JSON)), `updated_at` = ?, `updated_by` = ? WHERE `id` = ?")).
		WithArgs("null", testNow, "user-1", "rec-99").
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectCommit()

	err := svc.CleanupOrphanedReferences(context.Background(), "mod-contacts", "rec-42", "user-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A non-cascading array reference drops the deleted id and keeps the rest of
// the array in its original order.
func TestCleanupOrphanedReferencesArrayKeepsOrder(t *testing.T) {
	svc, mock := newRelationshipServiceWithMock(t)

	mock.ExpectBegin()

	mock.ExpectQuery(regexp.QuoteMeta(findRelsByToModule)).
		WithArgs("mod-tags").
		WillReturnRows(sqlmock.NewRows(relationshipColumns()).
			AddRow("rel-2", "mod-deals", "mod-tags", "Deal Tags", "tag_ids", "many_to_many",
				`{"cascade_delete":false}`, testNow, testNow))

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT * FROM `module_records` WHERE `module_id` = ? AND `deleted_at` IS NULL AND JSON_CONTAINS(JSON_EXTRACT(`data`, '$.\"tag_ids\"'), JSON_QUOTE(?))")).
		WithArgs("mod-deals", "tag-2").
		WillReturnRows(sqlmock.NewRows(recordColumns()).
			AddRow("rec-99", "mod-deals", `{"tag_ids":["tag-1","tag-2","tag-3"]}`, "u1", "u1", testNow, testNow, nil))

	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE `module_records` SET `data` = JSON_SET(`data`, '$.\"tag_ids\"', CAST(? AS JSON)), `updated_at` = ?, `updated_by` = ? WHERE `id` = ?")).
		WithArgs(`["tag-1","tag-3"]`, testNow, "user-1", "rec-99").
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectCommit()

	err := svc.CleanupOrphanedReferences(context.Background(), "mod-tags", "tag-2", "user-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A deadlocked cleanup transaction is rolled back and retried.
func TestCleanupOrphanedReferencesRetriesDeadlock(t *testing.T) {
	svc, mock := newRelationshipServiceWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(findRelsByToModule)).
		WithArgs("mod-contacts").
		WillReturnError(fmt.Errorf("Error 1213: Deadlock found when trying to get lock"))
	mock.ExpectRollback()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(findRelsByToModule)).
		WithArgs("mod-contacts").
		WillReturnRows(sqlmock.NewRows(relationshipColumns()))
	mock.ExpectCommit()

	err := svc.CleanupOrphanedReferences(context.Background(), "mod-contacts", "rec-42", "user-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A one_to_many relationship holds a single reference, so linking more than
// one target at once is rejected before touching any record.
func TestLinkRecordsOneToManyCardinality(t *testing.T) {
	svc, mock := newRelationshipServiceWithMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(findRelByID)).
		WithArgs("rel-1").
		WillReturnRows(sqlmock.NewRows(relationshipColumns()).
			AddRow("rel-1", "mod-deals", "mod-contacts", "Deal Contact", "contact_id", "one_to_many",
				`{"cascade_delete":false}`, testNow, testNow))

	err := svc.LinkRecords(context.Background(), "rel-1", "rec-99", []string{"c-1", "c-2"}, "user-1")
	require.Error(t, err)
	assert.True(t, errors.IsTooManyTargets(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Linking new many_to_many targets unions them into the array without duplicates.
func TestLinkRecordsManyToManyUnion(t *testing.T) {
	svc, mock := newRelationshipServiceWithMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(findRelByID)).
		WithArgs("rel-2").
		WillReturnRows(sqlmock.NewRows(relationshipColumns()).
			AddRow("rel-2", "mod-deals", "mod-tags", "Deal Tags", "tag_ids", "many_to_many",
				`{"cascade_delete":false}`, testNow, testNow))

	mock.ExpectBegin()

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT * FROM `module_records` WHERE `id` = ? AND `module_id` = ? AND `deleted_at` IS NULL LIMIT 1")).
		WithArgs("rec-99", "mod-deals").
		WillReturnRows(sqlmock.NewRows(recordColumns()).
			AddRow("rec-99", "mod-deals", `{"tag_ids":["tag-1"]}`, "u1", "u1", testNow, testNow, nil))

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT * FROM `module_records` WHERE `module_id` = ? AND `id` IN (?, ?) AND `deleted_at` IS NULL")).
		WithArgs("mod-tags", "tag-1", "tag-2").
		WillReturnRows(sqlmock.NewRows(recordColumns()).
			AddRow("tag-1", "mod-tags", `{}`, "u1", "u1", testNow, testNow, nil).
			AddRow("tag-2", "mod-tags", `{}`, "u1", "u1", testNow, testNow, nil))

	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE `module_records` SET `data` = JSON_SET(`data`, '$.\"tag_ids\"', CAST(? AS JSON)), `updated_at` = ?, `updated_by` = ? WHERE `id` = ?")).
		WithArgs(`["tag-1","tag-2"]`, testNow, "user-1", "rec-99").
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectCommit()

	err := svc.LinkRecords(context.Background(), "rel-2", "rec-99", []string{"tag-1", "tag-2"}, "user-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Linking against a missing target fails with a not-found naming the ids.
func TestLinkRecordsMissingTarget(t *testing.T) {
	svc, mock := newRelationshipServiceWithMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(findRelByID)).
		WithArgs("rel-1").
		WillReturnRows(sqlmock.NewRows(relationshipColumns()).
			AddRow("rel-1", "mod-deals", "mod-contacts", "Deal Contact", "contact_id", "one_to_many",
				`{"cascade_delete":false}`, testNow, testNow))

	mock.ExpectBegin()

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT * FROM `module_records` WHERE `id` = ? AND `module_id` = ? AND `deleted_at` IS NULL LIMIT 1")).
		WithArgs("rec-99", "mod-deals").
		WillReturnRows(sqlmock.NewRows(recordColumns()).
			AddRow("rec-99", "mod-deals", `{}`, "u1", "u1", testNow, testNow, nil))

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT * FROM `module_records` WHERE `module_id` = ? AND `id` IN (?) AND `deleted_at` IS NULL")).
		WithArgs("mod-contacts", "ghost").
		WillReturnRows(sqlmock.NewRows(recordColumns()))

	mock.ExpectRollback()

	err := svc.LinkRecords(context.Background(), "rel-1", "rec-99", []string{"ghost"}, "user-1")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
