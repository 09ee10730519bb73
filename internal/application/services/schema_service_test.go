package services

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fluxcrm/backend/internal/domain/models"
	"github.com/fluxcrm/backend/internal/infrastructure/persistence"
	"github.com/fluxcrm/backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSchemaServiceWithMock(t *testing.T) (*SchemaService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewSchemaService(
		persistence.NewSchemaRepository(db),
		persistence.NewRecordRepository(db),
		persistence.NewRelationshipRepository(db),
		persistence.NewTransactionManager(db),
		fixedClock{testNow},
	), mock
}

const findModuleByID = "SELECT * FROM `modules` WHERE `id` = ? AND `deleted_at` IS NULL LIMIT 1"

func moduleRow(id, apiName string, isSystem bool) *sqlmock.Rows {
	return sqlmock.NewRows(moduleColumns()).
		AddRow(id, "Deals", "Deal", apiName, "briefcase", nil, true, isSystem, nil, 0, testNow, testNow, nil)
}

func TestResolveAPIName(t *testing.T) {
	tests := []struct {
		name     string
		explicit string
		label    string
		want     string
		wantErr  bool
	}{
		{name: "explicit wins", explicit: "custom_name", label: "Something Else", want: "custom_name"},
		{name: "derived from label", label: "Annual Revenue", want: "annual_revenue"},
		{name: "explicit malformed", explicit: "Bad Name", wantErr: true},
		{name: "derived empty", label: "!!!", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveAPIName(tt.explicit, tt.label)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsIntegrityViolation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreateModuleRequiresName(t *testing.T) {
	svc, mock := newSchemaServiceWithMock(t)

	_, err := svc.CreateModule(context.Background(), &models.ModuleInput{})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateModuleDuplicateAPIName(t *testing.T) {
	svc, mock := newSchemaServiceWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT COUNT(*) AS `total` FROM `modules` WHERE `api_name` = ? AND `deleted_at` IS NULL")).
		WithArgs("deals").
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(1))
	mock.ExpectRollback()

	_, err := svc.CreateModule(context.Background(), &models.ModuleInput{Name: "Deals"})
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateModuleSystemProtected(t *testing.T) {
	svc, mock := newSchemaServiceWithMock(t)

	name := "Renamed"
	mock.ExpectQuery(regexp.QuoteMeta(findModuleByID)).
		WithArgs("mod-sys").
		WillReturnRows(moduleRow("mod-sys", "users", true))

	_, err := svc.UpdateModule(context.Background(), "mod-sys", &models.ModuleUpdate{Name: &name})
	require.Error(t, err)
	assert.True(t, errors.IsProtectedResource(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteModuleWithRecords(t *testing.T) {
	svc, mock := newSchemaServiceWithMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(findModuleByID)).
		WithArgs("mod-deals").
		WillReturnRows(moduleRow("mod-deals", "deals", false))

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT COUNT(*) AS `total` FROM `module_records` WHERE `module_id` = ?")).
		WithArgs("mod-deals").
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(3))
	mock.ExpectRollback()

	err := svc.DeleteModule(context.Background(), "mod-deals")
	require.Error(t, err)
	assert.True(t, errors.IsIntegrityViolation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Deleting an empty module drops the relationship declarations touching it in
// the same transaction.
func TestDeleteModuleDropsRelationships(t *testing.T) {
	svc, mock := newSchemaServiceWithMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(findModuleByID)).
		WithArgs("mod-deals").
		WillReturnRows(moduleRow("mod-deals", "deals", false))

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT COUNT(*) AS `total` FROM `module_records` WHERE `module_id` = ?")).
		WithArgs("mod-deals").
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT * FROM `module_relationships` WHERE (`from_module_id` = ? OR `to_module_id` = ?)")).
		WithArgs("mod-deals", "mod-deals").
		WillReturnRows(sqlmock.NewRows(relationshipColumns()).
			AddRow("rel-1", "mod-deals", "mod-contacts", "Deal Contact", "contact_id", "one_to_many", "{}", testNow, testNow))
	mock.ExpectExec(regexp.QuoteMeta(
		"DELETE FROM `module_relationships` WHERE `id` = ?")).
		WithArgs("rel-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE `modules` SET `deleted_at` = ?, `updated_at` = ? WHERE `id` = ?")).
		WithArgs(testNow, testNow, "mod-deals").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := svc.DeleteModule(context.Background(), "mod-deals")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
