package persistence

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fluxcrm/backend/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var repoNow = time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

func newRecordRepoWithMock(t *testing.T) (*RecordRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRecordRepository(db), mock
}

func recordRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "module_id", "data", "created_by", "updated_by", "created_at", "updated_at", "deleted_at"})
}

func TestRecordFindOne(t *testing.T) {
	repo, mock := newRecordRepoWithMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT * FROM `module_records` WHERE `id` = ? AND `module_id` = ? AND `deleted_at` IS NULL LIMIT 1")).
		WithArgs("rec-1", "mod-1").
		WillReturnRows(recordRows().
			AddRow("rec-1", "mod-1", `{"name":"Ada","tags":["a","b"]}`, "u1", "u2", repoNow, repoNow, nil))

	record, err := repo.FindOne(context.Background(), nil, "mod-1", "rec-1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "rec-1", record.ID)
	assert.Equal(t, "mod-1", record.ModuleID)
	assert.Equal(t, "Ada", record.Data["name"])
	assert.Equal(t, "u2", record.UpdatedBy)
	assert.Nil(t, record.DeletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordFindOneMissing(t *testing.T) {
	repo, mock := newRecordRepoWithMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT * FROM `module_records` WHERE `id` = ? AND `module_id` = ? AND `deleted_at` IS NULL LIMIT 1")).
		WithArgs("ghost", "mod-1").
		WillReturnRows(recordRows())

	record, err := repo.FindOne(context.Background(), nil, "mod-1", "ghost")
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordInsert(t *testing.T) {
	repo, mock := newRecordRepoWithMock(t)

	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT INTO `module_records` (`created_at`, `created_by`, `data`, `id`, `module_id`, `updated_at`, `updated_by`) VALUES (?, ?, ?, ?, ?, ?, ?)")).
		WithArgs(repoNow, "u1", `{"name":"Ada"}`, "rec-1", "mod-1", repoNow, "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Insert(context.Background(), nil, &models.ModuleRecord{
		ID:        "rec-1",
		ModuleID:  "mod-1",
		Data:      models.Document{"name": "Ada"},
		CreatedBy: "u1",
		UpdatedBy: "u1",
		CreatedAt: repoNow,
		UpdatedAt: repoNow,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordSetDataKey(t *testing.T) {
	repo, mock := newRecordRepoWithMock(t)

	tests := []struct {
		name    string
		value   interface{}
		encoded string
	}{
		{name: "scalar", value: "rec-7", encoded: `"rec-7"`},
		{name: "array", value: []string{"a", "b"}, encoded: `["a","b"]`},
		{name: "empty array", value: []string{}, encoded: `[]`},
		{name: "null", value: nil, encoded: "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock.ExpectExec(regexp.QuoteMeta(
				"UPDATE `module_records` SET `data` = JSON_SET(`data`, '$.\"contact_id\"', CAST(? AS JSON)), `updated_at` = ?, `updated_by` = ? WHERE `id` = ?")).
				WithArgs(tt.encoded, repoNow, "u1", "rec-1").
				WillReturnResult(sqlmock.NewResult(0, 1))

			err := repo.SetDataKey(context.Background(), nil, "rec-1", "contact_id", tt.value, "u1", repoNow)
			require.NoError(t, err)
		})
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordFindReferencing(t *testing.T) {
	repo, mock := newRecordRepoWithMock(t)

	// scalar reference, one_to_many
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT * FROM `module_records` WHERE `module_id` = ? AND `deleted_at` IS NULL AND JSON_UNQUOTE(JSON_EXTRACT(`data`, '$.\"contact_id\"')) = ?")).
		WithArgs("mod-deals", "rec-42").
		WillReturnRows(recordRows().
			AddRow("rec-99", "mod-deals", `{"contact_id":"rec-42"}`, "u1", "u1", repoNow, repoNow, nil))

	refs, err := repo.FindReferencing(context.Background(), nil, "mod-deals", "contact_id", "rec-42", false)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "rec-99", refs[0].ID)

	// array membership, many_to_many
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT * FROM `module_records` WHERE `module_id` = ? AND `deleted_at` IS NULL AND JSON_CONTAINS(JSON_EXTRACT(`data`, '$.\"tag_ids\"'), JSON_QUOTE(?))")).
		WithArgs("mod-deals", "tag-1").
		WillReturnRows(recordRows())

	refs, err = repo.FindReferencing(context.Background(), nil, "mod-deals", "tag_ids", "tag-1", true)
	require.NoError(t, err)
	assert.Empty(t, refs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordSoftDeleteAndRestore(t *testing.T) {
	repo, mock := newRecordRepoWithMock(t)

	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE `module_records` SET `deleted_at` = ?, `updated_at` = ?, `updated_by` = ? WHERE `id` = ?")).
		WithArgs(repoNow, repoNow, "u1", "rec-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SoftDelete(context.Background(), nil, "rec-1", "u1", repoNow))

	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE `module_records` SET `deleted_at` = ?, `updated_at` = ?, `updated_by` = ? WHERE `id` = ?")).
		WithArgs(nil, repoNow, "u1", "rec-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Restore(context.Background(), nil, "rec-1", "u1", repoNow))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordCheckUniqueness(t *testing.T) {
	repo, mock := newRecordRepoWithMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT `id` FROM `module_records` WHERE `module_id` = ? AND JSON_UNQUOTE(JSON_EXTRACT(`data`, '$.\"email\"')) = ? AND `deleted_at` IS NULL LIMIT 1")).
		WithArgs("mod-1", "ada@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("rec-1"))

	taken, err := repo.CheckUniqueness(context.Background(), nil, "mod-1", "email", "ada@example.com", "")
	require.NoError(t, err)
	assert.True(t, taken)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT `id` FROM `module_records` WHERE `module_id` = ? AND JSON_UNQUOTE(JSON_EXTRACT(`data`, '$.\"email\"')) = ? AND `deleted_at` IS NULL AND `id` != ? LIMIT 1")).
		WithArgs("mod-1", "ada@example.com", "rec-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	taken, err = repo.CheckUniqueness(context.Background(), nil, "mod-1", "email", "ada@example.com", "rec-1")
	require.NoError(t, err)
	assert.False(t, taken)

	// An error during row iteration must surface instead of reading as free
	rowErr := fmt.Errorf("driver: bad connection")
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT `id` FROM `module_records` WHERE `module_id` = ? AND JSON_UNQUOTE(JSON_EXTRACT(`data`, '$.\"email\"')) = ? AND `deleted_at` IS NULL LIMIT 1")).
		WithArgs("mod-1", "ada@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("rec-1").RowError(0, rowErr))

	_, err = repo.CheckUniqueness(context.Background(), nil, "mod-1", "email", "ada@example.com", "")
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordCount(t *testing.T) {
	repo, mock := newRecordRepoWithMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT COUNT(*) AS `total` FROM `module_records` WHERE `module_id` = ? AND `deleted_at` IS NULL")).
		WithArgs("mod-1").
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(12))

	total, err := repo.Count(context.Background(), "mod-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 12, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
