package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fluxcrm/backend/internal/domain/models"
	"github.com/fluxcrm/backend/pkg/constants"
	"github.com/fluxcrm/backend/pkg/query"
)

// RecordRepository handles CRUD over the module_records table. Every record
// is an opaque JSON document scoped to one module; this layer never
// interprets the document beyond the JSON-path predicates handed to it.
type RecordRepository struct {
	db *sql.DB
}

// NewRecordRepository creates a new RecordRepository
func NewRecordRepository(db *sql.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// GetExecutor returns the transaction if present, or the DB connection
func (r *RecordRepository) GetExecutor(tx *sql.Tx) Executor {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *RecordRepository) queryRecords(ctx context.Context, tx *sql.Tx, q query.QueryResult) ([]*models.ModuleRecord, error) {
	exec := r.GetExecutor(tx)
	rows, err := exec.QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scanned, err := query.ScanRows(rows)
	if err != nil {
		return nil, err
	}

	records := make([]*models.ModuleRecord, 0, len(scanned))
	for _, row := range scanned {
		records = append(records, rowToRecord(row))
	}
	return records, nil
}

// Insert inserts a record row
func (r *RecordRepository) Insert(ctx context.Context, tx *sql.Tx, record *models.ModuleRecord) error {
	q := query.Insert(constants.TableModuleRecords, map[string]interface{}{
		constants.FieldID:        record.ID,
		constants.FieldModuleID:  record.ModuleID,
		constants.FieldData:      marshalJSON(record.Data),
		constants.FieldCreatedBy: record.CreatedBy,
		constants.FieldUpdatedBy: record.UpdatedBy,
		constants.FieldCreatedAt: record.CreatedAt,
		constants.FieldUpdatedAt: record.UpdatedAt,
	}).Build()

	_, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	return err
}

// UpdateData replaces a record's document and audit columns
func (r *RecordRepository) UpdateData(ctx context.Context, tx *sql.Tx, id string, data models.Document, updatedBy string, now time.Time) error {
	q := query.Update(constants.TableModuleRecords).
		Set(map[string]interface{}{
			constants.FieldData:      marshalJSON(data),
			constants.FieldUpdatedBy: updatedBy,
			constants.FieldUpdatedAt: now,
		}).
		Where(fmt.Sprintf("`%s` = ?", constants.FieldID), id).
		Build()

	_, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	return err
}

// SetDataKey writes one document key in place, leaving the rest of the
// document untouched. Used for link/unlink and orphan reference cleanup.
func (r *RecordRepository) SetDataKey(ctx context.Context, tx *sql.Tx, id, apiName string, value interface{}, updatedBy string, now time.Time) error {
	stmt := fmt.Sprintf(
		"UPDATE `%s` SET `%s` = JSON_SET(`%s`, '$.\"%s\"', CAST(? AS JSON)), `%s` = ?, `%s` = ? WHERE `%s` = ?",
		constants.TableModuleRecords, constants.FieldData, constants.FieldData, apiName,
		constants.FieldUpdatedAt, constants.FieldUpdatedBy, constants.FieldID)

	encoded := marshalJSON(value)
	if value == nil {
		encoded = "null"
	}

	_, err := r.GetExecutor(tx).ExecContext(ctx, stmt, encoded, now, updatedBy, id)
	return err
}

// SoftDelete marks a record row deleted
func (r *RecordRepository) SoftDelete(ctx context.Context, tx *sql.Tx, id, actorID string, now time.Time) error {
	q := query.Update(constants.TableModuleRecords).
		Set(map[string]interface{}{
			constants.FieldDeletedAt: now,
			constants.FieldUpdatedBy: actorID,
			constants.FieldUpdatedAt: now,
		}).
		Where(fmt.Sprintf("`%s` = ?", constants.FieldID), id).
		Build()

	_, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	return err
}

// Restore clears a record's soft-delete marker
func (r *RecordRepository) Restore(ctx context.Context, tx *sql.Tx, id, actorID string, now time.Time) error {
	q := query.Update(constants.TableModuleRecords).
		Set(map[string]interface{}{
			constants.FieldDeletedAt: nil,
			constants.FieldUpdatedBy: actorID,
			constants.FieldUpdatedAt: now,
		}).
		Where(fmt.Sprintf("`%s` = ?", constants.FieldID), id).
		Build()

	_, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	return err
}

// PhysicalDelete permanently removes a record row
func (r *RecordRepository) PhysicalDelete(ctx context.Context, tx *sql.Tx, id string) error {
	q := query.Delete(constants.TableModuleRecords).
		Where(fmt.Sprintf("`%s` = ?", constants.FieldID), id).
		Build()

	_, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	return err
}

// FindOne returns a record by id within a module, excluding soft-deleted rows
func (r *RecordRepository) FindOne(ctx context.Context, tx *sql.Tx, moduleID, id string) (*models.ModuleRecord, error) {
	q := query.From(constants.TableModuleRecords).
		Where(fmt.Sprintf("`%s` = ?", constants.FieldID), id).
		Where(fmt.Sprintf("`%s` = ?", constants.FieldModuleID), moduleID).
		ExcludeDeleted().
		Limit(1).
		Build()

	records, err := r.queryRecords(ctx, tx, q)
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return records[0], nil
}

// FindAny returns a record by id within a module, including soft-deleted rows
func (r *RecordRepository) FindAny(ctx context.Context, tx *sql.Tx, moduleID, id string) (*models.ModuleRecord, error) {
	q := query.From(constants.TableModuleRecords).
		Where(fmt.Sprintf("`%s` = ?", constants.FieldID), id).
		Where(fmt.Sprintf("`%s` = ?", constants.FieldModuleID), moduleID).
		Limit(1).
		Build()

	records, err := r.queryRecords(ctx, tx, q)
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return records[0], nil
}

// FindByIDs returns all non-deleted records matching the given ids
func (r *RecordRepository) FindByIDs(ctx context.Context, tx *sql.Tx, moduleID string, ids []string) ([]*models.ModuleRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	values := make([]interface{}, len(ids))
	for i, id := range ids {
		values[i] = id
	}

	q := query.From(constants.TableModuleRecords).
		Where(fmt.Sprintf("`%s` = ?", constants.FieldModuleID), moduleID).
		WhereIn(constants.FieldID, values).
		ExcludeDeleted().
		Build()

	return r.queryRecords(ctx, tx, q)
}

// List returns one page of a module's records under the given translated
// predicates and orderings
func (r *RecordRepository) List(ctx context.Context, moduleID string, predicates []query.Predicate, orders []query.OrderClause, limit, offset int) ([]*models.ModuleRecord, error) {
	builder := query.From(constants.TableModuleRecords).
		Where(fmt.Sprintf("`%s` = ?", constants.FieldModuleID), moduleID).
		ExcludeDeleted()

	for _, p := range predicates {
		builder.Where(p.SQL, p.Params...)
	}
	for _, o := range orders {
		builder.OrderByRaw(o.SQL)
	}
	builder.Limit(limit).Offset(offset)

	return r.queryRecords(ctx, nil, builder.Build())
}

// Count returns the number of a module's records matching the predicates
func (r *RecordRepository) Count(ctx context.Context, moduleID string, predicates []query.Predicate) (int, error) {
	builder := query.From(constants.TableModuleRecords).
		AddSelectRaw("COUNT(*)", "total").
		Where(fmt.Sprintf("`%s` = ?", constants.FieldModuleID), moduleID).
		ExcludeDeleted()

	for _, p := range predicates {
		builder.Where(p.SQL, p.Params...)
	}

	q := builder.Build()
	rows, err := r.GetExecutor(nil).QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	scanned, err := query.ScanRows(rows)
	if err != nil || len(scanned) == 0 {
		return 0, err
	}
	if f, ok := rowNumeric(scanned[0], "total"); ok {
		return int(f), nil
	}
	return 0, nil
}

// CountByModule counts every record row in a module, soft-deleted included.
// Soft-deleted rows are restorable, so they still block module deletion.
func (r *RecordRepository) CountByModule(ctx context.Context, tx *sql.Tx, moduleID string) (int, error) {
	q := query.From(constants.TableModuleRecords).
		AddSelectRaw("COUNT(*)", "total").
		Where(fmt.Sprintf("`%s` = ?", constants.FieldModuleID), moduleID).
		Build()

	rows, err := r.GetExecutor(tx).QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	scanned, err := query.ScanRows(rows)
	if err != nil || len(scanned) == 0 {
		return 0, err
	}
	if f, ok := rowNumeric(scanned[0], "total"); ok {
		return int(f), nil
	}
	return 0, nil
}

// FindReferencing returns the non-deleted records of a module whose document
// references targetID under the given key: scalar equality for one-to-many,
// array membership for many-to-many
func (r *RecordRepository) FindReferencing(ctx context.Context, tx *sql.Tx, moduleID, apiName, targetID string, manyToMany bool) ([]*models.ModuleRecord, error) {
	builder := query.From(constants.TableModuleRecords).
		Where(fmt.Sprintf("`%s` = ?", constants.FieldModuleID), moduleID).
		ExcludeDeleted()

	if manyToMany {
		builder.Where(query.DataContains(apiName), targetID)
	} else {
		builder.Where(query.DataEquals(apiName), targetID)
	}

	return r.queryRecords(ctx, tx, builder.Build())
}

// CheckUniqueness reports whether a document value already exists for a key
// among a module's non-deleted records, excluding one record id
func (r *RecordRepository) CheckUniqueness(ctx context.Context, tx *sql.Tx, moduleID, apiName string, value interface{}, excludeID string) (bool, error) {
	builder := query.From(constants.TableModuleRecords).
		Select([]string{constants.FieldID}).
		Where(fmt.Sprintf("`%s` = ?", constants.FieldModuleID), moduleID).
		Where(query.DataEquals(apiName), fmt.Sprintf("%v", value)).
		ExcludeDeleted().
		Limit(1)

	if excludeID != "" {
		builder.Where(fmt.Sprintf("`%s` != ?", constants.FieldID), excludeID)
	}

	q := builder.Build()
	rows, err := r.GetExecutor(tx).QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	taken := rows.Next()
	if err := rows.Err(); err != nil {
		return false, err
	}
	return taken, nil
}
