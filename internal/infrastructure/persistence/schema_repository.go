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

// SchemaRepository persists module, block, field, and field option rows.
// It is purely mechanical; naming and uniqueness invariants live in the
// schema service.
type SchemaRepository struct {
	db *sql.DB
}

// NewSchemaRepository creates a new SchemaRepository
func NewSchemaRepository(db *sql.DB) *SchemaRepository {
	return &SchemaRepository{db: db}
}

// GetExecutor returns the transaction if present, or the DB connection
func (r *SchemaRepository) GetExecutor(tx *sql.Tx) Executor {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *SchemaRepository) queryRows(ctx context.Context, tx *sql.Tx, q query.QueryResult) ([]query.Row, error) {
	exec := r.GetExecutor(tx)
	rows, err := exec.QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return query.ScanRows(rows)
}

func (r *SchemaRepository) queryOne(ctx context.Context, tx *sql.Tx, q query.QueryResult) (query.Row, error) {
	results, err := r.queryRows(ctx, tx, q)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

// ==================== Modules ====================

// InsertModule inserts a module row
func (r *SchemaRepository) InsertModule(ctx context.Context, tx *sql.Tx, m *models.Module) error {
	q := query.Insert(constants.TableModules, map[string]interface{}{
		constants.FieldID:        m.ID,
		"name":                   m.Name,
		"singular_name":          m.SingularName,
		constants.FieldAPIName:   m.APIName,
		"icon":                   m.Icon,
		"description":            m.Description,
		"is_active":              m.IsActive,
		"is_system":              m.IsSystem,
		"settings":               marshalJSON(m.Settings),
		constants.FieldOrder:     m.DisplayOrder,
		constants.FieldCreatedAt: m.CreatedAt,
		constants.FieldUpdatedAt: m.UpdatedAt,
	}).Build()

	_, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	return err
}

// UpdateModule applies a column update to a module row
func (r *SchemaRepository) UpdateModule(ctx context.Context, tx *sql.Tx, id string, updates map[string]interface{}) error {
	q := query.Update(constants.TableModules).
		Set(marshalUpdates(updates)).
		Where(fmt.Sprintf("`%s` = ?", constants.FieldID), id).
		Build()

	_, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	return err
}

// SoftDeleteModule marks a module row deleted
func (r *SchemaRepository) SoftDeleteModule(ctx context.Context, tx *sql.Tx, id string, now time.Time) error {
	return r.UpdateModule(ctx, tx, id, map[string]interface{}{
		constants.FieldDeletedAt: now,
		constants.FieldUpdatedAt: now,
	})
}

// FindModuleByID returns a module row, excluding soft-deleted ones
func (r *SchemaRepository) FindModuleByID(ctx context.Context, tx *sql.Tx, id string) (*models.Module, error) {
	q := query.From(constants.TableModules).
		Where(fmt.Sprintf("`%s` = ?", constants.FieldID), id).
		ExcludeDeleted().
		Limit(1).
		Build()

	row, err := r.queryOne(ctx, tx, q)
	if err != nil || row == nil {
		return nil, err
	}
	return rowToModule(row), nil
}

// FindModuleByAPIName returns a module row by api_name, excluding soft-deleted ones
func (r *SchemaRepository) FindModuleByAPIName(ctx context.Context, tx *sql.Tx, apiName string) (*models.Module, error) {
	q := query.From(constants.TableModules).
		Where(fmt.Sprintf("`%s` = ?", constants.FieldAPIName), apiName).
		ExcludeDeleted().
		Limit(1).
		Build()

	row, err := r.queryOne(ctx, tx, q)
	if err != nil || row == nil {
		return nil, err
	}
	return rowToModule(row), nil
}

// FindModules returns all modules ordered by display order
func (r *SchemaRepository) FindModules(ctx context.Context) ([]*models.Module, error) {
	q := query.From(constants.TableModules).
		ExcludeDeleted().
		OrderBy(constants.FieldOrder, constants.SortASC).
		Build()

	rows, err := r.queryRows(ctx, nil, q)
	if err != nil {
		return nil, err
	}

	modules := make([]*models.Module, 0, len(rows))
	for _, row := range rows {
		modules = append(modules, rowToModule(row))
	}
	return modules, nil
}

// CountModulesWithAPIName counts modules holding an api_name, excluding one id
func (r *SchemaRepository) CountModulesWithAPIName(ctx context.Context, tx *sql.Tx, apiName, excludeID string) (int, error) {
	return r.countWhere(ctx, tx, constants.TableModules,
		fmt.Sprintf("`%s` = ? AND `%s` IS NULL", constants.FieldAPIName, constants.FieldDeletedAt),
		[]interface{}{apiName}, excludeID)
}

// NextModuleOrder returns the next display order position for modules
func (r *SchemaRepository) NextModuleOrder(ctx context.Context, tx *sql.Tx) (int, error) {
	q := query.From(constants.TableModules).
		AddSelectRaw(fmt.Sprintf("COALESCE(MAX(`%s`), -1) + 1", constants.FieldOrder), "next_order").
		ExcludeDeleted().
		Build()

	row, err := r.queryOne(ctx, tx, q)
	if err != nil || row == nil {
		return 0, err
	}

	var next int
	if f, ok := rowNumeric(row, "next_order"); ok {
		next = int(f)
	}
	return next, nil
}

// ==================== Blocks ====================

// InsertBlock inserts a block row
func (r *SchemaRepository) InsertBlock(ctx context.Context, tx *sql.Tx, b *models.Block) error {
	q := query.Insert(constants.TableBlocks, map[string]interface{}{
		constants.FieldID:        b.ID,
		constants.FieldModuleID:  b.ModuleID,
		"name":                   b.Name,
		"type":                   string(b.Type),
		constants.FieldOrder:     b.DisplayOrder,
		"column_count":           b.Columns,
		"is_collapsible":         b.IsCollapsible,
		"is_collapsed":           b.IsCollapsed,
		constants.FieldCreatedAt: b.CreatedAt,
		constants.FieldUpdatedAt: b.UpdatedAt,
	}).Build()

	_, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	return err
}

// UpdateBlock applies a column update to a block row
func (r *SchemaRepository) UpdateBlock(ctx context.Context, tx *sql.Tx, id string, updates map[string]interface{}) error {
	q := query.Update(constants.TableBlocks).
		Set(marshalUpdates(updates)).
		Where(fmt.Sprintf("`%s` = ?", constants.FieldID), id).
		Build()

	_, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	return err
}

// DeleteBlock removes a block row and cascades to its fields and options
func (r *SchemaRepository) DeleteBlock(ctx context.Context, tx *sql.Tx, id string) error {
	fields, err := r.FindFieldsByBlock(ctx, tx, id)
	if err != nil {
		return err
	}
	for _, field := range fields {
		if err := r.DeleteField(ctx, tx, field.ID); err != nil {
			return err
		}
	}

	q := query.Delete(constants.TableBlocks).
		Where(fmt.Sprintf("`%s` = ?", constants.FieldID), id).
		Build()

	_, err = r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	return err
}

// FindBlockByID returns a block row
func (r *SchemaRepository) FindBlockByID(ctx context.Context, tx *sql.Tx, id string) (*models.Block, error) {
	q := query.From(constants.TableBlocks).
		Where(fmt.Sprintf("`%s` = ?", constants.FieldID), id).
		Limit(1).
		Build()

	row, err := r.queryOne(ctx, tx, q)
	if err != nil || row == nil {
		return nil, err
	}
	return rowToBlock(row), nil
}

// FindBlocksByModule returns a module's blocks ordered by display order
func (r *SchemaRepository) FindBlocksByModule(ctx context.Context, tx *sql.Tx, moduleID string) ([]*models.Block, error) {
	q := query.From(constants.TableBlocks).
		Where(fmt.Sprintf("`%s` = ?", constants.FieldModuleID), moduleID).
		OrderBy(constants.FieldOrder, constants.SortASC).
		Build()

	rows, err := r.queryRows(ctx, tx, q)
	if err != nil {
		return nil, err
	}

	blocks := make([]*models.Block, 0, len(rows))
	for _, row := range rows {
		blocks = append(blocks, rowToBlock(row))
	}
	return blocks, nil
}

// ==================== Fields ====================

// InsertField inserts a field row
func (r *SchemaRepository) InsertField(ctx context.Context, tx *sql.Tx, f *models.Field) error {
	q := query.Insert(constants.TableFields, map[string]interface{}{
		constants.FieldID:        f.ID,
		constants.FieldBlockID:   f.BlockID,
		"relationship_id":        f.RelationshipID,
		"type":                   string(f.Type),
		constants.FieldAPIName:   f.APIName,
		"label":                  f.Label,
		"description":            f.Description,
		"help_text":              f.HelpText,
		"is_required":            f.IsRequired,
		"is_unique":              f.IsUnique,
		"is_searchable":          f.IsSearchable,
		"is_visible_list":        f.IsVisibleList,
		"is_visible_detail":      f.IsVisibleDetail,
		"validation_rules":       marshalJSON(f.ValidationRules),
		"settings":               marshalJSON(f.Settings),
		"default_value":          marshalJSON(f.DefaultValue),
		constants.FieldOrder:     f.DisplayOrder,
		"width":                  string(f.Width),
		constants.FieldCreatedAt: f.CreatedAt,
		constants.FieldUpdatedAt: f.UpdatedAt,
	}).Build()

	_, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	return err
}

// UpdateField applies a column update to a field row
func (r *SchemaRepository) UpdateField(ctx context.Context, tx *sql.Tx, id string, updates map[string]interface{}) error {
	q := query.Update(constants.TableFields).
		Set(marshalUpdates(updates)).
		Where(fmt.Sprintf("`%s` = ?", constants.FieldID), id).
		Build()

	_, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	return err
}

// DeleteField removes a field row and cascades to its options.
// Existing record documents keep the now-orphaned key untouched.
func (r *SchemaRepository) DeleteField(ctx context.Context, tx *sql.Tx, id string) error {
	qOpts := query.Delete(constants.TableFieldOptions).
		Where(fmt.Sprintf("`%s` = ?", constants.FieldFieldID), id).
		Build()
	if _, err := r.GetExecutor(tx).ExecContext(ctx, qOpts.SQL, qOpts.Params...); err != nil {
		return err
	}

	q := query.Delete(constants.TableFields).
		Where(fmt.Sprintf("`%s` = ?", constants.FieldID), id).
		Build()

	_, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	return err
}

// FindFieldByID returns a field row
func (r *SchemaRepository) FindFieldByID(ctx context.Context, tx *sql.Tx, id string) (*models.Field, error) {
	q := query.From(constants.TableFields).
		Where(fmt.Sprintf("`%s` = ?", constants.FieldID), id).
		Limit(1).
		Build()

	row, err := r.queryOne(ctx, tx, q)
	if err != nil || row == nil {
		return nil, err
	}
	return rowToField(row), nil
}

// FindFieldsByBlock returns a block's fields ordered by display order
func (r *SchemaRepository) FindFieldsByBlock(ctx context.Context, tx *sql.Tx, blockID string) ([]*models.Field, error) {
	q := query.From(constants.TableFields).
		Where(fmt.Sprintf("`%s` = ?", constants.FieldBlockID), blockID).
		OrderBy(constants.FieldOrder, constants.SortASC).
		Build()

	rows, err := r.queryRows(ctx, tx, q)
	if err != nil {
		return nil, err
	}

	fields := make([]*models.Field, 0, len(rows))
	for _, row := range rows {
		fields = append(fields, rowToField(row))
	}
	return fields, nil
}

// CountFieldsWithAPIName counts fields in a block holding an api_name, excluding one id
func (r *SchemaRepository) CountFieldsWithAPIName(ctx context.Context, tx *sql.Tx, blockID, apiName, excludeID string) (int, error) {
	return r.countWhere(ctx, tx, constants.TableFields,
		fmt.Sprintf("`%s` = ? AND `%s` = ?", constants.FieldBlockID, constants.FieldAPIName),
		[]interface{}{blockID, apiName}, excludeID)
}

// ==================== Field options ====================

// InsertOption inserts a field option row
func (r *SchemaRepository) InsertOption(ctx context.Context, tx *sql.Tx, o *models.FieldOption) error {
	q := query.Insert(constants.TableFieldOptions, map[string]interface{}{
		constants.FieldID:        o.ID,
		constants.FieldFieldID:   o.FieldID,
		"label":                  o.Label,
		"value":                  o.Value,
		"color":                  o.Color,
		"is_default":             o.IsDefault,
		"is_active":              o.IsActive,
		constants.FieldOrder:     o.DisplayOrder,
		constants.FieldCreatedAt: o.CreatedAt,
		constants.FieldUpdatedAt: o.UpdatedAt,
	}).Build()

	_, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	return err
}

// UpdateOption applies a column update to a field option row
func (r *SchemaRepository) UpdateOption(ctx context.Context, tx *sql.Tx, id string, updates map[string]interface{}) error {
	q := query.Update(constants.TableFieldOptions).
		Set(marshalUpdates(updates)).
		Where(fmt.Sprintf("`%s` = ?", constants.FieldID), id).
		Build()

	_, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	return err
}

// DeleteOption removes a field option row
func (r *SchemaRepository) DeleteOption(ctx context.Context, tx *sql.Tx, id string) error {
	q := query.Delete(constants.TableFieldOptions).
		Where(fmt.Sprintf("`%s` = ?", constants.FieldID), id).
		Build()

	_, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	return err
}

// FindOptionByID returns a field option row
func (r *SchemaRepository) FindOptionByID(ctx context.Context, tx *sql.Tx, id string) (*models.FieldOption, error) {
	q := query.From(constants.TableFieldOptions).
		Where(fmt.Sprintf("`%s` = ?", constants.FieldID), id).
		Limit(1).
		Build()

	row, err := r.queryOne(ctx, tx, q)
	if err != nil || row == nil {
		return nil, err
	}
	return rowToOption(row), nil
}

// FindOptionsByField returns a field's options ordered by display order
func (r *SchemaRepository) FindOptionsByField(ctx context.Context, tx *sql.Tx, fieldID string) ([]*models.FieldOption, error) {
	q := query.From(constants.TableFieldOptions).
		Where(fmt.Sprintf("`%s` = ?", constants.FieldFieldID), fieldID).
		OrderBy(constants.FieldOrder, constants.SortASC).
		Build()

	rows, err := r.queryRows(ctx, tx, q)
	if err != nil {
		return nil, err
	}

	options := make([]*models.FieldOption, 0, len(rows))
	for _, row := range rows {
		options = append(options, rowToOption(row))
	}
	return options, nil
}

// CountOptionsWithValue counts a field's options holding a value, excluding one id
func (r *SchemaRepository) CountOptionsWithValue(ctx context.Context, tx *sql.Tx, fieldID, value, excludeID string) (int, error) {
	return r.countWhere(ctx, tx, constants.TableFieldOptions,
		fmt.Sprintf("`%s` = ? AND `value` = ?", constants.FieldFieldID),
		[]interface{}{fieldID, value}, excludeID)
}

// ClearDefaultOptions unsets is_default on all of a field's options except one.
// Keeps the at-most-one-default invariant when a new default is set.
func (r *SchemaRepository) ClearDefaultOptions(ctx context.Context, tx *sql.Tx, fieldID, exceptID string, now time.Time) error {
	q := query.Update(constants.TableFieldOptions).
		Set(map[string]interface{}{
			"is_default":             false,
			constants.FieldUpdatedAt: now,
		}).
		Where(fmt.Sprintf("`%s` = ?", constants.FieldFieldID), fieldID).
		Where(fmt.Sprintf("`%s` != ?", constants.FieldID), exceptID).
		Build()

	_, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	return err
}

// ==================== Schema assembly ====================

// LoadModuleSchema loads the full schema snapshot of a module: the module
// row plus blocks, fields, and field options. Returns nil when the module
// does not exist or is soft-deleted.
func (r *SchemaRepository) LoadModuleSchema(ctx context.Context, tx *sql.Tx, moduleID string) (*models.ModuleSchema, error) {
	module, err := r.FindModuleByID(ctx, tx, moduleID)
	if err != nil || module == nil {
		return nil, err
	}

	blocks, err := r.FindBlocksByModule(ctx, tx, moduleID)
	if err != nil {
		return nil, err
	}

	schema := &models.ModuleSchema{Module: *module, Blocks: make([]models.Block, 0, len(blocks))}
	for _, block := range blocks {
		fields, err := r.FindFieldsByBlock(ctx, tx, block.ID)
		if err != nil {
			return nil, err
		}

		assembled := *block
		assembled.Fields = make([]models.Field, 0, len(fields))
		for _, field := range fields {
			options, err := r.FindOptionsByField(ctx, tx, field.ID)
			if err != nil {
				return nil, err
			}
			withOptions := *field
			withOptions.Options = make([]models.FieldOption, 0, len(options))
			for _, opt := range options {
				withOptions.Options = append(withOptions.Options, *opt)
			}
			assembled.Fields = append(assembled.Fields, withOptions)
		}
		schema.Blocks = append(schema.Blocks, assembled)
	}

	return schema, nil
}

// ==================== Reordering ====================

// FindChildIDs returns the ids of all rows under a parent, used to validate
// reorder membership before any position change is applied
func (r *SchemaRepository) FindChildIDs(ctx context.Context, tx *sql.Tx, table, parentColumn, parentID string) (map[string]bool, error) {
	q := query.From(table).
		Select([]string{constants.FieldID}).
		Where(fmt.Sprintf("`%s` = ?", parentColumn), parentID).
		Build()

	rows, err := r.queryRows(ctx, tx, q)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]bool, len(rows))
	for _, row := range rows {
		ids[rowString(row, constants.FieldID)] = true
	}
	return ids, nil
}

// ApplyPositions writes new display orders; must run inside a transaction so
// a partially failing reorder never persists
func (r *SchemaRepository) ApplyPositions(ctx context.Context, tx *sql.Tx, table string, positions map[string]int, now time.Time) error {
	for id, position := range positions {
		q := query.Update(table).
			Set(map[string]interface{}{
				constants.FieldOrder:     position,
				constants.FieldUpdatedAt: now,
			}).
			Where(fmt.Sprintf("`%s` = ?", constants.FieldID), id).
			Build()

		if _, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...); err != nil {
			return err
		}
	}
	return nil
}

// countWhere runs a COUNT(*) with an optional id exclusion
func (r *SchemaRepository) countWhere(ctx context.Context, tx *sql.Tx, table, condition string, params []interface{}, excludeID string) (int, error) {
	builder := query.From(table).
		AddSelectRaw("COUNT(*)", "total").
		Where(condition, params...)

	if excludeID != "" {
		builder.Where(fmt.Sprintf("`%s` != ?", constants.FieldID), excludeID)
	}

	q := builder.Build()
	row, err := r.queryOne(ctx, tx, q)
	if err != nil || row == nil {
		return 0, err
	}

	if f, ok := rowNumeric(row, "total"); ok {
		return int(f), nil
	}
	return 0, nil
}
