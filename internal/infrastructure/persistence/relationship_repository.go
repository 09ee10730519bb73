package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fluxcrm/backend/internal/domain/models"
	"github.com/fluxcrm/backend/pkg/constants"
	"github.com/fluxcrm/backend/pkg/query"
)

// RelationshipRepository persists relationship declarations
type RelationshipRepository struct {
	db *sql.DB
}

// NewRelationshipRepository creates a new RelationshipRepository
func NewRelationshipRepository(db *sql.DB) *RelationshipRepository {
	return &RelationshipRepository{db: db}
}

// GetExecutor returns the transaction if present, or the DB connection
func (r *RelationshipRepository) GetExecutor(tx *sql.Tx) Executor {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *RelationshipRepository) queryRels(ctx context.Context, tx *sql.Tx, q query.QueryResult) ([]*models.Relationship, error) {
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

	rels := make([]*models.Relationship, 0, len(scanned))
	for _, row := range scanned {
		rels = append(rels, rowToRelationship(row))
	}
	return rels, nil
}

// Insert inserts a relationship row
func (r *RelationshipRepository) Insert(ctx context.Context, tx *sql.Tx, rel *models.Relationship) error {
	q := query.Insert(constants.TableRelationships, map[string]interface{}{
		constants.FieldID:        rel.ID,
		"from_module_id":         rel.FromModuleID,
		"to_module_id":           rel.ToModuleID,
		"name":                   rel.Name,
		constants.FieldAPIName:   rel.APIName,
		"type":                   string(rel.Type),
		"settings":               marshalJSON(rel.Settings),
		constants.FieldCreatedAt: rel.CreatedAt,
		constants.FieldUpdatedAt: rel.UpdatedAt,
	}).Build()

	_, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	return err
}

// Update applies a column update to a relationship row
func (r *RelationshipRepository) Update(ctx context.Context, tx *sql.Tx, id string, updates map[string]interface{}) error {
	q := query.Update(constants.TableRelationships).
		Set(marshalUpdates(updates)).
		Where(fmt.Sprintf("`%s` = ?", constants.FieldID), id).
		Build()

	_, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	return err
}

// Delete removes a relationship row
func (r *RelationshipRepository) Delete(ctx context.Context, tx *sql.Tx, id string) error {
	q := query.Delete(constants.TableRelationships).
		Where(fmt.Sprintf("`%s` = ?", constants.FieldID), id).
		Build()

	_, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	return err
}

// FindByID returns a relationship row
func (r *RelationshipRepository) FindByID(ctx context.Context, tx *sql.Tx, id string) (*models.Relationship, error) {
	q := query.From(constants.TableRelationships).
		Where(fmt.Sprintf("`%s` = ?", constants.FieldID), id).
		Limit(1).
		Build()

	rels, err := r.queryRels(ctx, tx, q)
	if err != nil || len(rels) == 0 {
		return nil, err
	}
	return rels[0], nil
}

// FindAll returns every declared relationship
func (r *RelationshipRepository) FindAll(ctx context.Context) ([]*models.Relationship, error) {
	q := query.From(constants.TableRelationships).
		OrderBy(constants.FieldCreatedAt, constants.SortASC).
		Build()
	return r.queryRels(ctx, nil, q)
}

// FindByFromModule returns relationships whose source is the given module
func (r *RelationshipRepository) FindByFromModule(ctx context.Context, tx *sql.Tx, moduleID string) ([]*models.Relationship, error) {
	q := query.From(constants.TableRelationships).
		Where("`from_module_id` = ?", moduleID).
		Build()
	return r.queryRels(ctx, tx, q)
}

// FindByToModule returns relationships whose target is the given module
func (r *RelationshipRepository) FindByToModule(ctx context.Context, tx *sql.Tx, moduleID string) ([]*models.Relationship, error) {
	q := query.From(constants.TableRelationships).
		Where("`to_module_id` = ?", moduleID).
		Build()
	return r.queryRels(ctx, tx, q)
}

// FindByModule returns relationships touching the given module on either side
func (r *RelationshipRepository) FindByModule(ctx context.Context, tx *sql.Tx, moduleID string) ([]*models.Relationship, error) {
	q := query.From(constants.TableRelationships).
		Where("(`from_module_id` = ? OR `to_module_id` = ?)", moduleID, moduleID).
		Build()
	return r.queryRels(ctx, tx, q)
}

// CountByAPIName counts relationships holding an api_name, excluding one id.
// The api_name namespace is global since it keys record documents.
func (r *RelationshipRepository) CountByAPIName(ctx context.Context, tx *sql.Tx, apiName, excludeID string) (int, error) {
	builder := query.From(constants.TableRelationships).
		AddSelectRaw("COUNT(*)", "total").
		Where(fmt.Sprintf("`%s` = ?", constants.FieldAPIName), apiName)

	if excludeID != "" {
		builder.Where(fmt.Sprintf("`%s` != ?", constants.FieldID), excludeID)
	}

	q := builder.Build()
	exec := r.GetExecutor(tx)
	rows, err := exec.QueryContext(ctx, q.SQL, q.Params...)
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
