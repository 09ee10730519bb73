package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/fluxcrm/backend/internal/domain/models"
	"github.com/fluxcrm/backend/internal/infrastructure/persistence"
	"github.com/fluxcrm/backend/pkg/constants"
	"github.com/fluxcrm/backend/pkg/errors"
	"github.com/fluxcrm/backend/pkg/fieldtypes"
	"github.com/fluxcrm/backend/pkg/formula"
	"github.com/fluxcrm/backend/pkg/query"
	"github.com/fluxcrm/backend/pkg/utils"
)

// BulkUpdateItem pairs a record id with the partial document to merge into it
type BulkUpdateItem struct {
	ID   string          `json:"id"`
	Data models.Document `json:"data"`
}

// RecordService owns the record surface of a module: schema-validated CRUD
// over the shared JSON document store, filtered and sorted listing, and the
// bulk operations. Deletion delegates referential integrity to the
// relationship service inside the same transaction.
type RecordService struct {
	schemaRepo    *persistence.SchemaRepository
	recordRepo    *persistence.RecordRepository
	relationships *RelationshipService
	validation    *ValidationService
	formulas      *formula.Engine
	txManager     *persistence.TransactionManager
	clock         Clock
}

// NewRecordService creates a new RecordService
func NewRecordService(schemaRepo *persistence.SchemaRepository, recordRepo *persistence.RecordRepository, relationships *RelationshipService, validation *ValidationService, txManager *persistence.TransactionManager, clock Clock) *RecordService {
	if clock == nil {
		clock = systemClock{}
	}
	return &RecordService{
		schemaRepo:    schemaRepo,
		recordRepo:    recordRepo,
		relationships: relationships,
		validation:    validation,
		formulas:      formula.NewEngine(),
		txManager:     txManager,
		clock:         clock,
	}
}

// loadSchema fetches a module's schema snapshot or a not-found error
func (s *RecordService) loadSchema(ctx context.Context, moduleID string) (*models.ModuleSchema, error) {
	schema, err := s.schemaRepo.LoadModuleSchema(ctx, nil, moduleID)
	if err != nil {
		return nil, err
	}
	if schema == nil {
		return nil, errors.NewNotFoundError("module", moduleID)
	}
	return schema, nil
}

// enrich computes formula field values into a record's document on the way
// out. Formula results are derived data and never stored; a failing
// expression yields null rather than an error.
func (s *RecordService) enrich(schema *models.ModuleSchema, record *models.ModuleRecord) *models.ModuleRecord {
	for _, field := range schema.Fields() {
		if !fieldtypes.IsVirtual(string(field.Type)) {
			continue
		}
		expression, _ := field.Settings["expression"].(string)
		if expression == "" {
			continue
		}
		if record.Data == nil {
			record.Data = models.Document{}
		}
		env := map[string]interface{}(record.Data.Clone())
		env["id"] = record.ID
		record.Data[field.APIName] = s.formulas.EvaluateOrNil(expression, env)
	}
	return record
}

// checkUnique enforces is_unique fields against the module's live records
func (s *RecordService) checkUnique(ctx context.Context, tx *sql.Tx, schema *models.ModuleSchema, doc models.Document, excludeID string) error {
	for _, field := range schema.Fields() {
		if !field.IsUnique {
			continue
		}
		value, ok := doc[field.APIName]
		if !ok || isEmpty(value) {
			continue
		}
		taken, err := s.recordRepo.CheckUniqueness(ctx, tx, schema.Module.ID, field.APIName, value, excludeID)
		if err != nil {
			return err
		}
		if taken {
			return errors.NewConflictError("record", field.APIName, fmt.Sprintf("%v", value))
		}
	}
	return nil
}

// Create validates the input against the module schema and stores a new
// record. Inactive modules reject creation outright.
func (s *RecordService) Create(ctx context.Context, moduleID string, input models.Document, actorID string) (*models.ModuleRecord, error) {
	schema, err := s.loadSchema(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	if !schema.Module.IsActive {
		return nil, errors.NewInactiveModuleError(schema.Module.APIName)
	}

	doc, verrs := s.validation.BuildDocument(schema, input, nil)
	if verrs != nil {
		return nil, verrs
	}

	now := s.clock.Now()
	record := &models.ModuleRecord{
		ID:        utils.GenerateID(),
		ModuleID:  moduleID,
		Data:      doc,
		CreatedBy: actorID,
		UpdatedBy: actorID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.txManager.WithTransaction(func(tx *sql.Tx) error {
		if err := s.checkUnique(ctx, tx, schema, doc, ""); err != nil {
			return err
		}
		return s.recordRepo.Insert(ctx, tx, record)
	})
	if err != nil {
		return nil, err
	}
	return s.enrich(schema, record), nil
}

// Get returns a single live record with formula fields computed
func (s *RecordService) Get(ctx context.Context, moduleID, recordID string) (*models.ModuleRecord, error) {
	schema, err := s.loadSchema(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	record, err := s.recordRepo.FindOne(ctx, nil, moduleID, recordID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, errors.NewNotFoundError("record", recordID)
	}
	return s.enrich(schema, record), nil
}

// List returns a page of live records. Filters on unknown fields or
// unsupported operators are dropped rather than erroring; sorting falls back
// to newest-first when nothing valid is requested.
func (s *RecordService) List(ctx context.Context, moduleID string, opts models.ListOptions) (*models.RecordPage, error) {
	schema, err := s.loadSchema(ctx, moduleID)
	if err != nil {
		return nil, err
	}

	page := opts.Page
	if page < 1 {
		page = 1
	}
	pageSize := opts.PageSize
	if pageSize < 1 {
		pageSize = constants.DefaultPageSize
	}
	if pageSize > constants.MaxPageSize {
		pageSize = constants.MaxPageSize
	}

	translator := query.NewTranslator(schema)
	predicates := translator.TranslateFilters(opts.Filters)
	orders := translator.TranslateSorts(opts.Sort)
	if len(orders) == 0 {
		orders = []query.OrderClause{query.DefaultOrder()}
	}

	total, err := s.recordRepo.Count(ctx, moduleID, predicates)
	if err != nil {
		return nil, err
	}
	records, err := s.recordRepo.List(ctx, moduleID, predicates, orders, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		s.enrich(schema, record)
	}

	return &models.RecordPage{
		Records:  records,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// Update merges a partial document into an existing record. Keys absent from
// the input keep their stored values; defaults never re-apply.
func (s *RecordService) Update(ctx context.Context, moduleID, recordID string, input models.Document, actorID string) (*models.ModuleRecord, error) {
	schema, err := s.loadSchema(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	record, err := s.recordRepo.FindOne(ctx, nil, moduleID, recordID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, errors.NewNotFoundError("record", recordID)
	}

	doc, verrs := s.validation.BuildDocument(schema, input, record.Data)
	if verrs != nil {
		return nil, verrs
	}

	now := s.clock.Now()
	err = s.txManager.WithTransaction(func(tx *sql.Tx) error {
		if err := s.checkUnique(ctx, tx, schema, doc, recordID); err != nil {
			return err
		}
		return s.recordRepo.UpdateData(ctx, tx, recordID, doc, actorID, now)
	})
	if err != nil {
		return nil, err
	}

	record.Data = doc
	record.UpdatedBy = actorID
	record.UpdatedAt = now
	return s.enrich(schema, record), nil
}

// SoftDelete marks a record deleted and runs the integrity engine in the
// same transaction: cascading relationships soft-delete their referencing
// records, non-cascading ones have their references cleared.
func (s *RecordService) SoftDelete(ctx context.Context, moduleID, recordID, actorID string) error {
	if _, err := s.loadSchema(ctx, moduleID); err != nil {
		return err
	}
	record, err := s.recordRepo.FindOne(ctx, nil, moduleID, recordID)
	if err != nil {
		return err
	}
	if record == nil {
		return errors.NewNotFoundError("record", recordID)
	}

	now := s.clock.Now()
	return s.txManager.WithRetry(func(tx *sql.Tx) error {
		visited := map[string]bool{recordID: true}
		if err := s.relationships.cascadeDeleteTx(ctx, tx, moduleID, recordID, visited, 0, actorID, now); err != nil {
			return err
		}
		if err := s.relationships.cleanupOrphansTx(ctx, tx, moduleID, recordID, actorID, now); err != nil {
			return err
		}
		return s.recordRepo.SoftDelete(ctx, tx, recordID, actorID, now)
	}, constants.MaxTxRetries)
}

// Restore clears a record's deletion marker. References cleared or cascaded
// at deletion time are not resurrected.
func (s *RecordService) Restore(ctx context.Context, moduleID, recordID, actorID string) (*models.ModuleRecord, error) {
	schema, err := s.loadSchema(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	record, err := s.recordRepo.FindAny(ctx, nil, moduleID, recordID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, errors.NewNotFoundError("record", recordID)
	}
	if record.DeletedAt == nil {
		return s.enrich(schema, record), nil
	}

	now := s.clock.Now()
	err = s.txManager.WithTransaction(func(tx *sql.Tx) error {
		return s.recordRepo.Restore(ctx, tx, recordID, actorID, now)
	})
	if err != nil {
		return nil, err
	}
	record.DeletedAt = nil
	record.UpdatedBy = actorID
	record.UpdatedAt = now
	return s.enrich(schema, record), nil
}

// ForceDelete removes a record row permanently. A record not yet
// soft-deleted gets the same integrity treatment first.
func (s *RecordService) ForceDelete(ctx context.Context, moduleID, recordID, actorID string) error {
	if _, err := s.loadSchema(ctx, moduleID); err != nil {
		return err
	}
	record, err := s.recordRepo.FindAny(ctx, nil, moduleID, recordID)
	if err != nil {
		return err
	}
	if record == nil {
		return errors.NewNotFoundError("record", recordID)
	}

	now := s.clock.Now()
	return s.txManager.WithRetry(func(tx *sql.Tx) error {
		if record.DeletedAt == nil {
			visited := map[string]bool{recordID: true}
			if err := s.relationships.cascadeDeleteTx(ctx, tx, moduleID, recordID, visited, 0, actorID, now); err != nil {
				return err
			}
			if err := s.relationships.cleanupOrphansTx(ctx, tx, moduleID, recordID, actorID, now); err != nil {
				return err
			}
		}
		return s.recordRepo.PhysicalDelete(ctx, tx, recordID)
	}, constants.MaxTxRetries)
}

// BulkCreate validates and stores a batch of records in one transaction.
// Any failing item aborts the whole batch; the error names the offending
// position.
func (s *RecordService) BulkCreate(ctx context.Context, moduleID string, inputs []models.Document, actorID string) ([]*models.ModuleRecord, error) {
	schema, err := s.loadSchema(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	if !schema.Module.IsActive {
		return nil, errors.NewInactiveModuleError(schema.Module.APIName)
	}

	now := s.clock.Now()
	records := make([]*models.ModuleRecord, 0, len(inputs))
	for i, input := range inputs {
		doc, verrs := s.validation.BuildDocument(schema, input, nil)
		if verrs != nil {
			return nil, errors.NewValidationError("items", fmt.Sprintf("item %d: %s", i, verrs.Error()))
		}
		records = append(records, &models.ModuleRecord{
			ID:        utils.GenerateID(),
			ModuleID:  moduleID,
			Data:      doc,
			CreatedBy: actorID,
			UpdatedBy: actorID,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	err = s.txManager.WithRetry(func(tx *sql.Tx) error {
		for _, record := range records {
			if err := s.checkUnique(ctx, tx, schema, record.Data, ""); err != nil {
				return err
			}
			if err := s.recordRepo.Insert(ctx, tx, record); err != nil {
				return err
			}
		}
		return nil
	}, constants.MaxTxRetries)
	if err != nil {
		return nil, err
	}

	log.Printf("record: bulk created %d records in module %s", len(records), moduleID)
	for _, record := range records {
		s.enrich(schema, record)
	}
	return records, nil
}

// BulkUpdate merges a batch of partial documents in one transaction. Ids not
// found as live records fail the whole batch up front.
func (s *RecordService) BulkUpdate(ctx context.Context, moduleID string, items []BulkUpdateItem, actorID string) ([]*models.ModuleRecord, error) {
	schema, err := s.loadSchema(ctx, moduleID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	existing, err := s.recordRepo.FindByIDs(ctx, nil, moduleID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*models.ModuleRecord, len(existing))
	for _, record := range existing {
		byID[record.ID] = record
	}
	var missing []string
	for _, id := range ids {
		if byID[id] == nil {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, errors.NewBulkNotFoundError("record", missing)
	}

	now := s.clock.Now()
	updated := make([]*models.ModuleRecord, 0, len(items))
	err = s.txManager.WithRetry(func(tx *sql.Tx) error {
		for i, item := range items {
			record := byID[item.ID]
			doc, verrs := s.validation.BuildDocument(schema, item.Data, record.Data)
			if verrs != nil {
				return errors.NewValidationError("items", fmt.Sprintf("item %d: %s", i, verrs.Error()))
			}
			if err := s.checkUnique(ctx, tx, schema, doc, record.ID); err != nil {
				return err
			}
			if err := s.recordRepo.UpdateData(ctx, tx, record.ID, doc, actorID, now); err != nil {
				return err
			}
			record.Data = doc
			record.UpdatedBy = actorID
			record.UpdatedAt = now
			updated = append(updated, record)
		}
		return nil
	}, constants.MaxTxRetries)
	if err != nil {
		return nil, err
	}

	for _, record := range updated {
		s.enrich(schema, record)
	}
	return updated, nil
}

// BulkDelete soft-deletes a batch of records in one transaction, running the
// integrity engine for each. Ids not found as live records fail the whole
// batch up front.
func (s *RecordService) BulkDelete(ctx context.Context, moduleID string, ids []string, actorID string) error {
	if _, err := s.loadSchema(ctx, moduleID); err != nil {
		return err
	}
	existing, err := s.recordRepo.FindByIDs(ctx, nil, moduleID, ids)
	if err != nil {
		return err
	}
	found := make(map[string]bool, len(existing))
	for _, record := range existing {
		found[record.ID] = true
	}
	var missing []string
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return errors.NewBulkNotFoundError("record", missing)
	}

	now := s.clock.Now()
	return s.txManager.WithRetry(func(tx *sql.Tx) error {
		visited := make(map[string]bool, len(ids))
		for _, id := range ids {
			visited[id] = true
		}
		for _, id := range ids {
			if err := s.relationships.cascadeDeleteTx(ctx, tx, moduleID, id, visited, 0, actorID, now); err != nil {
				return err
			}
			if err := s.relationships.cleanupOrphansTx(ctx, tx, moduleID, id, actorID, now); err != nil {
				return err
			}
			if err := s.recordRepo.SoftDelete(ctx, tx, id, actorID, now); err != nil {
				return err
			}
		}
		return nil
	}, constants.MaxTxRetries)
}
