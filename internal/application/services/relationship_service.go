package services

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/fluxcrm/backend/internal/domain/models"
	"github.com/fluxcrm/backend/internal/infrastructure/persistence"
	"github.com/fluxcrm/backend/pkg/constants"
	"github.com/fluxcrm/backend/pkg/errors"
	"github.com/fluxcrm/backend/pkg/utils"
)

// RelationshipService owns relationship declarations and the integrity
// engine that keeps record references consistent: cascade deletes, orphaned
// reference cleanup, and explicit link/unlink operations.
//
// A relationship's api_name is the JSON document key on records of the
// "from" module: a scalar target id for one_to_many, an id array for
// many_to_many. The "to" module is the referenced side, so deleting one of
// its records is what triggers the engine.
type RelationshipService struct {
	schemaRepo *persistence.SchemaRepository
	relRepo    *persistence.RelationshipRepository
	recordRepo *persistence.RecordRepository
	txManager  *persistence.TransactionManager
	clock      Clock
}

// NewRelationshipService creates a new RelationshipService
func NewRelationshipService(schemaRepo *persistence.SchemaRepository, relRepo *persistence.RelationshipRepository, recordRepo *persistence.RecordRepository, txManager *persistence.TransactionManager, clock Clock) *RelationshipService {
	if clock == nil {
		clock = systemClock{}
	}
	return &RelationshipService{
		schemaRepo: schemaRepo,
		relRepo:    relRepo,
		recordRepo: recordRepo,
		txManager:  txManager,
		clock:      clock,
	}
}

// CreateRelationship declares a relationship between two existing modules.
// The api_name is globally unique across relationships since it becomes a
// document key.
func (s *RelationshipService) CreateRelationship(ctx context.Context, input *models.RelationshipInput) (*models.Relationship, error) {
	if input.Name == "" {
		return nil, errors.NewValidationError("name", "is required")
	}
	if !constants.IsValidRelationshipType(input.Type) {
		return nil, errors.NewValidationError("type", "unknown relationship type '"+input.Type+"'")
	}
	if input.FromModuleID == input.ToModuleID {
		return nil, errors.NewIntegrityViolationError("a module cannot be related to itself")
	}

	apiName, err := resolveAPIName(input.APIName, input.Name)
	if err != nil {
		return nil, err
	}

	from, err := s.schemaRepo.FindModuleByID(ctx, nil, input.FromModuleID)
	if err != nil {
		return nil, err
	}
	if from == nil {
		return nil, errors.NewNotFoundError("module", input.FromModuleID)
	}
	to, err := s.schemaRepo.FindModuleByID(ctx, nil, input.ToModuleID)
	if err != nil {
		return nil, err
	}
	if to == nil {
		return nil, errors.NewNotFoundError("module", input.ToModuleID)
	}

	settings := input.Settings
	if settings.SortDirection == "" {
		settings.SortDirection = constants.SortASC
	}
	if settings.SortDirection != constants.SortASC && settings.SortDirection != constants.SortDESC {
		return nil, errors.NewValidationError("sort_direction", "must be 'asc' or 'desc'")
	}

	now := s.clock.Now()
	rel := &models.Relationship{
		ID:           utils.GenerateID(),
		FromModuleID: input.FromModuleID,
		ToModuleID:   input.ToModuleID,
		Name:         input.Name,
		APIName:      apiName,
		Type:         models.RelationshipType(input.Type),
		Settings:     settings,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.txManager.WithTransaction(func(tx *sql.Tx) error {
		count, err := s.relRepo.CountByAPIName(ctx, tx, apiName, "")
		if err != nil {
			return err
		}
		if count > 0 {
			return errors.NewConflictError("relationship", constants.FieldAPIName, apiName)
		}
		return s.relRepo.Insert(ctx, tx, rel)
	})
	if err != nil {
		return nil, err
	}
	return rel, nil
}

// GetRelationship returns a relationship by id
func (s *RelationshipService) GetRelationship(ctx context.Context, id string) (*models.Relationship, error) {
	rel, err := s.relRepo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if rel == nil {
		return nil, errors.NewNotFoundError("relationship", id)
	}
	return rel, nil
}

// ListRelationships returns all relationships, optionally scoped to a module
// on either endpoint
func (s *RelationshipService) ListRelationships(ctx context.Context, moduleID string) ([]*models.Relationship, error) {
	if moduleID == "" {
		return s.relRepo.FindAll(ctx)
	}
	return s.relRepo.FindByModule(ctx, nil, moduleID)
}

// UpdateRelationship applies a partial update. Endpoints and api_name are
// immutable because stored documents already key on the api_name.
func (s *RelationshipService) UpdateRelationship(ctx context.Context, id string, update *models.RelationshipUpdate) (*models.Relationship, error) {
	rel, err := s.relRepo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if rel == nil {
		return nil, errors.NewNotFoundError("relationship", id)
	}

	updates := map[string]interface{}{
		constants.FieldUpdatedAt: s.clock.Now(),
	}
	if update.Name != nil {
		if *update.Name == "" {
			return nil, errors.NewValidationError("name", "is required")
		}
		updates["name"] = *update.Name
	}
	if update.Settings != nil {
		if update.Settings.SortDirection != "" &&
			update.Settings.SortDirection != constants.SortASC &&
			update.Settings.SortDirection != constants.SortDESC {
			return nil, errors.NewValidationError("sort_direction", "must be 'asc' or 'desc'")
		}
		updates["settings"] = update.Settings
	}

	err = s.txManager.WithTransaction(func(tx *sql.Tx) error {
		return s.relRepo.Update(ctx, tx, id, updates)
	})
	if err != nil {
		return nil, err
	}
	return s.relRepo.FindByID(ctx, nil, id)
}

// DeleteRelationship removes a declaration. Reference keys already written
// into documents stay behind as inert data.
func (s *RelationshipService) DeleteRelationship(ctx context.Context, id string) error {
	rel, err := s.relRepo.FindByID(ctx, nil, id)
	if err != nil {
		return err
	}
	if rel == nil {
		return errors.NewNotFoundError("relationship", id)
	}
	return s.txManager.WithTransaction(func(tx *sql.Tx) error {
		return s.relRepo.Delete(ctx, tx, id)
	})
}

// referencedIDs extracts the target ids a document holds under a
// relationship key
func referencedIDs(rel *models.Relationship, doc models.Document) []string {
	if rel.Type == constants.RelationshipManyToMany {
		ids, _ := utils.ToStringSlice(doc[rel.APIName])
		return ids
	}
	if id := doc.GetString(rel.APIName); id != "" {
		return []string{id}
	}
	return nil
}

// LinkRecords points a source record at one or more targets through a
// relationship. For one_to_many the reference is a single id, so more than
// one target is rejected outright. For many_to_many new targets are unioned
// into the existing array without duplicates.
func (s *RelationshipService) LinkRecords(ctx context.Context, relationshipID, sourceID string, targetIDs []string, actorID string) error {
	rel, err := s.relRepo.FindByID(ctx, nil, relationshipID)
	if err != nil {
		return err
	}
	if rel == nil {
		return errors.NewNotFoundError("relationship", relationshipID)
	}
	if len(targetIDs) == 0 {
		return errors.NewValidationError("target_ids", "is required")
	}
	if rel.Type == constants.RelationshipOneToMany && len(targetIDs) > 1 {
		return errors.NewTooManyTargetsError(rel.APIName, len(targetIDs))
	}

	return s.txManager.WithTransaction(func(tx *sql.Tx) error {
		source, err := s.recordRepo.FindOne(ctx, tx, rel.FromModuleID, sourceID)
		if err != nil {
			return err
		}
		if source == nil {
			return errors.NewNotFoundError("record", sourceID)
		}

		targets, err := s.recordRepo.FindByIDs(ctx, tx, rel.ToModuleID, targetIDs)
		if err != nil {
			return err
		}
		if len(targets) != len(targetIDs) {
			found := make(map[string]bool, len(targets))
			for _, t := range targets {
				found[t.ID] = true
			}
			var missing []string
			for _, id := range targetIDs {
				if !found[id] {
					missing = append(missing, id)
				}
			}
			return errors.NewBulkNotFoundError("record", missing)
		}

		now := s.clock.Now()
		if rel.Type == constants.RelationshipOneToMany {
			return s.recordRepo.SetDataKey(ctx, tx, sourceID, rel.APIName, targetIDs[0], actorID, now)
		}

		linked := referencedIDs(rel, source.Data)
		seen := make(map[string]bool, len(linked))
		for _, id := range linked {
			seen[id] = true
		}
		for _, id := range targetIDs {
			if !seen[id] {
				linked = append(linked, id)
				seen[id] = true
			}
		}
		return s.recordRepo.SetDataKey(ctx, tx, sourceID, rel.APIName, linked, actorID, now)
	})
}

// UnlinkRecords removes targets from a source record's reference. A
// one_to_many reference is nulled; a many_to_many array drops the given ids
// while preserving the order of the rest.
func (s *RelationshipService) UnlinkRecords(ctx context.Context, relationshipID, sourceID string, targetIDs []string, actorID string) error {
	rel, err := s.relRepo.FindByID(ctx, nil, relationshipID)
	if err != nil {
		return err
	}
	if rel == nil {
		return errors.NewNotFoundError("relationship", relationshipID)
	}

	return s.txManager.WithTransaction(func(tx *sql.Tx) error {
		source, err := s.recordRepo.FindOne(ctx, tx, rel.FromModuleID, sourceID)
		if err != nil {
			return err
		}
		if source == nil {
			return errors.NewNotFoundError("record", sourceID)
		}

		now := s.clock.Now()
		if rel.Type == constants.RelationshipOneToMany {
			return s.recordRepo.SetDataKey(ctx, tx, sourceID, rel.APIName, nil, actorID, now)
		}

		drop := make(map[string]bool, len(targetIDs))
		for _, id := range targetIDs {
			drop[id] = true
		}
		var kept []string
		for _, id := range referencedIDs(rel, source.Data) {
			if !drop[id] {
				kept = append(kept, id)
			}
		}
		if kept == nil {
			kept = []string{}
		}
		return s.recordRepo.SetDataKey(ctx, tx, sourceID, rel.APIName, kept, actorID, now)
	})
}

// GetRelatedRecords resolves every relationship touching a record and
// returns the connected records grouped by relationship api_name: outgoing
// references are looked up from the ids the record holds, incoming ones by
// scanning the from-module for documents that reference it.
func (s *RelationshipService) GetRelatedRecords(ctx context.Context, moduleID, recordID string) (map[string][]*models.ModuleRecord, error) {
	record, err := s.recordRepo.FindOne(ctx, nil, moduleID, recordID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, errors.NewNotFoundError("record", recordID)
	}

	related := make(map[string][]*models.ModuleRecord)

	outgoing, err := s.relRepo.FindByFromModule(ctx, nil, moduleID)
	if err != nil {
		return nil, err
	}
	for _, rel := range outgoing {
		ids := referencedIDs(rel, record.Data)
		if len(ids) == 0 {
			related[rel.APIName] = []*models.ModuleRecord{}
			continue
		}
		targets, err := s.recordRepo.FindByIDs(ctx, nil, rel.ToModuleID, ids)
		if err != nil {
			return nil, err
		}
		related[rel.APIName] = targets
	}

	incoming, err := s.relRepo.FindByToModule(ctx, nil, moduleID)
	if err != nil {
		return nil, err
	}
	for _, rel := range incoming {
		sources, err := s.recordRepo.FindReferencing(ctx, nil, rel.FromModuleID, rel.APIName, recordID, rel.Type == constants.RelationshipManyToMany)
		if err != nil {
			return nil, err
		}
		related[rel.APIName] = append(related[rel.APIName], sources...)
	}

	return related, nil
}

// HandleCascadeDelete soft-deletes every record that references the given
// record through a cascade_delete relationship, recursively. Exposed for
// administrative use; record deletion runs the same logic inside its own
// transaction.
func (s *RelationshipService) HandleCascadeDelete(ctx context.Context, moduleID, recordID, actorID string) error {
	return s.txManager.WithRetry(func(tx *sql.Tx) error {
		visited := map[string]bool{recordID: true}
		return s.cascadeDeleteTx(ctx, tx, moduleID, recordID, visited, 0, actorID, s.clock.Now())
	}, constants.MaxTxRetries)
}

// CleanupOrphanedReferences clears references to the given record from
// non-cascading relationships. Exposed for administrative use; record
// deletion runs the same logic inside its own transaction.
func (s *RelationshipService) CleanupOrphanedReferences(ctx context.Context, moduleID, recordID, actorID string) error {
	return s.txManager.WithRetry(func(tx *sql.Tx) error {
		return s.cleanupOrphansTx(ctx, tx, moduleID, recordID, actorID, s.clock.Now())
	}, constants.MaxTxRetries)
}

// cascadeDeleteTx walks cascade_delete relationships pointing at the record
// and soft-deletes the referencing records, recursing into each one so their
// own relationships fire too. The visited set breaks cycles; the depth bound
// is a second guard for pathological graphs.
func (s *RelationshipService) cascadeDeleteTx(ctx context.Context, tx *sql.Tx, moduleID, recordID string, visited map[string]bool, depth int, actorID string, now time.Time) error {
	if depth >= constants.MaxCascadeDepth {
		log.Printf("relationship: cascade depth limit reached at record %s", recordID)
		return nil
	}

	rels, err := s.relRepo.FindByToModule(ctx, tx, moduleID)
	if err != nil {
		return err
	}
	for _, rel := range rels {
		if !rel.Settings.CascadeDelete {
			continue
		}
		refs, err := s.recordRepo.FindReferencing(ctx, tx, rel.FromModuleID, rel.APIName, recordID, rel.Type == constants.RelationshipManyToMany)
		if err != nil {
			return err
		}
		for _, ref := range refs {
			if visited[ref.ID] {
				continue
			}
			visited[ref.ID] = true
			if err := s.cascadeDeleteTx(ctx, tx, rel.FromModuleID, ref.ID, visited, depth+1, actorID, now); err != nil {
				return err
			}
			if err := s.cleanupOrphansTx(ctx, tx, rel.FromModuleID, ref.ID, actorID, now); err != nil {
				return err
			}
			if err := s.recordRepo.SoftDelete(ctx, tx, ref.ID, actorID, now); err != nil {
				return err
			}
		}
	}
	return nil
}

// cleanupOrphansTx clears references to the record from relationships that
// do not cascade: scalar references are nulled, array references drop the
// id while keeping the remaining order intact.
func (s *RelationshipService) cleanupOrphansTx(ctx context.Context, tx *sql.Tx, moduleID, recordID, actorID string, now time.Time) error {
	rels, err := s.relRepo.FindByToModule(ctx, tx, moduleID)
	if err != nil {
		return err
	}
	for _, rel := range rels {
		if rel.Settings.CascadeDelete {
			continue
		}
		manyToMany := rel.Type == constants.RelationshipManyToMany
		refs, err := s.recordRepo.FindReferencing(ctx, tx, rel.FromModuleID, rel.APIName, recordID, manyToMany)
		if err != nil {
			return err
		}
		for _, ref := range refs {
			if !manyToMany {
				if err := s.recordRepo.SetDataKey(ctx, tx, ref.ID, rel.APIName, nil, actorID, now); err != nil {
					return err
				}
				continue
			}
			kept := []string{}
			held, _ := utils.ToStringSlice(ref.Data[rel.APIName])
			for _, id := range held {
				if id != recordID {
					kept = append(kept, id)
				}
			}
			if err := s.recordRepo.SetDataKey(ctx, tx, ref.ID, rel.APIName, kept, actorID, now); err != nil {
				return err
			}
		}
	}
	return nil
}
