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

// Clock abstracts time for services so tests can pin timestamps
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SchemaService owns the administrative schema surface: modules, blocks,
// fields, and field options. All mutations run inside a transaction so a
// nested create (module with blocks with fields) lands atomically.
type SchemaService struct {
	schemaRepo *persistence.SchemaRepository
	recordRepo *persistence.RecordRepository
	relRepo    *persistence.RelationshipRepository
	txManager  *persistence.TransactionManager
	clock      Clock
}

// NewSchemaService creates a new SchemaService
func NewSchemaService(schemaRepo *persistence.SchemaRepository, recordRepo *persistence.RecordRepository, relRepo *persistence.RelationshipRepository, txManager *persistence.TransactionManager, clock Clock) *SchemaService {
	if clock == nil {
		clock = systemClock{}
	}
	return &SchemaService{
		schemaRepo: schemaRepo,
		recordRepo: recordRepo,
		relRepo:    relRepo,
		txManager:  txManager,
		clock:      clock,
	}
}

// resolveAPIName derives an api_name from a label when none is given and
// validates the result. The derived name must be stable because it becomes
// a JSON document key or a table-level identifier.
func resolveAPIName(explicit, label string) (string, error) {
	apiName := explicit
	if apiName == "" {
		apiName = utils.ToSnakeCase(label)
	}
	if !utils.IsValidAPIName(apiName) {
		return "", errors.NewIntegrityViolationError("api_name '" + apiName + "' is malformed: must match [a-z_][a-z0-9_]*")
	}
	return apiName, nil
}

// CreateModule creates a module, optionally with nested blocks and fields,
// in a single transaction
func (s *SchemaService) CreateModule(ctx context.Context, input *models.ModuleInput) (*models.ModuleSchema, error) {
	if input.Name == "" {
		return nil, errors.NewValidationError("name", "is required")
	}

	apiName, err := resolveAPIName(input.APIName, input.Name)
	if err != nil {
		return nil, err
	}

	singular := input.SingularName
	if singular == "" {
		singular = input.Name
	}

	now := s.clock.Now()
	module := &models.Module{
		ID:           utils.GenerateID(),
		Name:         input.Name,
		SingularName: singular,
		APIName:      apiName,
		Icon:         input.Icon,
		Description:  input.Description,
		IsActive:     true,
		Settings:     input.Settings,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if input.IsActive != nil {
		module.IsActive = *input.IsActive
	}

	err = s.txManager.WithTransaction(func(tx *sql.Tx) error {
		count, err := s.schemaRepo.CountModulesWithAPIName(ctx, tx, apiName, "")
		if err != nil {
			return err
		}
		if count > 0 {
			return errors.NewConflictError("module", constants.FieldAPIName, apiName)
		}

		order, err := s.schemaRepo.NextModuleOrder(ctx, tx)
		if err != nil {
			return err
		}
		module.DisplayOrder = order

		if err := s.schemaRepo.InsertModule(ctx, tx, module); err != nil {
			return err
		}

		for i := range input.Blocks {
			if _, err := s.createBlockTx(ctx, tx, module.ID, i, &input.Blocks[i], now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("schema: created module %s (%s)", module.APIName, module.ID)
	return s.schemaRepo.LoadModuleSchema(ctx, nil, module.ID)
}

// GetModule returns the full schema snapshot of a module
func (s *SchemaService) GetModule(ctx context.Context, moduleID string) (*models.ModuleSchema, error) {
	schema, err := s.schemaRepo.LoadModuleSchema(ctx, nil, moduleID)
	if err != nil {
		return nil, err
	}
	if schema == nil {
		return nil, errors.NewNotFoundError("module", moduleID)
	}
	return schema, nil
}

// GetModuleByAPIName returns the full schema snapshot by api_name
func (s *SchemaService) GetModuleByAPIName(ctx context.Context, apiName string) (*models.ModuleSchema, error) {
	module, err := s.schemaRepo.FindModuleByAPIName(ctx, nil, apiName)
	if err != nil {
		return nil, err
	}
	if module == nil {
		return nil, errors.NewNotFoundError("module", apiName)
	}
	return s.schemaRepo.LoadModuleSchema(ctx, nil, module.ID)
}

// ListModules lists all modules ordered by display_order
func (s *SchemaService) ListModules(ctx context.Context) ([]*models.Module, error) {
	return s.schemaRepo.FindModules(ctx)
}

// UpdateModule applies a partial update to a module
func (s *SchemaService) UpdateModule(ctx context.Context, moduleID string, update *models.ModuleUpdate) (*models.Module, error) {
	module, err := s.schemaRepo.FindModuleByID(ctx, nil, moduleID)
	if err != nil {
		return nil, err
	}
	if module == nil {
		return nil, errors.NewNotFoundError("module", moduleID)
	}
	if module.IsSystem {
		return nil, errors.NewProtectedResourceError("module", moduleID)
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
	if update.SingularName != nil {
		updates["singular_name"] = *update.SingularName
	}
	if update.Icon != nil {
		updates["icon"] = *update.Icon
	}
	if update.Description != nil {
		updates["description"] = *update.Description
	}
	if update.IsActive != nil {
		updates["is_active"] = *update.IsActive
	}
	if update.Settings != nil {
		updates["settings"] = update.Settings
	}

	err = s.txManager.WithTransaction(func(tx *sql.Tx) error {
		return s.schemaRepo.UpdateModule(ctx, tx, moduleID, updates)
	})
	if err != nil {
		return nil, err
	}
	return s.schemaRepo.FindModuleByID(ctx, nil, moduleID)
}

// DeleteModule soft-deletes a module. System modules are protected, and a
// module that still owns records (including soft-deleted ones) cannot be
// removed. Relationships touching the module are dropped in the same
// transaction so the integrity engine never consults a dangling declaration.
func (s *SchemaService) DeleteModule(ctx context.Context, moduleID string) error {
	module, err := s.schemaRepo.FindModuleByID(ctx, nil, moduleID)
	if err != nil {
		return err
	}
	if module == nil {
		return errors.NewNotFoundError("module", moduleID)
	}
	if module.IsSystem {
		return errors.NewProtectedResourceError("module", moduleID)
	}

	return s.txManager.WithTransaction(func(tx *sql.Tx) error {
		count, err := s.recordRepo.CountByModule(ctx, tx, moduleID)
		if err != nil {
			return err
		}
		if count > 0 {
			return errors.NewIntegrityViolationError("module still owns records and cannot be deleted")
		}

		rels, err := s.relRepo.FindByModule(ctx, tx, moduleID)
		if err != nil {
			return err
		}
		for _, rel := range rels {
			if err := s.relRepo.Delete(ctx, tx, rel.ID); err != nil {
				return err
			}
		}

		return s.schemaRepo.SoftDeleteModule(ctx, tx, moduleID, s.clock.Now())
	})
}

// requireEditableModule loads a module and rejects schema edits on system
// modules
func (s *SchemaService) requireEditableModule(ctx context.Context, tx *sql.Tx, moduleID string) (*models.Module, error) {
	module, err := s.schemaRepo.FindModuleByID(ctx, tx, moduleID)
	if err != nil {
		return nil, err
	}
	if module == nil {
		return nil, errors.NewNotFoundError("module", moduleID)
	}
	if module.IsSystem {
		return nil, errors.NewProtectedResourceError("module", moduleID)
	}
	return module, nil
}
