package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/fluxcrm/backend/internal/domain/models"
	"github.com/fluxcrm/backend/pkg/constants"
	"github.com/fluxcrm/backend/pkg/errors"
	"github.com/fluxcrm/backend/pkg/utils"
)

const defaultBlockColumns = 2

// createBlockTx inserts a block and its nested fields at a given position
func (s *SchemaService) createBlockTx(ctx context.Context, tx *sql.Tx, moduleID string, order int, input *models.BlockInput, now time.Time) (*models.Block, error) {
	if input.Name == "" {
		return nil, errors.NewValidationError("name", "is required")
	}
	if !constants.IsValidBlockType(input.Type) {
		return nil, errors.NewValidationError("type", "unknown block type '"+input.Type+"'")
	}

	columns := defaultBlockColumns
	if input.Columns != nil {
		columns = *input.Columns
	}
	if columns < 1 || columns > 4 {
		return nil, errors.NewValidationError("columns", "must be between 1 and 4")
	}

	block := &models.Block{
		ID:            utils.GenerateID(),
		ModuleID:      moduleID,
		Name:          input.Name,
		Type:          models.BlockType(input.Type),
		DisplayOrder:  order,
		Columns:       columns,
		IsCollapsible: input.IsCollapsible,
		IsCollapsed:   input.IsCollapsed,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.schemaRepo.InsertBlock(ctx, tx, block); err != nil {
		return nil, err
	}

	for i := range input.Fields {
		field, err := s.createFieldTx(ctx, tx, block, i, &input.Fields[i], now)
		if err != nil {
			return nil, err
		}
		block.Fields = append(block.Fields, *field)
	}
	return block, nil
}

// CreateBlock appends a block to a module, optionally with nested fields
func (s *SchemaService) CreateBlock(ctx context.Context, moduleID string, input *models.BlockInput) (*models.Block, error) {
	var block *models.Block
	err := s.txManager.WithTransaction(func(tx *sql.Tx) error {
		if _, err := s.requireEditableModule(ctx, tx, moduleID); err != nil {
			return err
		}
		existing, err := s.schemaRepo.FindBlocksByModule(ctx, tx, moduleID)
		if err != nil {
			return err
		}
		block, err = s.createBlockTx(ctx, tx, moduleID, len(existing), input, s.clock.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return block, nil
}

// GetBlock returns a block with its fields and options
func (s *SchemaService) GetBlock(ctx context.Context, blockID string) (*models.Block, error) {
	block, err := s.schemaRepo.FindBlockByID(ctx, nil, blockID)
	if err != nil {
		return nil, err
	}
	if block == nil {
		return nil, errors.NewNotFoundError("block", blockID)
	}
	fields, err := s.schemaRepo.FindFieldsByBlock(ctx, nil, blockID)
	if err != nil {
		return nil, err
	}
	for _, f := range fields {
		block.Fields = append(block.Fields, *f)
	}
	return block, nil
}

// UpdateBlock applies a partial update to a block
func (s *SchemaService) UpdateBlock(ctx context.Context, blockID string, update *models.BlockUpdate) (*models.Block, error) {
	block, err := s.schemaRepo.FindBlockByID(ctx, nil, blockID)
	if err != nil {
		return nil, err
	}
	if block == nil {
		return nil, errors.NewNotFoundError("block", blockID)
	}
	if _, err := s.requireEditableModule(ctx, nil, block.ModuleID); err != nil {
		return nil, err
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
	if update.Type != nil {
		if !constants.IsValidBlockType(*update.Type) {
			return nil, errors.NewValidationError("type", "unknown block type '"+*update.Type+"'")
		}
		updates["type"] = *update.Type
	}
	if update.Columns != nil {
		if *update.Columns < 1 || *update.Columns > 4 {
			return nil, errors.NewValidationError("columns", "must be between 1 and 4")
		}
		updates["column_count"] = *update.Columns
	}
	if update.IsCollapsible != nil {
		updates["is_collapsible"] = *update.IsCollapsible
	}
	if update.IsCollapsed != nil {
		updates["is_collapsed"] = *update.IsCollapsed
	}

	err = s.txManager.WithTransaction(func(tx *sql.Tx) error {
		return s.schemaRepo.UpdateBlock(ctx, tx, blockID, updates)
	})
	if err != nil {
		return nil, err
	}
	return s.schemaRepo.FindBlockByID(ctx, nil, blockID)
}

// DeleteBlock removes a block along with its fields and their options.
// Stored record documents are left untouched: keys written through the
// deleted fields simply become invisible to validation and filtering.
func (s *SchemaService) DeleteBlock(ctx context.Context, blockID string) error {
	block, err := s.schemaRepo.FindBlockByID(ctx, nil, blockID)
	if err != nil {
		return err
	}
	if block == nil {
		return errors.NewNotFoundError("block", blockID)
	}
	if _, err := s.requireEditableModule(ctx, nil, block.ModuleID); err != nil {
		return err
	}

	return s.txManager.WithTransaction(func(tx *sql.Tx) error {
		return s.schemaRepo.DeleteBlock(ctx, tx, blockID)
	})
}

// ReorderBlocks atomically applies new display positions to a module's
// blocks. Every id in positions must belong to the module; an unknown or
// foreign id rejects the whole request.
func (s *SchemaService) ReorderBlocks(ctx context.Context, moduleID string, positions map[string]int) error {
	return s.txManager.WithTransaction(func(tx *sql.Tx) error {
		if _, err := s.requireEditableModule(ctx, tx, moduleID); err != nil {
			return err
		}
		members, err := s.schemaRepo.FindChildIDs(ctx, tx, constants.TableBlocks, constants.FieldModuleID, moduleID)
		if err != nil {
			return err
		}
		for id := range positions {
			if !members[id] {
				return errors.NewIntegrityViolationError("block '" + id + "' does not belong to module '" + moduleID + "'")
			}
		}
		return s.schemaRepo.ApplyPositions(ctx, tx, constants.TableBlocks, positions, s.clock.Now())
	})
}
