package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/fluxcrm/backend/internal/domain/models"
	"github.com/fluxcrm/backend/pkg/constants"
	"github.com/fluxcrm/backend/pkg/errors"
	"github.com/fluxcrm/backend/pkg/fieldtypes"
	"github.com/fluxcrm/backend/pkg/utils"
)

// createOptionTx inserts a field option at a given position. The caller is
// responsible for default exclusivity when creating options in bulk.
func (s *SchemaService) createOptionTx(ctx context.Context, tx *sql.Tx, field *models.Field, order int, input *models.FieldOptionInput, now time.Time) (*models.FieldOption, error) {
	if input.Label == "" {
		return nil, errors.NewValidationError("label", "is required")
	}

	value := input.Value
	if value == "" {
		value = utils.ToSnakeCase(input.Label)
	}
	count, err := s.schemaRepo.CountOptionsWithValue(ctx, tx, field.ID, value, "")
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.NewConflictError("field_option", "value", value)
	}

	option := &models.FieldOption{
		ID:           utils.GenerateID(),
		FieldID:      field.ID,
		Label:        input.Label,
		Value:        value,
		Color:        input.Color,
		IsDefault:    input.IsDefault,
		IsActive:     true,
		DisplayOrder: order,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if input.IsActive != nil {
		option.IsActive = *input.IsActive
	}
	return option, s.schemaRepo.InsertOption(ctx, tx, option)
}

// CreateFieldOption appends an option to an enumerated field. Marking the
// new option as default clears the flag from its siblings in the same
// transaction, so at most one default survives.
func (s *SchemaService) CreateFieldOption(ctx context.Context, fieldID string, input *models.FieldOptionInput) (*models.FieldOption, error) {
	var option *models.FieldOption
	err := s.txManager.WithTransaction(func(tx *sql.Tx) error {
		field, err := s.schemaRepo.FindFieldByID(ctx, tx, fieldID)
		if err != nil {
			return err
		}
		if field == nil {
			return errors.NewNotFoundError("field", fieldID)
		}
		if !fieldtypes.HasOptions(string(field.Type)) {
			return errors.NewValidationError("type", "field type '"+string(field.Type)+"' does not take options")
		}

		block, err := s.schemaRepo.FindBlockByID(ctx, tx, field.BlockID)
		if err != nil {
			return err
		}
		if block != nil {
			if _, err := s.requireEditableModule(ctx, tx, block.ModuleID); err != nil {
				return err
			}
		}

		existing, err := s.schemaRepo.FindOptionsByField(ctx, tx, fieldID)
		if err != nil {
			return err
		}
		option, err = s.createOptionTx(ctx, tx, field, len(existing), input, s.clock.Now())
		if err != nil {
			return err
		}
		if option.IsDefault {
			return s.schemaRepo.ClearDefaultOptions(ctx, tx, fieldID, option.ID, s.clock.Now())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return option, nil
}

// UpdateFieldOption applies a partial update to a field option
func (s *SchemaService) UpdateFieldOption(ctx context.Context, optionID string, update *models.FieldOptionUpdate) (*models.FieldOption, error) {
	option, err := s.schemaRepo.FindOptionByID(ctx, nil, optionID)
	if err != nil {
		return nil, err
	}
	if option == nil {
		return nil, errors.NewNotFoundError("field_option", optionID)
	}

	updates := map[string]interface{}{
		constants.FieldUpdatedAt: s.clock.Now(),
	}
	if update.Label != nil {
		if *update.Label == "" {
			return nil, errors.NewValidationError("label", "is required")
		}
		updates["label"] = *update.Label
	}
	if update.Color != nil {
		updates["color"] = *update.Color
	}
	if update.IsDefault != nil {
		updates["is_default"] = *update.IsDefault
	}
	if update.IsActive != nil {
		updates["is_active"] = *update.IsActive
	}

	err = s.txManager.WithTransaction(func(tx *sql.Tx) error {
		if err := s.schemaRepo.UpdateOption(ctx, tx, optionID, updates); err != nil {
			return err
		}
		if update.IsDefault != nil && *update.IsDefault {
			return s.schemaRepo.ClearDefaultOptions(ctx, tx, option.FieldID, optionID, s.clock.Now())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.schemaRepo.FindOptionByID(ctx, nil, optionID)
}

// DeleteFieldOption removes an option. Records already holding the value
// keep it; the value simply stops validating on future writes.
func (s *SchemaService) DeleteFieldOption(ctx context.Context, optionID string) error {
	option, err := s.schemaRepo.FindOptionByID(ctx, nil, optionID)
	if err != nil {
		return err
	}
	if option == nil {
		return errors.NewNotFoundError("field_option", optionID)
	}
	return s.txManager.WithTransaction(func(tx *sql.Tx) error {
		return s.schemaRepo.DeleteOption(ctx, tx, optionID)
	})
}

// ReorderFieldOptions atomically applies new display positions to a field's
// options
func (s *SchemaService) ReorderFieldOptions(ctx context.Context, fieldID string, positions map[string]int) error {
	return s.txManager.WithTransaction(func(tx *sql.Tx) error {
		field, err := s.schemaRepo.FindFieldByID(ctx, tx, fieldID)
		if err != nil {
			return err
		}
		if field == nil {
			return errors.NewNotFoundError("field", fieldID)
		}
		members, err := s.schemaRepo.FindChildIDs(ctx, tx, constants.TableFieldOptions, constants.FieldFieldID, fieldID)
		if err != nil {
			return err
		}
		for id := range positions {
			if !members[id] {
				return errors.NewIntegrityViolationError("option '" + id + "' does not belong to field '" + fieldID + "'")
			}
		}
		return s.schemaRepo.ApplyPositions(ctx, tx, constants.TableFieldOptions, positions, s.clock.Now())
	})
}
