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

// createFieldTx inserts a field and its nested options at a given position
func (s *SchemaService) createFieldTx(ctx context.Context, tx *sql.Tx, block *models.Block, order int, input *models.FieldInput, now time.Time) (*models.Field, error) {
	if input.Label == "" {
		return nil, errors.NewValidationError("label", "is required")
	}
	if !fieldtypes.IsValidType(input.Type) {
		return nil, errors.NewValidationError("type", "unknown field type '"+input.Type+"'")
	}

	apiName, err := resolveAPIName(input.APIName, input.Label)
	if err != nil {
		return nil, err
	}
	count, err := s.schemaRepo.CountFieldsWithAPIName(ctx, tx, block.ID, apiName, "")
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.NewConflictError("field", constants.FieldAPIName, apiName)
	}

	width := constants.WidthFull
	if input.Width != "" {
		if !constants.IsValidFieldWidth(input.Width) {
			return nil, errors.NewValidationError("width", "unknown width '"+input.Width+"'")
		}
		width = constants.FieldWidth(input.Width)
	}

	if input.RelationshipID != nil {
		rel, err := s.relRepo.FindByID(ctx, tx, *input.RelationshipID)
		if err != nil {
			return nil, err
		}
		if rel == nil {
			return nil, errors.NewNotFoundError("relationship", *input.RelationshipID)
		}
	}

	field := &models.Field{
		ID:              utils.GenerateID(),
		BlockID:         block.ID,
		RelationshipID:  input.RelationshipID,
		Type:            models.FieldType(input.Type),
		APIName:         apiName,
		Label:           input.Label,
		Description:     input.Description,
		HelpText:        input.HelpText,
		IsRequired:      input.IsRequired,
		IsUnique:        input.IsUnique,
		IsSearchable:    input.IsSearchable,
		IsVisibleList:   true,
		IsVisibleDetail: true,
		ValidationRules: input.ValidationRules,
		Settings:        input.Settings,
		DefaultValue:    input.DefaultValue,
		DisplayOrder:    order,
		Width:           width,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if input.IsVisibleList != nil {
		field.IsVisibleList = *input.IsVisibleList
	}
	if input.IsVisibleDetail != nil {
		field.IsVisibleDetail = *input.IsVisibleDetail
	}

	if len(input.Options) > 0 && !fieldtypes.HasOptions(input.Type) {
		return nil, errors.NewValidationError("options", "field type '"+input.Type+"' does not take options")
	}

	if err := s.schemaRepo.InsertField(ctx, tx, field); err != nil {
		return nil, err
	}

	defaults := 0
	for i := range input.Options {
		opt, err := s.createOptionTx(ctx, tx, field, i, &input.Options[i], now)
		if err != nil {
			return nil, err
		}
		if opt.IsDefault {
			defaults++
			if defaults > 1 {
				return nil, errors.NewValidationError("options", "at most one option may be the default")
			}
		}
		field.Options = append(field.Options, *opt)
	}

	// Default values must themselves survive the field's own validation so
	// a bad default never lands in documents silently
	if field.DefaultValue != nil {
		if err := NewValidationService().ValidateValue(field, field.DefaultValue); err != nil {
			return nil, err
		}
	}

	return field, nil
}

// CreateField appends a field to a block, optionally with nested options
func (s *SchemaService) CreateField(ctx context.Context, blockID string, input *models.FieldInput) (*models.Field, error) {
	var field *models.Field
	err := s.txManager.WithTransaction(func(tx *sql.Tx) error {
		block, err := s.schemaRepo.FindBlockByID(ctx, tx, blockID)
		if err != nil {
			return err
		}
		if block == nil {
			return errors.NewNotFoundError("block", blockID)
		}
		if _, err := s.requireEditableModule(ctx, tx, block.ModuleID); err != nil {
			return err
		}
		existing, err := s.schemaRepo.FindFieldsByBlock(ctx, tx, blockID)
		if err != nil {
			return err
		}
		field, err = s.createFieldTx(ctx, tx, block, len(existing), input, s.clock.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return field, nil
}

// GetField returns a field with its options
func (s *SchemaService) GetField(ctx context.Context, fieldID string) (*models.Field, error) {
	field, err := s.schemaRepo.FindFieldByID(ctx, nil, fieldID)
	if err != nil {
		return nil, err
	}
	if field == nil {
		return nil, errors.NewNotFoundError("field", fieldID)
	}
	options, err := s.schemaRepo.FindOptionsByField(ctx, nil, fieldID)
	if err != nil {
		return nil, err
	}
	for _, opt := range options {
		field.Options = append(field.Options, *opt)
	}
	return field, nil
}

// UpdateField applies a partial update to a field. The field's type and
// api_name are immutable: the api_name is the key already written into
// stored documents, and changing the type would silently invalidate them.
func (s *SchemaService) UpdateField(ctx context.Context, fieldID string, update *models.FieldUpdate) (*models.Field, error) {
	field, err := s.schemaRepo.FindFieldByID(ctx, nil, fieldID)
	if err != nil {
		return nil, err
	}
	if field == nil {
		return nil, errors.NewNotFoundError("field", fieldID)
	}
	block, err := s.schemaRepo.FindBlockByID(ctx, nil, field.BlockID)
	if err != nil {
		return nil, err
	}
	if block != nil {
		if _, err := s.requireEditableModule(ctx, nil, block.ModuleID); err != nil {
			return nil, err
		}
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
	if update.Description != nil {
		updates["description"] = *update.Description
	}
	if update.HelpText != nil {
		updates["help_text"] = *update.HelpText
	}
	if update.IsRequired != nil {
		updates["is_required"] = *update.IsRequired
	}
	if update.IsUnique != nil {
		updates["is_unique"] = *update.IsUnique
	}
	if update.IsSearchable != nil {
		updates["is_searchable"] = *update.IsSearchable
	}
	if update.IsVisibleList != nil {
		updates["is_visible_list"] = *update.IsVisibleList
	}
	if update.IsVisibleDetail != nil {
		updates["is_visible_detail"] = *update.IsVisibleDetail
	}
	if update.ValidationRules != nil {
		updates["validation_rules"] = update.ValidationRules
	}
	if update.Settings != nil {
		updates["settings"] = update.Settings
	}
	if update.DefaultValue != nil {
		updates["default_value"] = update.DefaultValue
	}
	if update.Width != nil {
		if !constants.IsValidFieldWidth(*update.Width) {
			return nil, errors.NewValidationError("width", "unknown width '"+*update.Width+"'")
		}
		updates["width"] = *update.Width
	}

	err = s.txManager.WithTransaction(func(tx *sql.Tx) error {
		return s.schemaRepo.UpdateField(ctx, tx, fieldID, updates)
	})
	if err != nil {
		return nil, err
	}
	return s.GetField(ctx, fieldID)
}

// DeleteField removes a field and its options. Record documents keep any
// values already written under the field's api_name; they are ignored on
// read and never pruned.
func (s *SchemaService) DeleteField(ctx context.Context, fieldID string) error {
	field, err := s.schemaRepo.FindFieldByID(ctx, nil, fieldID)
	if err != nil {
		return err
	}
	if field == nil {
		return errors.NewNotFoundError("field", fieldID)
	}
	block, err := s.schemaRepo.FindBlockByID(ctx, nil, field.BlockID)
	if err != nil {
		return err
	}
	if block != nil {
		if _, err := s.requireEditableModule(ctx, nil, block.ModuleID); err != nil {
			return err
		}
	}

	return s.txManager.WithTransaction(func(tx *sql.Tx) error {
		return s.schemaRepo.DeleteField(ctx, tx, fieldID)
	})
}

// ReorderFields atomically applies new display positions to a block's fields
func (s *SchemaService) ReorderFields(ctx context.Context, blockID string, positions map[string]int) error {
	return s.txManager.WithTransaction(func(tx *sql.Tx) error {
		block, err := s.schemaRepo.FindBlockByID(ctx, tx, blockID)
		if err != nil {
			return err
		}
		if block == nil {
			return errors.NewNotFoundError("block", blockID)
		}
		if _, err := s.requireEditableModule(ctx, tx, block.ModuleID); err != nil {
			return err
		}
		members, err := s.schemaRepo.FindChildIDs(ctx, tx, constants.TableFields, constants.FieldBlockID, blockID)
		if err != nil {
			return err
		}
		for id := range positions {
			if !members[id] {
				return errors.NewIntegrityViolationError("field '" + id + "' does not belong to block '" + blockID + "'")
			}
		}
		return s.schemaRepo.ApplyPositions(ctx, tx, constants.TableFields, positions, s.clock.Now())
	})
}
