package services

import (
	"fmt"
	"regexp"

	"github.com/fluxcrm/backend/internal/domain/models"
	"github.com/fluxcrm/backend/pkg/constants"
	"github.com/fluxcrm/backend/pkg/errors"
	"github.com/fluxcrm/backend/pkg/fieldtypes"
	"github.com/fluxcrm/backend/pkg/utils"
	"github.com/fluxcrm/backend/pkg/validator"
)

// ValidationService checks record documents against a module's schema
// snapshot. Validation is purely functional: same field definition and value
// always produce the same result, with no side effects.
type ValidationService struct {
	types     *fieldtypes.Registry
	validator *validator.Registry
}

// NewValidationService creates a new ValidationService
func NewValidationService() *ValidationService {
	return &ValidationService{
		types:     fieldtypes.GetRegistry(),
		validator: validator.GetRegistry(),
	}
}

// isEmpty reports whether a value counts as absent for the required check
func isEmpty(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []interface{}:
		return len(v) == 0
	case []string:
		return len(v) == 0
	}
	return false
}

// ValidateValue checks one value against one field definition
func (vs *ValidationService) ValidateValue(field *models.Field, value interface{}) error {
	if isEmpty(value) {
		if field.IsRequired {
			return errors.NewValidationError(field.APIName, "is required")
		}
		return nil
	}

	// Type-level semantic check, dispatched through the validator registry
	// keyed by the field type's declared validator
	if name := vs.types.GetValidator(string(field.Type)); name != "" {
		config := map[string]interface{}{}
		if vs.types.HasOptions(string(field.Type)) {
			config["options"] = field.ActiveOptionValues()
		}
		if err := vs.validator.Validate(name, value, config); err != nil {
			return errors.NewValidationError(field.APIName, err.Error())
		}
	}

	return vs.checkConstraints(field, value)
}

// checkConstraints applies the structured validation_rules attached to a field
func (vs *ValidationService) checkConstraints(field *models.Field, value interface{}) error {
	rules := field.ValidationRules
	if rules == nil {
		return nil
	}

	if rules.MinValue != nil || rules.MaxValue != nil {
		if num, ok := utils.ToFloat64(value); ok {
			if rules.MinValue != nil && num < *rules.MinValue {
				return errors.NewValidationError(field.APIName, fmt.Sprintf("must be at least %v", *rules.MinValue))
			}
			if rules.MaxValue != nil && num > *rules.MaxValue {
				return errors.NewValidationError(field.APIName, fmt.Sprintf("must be at most %v", *rules.MaxValue))
			}
		}
	}

	if strVal, ok := value.(string); ok {
		if rules.MinLength != nil && len(strVal) < *rules.MinLength {
			return errors.NewValidationError(field.APIName, "is too short")
		}
		if rules.MaxLength != nil && len(strVal) > *rules.MaxLength {
			return errors.NewValidationError(field.APIName, "is too long")
		}

		if rules.Pattern != nil && *rules.Pattern != "" {
			matched, err := regexp.MatchString(*rules.Pattern, strVal)
			if err == nil && !matched {
				msg := "invalid format"
				if rules.PatternMessage != nil && *rules.PatternMessage != "" {
					msg = *rules.PatternMessage
				}
				return errors.NewValidationError(field.APIName, msg)
			}
		}
	}

	return nil
}

// BuildDocument validates an input document against a schema snapshot and
// produces the document to store. With existing == nil the semantics are a
// create: absent required fields fail, absent fields with a default take the
// default, absent optional fields are omitted. With existing non-nil the
// semantics are a merge update: present keys overwrite, and the required
// check only fires when a key is absent from both the input and the existing
// document. All field failures are collected, not just the first.
func (vs *ValidationService) BuildDocument(schema *models.ModuleSchema, input models.Document, existing models.Document) (models.Document, errors.ValidationErrors) {
	var verrs errors.ValidationErrors

	doc := models.Document{}
	if existing != nil {
		doc = existing.Clone()
	}

	for _, field := range schema.Fields() {
		// Formula fields are computed on read, never stored
		if vs.types.IsVirtual(string(field.Type)) {
			continue
		}

		value, present := input[field.APIName]
		if present {
			if err := vs.ValidateValue(&field, value); err != nil {
				if ve, ok := err.(*errors.ValidationError); ok {
					verrs = append(verrs, ve)
				} else {
					verrs = append(verrs, errors.NewValidationError(field.APIName, err.Error()))
				}
				continue
			}
			doc[field.APIName] = value
			continue
		}

		if existing != nil {
			// Merge update: an absent key keeps its stored value; required
			// fires only when neither side has one
			if field.IsRequired && isEmpty(existing[field.APIName]) {
				verrs = append(verrs, errors.NewValidationError(field.APIName, "is required"))
			}
			continue
		}

		if field.IsRequired {
			verrs = append(verrs, errors.NewValidationError(field.APIName, "is required"))
			continue
		}

		if def, ok := vs.defaultFor(&field); ok {
			doc[field.APIName] = def
		}
	}

	if len(verrs) > 0 {
		return nil, verrs
	}
	return doc, nil
}

// defaultFor resolves the stored value for a field absent from a create
// payload. A field-level default wins; otherwise enumerated fields fall back
// to the option(s) flagged is_default.
func (vs *ValidationService) defaultFor(field *models.Field) (interface{}, bool) {
	if field.DefaultValue != nil {
		return field.DefaultValue, true
	}
	if !vs.types.HasOptions(string(field.Type)) {
		return nil, false
	}
	defaults := field.DefaultOptionValues()
	if len(defaults) == 0 {
		return nil, false
	}
	if field.Type == constants.FieldTypeMultiselect {
		return defaults, true
	}
	return defaults[0], true
}
