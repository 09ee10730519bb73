package services

import (
	"testing"

	"github.com/fluxcrm/backend/internal/domain/models"
	"github.com/fluxcrm/backend/pkg/constants"
	"github.com/fluxcrm/backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }
func strPtr(s string) *string     { return &s }

func contactsSchema() *models.ModuleSchema {
	return &models.ModuleSchema{
		Module: models.Module{ID: "mod-contacts", APIName: "contacts", IsActive: true},
		Blocks: []models.Block{
			{
				ID: "blk-main",
				Fields: []models.Field{
					{APIName: "name", Type: constants.FieldTypeText, IsRequired: true},
					{APIName: "email", Type: constants.FieldTypeEmail, IsRequired: true},
					{APIName: "age", Type: constants.FieldTypeNumber, ValidationRules: &models.ValidationRules{MinValue: floatPtr(18)}},
					{APIName: "status", Type: constants.FieldTypeSelect, DefaultValue: "active", Options: []models.FieldOption{
						{Value: "active", IsActive: true},
						{Value: "closed", IsActive: true},
						{Value: "legacy", IsActive: false},
					}},
					{APIName: "nickname", Type: constants.FieldTypeText, ValidationRules: &models.ValidationRules{MaxLength: intPtr(10)}},
					{APIName: "display_name", Type: constants.FieldTypeFormula, Settings: map[string]interface{}{"expression": `name`}},
				},
			},
		},
	}
}

func TestValidateValue(t *testing.T) {
	vs := NewValidationService()
	schema := contactsSchema()

	field := func(apiName string) *models.Field {
		f, ok := schema.FieldByAPIName(apiName)
		require.True(t, ok)
		return f
	}

	assert.NoError(t, vs.ValidateValue(field("email"), "jane@example.com"))
	assert.Error(t, vs.ValidateValue(field("email"), "not-an-email"))
	assert.Error(t, vs.ValidateValue(field("email"), ""), "empty required value fails")

	assert.NoError(t, vs.ValidateValue(field("age"), 25))
	assert.Error(t, vs.ValidateValue(field("age"), 10), "below min_value")
	assert.Error(t, vs.ValidateValue(field("age"), "abc"), "not numeric")

	assert.NoError(t, vs.ValidateValue(field("status"), "active"))
	assert.Error(t, vs.ValidateValue(field("status"), "legacy"), "inactive option rejected")
	assert.Error(t, vs.ValidateValue(field("status"), "archived"))

	assert.NoError(t, vs.ValidateValue(field("nickname"), "JD"))
	assert.Error(t, vs.ValidateValue(field("nickname"), "much-too-long-nickname"))
}

func TestBuildDocumentCreate(t *testing.T) {
	vs := NewValidationService()
	schema := contactsSchema()

	doc, verrs := vs.BuildDocument(schema, models.Document{
		"name":  "Jane Doe",
		"email": "jane@example.com",
	}, nil)
	require.Nil(t, verrs)

	assert.Equal(t, "Jane Doe", doc["name"])
	assert.Equal(t, "active", doc["status"], "default applied on create")
	_, hasAge := doc["age"]
	assert.False(t, hasAge, "absent optional field omitted")
	_, hasFormula := doc["display_name"]
	assert.False(t, hasFormula, "virtual fields never stored")
}

func TestBuildDocumentOptionLevelDefault(t *testing.T) {
	vs := NewValidationService()
	schema := &models.ModuleSchema{
		Module: models.Module{ID: "mod-contacts", APIName: "contacts", IsActive: true},
		Blocks: []models.Block{
			{
				ID: "blk-main",
				Fields: []models.Field{
					{APIName: "email", Type: constants.FieldTypeEmail, IsRequired: true},
					{APIName: "status", Type: constants.FieldTypeSelect, Options: []models.FieldOption{
						{Value: "active", IsActive: true, IsDefault: true},
						{Value: "inactive", IsActive: true},
					}},
					{APIName: "channels", Type: constants.FieldTypeMultiselect, Options: []models.FieldOption{
						{Value: "email", IsActive: true, IsDefault: true},
						{Value: "phone", IsActive: true},
						{Value: "fax", IsActive: false, IsDefault: true},
					}},
				},
			},
		},
	}

	doc, verrs := vs.BuildDocument(schema, models.Document{"email": "a@b.com"}, nil)
	require.Nil(t, verrs)

	assert.Equal(t, "active", doc["status"], "default option applied without a field-level default")
	assert.Equal(t, []string{"email"}, doc["channels"], "inactive defaults skipped")
}

func TestBuildDocumentCollectsAllErrors(t *testing.T) {
	vs := NewValidationService()
	schema := contactsSchema()

	_, verrs := vs.BuildDocument(schema, models.Document{
		"name":  "Jane",
		"email": "not-an-email",
		"age":   5,
	}, nil)
	require.NotNil(t, verrs)

	assert.ElementsMatch(t, []string{"email", "age"}, verrs.Fields())
}

func TestBuildDocumentMissingRequired(t *testing.T) {
	vs := NewValidationService()
	schema := contactsSchema()

	_, verrs := vs.BuildDocument(schema, models.Document{"name": "Jane"}, nil)
	require.NotNil(t, verrs)
	assert.Equal(t, []string{"email"}, verrs.Fields())
}

func TestBuildDocumentUpdateMerges(t *testing.T) {
	vs := NewValidationService()
	schema := contactsSchema()

	existing := models.Document{
		"name":   "Jane Doe",
		"email":  "jane@example.com",
		"status": "active",
	}

	doc, verrs := vs.BuildDocument(schema, models.Document{"status": "closed"}, existing)
	require.Nil(t, verrs)

	assert.Equal(t, "closed", doc["status"], "present key overwrites")
	assert.Equal(t, "Jane Doe", doc["name"], "absent keys keep stored values")
	assert.Equal(t, "jane@example.com", doc["email"])
}

func TestBuildDocumentUpdateRequiredStillEnforced(t *testing.T) {
	vs := NewValidationService()
	schema := contactsSchema()

	// Existing document never had an email; an update that does not provide
	// one either still fails the required check
	_, verrs := vs.BuildDocument(schema, models.Document{"name": "New Name"}, models.Document{"name": "Old"})
	require.NotNil(t, verrs)
	assert.Equal(t, []string{"email"}, verrs.Fields())

	// Providing an explicit empty value is a failure too
	_, verrs = vs.BuildDocument(schema, models.Document{"email": ""}, models.Document{"name": "Old", "email": "a@b.co"})
	require.NotNil(t, verrs)
	assert.True(t, errors.IsValidation(verrs))
}
