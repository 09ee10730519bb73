package query

import (
	"testing"

	"github.com/fluxcrm/backend/internal/domain/models"
	"github.com/fluxcrm/backend/pkg/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() *models.ModuleSchema {
	return &models.ModuleSchema{
		Module: models.Module{ID: "mod-1", APIName: "deals"},
		Blocks: []models.Block{
			{
				ID: "blk-1",
				Fields: []models.Field{
					{APIName: "name", Type: constants.FieldTypeText},
					{APIName: "amount", Type: constants.FieldTypeCurrency},
					{APIName: "close_date", Type: constants.FieldTypeDate},
					{APIName: "margin", Type: constants.FieldTypeFormula},
				},
			},
		},
	}
}

func TestNormalizeOperator(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"", "equals", true},
		{"equals", "equals", true},
		{"eq", "equals", true},
		{"gt", "greater_than", true},
		{"GTE", "greater_than_or_equal", true},
		{"less_than", "less_than", true},
		{"like", "", false},
		{"contains", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeOperator(tt.in)
		assert.Equal(t, tt.ok, ok, "operator %q", tt.in)
		if ok {
			assert.Equal(t, tt.want, got, "operator %q", tt.in)
		}
	}
}

func TestTranslateFilterTextEquality(t *testing.T) {
	tr := NewTranslator(testSchema())

	p, ok := tr.TranslateFilter(models.Filter{Field: "name", Operator: "equals", Value: "Acme"})
	require.True(t, ok)
	assert.Equal(t, "JSON_UNQUOTE(JSON_EXTRACT(`data`, '$.\"name\"')) = ?", p.SQL)
	assert.Equal(t, []interface{}{"Acme"}, p.Params)
}

func TestTranslateFilterNumericRange(t *testing.T) {
	tr := NewTranslator(testSchema())

	p, ok := tr.TranslateFilter(models.Filter{Field: "amount", Operator: "gt", Value: 1000})
	require.True(t, ok)
	assert.Equal(t, "CAST(JSON_EXTRACT(`data`, '$.\"amount\"') AS DECIMAL(65,10)) > ?", p.SQL)
	assert.Equal(t, []interface{}{1000}, p.Params)
}

func TestTranslateFilterNativeColumn(t *testing.T) {
	tr := NewTranslator(testSchema())

	p, ok := tr.TranslateFilter(models.Filter{Field: "created_at", Operator: "gte", Value: "2026-01-01"})
	require.True(t, ok)
	assert.Equal(t, "`created_at` >= ?", p.SQL)
}

func TestTranslateFilterDrops(t *testing.T) {
	tr := NewTranslator(testSchema())

	// Unknown field
	_, ok := tr.TranslateFilter(models.Filter{Field: "ghost", Operator: "equals", Value: "x"})
	assert.False(t, ok)

	// Range operator on a text field
	_, ok = tr.TranslateFilter(models.Filter{Field: "name", Operator: "gt", Value: "x"})
	assert.False(t, ok)

	// Unsupported operator spelling
	_, ok = tr.TranslateFilter(models.Filter{Field: "name", Operator: "like", Value: "x"})
	assert.False(t, ok)

	// Formula fields are not filterable
	_, ok = tr.TranslateFilter(models.Filter{Field: "margin", Operator: "equals", Value: 1})
	assert.False(t, ok)
}

func TestTranslateFiltersKeepsSurvivors(t *testing.T) {
	tr := NewTranslator(testSchema())

	preds := tr.TranslateFilters([]models.Filter{
		{Field: "name", Operator: "equals", Value: "Acme"},
		{Field: "ghost", Operator: "equals", Value: "x"},
		{Field: "close_date", Operator: "lte", Value: "2026-12-31"},
	})
	assert.Len(t, preds, 2)
}

func TestTranslateSort(t *testing.T) {
	tr := NewTranslator(testSchema())

	c, ok := tr.TranslateSort(models.Sort{Field: "amount", Direction: "desc"})
	require.True(t, ok)
	assert.Equal(t, "JSON_EXTRACT(`data`, '$.\"amount\"') DESC", c.SQL)

	c, ok = tr.TranslateSort(models.Sort{Field: "name", Direction: ""})
	require.True(t, ok)
	assert.Equal(t, "JSON_UNQUOTE(JSON_EXTRACT(`data`, '$.\"name\"')) ASC", c.SQL)

	c, ok = tr.TranslateSort(models.Sort{Field: "created_at", Direction: "asc"})
	require.True(t, ok)
	assert.Equal(t, "`created_at` ASC", c.SQL)

	_, ok = tr.TranslateSort(models.Sort{Field: "name", Direction: "sideways"})
	assert.False(t, ok)

	_, ok = tr.TranslateSort(models.Sort{Field: "ghost", Direction: "asc"})
	assert.False(t, ok)
}

func TestDefaultOrder(t *testing.T) {
	assert.Equal(t, "`created_at` DESC", DefaultOrder().SQL)
}
