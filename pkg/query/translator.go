package query

import (
	"fmt"
	"strings"

	"github.com/fluxcrm/backend/internal/domain/models"
	"github.com/fluxcrm/backend/pkg/constants"
	"github.com/fluxcrm/backend/pkg/fieldtypes"
	"github.com/fluxcrm/backend/pkg/utils"
)

// Predicate is one translated WHERE condition with its bound parameters
type Predicate struct {
	SQL    string
	Params []interface{}
}

// OrderClause is one translated ORDER BY expression
type OrderClause struct {
	SQL string
}

// operatorSQL maps normalized operators to SQL comparison operators
var operatorSQL = map[string]string{
	constants.OperatorEquals:             "=",
	constants.OperatorGreaterThan:        ">",
	constants.OperatorGreaterThanOrEqual: ">=",
	constants.OperatorLessThan:           "<",
	constants.OperatorLessThanOrEqual:    "<=",
}

// shortOperators maps external short forms to normalized operators
var shortOperators = map[string]string{
	"gt":  constants.OperatorGreaterThan,
	"gte": constants.OperatorGreaterThanOrEqual,
	"lt":  constants.OperatorLessThan,
	"lte": constants.OperatorLessThanOrEqual,
	"eq":  constants.OperatorEquals,
}

// NormalizeOperator maps an external operator spelling to its canonical form.
// Returns false for operators the translator does not support.
func NormalizeOperator(op string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(op))
	if lower == "" {
		return constants.OperatorEquals, true
	}
	if normalized, ok := shortOperators[lower]; ok {
		return normalized, true
	}
	if _, ok := operatorSQL[lower]; ok {
		return lower, true
	}
	return "", false
}

// Translator compiles field/operator/value filters and sort specs into
// parameterized predicates against either native record columns or JSON
// document paths, for one module's schema snapshot.
type Translator struct {
	schema *models.ModuleSchema
	types  *fieldtypes.Registry
}

// NewTranslator creates a Translator bound to a schema snapshot
func NewTranslator(schema *models.ModuleSchema) *Translator {
	return &Translator{schema: schema, types: fieldtypes.GetRegistry()}
}

// TranslateFilter compiles one filter criterion. The second return is false
// when the filter must be dropped: unknown field, unsupported operator, or a
// field name that fails the identifier check. Dropping rather than erroring
// keeps the engine tolerant of stale client filter state.
func (t *Translator) TranslateFilter(f models.Filter) (Predicate, bool) {
	operator, ok := NormalizeOperator(f.Operator)
	if !ok {
		return Predicate{}, false
	}
	sqlOp := operatorSQL[operator]

	if constants.NativeRecordColumns[f.Field] {
		return Predicate{
			SQL:    fmt.Sprintf("`%s` %s ?", f.Field, sqlOp),
			Params: []interface{}{f.Value},
		}, true
	}

	field, exists := t.schema.FieldByAPIName(f.Field)
	if !exists {
		return Predicate{}, false
	}
	if !utils.IsValidAPIName(field.APIName) {
		return Predicate{}, false
	}
	if !t.types.SupportsOperator(string(field.Type), operator) {
		return Predicate{}, false
	}

	expr := DataText(field.APIName)
	if t.types.IsNumeric(string(field.Type)) && operator != constants.OperatorEquals {
		expr = DataNumeric(field.APIName)
	}

	return Predicate{
		SQL:    fmt.Sprintf("%s %s ?", expr, sqlOp),
		Params: []interface{}{f.Value},
	}, true
}

// TranslateFilters compiles a filter set, silently dropping untranslatable entries
func (t *Translator) TranslateFilters(filters []models.Filter) []Predicate {
	predicates := make([]Predicate, 0, len(filters))
	for _, f := range filters {
		if p, ok := t.TranslateFilter(f); ok {
			predicates = append(predicates, p)
		}
	}
	return predicates
}

// TranslateSort compiles one sort criterion. Unknown fields and unsupported
// directions are dropped; the caller falls back to created_at DESC when no
// sort survives.
func (t *Translator) TranslateSort(s models.Sort) (OrderClause, bool) {
	direction := strings.ToLower(strings.TrimSpace(s.Direction))
	if direction == "" {
		direction = constants.SortASC
	}
	if direction != constants.SortASC && direction != constants.SortDESC {
		return OrderClause{}, false
	}
	dir := strings.ToUpper(direction)

	if constants.NativeRecordColumns[s.Field] {
		return OrderClause{SQL: fmt.Sprintf("`%s` %s", s.Field, dir)}, true
	}

	field, exists := t.schema.FieldByAPIName(s.Field)
	if !exists {
		return OrderClause{}, false
	}
	if !utils.IsValidAPIName(field.APIName) {
		return OrderClause{}, false
	}

	expr := DataText(field.APIName)
	if t.types.IsNumeric(string(field.Type)) {
		expr = DataPath(field.APIName)
	}
	return OrderClause{SQL: fmt.Sprintf("%s %s", expr, dir)}, true
}

// TranslateSorts compiles a sort set, dropping untranslatable entries
func (t *Translator) TranslateSorts(sorts []models.Sort) []OrderClause {
	clauses := make([]OrderClause, 0, len(sorts))
	for _, s := range sorts {
		if c, ok := t.TranslateSort(s); ok {
			clauses = append(clauses, c)
		}
	}
	return clauses
}

// DefaultOrder is the ordering applied when no requested sort survives translation
func DefaultOrder() OrderClause {
	return OrderClause{SQL: fmt.Sprintf("`%s` DESC", constants.FieldCreatedAt)}
}
