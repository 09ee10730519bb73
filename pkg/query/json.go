package query

import (
	"fmt"

	"github.com/fluxcrm/backend/pkg/constants"
)

// JSON path helpers for the module_records data column. Every api_name passed
// here must already be validated against the module's known-fields set; the
// path is built from a vetted snake_case identifier, never raw caller input.
// Values are always bound parameters.

// DataPath returns the JSON_EXTRACT expression addressing a document key
func DataPath(apiName string) string {
	return fmt.Sprintf("JSON_EXTRACT(`%s`, '$.\"%s\"')", constants.FieldData, apiName)
}

// DataText returns the unquoted (text) form of a document key
func DataText(apiName string) string {
	return fmt.Sprintf("JSON_UNQUOTE(%s)", DataPath(apiName))
}

// DataNumeric returns a numeric cast of a document key for range comparison
func DataNumeric(apiName string) string {
	return fmt.Sprintf("CAST(%s AS DECIMAL(65,10))", DataPath(apiName))
}

// DataContains returns a predicate matching documents whose key holds an
// array containing the bound string parameter
func DataContains(apiName string) string {
	return fmt.Sprintf("JSON_CONTAINS(%s, JSON_QUOTE(?))", DataPath(apiName))
}

// DataEquals returns a scalar equality predicate on a document key
func DataEquals(apiName string) string {
	return fmt.Sprintf("%s = ?", DataText(apiName))
}
