package errors

import (
	"net/http"
	"strings"
)

// ValidationErrors aggregates every field failure of one document validation
// pass, so a caller sees all offending fields at once instead of fixing them
// one round-trip at a time
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e))
	for _, ve := range e {
		parts = append(parts, ve.Error())
	}
	return strings.Join(parts, "; ")
}

func (e ValidationErrors) HTTPStatus() int {
	return http.StatusBadRequest
}

func (e ValidationErrors) Code() string {
	return "VALIDATION_ERROR"
}

// Fields returns the offending field names in order
func (e ValidationErrors) Fields() []string {
	fields := make([]string, 0, len(e))
	for _, ve := range e {
		fields = append(fields, ve.Field)
	}
	return fields
}
