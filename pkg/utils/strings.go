package utils

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	apiNamePattern   = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
	nonNamePattern   = regexp.MustCompile(`[^a-z0-9_]+`)
	underscoreRuns   = regexp.MustCompile(`_+`)
	leadingDigitsPat = regexp.MustCompile(`^[0-9]+`)
)

// IsValidAPIName reports whether s is a well-formed snake_case API name
func IsValidAPIName(s string) bool {
	return apiNamePattern.MatchString(s)
}

// ToSnakeCase derives a snake_case API name from a human-readable label.
// "Annual Revenue" -> "annual_revenue", "companyName" -> "company_name".
func ToSnakeCase(label string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range label {
		if unicode.IsUpper(r) && prevLower {
			b.WriteByte('_')
		}
		prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
		b.WriteRune(unicode.ToLower(r))
	}

	s := b.String()
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = nonNamePattern.ReplaceAllString(s, "")
	s = underscoreRuns.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	s = leadingDigitsPat.ReplaceAllString(s, "")
	return s
}
