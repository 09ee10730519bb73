package constants

// FieldType represents the declared type of a field
type FieldType string

const (
	FieldTypeText        FieldType = "text"
	FieldTypeTextarea    FieldType = "textarea"
	FieldTypeNumber      FieldType = "number"
	FieldTypeDecimal     FieldType = "decimal"
	FieldTypeEmail       FieldType = "email"
	FieldTypePhone       FieldType = "phone"
	FieldTypeURL         FieldType = "url"
	FieldTypeSelect      FieldType = "select"
	FieldTypeMultiselect FieldType = "multiselect"
	FieldTypeRadio       FieldType = "radio"
	FieldTypeCheckbox    FieldType = "checkbox"
	FieldTypeToggle      FieldType = "toggle"
	FieldTypeDate        FieldType = "date"
	FieldTypeDatetime    FieldType = "datetime"
	FieldTypeTime        FieldType = "time"
	FieldTypeCurrency    FieldType = "currency"
	FieldTypePercent     FieldType = "percent"
	FieldTypeLookup      FieldType = "lookup"
	FieldTypeFormula     FieldType = "formula"
	FieldTypeFile        FieldType = "file"
	FieldTypeImage       FieldType = "image"
	FieldTypeRichtext    FieldType = "richtext"
)

// GetAllFieldTypes returns all valid field types as a slice of strings
func GetAllFieldTypes() []string {
	return []string{
		string(FieldTypeText),
		string(FieldTypeTextarea),
		string(FieldTypeNumber),
		string(FieldTypeDecimal),
		string(FieldTypeEmail),
		string(FieldTypePhone),
		string(FieldTypeURL),
		string(FieldTypeSelect),
		string(FieldTypeMultiselect),
		string(FieldTypeRadio),
		string(FieldTypeCheckbox),
		string(FieldTypeToggle),
		string(FieldTypeDate),
		string(FieldTypeDatetime),
		string(FieldTypeTime),
		string(FieldTypeCurrency),
		string(FieldTypePercent),
		string(FieldTypeLookup),
		string(FieldTypeFormula),
		string(FieldTypeFile),
		string(FieldTypeImage),
		string(FieldTypeRichtext),
	}
}

// BlockType represents the layout role of a block
type BlockType string

const (
	BlockTypeSection   BlockType = "section"
	BlockTypeTab       BlockType = "tab"
	BlockTypeAccordion BlockType = "accordion"
)

// IsValidBlockType reports whether t is one of the known block types
func IsValidBlockType(t string) bool {
	switch BlockType(t) {
	case BlockTypeSection, BlockTypeTab, BlockTypeAccordion:
		return true
	}
	return false
}

// RelationshipType represents the cardinality of a relationship
type RelationshipType string

const (
	RelationshipOneToMany  RelationshipType = "one_to_many"
	RelationshipManyToMany RelationshipType = "many_to_many"
)

// IsValidRelationshipType reports whether t is a known relationship type
func IsValidRelationshipType(t string) bool {
	switch RelationshipType(t) {
	case RelationshipOneToMany, RelationshipManyToMany:
		return true
	}
	return false
}

// FieldWidth represents the layout fraction a field occupies in its block
type FieldWidth string

const (
	WidthQuarter      FieldWidth = "1/4"
	WidthThird        FieldWidth = "1/3"
	WidthHalf         FieldWidth = "1/2"
	WidthTwoThirds    FieldWidth = "2/3"
	WidthThreeQuarter FieldWidth = "3/4"
	WidthFull         FieldWidth = "full"
)

// IsValidFieldWidth reports whether w is a known layout fraction
func IsValidFieldWidth(w string) bool {
	switch FieldWidth(w) {
	case WidthQuarter, WidthThird, WidthHalf, WidthTwoThirds, WidthThreeQuarter, WidthFull:
		return true
	}
	return false
}

// Filter operators after normalization
const (
	OperatorEquals             = "equals"
	OperatorGreaterThan        = "greater_than"
	OperatorGreaterThanOrEqual = "greater_than_or_equal"
	OperatorLessThan           = "less_than"
	OperatorLessThanOrEqual    = "less_than_or_equal"
)

// Sort directions
const (
	SortASC  = "asc"
	SortDESC = "desc"
)
