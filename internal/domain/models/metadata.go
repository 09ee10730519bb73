package models

import (
	"time"

	"github.com/fluxcrm/backend/pkg/constants"
)

// FieldType is defined in pkg/constants
type FieldType = constants.FieldType

// BlockType is defined in pkg/constants
type BlockType = constants.BlockType

// RelationshipType is defined in pkg/constants
type RelationshipType = constants.RelationshipType

// Module represents a user-defined record type
type Module struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	SingularName string                 `json:"singular_name"`
	APIName      string                 `json:"api_name"`
	Icon         string                 `json:"icon,omitempty"`
	Description  *string                `json:"description,omitempty"`
	IsActive     bool                   `json:"is_active"`
	IsSystem     bool                   `json:"is_system"`
	Settings     map[string]interface{} `json:"settings,omitempty"`
	DisplayOrder int                    `json:"display_order"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
	DeletedAt    *time.Time             `json:"deleted_at,omitempty"`
}

// Block represents a named grouping of fields within a module
type Block struct {
	ID            string    `json:"id"`
	ModuleID      string    `json:"module_id"`
	Name          string    `json:"name"`
	Type          BlockType `json:"type"`
	DisplayOrder  int       `json:"display_order"`
	Columns       int       `json:"columns"`
	IsCollapsible bool      `json:"is_collapsible"`
	IsCollapsed   bool      `json:"is_collapsed"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Fields        []Field   `json:"fields,omitempty"`
}

// ValidationRules holds the structured constraints attached to a field
type ValidationRules struct {
	MinValue       *float64 `json:"min_value,omitempty"`
	MaxValue       *float64 `json:"max_value,omitempty"`
	MinLength      *int     `json:"min_length,omitempty"`
	MaxLength      *int     `json:"max_length,omitempty"`
	Pattern        *string  `json:"pattern,omitempty"`
	PatternMessage *string  `json:"pattern_message,omitempty"`
}

// Field represents a single typed attribute definition within a block
type Field struct {
	ID              string                 `json:"id"`
	BlockID         string                 `json:"block_id"`
	RelationshipID  *string                `json:"relationship_id,omitempty"`
	Type            FieldType              `json:"type"`
	APIName         string                 `json:"api_name"`
	Label           string                 `json:"label"`
	Description     *string                `json:"description,omitempty"`
	HelpText        *string                `json:"help_text,omitempty"`
	IsRequired      bool                   `json:"is_required"`
	IsUnique        bool                   `json:"is_unique"`
	IsSearchable    bool                   `json:"is_searchable"`
	IsVisibleList   bool                   `json:"is_visible_list"`
	IsVisibleDetail bool                   `json:"is_visible_detail"`
	ValidationRules *ValidationRules       `json:"validation_rules,omitempty"`
	Settings        map[string]interface{} `json:"settings,omitempty"`
	DefaultValue    interface{}            `json:"default_value,omitempty"`
	DisplayOrder    int                    `json:"display_order"`
	Width           constants.FieldWidth   `json:"width"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
	Options         []FieldOption          `json:"options,omitempty"`
}

// ActiveOptionValues returns the values of the field's active options
func (f *Field) ActiveOptionValues() []string {
	values := make([]string, 0, len(f.Options))
	for _, opt := range f.Options {
		if opt.IsActive {
			values = append(values, opt.Value)
		}
	}
	return values
}

// DefaultOptionValues returns the values of the field's active options
// flagged as default
func (f *Field) DefaultOptionValues() []string {
	var values []string
	for _, opt := range f.Options {
		if opt.IsActive && opt.IsDefault {
			values = append(values, opt.Value)
		}
	}
	return values
}

// FieldOption represents one allowed value for an enumerated field
type FieldOption struct {
	ID           string    `json:"id"`
	FieldID      string    `json:"field_id"`
	Label        string    `json:"label"`
	Value        string    `json:"value"`
	Color        *string   `json:"color,omitempty"`
	IsDefault    bool      `json:"is_default"`
	IsActive     bool      `json:"is_active"`
	DisplayOrder int       `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RelationshipSettings holds the declarative behavior of a relationship
type RelationshipSettings struct {
	CascadeDelete      bool                   `json:"cascade_delete"`
	Required           bool                   `json:"required"`
	AllowCreateRelated bool                   `json:"allow_create_related"`
	DisplayField       string                 `json:"display_field,omitempty"`
	SortField          string                 `json:"sort_field,omitempty"`
	SortDirection      string                 `json:"sort_direction,omitempty"`
	Filters            map[string]interface{} `json:"filters,omitempty"`
}

// Relationship represents a declared reference between two modules.
// Its APIName doubles as the JSON document key on "from"-module records
// holding the reference: a scalar id for one_to_many, an id array for
// many_to_many.
type Relationship struct {
	ID           string               `json:"id"`
	FromModuleID string               `json:"from_module_id"`
	ToModuleID   string               `json:"to_module_id"`
	Name         string               `json:"name"`
	APIName      string               `json:"api_name"`
	Type         RelationshipType     `json:"type"`
	Settings     RelationshipSettings `json:"settings"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// ModuleSchema is the full schema snapshot of a module: the module row plus
// its blocks, fields, and field options, loaded just-in-time for validation
// and query translation.
type ModuleSchema struct {
	Module Module  `json:"module"`
	Blocks []Block `json:"blocks"`
}

// Fields returns all fields across blocks, in block/field display order
func (s *ModuleSchema) Fields() []Field {
	var fields []Field
	for _, block := range s.Blocks {
		fields = append(fields, block.Fields...)
	}
	return fields
}

// FieldByAPIName looks up a field definition by its document key
func (s *ModuleSchema) FieldByAPIName(apiName string) (*Field, bool) {
	for bi := range s.Blocks {
		for fi := range s.Blocks[bi].Fields {
			if s.Blocks[bi].Fields[fi].APIName == apiName {
				return &s.Blocks[bi].Fields[fi], true
			}
		}
	}
	return nil, false
}
