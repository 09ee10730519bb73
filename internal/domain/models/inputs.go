package models

// Administrative input shapes for the schema surface. Zero-value api_names
// are derived from labels; zero-value orders are appended at the end.

// ModuleInput describes a module to create
type ModuleInput struct {
	Name         string                 `json:"name"`
	SingularName string                 `json:"singular_name"`
	APIName      string                 `json:"api_name,omitempty"`
	Icon         string                 `json:"icon,omitempty"`
	Description  *string                `json:"description,omitempty"`
	IsActive     *bool                  `json:"is_active,omitempty"`
	Settings     map[string]interface{} `json:"settings,omitempty"`
	Blocks       []BlockInput           `json:"blocks,omitempty"`
}

// ModuleUpdate describes a partial module update; nil fields are unchanged
type ModuleUpdate struct {
	Name         *string                `json:"name,omitempty"`
	SingularName *string                `json:"singular_name,omitempty"`
	Icon         *string                `json:"icon,omitempty"`
	Description  *string                `json:"description,omitempty"`
	IsActive     *bool                  `json:"is_active,omitempty"`
	Settings     map[string]interface{} `json:"settings,omitempty"`
}

// BlockInput describes a block to create, optionally with nested fields
type BlockInput struct {
	Name          string       `json:"name"`
	Type          string       `json:"type"`
	Columns       *int         `json:"columns,omitempty"`
	IsCollapsible bool         `json:"is_collapsible,omitempty"`
	IsCollapsed   bool         `json:"is_collapsed,omitempty"`
	Fields        []FieldInput `json:"fields,omitempty"`
}

// BlockUpdate describes a partial block update; nil fields are unchanged
type BlockUpdate struct {
	Name          *string `json:"name,omitempty"`
	Type          *string `json:"type,omitempty"`
	Columns       *int    `json:"columns,omitempty"`
	IsCollapsible *bool   `json:"is_collapsible,omitempty"`
	IsCollapsed   *bool   `json:"is_collapsed,omitempty"`
}

// FieldInput describes a field to create, optionally with nested options
type FieldInput struct {
	Type            string                 `json:"type"`
	APIName         string                 `json:"api_name,omitempty"`
	Label           string                 `json:"label"`
	Description     *string                `json:"description,omitempty"`
	HelpText        *string                `json:"help_text,omitempty"`
	RelationshipID  *string                `json:"relationship_id,omitempty"`
	IsRequired      bool                   `json:"is_required,omitempty"`
	IsUnique        bool                   `json:"is_unique,omitempty"`
	IsSearchable    bool                   `json:"is_searchable,omitempty"`
	IsVisibleList   *bool                  `json:"is_visible_list,omitempty"`
	IsVisibleDetail *bool                  `json:"is_visible_detail,omitempty"`
	ValidationRules *ValidationRules       `json:"validation_rules,omitempty"`
	Settings        map[string]interface{} `json:"settings,omitempty"`
	DefaultValue    interface{}            `json:"default_value,omitempty"`
	Width           string                 `json:"width,omitempty"`
	Options         []FieldOptionInput     `json:"options,omitempty"`
}

// FieldUpdate describes a partial field update; nil fields are unchanged.
// Type and api_name are immutable by convention since the api_name is the
// JSON document key on stored records.
type FieldUpdate struct {
	Label           *string                `json:"label,omitempty"`
	Description     *string                `json:"description,omitempty"`
	HelpText        *string                `json:"help_text,omitempty"`
	IsRequired      *bool                  `json:"is_required,omitempty"`
	IsUnique        *bool                  `json:"is_unique,omitempty"`
	IsSearchable    *bool                  `json:"is_searchable,omitempty"`
	IsVisibleList   *bool                  `json:"is_visible_list,omitempty"`
	IsVisibleDetail *bool                  `json:"is_visible_detail,omitempty"`
	ValidationRules *ValidationRules       `json:"validation_rules,omitempty"`
	Settings        map[string]interface{} `json:"settings,omitempty"`
	DefaultValue    interface{}            `json:"default_value,omitempty"`
	Width           *string                `json:"width,omitempty"`
}

// FieldOptionInput describes a field option to create
type FieldOptionInput struct {
	Label     string  `json:"label"`
	Value     string  `json:"value,omitempty"`
	Color     *string `json:"color,omitempty"`
	IsDefault bool    `json:"is_default,omitempty"`
	IsActive  *bool   `json:"is_active,omitempty"`
}

// FieldOptionUpdate describes a partial field option update
type FieldOptionUpdate struct {
	Label     *string `json:"label,omitempty"`
	Color     *string `json:"color,omitempty"`
	IsDefault *bool   `json:"is_default,omitempty"`
	IsActive  *bool   `json:"is_active,omitempty"`
}

// RelationshipInput describes a relationship to create
type RelationshipInput struct {
	FromModuleID string               `json:"from_module_id"`
	ToModuleID   string               `json:"to_module_id"`
	Name         string               `json:"name"`
	APIName      string               `json:"api_name,omitempty"`
	Type         string               `json:"type"`
	Settings     RelationshipSettings `json:"settings"`
}

// RelationshipUpdate describes a partial relationship update; the api_name
// and endpoints are immutable since stored documents key on the api_name
type RelationshipUpdate struct {
	Name     *string               `json:"name,omitempty"`
	Settings *RelationshipSettings `json:"settings,omitempty"`
}
