package fieldtypes

import (
	"embed"
	"encoding/json"
	"sync"
)

//go:embed fieldTypes.json
var fieldTypesFS embed.FS

// FieldTypeDefinition represents a field type configuration
type FieldTypeDefinition struct {
	Label        string   `json:"label"`
	Icon         string   `json:"icon"`
	Description  string   `json:"description"`
	IsSearchable bool     `json:"isSearchable,omitempty"`
	IsNumeric    bool     `json:"isNumeric,omitempty"`
	IsVirtual    bool     `json:"isVirtual,omitempty"`
	HasOptions   bool     `json:"hasOptions,omitempty"`
	Validator    string   `json:"validator,omitempty"`
	Operators    []string `json:"operators"`
}

// Registry holds field type definitions
type Registry struct {
	types map[string]FieldTypeDefinition
	mu    sync.RWMutex
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// GetRegistry returns the singleton field types registry
func GetRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = &Registry{
			types: make(map[string]FieldTypeDefinition),
		}
		defaultRegistry.loadFromEmbedded()
	})
	return defaultRegistry
}

// loadFromEmbedded loads field types from the embedded JSON file
func (r *Registry) loadFromEmbedded() error {
	data, err := fieldTypesFS.ReadFile("fieldTypes.json")
	if err != nil {
		return err
	}

	var types map[string]FieldTypeDefinition
	if err := json.Unmarshal(data, &types); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = types
	return nil
}

// Get returns a field type definition by name
func (r *Registry) Get(typeName string) (FieldTypeDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.types[typeName]
	return def, ok
}

// IsValidType returns whether a field type name is registered
func (r *Registry) IsValidType(typeName string) bool {
	_, ok := r.Get(typeName)
	return ok
}

// HasOptions returns whether a field type carries enumerated options
func (r *Registry) HasOptions(typeName string) bool {
	def, ok := r.Get(typeName)
	if !ok {
		return false
	}
	return def.HasOptions
}

// IsNumeric returns whether a field type holds numeric-coercible values
func (r *Registry) IsNumeric(typeName string) bool {
	def, ok := r.Get(typeName)
	if !ok {
		return false
	}
	return def.IsNumeric
}

// IsVirtual returns whether a field type is computed rather than stored
func (r *Registry) IsVirtual(typeName string) bool {
	def, ok := r.Get(typeName)
	if !ok {
		return false
	}
	return def.IsVirtual
}

// GetValidator returns the registered validator name for a field type, if any
func (r *Registry) GetValidator(typeName string) string {
	def, ok := r.Get(typeName)
	if !ok {
		return ""
	}
	return def.Validator
}

// GetOperators returns the valid filter operators for a field type
func (r *Registry) GetOperators(typeName string) []string {
	def, ok := r.Get(typeName)
	if !ok {
		return nil
	}
	return def.Operators
}

// SupportsOperator reports whether a field type accepts the given filter operator
func (r *Registry) SupportsOperator(typeName, operator string) bool {
	for _, op := range r.GetOperators(typeName) {
		if op == operator {
			return true
		}
	}
	return false
}

// GetAll returns all registered field types
func (r *Registry) GetAll() map[string]FieldTypeDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make(map[string]FieldTypeDefinition, len(r.types))
	for k, v := range r.types {
		result[k] = v
	}
	return result
}

// Package-level convenience functions using the default registry

// IsValidType returns whether a field type name is registered
func IsValidType(typeName string) bool {
	return GetRegistry().IsValidType(typeName)
}

// HasOptions returns whether a field type carries enumerated options
func HasOptions(typeName string) bool {
	return GetRegistry().HasOptions(typeName)
}

// IsNumeric returns whether a field type holds numeric-coercible values
func IsNumeric(typeName string) bool {
	return GetRegistry().IsNumeric(typeName)
}

// IsVirtual returns whether a field type is computed rather than stored
func IsVirtual(typeName string) bool {
	return GetRegistry().IsVirtual(typeName)
}

// GetValidator returns the registered validator name for a field type, if any
func GetValidator(typeName string) string {
	return GetRegistry().GetValidator(typeName)
}

// GetOperators returns the valid filter operators for a field type
func GetOperators(typeName string) []string {
	return GetRegistry().GetOperators(typeName)
}

// SupportsOperator reports whether a field type accepts the given filter operator
func SupportsOperator(typeName, operator string) bool {
	return GetRegistry().SupportsOperator(typeName, operator)
}
