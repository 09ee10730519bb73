package constants

// Schema tables
const (
	TableModules       = "modules"
	TableBlocks        = "blocks"
	TableFields        = "fields"
	TableFieldOptions  = "field_options"
	TableRelationships = "module_relationships"
	TableModuleRecords = "module_records"
)

// Shared column names
const (
	FieldID        = "id"
	FieldModuleID  = "module_id"
	FieldBlockID   = "block_id"
	FieldFieldID   = "field_id"
	FieldAPIName   = "api_name"
	FieldOrder     = "display_order"
	FieldData      = "data"
	FieldCreatedBy = "created_by"
	FieldUpdatedBy = "updated_by"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
	FieldDeletedAt = "deleted_at"
)

// NativeRecordColumns are the record columns addressable in filters and sorts
// without going through the JSON document
var NativeRecordColumns = map[string]bool{
	FieldID:        true,
	FieldCreatedAt: true,
	FieldUpdatedAt: true,
}

// Pagination bounds
const (
	DefaultPageSize = 25
	MaxPageSize     = 200
)

// MaxCascadeDepth bounds cascade-delete recursion across cyclic relationship graphs
const MaxCascadeDepth = 16

// MaxTxRetries bounds deadlock retries on contended write transactions
const MaxTxRetries = 3
