package models

import (
	"time"
)

// Document is the schema-less field map stored per record: api_name -> value.
// Keys are a subset of the owning module's field api_names plus possibly
// stale keys from fields deleted after the record was written.
type Document map[string]interface{}

// GetString returns the string value for a key, or ""
func (d Document) GetString(key string) string {
	if val, ok := d[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// Clone returns a shallow copy of the document
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// ModuleRecord represents one stored data row belonging to a module
type ModuleRecord struct {
	ID        string     `json:"id"`
	ModuleID  string     `json:"module_id"`
	Data      Document   `json:"data"`
	CreatedBy string     `json:"created_by,omitempty"`
	UpdatedBy string     `json:"updated_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Filter is one field/operator/value filter criterion on a record list
type Filter struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value"`
}

// Sort is one field/direction ordering criterion on a record list
type Sort struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// ListOptions describes a record list request
type ListOptions struct {
	Filters  []Filter `json:"filters,omitempty"`
	Sort     []Sort   `json:"sort,omitempty"`
	Page     int      `json:"page,omitempty"`
	PageSize int      `json:"page_size,omitempty"`
}

// RecordPage is one page of a record list result
type RecordPage struct {
	Records  []*ModuleRecord `json:"records"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}
