package persistence

import (
	"encoding/json"
	"time"

	"github.com/fluxcrm/backend/internal/domain/models"
	"github.com/fluxcrm/backend/pkg/constants"
	"github.com/fluxcrm/backend/pkg/query"
	"github.com/fluxcrm/backend/pkg/utils"
)

// Conversions from generic scanned rows to typed metadata structs. The
// scanner flattens []byte to string, so JSON columns arrive as strings and
// DATETIME columns as time.Time (parseTime=True) or string.

func rowString(row query.Row, key string) string {
	if v, ok := row[key]; ok && v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func rowStringPtr(row query.Row, key string) *string {
	if v, ok := row[key]; ok && v != nil {
		if s, ok := v.(string); ok {
			return &s
		}
	}
	return nil
}

func rowNumeric(row query.Row, key string) (float64, bool) {
	return utils.ToFloat64(row[key])
}

func rowInt(row query.Row, key string) int {
	f, ok := utils.ToFloat64(row[key])
	if !ok {
		return 0
	}
	return int(f)
}

func rowTime(row query.Row, key string) time.Time {
	switch v := row[key].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse("2006-01-02 15:04:05", v); err == nil {
			return t
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func rowTimePtr(row query.Row, key string) *time.Time {
	if v, ok := row[key]; !ok || v == nil {
		return nil
	}
	t := rowTime(row, key)
	if t.IsZero() {
		return nil
	}
	return &t
}

func rowJSONMap(row query.Row, key string) map[string]interface{} {
	s := rowString(row, key)
	if s == "" {
		return nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

func rowToModule(row query.Row) *models.Module {
	return &models.Module{
		ID:           rowString(row, constants.FieldID),
		Name:         rowString(row, "name"),
		SingularName: rowString(row, "singular_name"),
		APIName:      rowString(row, constants.FieldAPIName),
		Icon:         rowString(row, "icon"),
		Description:  rowStringPtr(row, "description"),
		IsActive:     utils.ToBool(row["is_active"]),
		IsSystem:     utils.ToBool(row["is_system"]),
		Settings:     rowJSONMap(row, "settings"),
		DisplayOrder: rowInt(row, constants.FieldOrder),
		CreatedAt:    rowTime(row, constants.FieldCreatedAt),
		UpdatedAt:    rowTime(row, constants.FieldUpdatedAt),
		DeletedAt:    rowTimePtr(row, constants.FieldDeletedAt),
	}
}

func rowToBlock(row query.Row) *models.Block {
	return &models.Block{
		ID:            rowString(row, constants.FieldID),
		ModuleID:      rowString(row, constants.FieldModuleID),
		Name:          rowString(row, "name"),
		Type:          models.BlockType(rowString(row, "type")),
		DisplayOrder:  rowInt(row, constants.FieldOrder),
		Columns:       rowInt(row, "column_count"),
		IsCollapsible: utils.ToBool(row["is_collapsible"]),
		IsCollapsed:   utils.ToBool(row["is_collapsed"]),
		CreatedAt:     rowTime(row, constants.FieldCreatedAt),
		UpdatedAt:     rowTime(row, constants.FieldUpdatedAt),
	}
}

func rowToField(row query.Row) *models.Field {
	field := &models.Field{
		ID:              rowString(row, constants.FieldID),
		BlockID:         rowString(row, constants.FieldBlockID),
		RelationshipID:  rowStringPtr(row, "relationship_id"),
		Type:            models.FieldType(rowString(row, "type")),
		APIName:         rowString(row, constants.FieldAPIName),
		Label:           rowString(row, "label"),
		Description:     rowStringPtr(row, "description"),
		HelpText:        rowStringPtr(row, "help_text"),
		IsRequired:      utils.ToBool(row["is_required"]),
		IsUnique:        utils.ToBool(row["is_unique"]),
		IsSearchable:    utils.ToBool(row["is_searchable"]),
		IsVisibleList:   utils.ToBool(row["is_visible_list"]),
		IsVisibleDetail: utils.ToBool(row["is_visible_detail"]),
		Settings:        rowJSONMap(row, "settings"),
		DisplayOrder:    rowInt(row, constants.FieldOrder),
		Width:           constants.FieldWidth(rowString(row, "width")),
		CreatedAt:       rowTime(row, constants.FieldCreatedAt),
		UpdatedAt:       rowTime(row, constants.FieldUpdatedAt),
	}

	if s := rowString(row, "validation_rules"); s != "" {
		var rules models.ValidationRules
		if err := json.Unmarshal([]byte(s), &rules); err == nil {
			field.ValidationRules = &rules
		}
	}

	if s := rowString(row, "default_value"); s != "" {
		var def interface{}
		if err := json.Unmarshal([]byte(s), &def); err == nil {
			field.DefaultValue = def
		}
	}

	return field
}

func rowToOption(row query.Row) *models.FieldOption {
	return &models.FieldOption{
		ID:           rowString(row, constants.FieldID),
		FieldID:      rowString(row, constants.FieldFieldID),
		Label:        rowString(row, "label"),
		Value:        rowString(row, "value"),
		Color:        rowStringPtr(row, "color"),
		IsDefault:    utils.ToBool(row["is_default"]),
		IsActive:     utils.ToBool(row["is_active"]),
		DisplayOrder: rowInt(row, constants.FieldOrder),
		CreatedAt:    rowTime(row, constants.FieldCreatedAt),
		UpdatedAt:    rowTime(row, constants.FieldUpdatedAt),
	}
}

func rowToRelationship(row query.Row) *models.Relationship {
	rel := &models.Relationship{
		ID:           rowString(row, constants.FieldID),
		FromModuleID: rowString(row, "from_module_id"),
		ToModuleID:   rowString(row, "to_module_id"),
		Name:         rowString(row, "name"),
		APIName:      rowString(row, constants.FieldAPIName),
		Type:         models.RelationshipType(rowString(row, "type")),
		CreatedAt:    rowTime(row, constants.FieldCreatedAt),
		UpdatedAt:    rowTime(row, constants.FieldUpdatedAt),
	}

	if s := rowString(row, "settings"); s != "" {
		_ = json.Unmarshal([]byte(s), &rel.Settings)
	}

	return rel
}

func rowToRecord(row query.Row) *models.ModuleRecord {
	record := &models.ModuleRecord{
		ID:        rowString(row, constants.FieldID),
		ModuleID:  rowString(row, constants.FieldModuleID),
		Data:      models.Document{},
		CreatedBy: rowString(row, constants.FieldCreatedBy),
		UpdatedBy: rowString(row, constants.FieldUpdatedBy),
		CreatedAt: rowTime(row, constants.FieldCreatedAt),
		UpdatedAt: rowTime(row, constants.FieldUpdatedAt),
		DeletedAt: rowTimePtr(row, constants.FieldDeletedAt),
	}

	if s := rowString(row, constants.FieldData); s != "" {
		var doc models.Document
		if err := json.Unmarshal([]byte(s), &doc); err == nil {
			record.Data = doc
		}
	}

	return record
}

// marshalJSON serializes a value for a JSON column, returning nil for nil input
func marshalJSON(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return string(b)
}

// jsonColumns are the columns stored as serialized JSON across the schema
// tables. Update maps coming from the service layer carry live Go values for
// them; they are marshaled here so the driver sees strings.
var jsonColumns = map[string]bool{
	"settings":         true,
	"validation_rules": true,
	"default_value":    true,
}

func marshalUpdates(updates map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(updates))
	for k, v := range updates {
		if jsonColumns[k] && v != nil {
			out[k] = marshalJSON(v)
			continue
		}
		out[k] = v
	}
	return out
}
