package types

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Filter is one conjunctive narrowing of a row-set, also used as one segment of a tree path.
type Filter struct {
	TableColumnID int    `json:"table_column_id"`
	Value         string `json:"value"`
}

type PrimaryKeys map[string]any

// Stringified returns a copy of the keys with every non-nil value rendered as a string.
func (pk PrimaryKeys) Stringified() PrimaryKeys {
	out := make(PrimaryKeys, len(pk))
	for k, v := range pk {
		if v == nil {
			out[k] = nil
			continue
		}
		out[k] = FormatScalar(v)
	}
	return out
}

type ColumnDescriptor struct {
	WidgetColumnID     int     `json:"widget_column_id" yaml:"widget_column_id"`
	TableColumnID      *int    `json:"table_column_id" yaml:"table_column_id"`
	WriteTableColumnID *int    `json:"write_table_column_id" yaml:"write_table_column_id"`
	ColumnName         string  `json:"column_name" yaml:"column_name"`
	Alias              string  `json:"alias,omitempty" yaml:"alias,omitempty"`
	Datatype           string  `json:"datatype,omitempty" yaml:"datatype,omitempty"`
	Type               string  `json:"type,omitempty" yaml:"type,omitempty"`
	ReadOnly           bool    `json:"readonly" yaml:"readonly"`
	Required           bool    `json:"required" yaml:"required"`
	Default            *string `json:"default,omitempty" yaml:"default,omitempty"`
	FormID             *int    `json:"form_id,omitempty" yaml:"form_id,omitempty"`
	Primary            bool    `json:"primary,omitempty" yaml:"primary,omitempty"`
	Visible            *bool   `json:"visible,omitempty" yaml:"visible,omitempty"`
	Width              int     `json:"width,omitempty" yaml:"width,omitempty"`
}

type DataRow struct {
	PrimaryKeys PrimaryKeys `json:"primary_keys" yaml:"primary_keys"`
	Values      []any       `json:"values" yaml:"values"`
}

type DisplayedWidget struct {
	Page int `json:"page"`
	// Total is a page count, not a row count.
	Total int `json:"total"`
}

type DisplayResponse struct {
	DisplayedWidget DisplayedWidget    `json:"displayed_widget"`
	Columns         []ColumnDescriptor `json:"columns"`
	Data            []DataRow          `json:"data"`
}

type ValueEntry struct {
	TableColumnID int     `json:"table_column_id"`
	Value         *string `json:"value"`
}

type PK struct {
	PrimaryKeys PrimaryKeys `json:"primary_keys"`
}

type MutationRequest struct {
	PK     PK           `json:"pk"`
	Values []ValueEntry `json:"values"`
}

type TreeLevel struct {
	TableColumnID int    `json:"table_column_id"`
	Name          string `json:"name"`
	Values        []any  `json:"values"`
	DisplayValues []any  `json:"display_values"`
}

// TreeLevels accepts either a single level object or an array of them.
type TreeLevels []TreeLevel

func (t *TreeLevels) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		var levels []TreeLevel
		if err := json.Unmarshal(data, &levels); err != nil {
			return err
		}
		*t = levels
		return nil
	}
	if string(data) == "null" {
		*t = nil
		return nil
	}
	var level TreeLevel
	if err := json.Unmarshal(data, &level); err != nil {
		return err
	}
	*t = TreeLevels{level}
	return nil
}

type ComboboxOption struct {
	ID     string   `json:"id"`
	Show   []string `json:"show"`
	Hidden []string `json:"hidden"`
}

type SubWidget struct {
	WidgetID      int    `json:"widget_id" yaml:"widget_id"`
	Name          string `json:"name" yaml:"name"`
	LinkColumn    string `json:"link_column" yaml:"link_column"`
	ParentKeyName string `json:"parent_key" yaml:"parent_key"`
}

type FormInfo struct {
	FormID       int         `json:"form_id"`
	Name         string      `json:"name"`
	MainWidgetID int         `json:"main_widget_id"`
	SubWidgets   []SubWidget `json:"sub_widgets"`
	TreeFields   []int       `json:"tree_fields"`
}

type WidgetInfo struct {
	WidgetID int    `json:"widget_id"`
	Name     string `json:"name"`
	TableID  int    `json:"table_id"`
}

type TableQueries struct {
	TableID     int    `json:"table_id"`
	InsertQuery string `json:"insert_query"`
	UpdateQuery string `json:"update_query"`
	DeleteQuery string `json:"delete_query"`
}

type ComboboxItem struct {
	TableColumnID int    `json:"table_column_id" yaml:"table_column_id"`
	Alias         string `json:"alias,omitempty" yaml:"alias,omitempty"`
	Shown         bool   `json:"shown" yaml:"shown"`
	Order         int    `json:"combobox_column_order" yaml:"order"`
	Primary       bool   `json:"is_primary,omitempty" yaml:"primary,omitempty"`
}

// Reference binds a widget column slot to a table column.
type Reference struct {
	TableColumnID  int            `json:"table_column_id"`
	WidgetColumnID int            `json:"widget_column_id"`
	Alias          string         `json:"ref_alias,omitempty"`
	Type           string         `json:"type,omitempty"`
	Width          int            `json:"width"`
	Visible        bool           `json:"visible"`
	ReadOnly       bool           `json:"readonly"`
	RefColumnOrder int            `json:"ref_column_order"`
	FormID         *int           `json:"form_id"`
	Combobox       []ComboboxItem `json:"combobox,omitempty"`
}

// ReferencePatch is the full-state update body for a reference.
type ReferencePatch struct {
	Alias          string `json:"ref_alias"`
	Type           string `json:"type"`
	Width          int    `json:"width"`
	Visible        bool   `json:"visible"`
	ReadOnly       bool   `json:"readonly"`
	RefColumnOrder int    `json:"ref_column_order"`
	FormID         *int   `json:"form_id"`
}

func (r Reference) Patch() ReferencePatch {
	return ReferencePatch{
		Alias:          r.Alias,
		Type:           r.Type,
		Width:          r.Width,
		Visible:        r.Visible,
		ReadOnly:       r.ReadOnly,
		RefColumnOrder: r.RefColumnOrder,
		FormID:         r.FormID,
	}
}

type ReferenceGroup struct {
	WidgetColumnID int         `json:"widget_column_id"`
	Alias          string      `json:"alias"`
	References     []Reference `json:"references"`
}

// ErrorBody is the backend's error envelope.
type ErrorBody struct {
	Detail any `json:"detail"`
}

// FormatScalar renders a server-typed scalar the way it is shown and submitted.
func FormatScalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func IntPtr(v int) *int { return &v }

func StrPtr(v string) *string { return &v }
