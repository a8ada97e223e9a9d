package grid

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Style properties accepted in a per-cell override.
const (
	StyleColor      = "color"
	StyleBackground = "background"
	StyleFontSize   = "font-size"
)

// StyleDraft holds per-cell style overrides keyed by column name, then property.
// A nil value removes the property from the stored blob.
type StyleDraft map[string]map[string]*string

// Set records an override; a nil value marks the property for removal.
func (s StyleDraft) Set(column, property string, value *string) error {
	switch property {
	case StyleColor, StyleBackground, StyleFontSize:
	default:
		return fmt.Errorf("unknown style property %q", property)
	}
	if s[column] == nil {
		s[column] = make(map[string]*string)
	}
	s[column][property] = value
	return nil
}

// MergeStyles applies the overrides to the existing JSON blob and returns the new blob.
func MergeStyles(existing any, overrides StyleDraft) (string, error) {
	blob := map[string]map[string]any{}

	switch v := existing.(type) {
	case nil:
	case string:
		if v != "" {
			if err := json.Unmarshal([]byte(v), &blob); err != nil {
				return "", fmt.Errorf("failed to parse styles blob: %w", err)
			}
		}
	case map[string]any:
		for col, props := range v {
			if m, ok := props.(map[string]any); ok {
				blob[col] = m
			}
		}
	default:
		return "", fmt.Errorf("unexpected styles value of type %T", existing)
	}

	cols := make([]string, 0, len(overrides))
	for col := range overrides {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	for _, col := range cols {
		for prop, val := range overrides[col] {
			if val == nil {
				if blob[col] != nil {
					delete(blob[col], prop)
				}
				continue
			}
			if blob[col] == nil {
				blob[col] = map[string]any{}
			}
			blob[col][prop] = *val
		}
		if len(blob[col]) == 0 {
			delete(blob, col)
		}
	}

	data, err := json.Marshal(blob)
	if err != nil {
		return "", fmt.Errorf("failed to encode styles blob: %w", err)
	}
	return string(data), nil
}
