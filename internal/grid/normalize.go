package grid

import (
	"strings"

	"github.com/Rana718/Portal/internal/types"
)

// NullSentinel is the draft value of an unset tri-state checkbox.
const NullSentinel = "null"

var truthy = map[string]bool{
	"true": true,
	"1":    true,
	"t":    true,
	"yes":  true,
	"да":   true,
}

// IsTruthy reports whether s is one of the accepted "checked" spellings, in any case.
func IsTruthy(s string) bool {
	return truthy[strings.ToLower(strings.TrimSpace(s))]
}

// IsEmpty is the shared emptiness predicate: nil and "" are empty; whitespace,
// "false" and 0 are not. It agrees with NormalizeValue on what gets sent as null.
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case *string:
		return t == nil || *t == ""
	default:
		return false
	}
}

// NormalizeCheckbox maps a regular checkbox draft to "true" or "false"; never nil.
func NormalizeCheckbox(v string) *string {
	if IsTruthy(v) {
		return types.StrPtr("true")
	}
	return types.StrPtr("false")
}

// NormalizeTriState maps a tri-state draft to "true", "false" or nil.
func NormalizeTriState(v string) *string {
	s := strings.TrimSpace(v)
	if s == "" || strings.EqualFold(s, NullSentinel) {
		return nil
	}
	return NormalizeCheckbox(s)
}

// NormalizeValue is the generic normalizer: an empty string becomes nil.
func NormalizeValue(v string) *string {
	if v == "" {
		return nil
	}
	return types.StrPtr(v)
}

// Normalize applies the kind-specific normalization used when building a submission.
func Normalize(kind Kind, v string) *string {
	switch kind {
	case KindCheckboxNull:
		return NormalizeTriState(v)
	case KindCheckbox:
		return NormalizeCheckbox(v)
	default:
		return NormalizeValue(v)
	}
}

// DecodeCell turns a displayed cell into a draft string.
func DecodeCell(kind Kind, v any) string {
	switch kind {
	case KindCheckboxNull:
		if v == nil {
			return NullSentinel
		}
		if s, ok := v.(string); ok && (strings.TrimSpace(s) == "" || strings.EqualFold(s, NullSentinel)) {
			return NullSentinel
		}
		return boolString(v)
	case KindCheckbox:
		if v == nil {
			return "false"
		}
		return boolString(v)
	default:
		if v == nil {
			return ""
		}
		return types.FormatScalar(v)
	}
}

func boolString(v any) string {
	switch t := v.(type) {
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		if t != 0 {
			return "true"
		}
		return "false"
	default:
		if IsTruthy(types.FormatScalar(v)) {
			return "true"
		}
		return "false"
	}
}

// DefaultDraftValue is the value a new row starts with for a column.
func DefaultDraftValue(c Column) string {
	switch c.Kind {
	case KindCheckboxNull:
		return NullSentinel
	case KindCheckbox:
		return "false"
	default:
		if c.Default != nil {
			return *c.Default
		}
		return ""
	}
}
