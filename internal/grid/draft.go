package grid

import (
	"sort"

	"github.com/Rana718/Portal/internal/types"
)

// Draft maps a write-target table column id to its pending value.
type Draft map[int]string

func (d Draft) Clone() Draft {
	if d == nil {
		return nil
	}
	out := make(Draft, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Keys returns the draft's column ids in ascending order.
func (d Draft) Keys() []int {
	keys := make([]int, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// MissingRequired lists the labels of required writable columns that are empty in the
// draft. When original is non-nil, a field absent from the draft counts as filled if the
// unedited row already had a value.
func MissingRequired(p *Projection, draft Draft, original *types.DataRow) []string {
	var missing []string
	for _, c := range p.Columns {
		if !c.Required || c.ReadOnly || c.WriteID == nil {
			continue
		}
		v, ok := draft[*c.WriteID]
		if ok {
			if c.Kind == KindCheckboxNull && v == NullSentinel {
				missing = append(missing, c.Label)
				continue
			}
			if !IsEmpty(v) {
				continue
			}
			missing = append(missing, c.Label)
			continue
		}
		if original != nil && !cellEmpty(c, *original) {
			continue
		}
		missing = append(missing, c.Label)
	}
	return missing
}

func cellEmpty(c Column, row types.DataRow) bool {
	if c.Combo != nil {
		return len(c.Tokens(row)) == 0
	}
	return IsEmpty(c.Cell(row))
}

// BuildValues turns a draft into the submission value list, in ascending column id order.
// Only columns known to the projection by write target are normalized by kind; unknown
// ids use the generic normalizer.
func BuildValues(p *Projection, draft Draft) []types.ValueEntry {
	values := make([]types.ValueEntry, 0, len(draft))
	for _, id := range draft.Keys() {
		kind := KindText
		if c, ok := p.ByWriteID(id); ok {
			kind = c.Kind
		}
		values = append(values, types.ValueEntry{TableColumnID: id, Value: Normalize(kind, draft[id])})
	}
	return values
}
