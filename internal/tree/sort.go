package tree

import (
	"sort"

	"github.com/Rana718/Portal/internal/types"
)

type SortMode int

const (
	SortNone SortMode = iota
	SortAsc
	SortDesc
)

func (m SortMode) String() string {
	switch m {
	case SortAsc:
		return "asc"
	case SortDesc:
		return "desc"
	default:
		return "none"
	}
}

// Entry is one raw value of a level paired with its display text.
type Entry struct {
	Value   string
	Display string
}

// CycleSort advances the sort mode of a column: none, asc, desc, then none again.
func (c *Cache) CycleSort(tableColumnID int) SortMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := (c.sorts[tableColumnID] + 1) % 3
	if next == SortNone {
		delete(c.sorts, tableColumnID)
	} else {
		c.sorts[tableColumnID] = next
	}
	return next
}

func (c *Cache) SortMode(tableColumnID int) SortMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sorts[tableColumnID]
}

// Sorted returns the level's entries in the column's current display order.
func (c *Cache) Sorted(level types.TreeLevel) []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sorted(level)
}

func (c *Cache) sorted(level types.TreeLevel) []Entry {
	entries := make([]Entry, len(level.Values))
	for i, v := range level.Values {
		raw := types.FormatScalar(v)
		display := raw
		if i < len(level.DisplayValues) && level.DisplayValues[i] != nil {
			display = types.FormatScalar(level.DisplayValues[i])
		}
		entries[i] = Entry{Value: raw, Display: display}
	}

	mode := c.sorts[level.TableColumnID]
	if mode == SortNone {
		return entries
	}
	sort.SliceStable(entries, func(i, j int) bool {
		cmp := c.collator.CompareString(entries[i].Display, entries[j].Display)
		if mode == SortDesc {
			return cmp > 0
		}
		return cmp < 0
	})
	return entries
}
