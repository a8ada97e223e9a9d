package tree

import (
	"strconv"
	"strings"

	"github.com/Rana718/Portal/internal/types"
)

// Path is an ordered filter chain from the root to a node.
type Path []types.Filter

// Child returns a new path extended by one segment.
func (p Path) Child(tableColumnID int, value string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, types.Filter{TableColumnID: tableColumnID, Value: value})
}

// Parent returns the path without its last segment; the parent of a root path is empty.
func (p Path) Parent() Path {
	if len(p) <= 1 {
		return nil
	}
	out := make(Path, len(p)-1)
	copy(out, p)
	return out
}

func (p Path) Filters() []types.Filter {
	return append([]types.Filter(nil), p...)
}

// HasPrefix reports whether q is an ancestor of p or p itself.
func (p Path) HasPrefix(q Path) bool {
	if len(q) > len(p) {
		return false
	}
	for i := range q {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, f := range p {
		parts[i] = strconv.Itoa(f.TableColumnID) + "=" + f.Value
	}
	return strings.Join(parts, " / ")
}

// ParseSegment parses a "tc=value" pair.
func ParseSegment(s string) (types.Filter, bool) {
	tc, value, ok := strings.Cut(s, "=")
	if !ok {
		return types.Filter{}, false
	}
	id, err := strconv.Atoi(strings.TrimSpace(tc))
	if err != nil {
		return types.Filter{}, false
	}
	return types.Filter{TableColumnID: id, Value: value}, true
}

func less(a, b Path) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i].TableColumnID != b[i].TableColumnID {
			return a[i].TableColumnID < b[i].TableColumnID
		}
		if a[i].Value != b[i].Value {
			return a[i].Value < b[i].Value
		}
	}
	return len(a) < len(b)
}
