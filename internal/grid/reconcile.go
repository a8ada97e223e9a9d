package grid

import (
	"context"

	"github.com/Rana718/Portal/internal/types"
)

// reconcileAfterInsert decides which filters survive a successful insert so the new
// row stays visible whenever possible.
func (c *Controller) reconcileAfterInsert(ctx context.Context, draft Draft) error {
	if !c.state.Filtered || len(c.state.Filters) == 0 {
		return c.ClearFilters(ctx)
	}

	if draftMatchesFilters(draft, c.state.Filters) {
		c.log.Debug().Msg("insert matches active filters, retaining")
		return c.Reload(ctx)
	}

	if adopted, ok := adoptDraftFilters(draft, c.state.Filters); ok {
		c.log.Debug().Int("filters", len(adopted)).Msg("adopting filters from inserted row")
		return c.ApplyFilters(ctx, adopted)
	}

	c.log.Debug().Msg("inserted row falls outside filters, clearing")
	if c.tree != nil {
		c.tree.ResetUI()
	}
	return c.ClearFilters(ctx)
}

// draftMatchesFilters holds when every filtered column either has no draft value or
// carries exactly the filter value.
func draftMatchesFilters(draft Draft, filters []types.Filter) bool {
	for _, f := range filters {
		v, ok := draft[f.TableColumnID]
		if !ok || IsEmpty(v) {
			continue
		}
		if v != f.Value {
			return false
		}
	}
	return true
}

// adoptDraftFilters rebuilds the filters from the draft's own values. It fails when
// any filtered column has no draft value.
func adoptDraftFilters(draft Draft, filters []types.Filter) ([]types.Filter, bool) {
	out := make([]types.Filter, 0, len(filters))
	for _, f := range filters {
		v, ok := draft[f.TableColumnID]
		if !ok || IsEmpty(v) {
			return nil, false
		}
		out = append(out, types.Filter{TableColumnID: f.TableColumnID, Value: v})
	}
	return out, true
}
