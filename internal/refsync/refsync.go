// Package refsync keeps the drag-ordered reference lists of a widget in sync with the
// backend. Moves are applied locally at once; network writes are batched into a single
// pass after a quiet period.
package refsync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Rana718/Portal/internal/logger"
	"github.com/Rana718/Portal/internal/optimistic"
	"github.com/Rana718/Portal/internal/types"
	"github.com/rs/zerolog"
)

const DefaultDebounce = 250 * time.Millisecond

type Store interface {
	References(ctx context.Context, widgetID int) ([]types.ReferenceGroup, error)
	CreateReference(ctx context.Context, widgetColumnID, tableColumnID, order int) error
	UpdateReference(ctx context.Context, ref types.Reference) error
}

// Synchronizer owns the live ordering of every reference group of one widget and the
// last-synced ordering used as the diff baseline.
type Synchronizer struct {
	store    Store
	debounce time.Duration
	log      zerolog.Logger

	mu       sync.Mutex
	groups   map[int][]types.Reference
	aliases  map[int]string
	snapshot map[int][]int

	kick   chan struct{}
	passMu sync.Mutex
}

type Option func(*Synchronizer)

func WithDebounce(d time.Duration) Option {
	return func(s *Synchronizer) {
		if d > 0 {
			s.debounce = d
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Synchronizer) { s.log = l }
}

func New(store Store, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		store:    store,
		debounce: DefaultDebounce,
		log:      logger.Component("refsync"),
		groups:   make(map[int][]types.Reference),
		aliases:  make(map[int]string),
		snapshot: make(map[int][]int),
		kick:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces local state and the baseline with the widget's current references.
func (s *Synchronizer) Load(ctx context.Context, widgetID int) error {
	groups, err := s.store.References(ctx, widgetID)
	if err != nil {
		return fmt.Errorf("failed to load references of widget %d: %w", widgetID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups = make(map[int][]types.Reference, len(groups))
	s.aliases = make(map[int]string, len(groups))
	s.snapshot = make(map[int][]int, len(groups))
	for _, g := range groups {
		refs := append([]types.Reference(nil), g.References...)
		sort.SliceStable(refs, func(i, j int) bool { return refs[i].RefColumnOrder < refs[j].RefColumnOrder })
		for i := range refs {
			refs[i].WidgetColumnID = g.WidgetColumnID
		}
		s.groups[g.WidgetColumnID] = refs
		s.aliases[g.WidgetColumnID] = g.Alias
		s.snapshot[g.WidgetColumnID] = ids(refs)
	}
	return nil
}

func ids(refs []types.Reference) []int {
	out := make([]int, len(refs))
	for i, r := range refs {
		out[i] = r.TableColumnID
	}
	return out
}

func indexOf(refs []types.Reference, tableColumnID int) int {
	for i, r := range refs {
		if r.TableColumnID == tableColumnID {
			return i
		}
	}
	return -1
}

// Move relocates the item at srcIdx of group src to position dstIdx of group dst.
// A move into a group that already holds the same table column is rejected and
// reported as false.
func (s *Synchronizer) Move(src, srcIdx, dst, dstIdx int) bool {
	s.mu.Lock()
	from, ok := s.groups[src]
	if !ok || srcIdx < 0 || srcIdx >= len(from) {
		s.mu.Unlock()
		return false
	}
	if _, ok := s.groups[dst]; !ok {
		s.mu.Unlock()
		return false
	}

	item := from[srcIdx]
	if src != dst && indexOf(s.groups[dst], item.TableColumnID) >= 0 {
		s.mu.Unlock()
		s.log.Debug().Int("table_column_id", item.TableColumnID).Int("group", dst).Msg("duplicate move rejected")
		return false
	}

	from = append(append([]types.Reference(nil), from[:srcIdx]...), from[srcIdx+1:]...)
	s.groups[src] = from

	to := s.groups[dst]
	if dstIdx < 0 {
		dstIdx = 0
	}
	if dstIdx > len(to) {
		dstIdx = len(to)
	}
	item.WidgetColumnID = dst
	to = append(to[:dstIdx:dstIdx], append([]types.Reference{item}, to[dstIdx:]...)...)
	s.groups[dst] = to

	reindex(s.groups[src])
	reindex(s.groups[dst])
	s.mu.Unlock()

	s.schedule()
	return true
}

func reindex(refs []types.Reference) {
	for i := range refs {
		refs[i].RefColumnOrder = i
	}
}

func (s *Synchronizer) schedule() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Run is the single consumer of scheduled syncs. Kicks arriving within the debounce
// window restart it, so a burst of moves produces one pass.
func (s *Synchronizer) Run(ctx context.Context) error {
	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()
		case <-s.kick:
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(s.debounce)
			fire = timer.C
		case <-fire:
			fire = nil
			if err := s.Flush(ctx); err != nil {
				s.log.Error().Err(err).Msg("reference sync failed")
			}
		}
	}
}

type creation struct {
	group, tableColumnID, order int
}

// Flush runs one sync pass now: additions first, then reorders. Nothing is deleted.
// A group's baseline advances only when every call for it succeeded.
func (s *Synchronizer) Flush(ctx context.Context) error {
	s.passMu.Lock()
	defer s.passMu.Unlock()

	s.mu.Lock()
	current := make(map[int][]types.Reference, len(s.groups))
	for g, refs := range s.groups {
		current[g] = append([]types.Reference(nil), refs...)
	}
	baseline := make(map[int][]int, len(s.snapshot))
	for g, idList := range s.snapshot {
		baseline[g] = idList
	}
	s.mu.Unlock()

	groupIDs := make([]int, 0, len(current))
	for g := range current {
		groupIDs = append(groupIDs, g)
	}
	sort.Ints(groupIDs)

	var creates []creation
	var updates []types.Reference
	for _, g := range groupIDs {
		before := map[int]int{}
		for i, id := range baseline[g] {
			before[id] = i
		}
		for i, ref := range current[g] {
			old, existed := before[ref.TableColumnID]
			switch {
			case !existed:
				creates = append(creates, creation{group: g, tableColumnID: ref.TableColumnID, order: i})
			case old != i:
				updates = append(updates, ref)
			}
		}
	}

	failed := map[int]bool{}
	var errs []error
	for _, c := range creates {
		if err := s.store.CreateReference(ctx, c.group, c.tableColumnID, c.order); err != nil {
			failed[c.group] = true
			errs = append(errs, fmt.Errorf("create reference %d in %d: %w", c.tableColumnID, c.group, err))
		}
	}
	for _, ref := range updates {
		if err := s.store.UpdateReference(ctx, ref); err != nil {
			failed[ref.WidgetColumnID] = true
			errs = append(errs, fmt.Errorf("reorder reference %d in %d: %w", ref.TableColumnID, ref.WidgetColumnID, err))
		}
	}

	s.mu.Lock()
	for _, g := range groupIDs {
		if !failed[g] {
			s.snapshot[g] = ids(current[g])
		}
	}
	s.mu.Unlock()

	s.log.Debug().
		Int("created", len(creates)).
		Int("reordered", len(updates)).
		Int("failed", len(errs)).
		Msg("reference sync pass")

	for _, err := range errs {
		s.log.Warn().Err(err).Msg("reference write failed")
	}
	return errors.Join(errs...)
}

// Update edits a single reference in place and persists its full state. The local
// change is reverted when the write fails.
func (s *Synchronizer) Update(ctx context.Context, group, tableColumnID int, mutate func(*types.Reference)) error {
	locate := func() *types.Reference {
		if j := indexOf(s.groups[group], tableColumnID); j >= 0 {
			return &s.groups[group][j]
		}
		return nil
	}

	var updated *types.Reference
	change := optimistic.Snapshot(&s.mu, locate, func(r *types.Reference) {
		mutate(r)
		cp := *r
		updated = &cp
	})
	return optimistic.Do(ctx, change, func(ctx context.Context) error {
		if updated == nil {
			return fmt.Errorf("reference %d not found in group %d", tableColumnID, group)
		}
		return s.store.UpdateReference(ctx, *updated)
	})
}

// Items returns a copy of a group's live ordering.
func (s *Synchronizer) Items(group int) []types.Reference {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Reference(nil), s.groups[group]...)
}

// Groups returns every group with its live ordering, by widget column id.
func (s *Synchronizer) Groups() []types.ReferenceGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.ReferenceGroup, 0, len(s.groups))
	for g, refs := range s.groups {
		out = append(out, types.ReferenceGroup{
			WidgetColumnID: g,
			Alias:          s.aliases[g],
			References:     append([]types.Reference(nil), refs...),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WidgetColumnID < out[j].WidgetColumnID })
	return out
}

// Pending reports whether the live ordering differs from the last-synced baseline.
func (s *Synchronizer) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for g, refs := range s.groups {
		base := s.snapshot[g]
		if len(base) != len(refs) {
			return true
		}
		for i, r := range refs {
			if base[i] != r.TableColumnID {
				return true
			}
		}
	}
	return false
}
