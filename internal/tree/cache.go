// Package tree lazily expands the hierarchical value tree that narrows a form's main grid.
package tree

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Rana718/Portal/internal/logger"
	"github.com/Rana718/Portal/internal/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ErrBusy is returned when a path is toggled while its children are still loading.
var ErrBusy = errors.New("tree path is loading")

// maxPassThrough bounds the auto-expansion chain of a single toggle.
const maxPassThrough = 32

type Fetcher interface {
	FetchTree(ctx context.Context, formID int, filters []types.Filter) ([]types.TreeLevel, error)
}

// FilterSink receives the filter chain a toggle resolves to.
type FilterSink interface {
	ApplyFilters(ctx context.Context, filters []types.Filter) error
	ClearFilters(ctx context.Context) error
}

type segment struct {
	tableColumnID int
	value         string
}

type node struct {
	children map[segment]*node
	levels   []types.TreeLevel
	loaded   bool
	expanded bool
	loading  bool
	err      error
}

func newNode() *node {
	return &node{children: make(map[segment]*node)}
}

// Node is one user-visible tree row.
type Node struct {
	Path          Path
	TableColumnID int
	Level         string
	Value         string
	Display       string
	Expanded      bool
	Loading       bool
	Err           error
}

// Cache is a trie of fetched tree levels keyed by filter segments.
type Cache struct {
	fetcher Fetcher
	sink    FilterSink
	formID  int
	log     zerolog.Logger

	mu       sync.Mutex
	root     *node
	sorts    map[int]SortMode
	collator *collate.Collator
}

type Option func(*Cache)

// WithLocale sets the language used to order sorted levels.
func WithLocale(locale string) Option {
	return func(c *Cache) {
		tag, err := language.Parse(locale)
		if err != nil {
			tag = language.English
		}
		c.collator = collate.New(tag, collate.Numeric, collate.IgnoreCase)
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Cache) { c.log = l }
}

func New(fetcher Fetcher, formID int, sink FilterSink, opts ...Option) *Cache {
	c := &Cache{
		fetcher:  fetcher,
		sink:     sink,
		formID:   formID,
		log:      logger.Component("tree"),
		root:     newNode(),
		sorts:    make(map[int]SortMode),
		collator: collate.New(language.English, collate.Numeric, collate.IgnoreCase),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) lookup(p Path, create bool) *node {
	n := c.root
	for _, f := range p {
		key := segment{f.TableColumnID, f.Value}
		child, ok := n.children[key]
		if !ok {
			if !create {
				return nil
			}
			child = newNode()
			n.children[key] = child
		}
		n = child
	}
	return n
}

// fetch returns the levels below p, hitting the network only on a cache miss.
func (c *Cache) fetch(ctx context.Context, p Path) ([]types.TreeLevel, error) {
	c.mu.Lock()
	n := c.lookup(p, true)
	if n.loaded {
		levels := n.levels
		c.mu.Unlock()
		return levels, nil
	}
	c.mu.Unlock()

	levels, err := c.fetcher.FetchTree(ctx, c.formID, p.Filters())

	c.mu.Lock()
	defer c.mu.Unlock()
	n = c.lookup(p, true)
	if err != nil {
		n.err = err
		return nil, err
	}
	n.levels = levels
	n.loaded = true
	n.err = nil
	return levels, nil
}

// Roots loads the root levels once and returns the visible root rows.
func (c *Cache) Roots(ctx context.Context) ([]Node, error) {
	levels, err := c.fetch(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load tree roots: %w", err)
	}
	if _, err := c.descend(ctx, nil, levels); err != nil {
		return nil, err
	}
	return c.Children(nil), nil
}

// RefreshRoot re-fetches the root levels. Deeper cached levels are kept until Reset.
func (c *Cache) RefreshRoot(ctx context.Context) error {
	levels, err := c.fetcher.FetchTree(ctx, c.formID, []types.Filter{})
	if err != nil {
		return fmt.Errorf("failed to refresh tree roots: %w", err)
	}
	c.mu.Lock()
	c.root.levels = levels
	c.root.loaded = true
	c.root.err = nil
	c.mu.Unlock()
	return nil
}

// Reset drops the whole cache, as when a different form is selected.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.root = newNode()
	c.sorts = make(map[int]SortMode)
}

// ResetUI collapses every path without dropping cached levels.
func (c *Cache) ResetUI() {
	c.mu.Lock()
	defer c.mu.Unlock()
	collapseAll(c.root)
}

func collapseAll(n *node) {
	for _, child := range n.children {
		child.expanded = false
		collapseAll(child)
	}
}

// Toggle collapses an expanded path or expands a collapsed one, then applies the
// resulting filter chain to the grid. It returns the applied chain.
func (c *Cache) Toggle(ctx context.Context, p Path) (Path, error) {
	if len(p) == 0 {
		return nil, fmt.Errorf("cannot toggle the tree root")
	}

	c.mu.Lock()
	n := c.lookup(p, true)
	if n.loading {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	if n.expanded {
		n.expanded = false
		collapseAll(n)
		c.mu.Unlock()

		parent := p.Parent()
		c.log.Debug().Str("path", p.String()).Msg("collapsed")
		return parent, c.apply(ctx, parent)
	}
	n.loading = true
	c.mu.Unlock()

	chain, err := c.expand(ctx, p)

	c.mu.Lock()
	n.loading = false
	if err != nil {
		n.expanded = false
		c.mu.Unlock()
		return nil, fmt.Errorf("failed to expand %s: %w", p, err)
	}
	c.retain(p)
	c.mu.Unlock()

	c.log.Debug().Str("path", p.String()).Int("depth", len(chain)).Msg("expanded")
	return chain, c.apply(ctx, chain)
}

// Open expands each prefix of p in turn, skipping prefixes that are already expanded.
func (c *Cache) Open(ctx context.Context, p Path) (Path, error) {
	var chain Path
	for i := 1; i <= len(p); i++ {
		prefix := p[:i]
		if c.IsExpanded(prefix) {
			continue
		}
		var err error
		if chain, err = c.Toggle(ctx, prefix); err != nil {
			return nil, err
		}
	}
	return chain, nil
}

func (c *Cache) expand(ctx context.Context, p Path) (Path, error) {
	levels, err := c.fetch(ctx, p)
	if err != nil {
		return nil, err
	}
	return c.descend(ctx, p, levels)
}

// descend follows pass-through levels below p and returns the deepest resolved path.
// A failed auto-expansion stops the descent without failing the toggle.
func (c *Cache) descend(ctx context.Context, p Path, levels []types.TreeLevel) (Path, error) {
	chain := p
	for depth := 0; depth < maxPassThrough; depth++ {
		seg, ok := firstPassThrough(levels)
		if !ok {
			return chain, nil
		}
		next := chain.Child(seg.tableColumnID, seg.value)

		c.setLoading(next, true)
		var err error
		levels, err = c.fetch(ctx, next)
		c.setLoading(next, false)
		if err != nil {
			c.log.Warn().Err(err).Str("path", next.String()).Msg("auto-expand failed")
			return chain, nil
		}
		chain = next
	}
	return chain, nil
}

func (c *Cache) setLoading(p Path, loading bool) {
	c.mu.Lock()
	c.lookup(p, true).loading = loading
	c.mu.Unlock()
}

// retain marks p expanded and collapses everything that is not an ancestor of p.
// Auto-expanded pass-through nodes below p stay out of the expanded set.
func (c *Cache) retain(p Path) {
	var walk func(n *node, depth int, onPath bool)
	walk = func(n *node, depth int, onPath bool) {
		for seg, child := range n.children {
			childOn := onPath && depth < len(p) &&
				seg == (segment{p[depth].TableColumnID, p[depth].Value})
			switch {
			case !childOn:
				child.expanded = false
			case depth+1 == len(p):
				child.expanded = true
			}
			walk(child, depth+1, childOn)
		}
	}
	walk(c.root, 0, true)
}

func (c *Cache) apply(ctx context.Context, p Path) error {
	if c.sink == nil {
		return nil
	}
	if len(p) == 0 {
		return c.sink.ClearFilters(ctx)
	}
	return c.sink.ApplyFilters(ctx, p.Filters())
}

// IsPassThrough reports whether a level is a single GUID value displayed as itself.
func IsPassThrough(level types.TreeLevel) bool {
	_, ok := passThrough(level)
	return ok
}

func passThrough(level types.TreeLevel) (segment, bool) {
	if len(level.Values) != 1 {
		return segment{}, false
	}
	raw := types.FormatScalar(level.Values[0])
	if _, err := uuid.Parse(raw); err != nil {
		return segment{}, false
	}
	if len(level.DisplayValues) > 0 && types.FormatScalar(level.DisplayValues[0]) != raw {
		return segment{}, false
	}
	return segment{level.TableColumnID, raw}, true
}

func firstPassThrough(levels []types.TreeLevel) (segment, bool) {
	for _, l := range levels {
		if seg, ok := passThrough(l); ok {
			return seg, true
		}
	}
	return segment{}, false
}

// Children returns the visible rows below p, with pass-through levels flattened into
// their parent.
func (c *Cache) Children(p Path) []Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.lookup(p, false)
	if n == nil {
		return nil
	}
	return c.children(p, n)
}

func (c *Cache) children(p Path, n *node) []Node {
	if !n.loaded {
		return nil
	}
	var out []Node
	for _, level := range n.levels {
		if seg, ok := passThrough(level); ok {
			if child := n.children[seg]; child != nil && child.loaded {
				out = append(out, c.children(p.Child(seg.tableColumnID, seg.value), child)...)
				continue
			}
		}
		for _, e := range c.sorted(level) {
			row := Node{
				Path:          p.Child(level.TableColumnID, e.Value),
				TableColumnID: level.TableColumnID,
				Level:         level.Name,
				Value:         e.Value,
				Display:       e.Display,
			}
			if child := n.children[segment{level.TableColumnID, e.Value}]; child != nil {
				row.Expanded = child.expanded
				row.Loading = child.loading
				row.Err = child.err
			}
			out = append(out, row)
		}
	}
	return out
}

func (c *Cache) IsExpanded(p Path) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.lookup(p, false)
	return n != nil && len(p) > 0 && n.expanded
}

func (c *Cache) IsLoading(p Path) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.lookup(p, false)
	return n != nil && n.loading
}

// Err returns the last fetch error recorded for p.
func (c *Cache) Err(p Path) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n := c.lookup(p, false); n != nil {
		return n.err
	}
	return nil
}

// Expanded lists every expanded path in a stable order.
func (c *Cache) Expanded() []Path {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []Path
	var walk func(n *node, p Path)
	walk = func(n *node, p Path) {
		for seg, child := range n.children {
			cp := p.Child(seg.tableColumnID, seg.value)
			if child.expanded {
				out = append(out, cp)
			}
			walk(child, cp)
		}
	}
	walk(c.root, nil)

	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
