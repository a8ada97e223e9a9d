package studio

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Rana718/Portal/internal/apperrors"
	"github.com/Rana718/Portal/internal/types"
	"github.com/rs/zerolog"
)

type refKey struct {
	widgetColumnID int
	tableColumnID  int
}

type refGroup struct {
	widgetColumnID int
	alias          string
	kind           string
	readOnly       bool
	refs           []types.Reference
}

type widgetState struct {
	def    *WidgetDef
	table  *TableDef
	groups []*refGroup
}

// Service answers the portal contract from a Catalog and a Store. Reference layout
// edits are kept in memory for the life of the process.
type Service struct {
	cat   *Catalog
	store *Store
	log   zerolog.Logger

	mu      sync.RWMutex
	widgets map[int]*widgetState
	combos  map[refKey]*ComboboxDef
}

func NewService(cat *Catalog, store *Store, log zerolog.Logger) *Service {
	s := &Service{
		cat:     cat,
		store:   store,
		log:     log,
		widgets: make(map[int]*widgetState),
		combos:  make(map[refKey]*ComboboxDef),
	}
	for _, w := range cat.widgets {
		ws := &widgetState{def: w, table: cat.tables[w.Table]}
		for _, wc := range w.Columns {
			g := &refGroup{widgetColumnID: wc.ID, alias: wc.Alias, kind: wc.Type, readOnly: wc.ReadOnly}
			for i, rd := range wc.References {
				g.refs = append(g.refs, s.newReference(wc, rd, i))
				if rd.Combobox != nil {
					s.combos[refKey{wc.ID, rd.TableColumn}] = rd.Combobox
				}
			}
			ws.groups = append(ws.groups, g)
		}
		s.widgets[w.ID] = ws
	}
	return s
}

func (s *Service) newReference(wc WidgetColumnDef, rd ReferenceDef, order int) types.Reference {
	visible := rd.Visible == nil || *rd.Visible
	width := rd.Width
	if width == 0 {
		width = 100
	}
	ref := types.Reference{
		TableColumnID:  rd.TableColumn,
		WidgetColumnID: wc.ID,
		Alias:          rd.Alias,
		Type:           wc.Type,
		Width:          width,
		Visible:        visible,
		ReadOnly:       rd.ReadOnly || wc.ReadOnly,
		RefColumnOrder: order,
		FormID:         rd.FormID,
	}
	if cb := rd.Combobox; cb != nil {
		for i, id := range cb.Show {
			ref.Combobox = append(ref.Combobox, s.comboItem(id, true, i, i == 0))
		}
		for i, id := range cb.Hidden {
			ref.Combobox = append(ref.Combobox, s.comboItem(id, false, len(cb.Show)+i, false))
		}
	}
	return ref
}

func (s *Service) comboItem(id int, shown bool, order int, primary bool) types.ComboboxItem {
	return types.ComboboxItem{
		TableColumnID: id,
		Alias:         s.cat.columns[id].column.Name,
		Shown:         shown,
		Order:         order,
		Primary:       primary,
	}
}

func notFound(op, format string, args ...any) error {
	return apperrors.New(apperrors.ErrClassNotFound, op, fmt.Sprintf(format, args...))
}

func (s *Service) form(op string, id int) (*FormDef, error) {
	f, ok := s.cat.forms[id]
	if !ok {
		return nil, notFound(op, "form %d not found", id)
	}
	return f, nil
}

func (s *Service) widget(op string, id int) (*widgetState, error) {
	w, ok := s.widgets[id]
	if !ok {
		return nil, notFound(op, "widget %d not found", id)
	}
	return w, nil
}

func (s *Service) Form(id int) (*types.FormInfo, error) {
	f, err := s.form("get form", id)
	if err != nil {
		return nil, err
	}
	info := &types.FormInfo{
		FormID:       f.ID,
		Name:         f.Name,
		MainWidgetID: f.MainWidget,
		SubWidgets:   []types.SubWidget{},
		TreeFields:   append([]int{}, f.TreeFields...),
	}
	for _, sw := range f.SubWidgets {
		name := sw.Name
		if name == "" {
			name = s.cat.widgets[sw.Widget].Name
		}
		info.SubWidgets = append(info.SubWidgets, types.SubWidget{
			WidgetID:      sw.Widget,
			Name:          name,
			LinkColumn:    sw.LinkColumn,
			ParentKeyName: sw.ParentKey,
		})
	}
	return info, nil
}

func (s *Service) Widget(id int) (*types.WidgetInfo, error) {
	w, err := s.widget("get widget", id)
	if err != nil {
		return nil, err
	}
	return &types.WidgetInfo{WidgetID: w.def.ID, Name: w.def.Name, TableID: w.def.Table}, nil
}

// References returns the widget's reference groups in display order.
func (s *Service) References(widgetID int) ([]types.ReferenceGroup, error) {
	w, err := s.widget("get references", widgetID)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.ReferenceGroup, 0, len(w.groups))
	for _, g := range w.groups {
		out = append(out, types.ReferenceGroup{
			WidgetColumnID: g.widgetColumnID,
			Alias:          g.alias,
			References:     append([]types.Reference{}, g.refs...),
		})
	}
	return out, nil
}

func (s *Service) findGroup(widgetColumnID int) (*widgetState, *refGroup) {
	for _, w := range s.widgets {
		for _, g := range w.groups {
			if g.widgetColumnID == widgetColumnID {
				return w, g
			}
		}
	}
	return nil, nil
}

func refIndex(refs []types.Reference, tableColumnID int) int {
	for i, r := range refs {
		if r.TableColumnID == tableColumnID {
			return i
		}
	}
	return -1
}

// place moves ref to position order within refs and renumbers densely.
func place(refs []types.Reference, ref types.Reference, order int) []types.Reference {
	if order < 0 {
		order = 0
	}
	if order > len(refs) {
		order = len(refs)
	}
	out := make([]types.Reference, 0, len(refs)+1)
	out = append(out, refs[:order]...)
	out = append(out, ref)
	out = append(out, refs[order:]...)
	for i := range out {
		out[i].RefColumnOrder = i
	}
	return out
}

func remove(refs []types.Reference, i int) []types.Reference {
	out := append(append([]types.Reference{}, refs[:i]...), refs[i+1:]...)
	for j := range out {
		out[j].RefColumnOrder = j
	}
	return out
}

// CreateReference attaches a table column to a widget column at the given position.
// A column attached elsewhere in the same widget is moved, keeping its settings.
func (s *Service) CreateReference(widgetColumnID, tableColumnID, order int) error {
	const op = "create reference"
	s.mu.Lock()
	defer s.mu.Unlock()

	w, g := s.findGroup(widgetColumnID)
	if g == nil {
		return notFound(op, "widget column %d not found", widgetColumnID)
	}
	if _, ok := s.cat.column(w.table, tableColumnID); !ok {
		return notFound(op, "column %d is not part of table %s", tableColumnID, w.table.Name)
	}

	ref := types.Reference{
		TableColumnID: tableColumnID,
		Type:          g.kind,
		Width:         100,
		Visible:       true,
		ReadOnly:      g.readOnly,
	}
	for _, other := range w.groups {
		if i := refIndex(other.refs, tableColumnID); i >= 0 {
			ref = other.refs[i]
			other.refs = remove(other.refs, i)
			if cb, ok := s.combos[refKey{other.widgetColumnID, tableColumnID}]; ok {
				delete(s.combos, refKey{other.widgetColumnID, tableColumnID})
				s.combos[refKey{widgetColumnID, tableColumnID}] = cb
			}
		}
	}
	ref.WidgetColumnID = widgetColumnID
	g.refs = place(g.refs, ref, order)

	s.log.Debug().Int("widget_column_id", widgetColumnID).Int("table_column_id", tableColumnID).Int("order", order).Msg("reference attached")
	return nil
}

// UpdateReference replaces a reference's settings and moves it to its new position.
func (s *Service) UpdateReference(widgetColumnID, tableColumnID int, patch types.ReferencePatch) error {
	const op = "update reference"
	s.mu.Lock()
	defer s.mu.Unlock()

	_, g := s.findGroup(widgetColumnID)
	if g == nil {
		return notFound(op, "widget column %d not found", widgetColumnID)
	}
	i := refIndex(g.refs, tableColumnID)
	if i < 0 {
		return notFound(op, "reference %d not found in widget column %d", tableColumnID, widgetColumnID)
	}

	ref := g.refs[i]
	ref.Alias = patch.Alias
	if patch.Type != "" {
		ref.Type = patch.Type
	}
	ref.Width = patch.Width
	ref.Visible = patch.Visible
	ref.ReadOnly = patch.ReadOnly
	ref.FormID = patch.FormID
	g.refs = place(remove(g.refs, i), ref, patch.RefColumnOrder)
	return nil
}

// sortedRefs returns a group's references by their order.
func sortedRefs(g *refGroup) []types.Reference {
	refs := append([]types.Reference{}, g.refs...)
	sort.SliceStable(refs, func(i, j int) bool { return refs[i].RefColumnOrder < refs[j].RefColumnOrder })
	return refs
}
