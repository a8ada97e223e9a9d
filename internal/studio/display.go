package studio

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/Rana718/Portal/internal/apperrors"
	"github.com/Rana718/Portal/internal/types"
)

const mainAlias = "t"

// selectPlan is the column list and joins needed to display one widget.
type selectPlan struct {
	columns []types.ColumnDescriptor
	exprs   []string
	joins   []string
	pk      []string
}

func (s *Service) plan(w *widgetState) selectPlan {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p selectPlan
	for _, g := range w.groups {
		for _, ref := range sortedRefs(g) {
			col, ok := s.cat.column(w.table, ref.TableColumnID)
			if !ok {
				continue
			}
			alias := ref.Alias
			if alias == "" {
				alias = g.alias
			}
			visible := ref.Visible

			if cb, ok := s.combos[refKey{g.widgetColumnID, ref.TableColumnID}]; ok {
				lookup := s.cat.tables[cb.Table]
				value, _ := s.cat.column(lookup, cb.Value)
				join := fmt.Sprintf("j%d_%d", g.widgetColumnID, ref.TableColumnID)
				p.joins = append(p.joins, fmt.Sprintf("%s AS %s ON %s.%s = %s.%s",
					s.store.quote(lookup.Name), join, join, s.store.quote(value.Name), mainAlias, s.store.quote(col.Name)))

				for i, showID := range cb.Show {
					show, _ := s.cat.column(lookup, showID)
					d := types.ColumnDescriptor{
						WidgetColumnID:     g.widgetColumnID,
						TableColumnID:      types.IntPtr(showID),
						WriteTableColumnID: types.IntPtr(col.ID),
						ColumnName:         show.Name,
						Datatype:           show.Datatype,
						Type:               "combobox",
						ReadOnly:           ref.ReadOnly,
						Required:           col.Required,
						Default:            col.Default,
						FormID:             ref.FormID,
						Primary:            i == 0,
						Visible:            &visible,
						Width:              ref.Width,
					}
					if i == 0 {
						d.Alias = alias
					}
					p.columns = append(p.columns, d)
					p.exprs = append(p.exprs, join+"."+s.store.quote(show.Name))
				}
				continue
			}

			kind := ref.Type
			if kind == "combobox" {
				kind = ""
			}
			p.columns = append(p.columns, types.ColumnDescriptor{
				WidgetColumnID: g.widgetColumnID,
				TableColumnID:  types.IntPtr(col.ID),
				ColumnName:     col.Name,
				Alias:          alias,
				Datatype:       col.Datatype,
				Type:           kind,
				ReadOnly:       ref.ReadOnly,
				Required:       col.Required,
				Default:        col.Default,
				FormID:         ref.FormID,
				Visible:        &visible,
				Width:          ref.Width,
			})
			p.exprs = append(p.exprs, mainAlias+"."+s.store.quote(col.Name))
		}
	}
	for _, pk := range w.table.PrimaryKey {
		p.pk = append(p.pk, mainAlias+"."+s.store.quote(pk))
	}
	return p
}

func (s *Service) where(op string, t *TableDef, filters []types.Filter) (squirrel.And, error) {
	var and squirrel.And
	for _, f := range filters {
		col, ok := s.cat.column(t, f.TableColumnID)
		if !ok {
			return nil, apperrors.New(apperrors.ErrClassValidation, op,
				fmt.Sprintf("column %d is not part of table %s", f.TableColumnID, t.Name))
		}
		and = append(and, s.store.textEq(mainAlias+"."+s.store.quote(col.Name), f.Value))
	}
	return and, nil
}

func (s *Service) from(t *TableDef) string {
	return s.store.quote(t.Name) + " AS " + mainAlias
}

func (s *Service) page(ctx context.Context, op string, w *widgetState, cond squirrel.And, page, limit int) (*types.DisplayResponse, error) {
	if limit <= 0 {
		limit = 50
	}
	if page <= 0 {
		page = 1
	}

	countQ := s.store.qb.Select("COUNT(*)").From(s.from(w.table))
	if len(cond) > 0 {
		countQ = countQ.Where(cond)
	}
	total, err := s.store.count(ctx, countQ)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrClassServer, op, err)
	}

	p := s.plan(w)
	q := s.store.qb.Select(append(append([]string{}, p.exprs...), p.pk...)...).From(s.from(w.table))
	for _, j := range p.joins {
		q = q.LeftJoin(j)
	}
	if len(cond) > 0 {
		q = q.Where(cond)
	}
	q = q.OrderBy(p.pk...).Limit(uint64(limit)).Offset(uint64((page - 1) * limit))

	rows, err := s.store.query(ctx, q)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrClassServer, op, err)
	}

	data := make([]types.DataRow, 0, len(rows))
	n := len(p.exprs)
	for _, r := range rows {
		pk := types.PrimaryKeys{}
		for i, name := range w.table.PrimaryKey {
			pk[name] = r[n+i]
		}
		data = append(data, types.DataRow{PrimaryKeys: pk, Values: r[:n]})
	}

	pages := (total + limit - 1) / limit
	if pages == 0 {
		pages = 1
	}
	columns := p.columns
	if columns == nil {
		columns = []types.ColumnDescriptor{}
	}
	return &types.DisplayResponse{
		DisplayedWidget: types.DisplayedWidget{Page: page, Total: pages},
		Columns:         columns,
		Data:            data,
	}, nil
}

// DisplayMain returns one page of the form's main widget narrowed by filters.
func (s *Service) DisplayMain(ctx context.Context, formID int, filters []types.Filter, page, limit int) (*types.DisplayResponse, error) {
	const op = "display main"
	f, err := s.form(op, formID)
	if err != nil {
		return nil, err
	}
	w, err := s.widget(op, f.MainWidget)
	if err != nil {
		return nil, err
	}
	cond, err := s.where(op, w.table, filters)
	if err != nil {
		return nil, err
	}
	return s.page(ctx, op, w, cond, page, limit)
}

// DisplaySub returns the detail rows of a sub widget linked to a main row.
func (s *Service) DisplaySub(ctx context.Context, formID, subWidgetID int, parent types.PrimaryKeys, page, limit int) (*types.DisplayResponse, error) {
	const op = "display sub"
	f, err := s.form(op, formID)
	if err != nil {
		return nil, err
	}
	var link *SubWidgetDef
	for i := range f.SubWidgets {
		if f.SubWidgets[i].Widget == subWidgetID {
			link = &f.SubWidgets[i]
		}
	}
	if link == nil {
		return nil, notFound(op, "form %d has no sub widget %d", formID, subWidgetID)
	}
	w, err := s.widget(op, subWidgetID)
	if err != nil {
		return nil, err
	}
	key, ok := parent[link.ParentKey]
	if !ok || key == nil {
		return nil, apperrors.New(apperrors.ErrClassValidation, op, fmt.Sprintf("missing parent key %s", link.ParentKey))
	}
	cond := squirrel.And{s.store.textEq(mainAlias+"."+s.store.quote(link.LinkColumn), types.FormatScalar(key))}
	return s.page(ctx, op, w, cond, page, limit)
}

// Tree returns the level below the given chain of tree field filters. It returns no
// levels once every tree field is filtered.
func (s *Service) Tree(ctx context.Context, formID int, filters []types.Filter) ([]types.TreeLevel, error) {
	const op = "display tree"
	f, err := s.form(op, formID)
	if err != nil {
		return nil, err
	}
	if len(filters) >= len(f.TreeFields) {
		return []types.TreeLevel{}, nil
	}
	w, err := s.widget(op, f.MainWidget)
	if err != nil {
		return nil, err
	}
	cond, err := s.where(op, w.table, filters)
	if err != nil {
		return nil, err
	}

	field := f.TreeFields[len(filters)]
	col, _ := s.cat.column(w.table, field)
	valueExpr := mainAlias + "." + s.store.quote(col.Name)
	level := types.TreeLevel{TableColumnID: field, Name: col.Name, Values: []any{}, DisplayValues: []any{}}

	displayExpr := valueExpr
	var join string
	s.mu.RLock()
	for _, g := range w.groups {
		if refIndex(g.refs, field) < 0 {
			continue
		}
		if g.alias != "" {
			level.Name = g.alias
		}
		if cb, ok := s.combos[refKey{g.widgetColumnID, field}]; ok {
			lookup := s.cat.tables[cb.Table]
			value, _ := s.cat.column(lookup, cb.Value)
			show, _ := s.cat.column(lookup, cb.Show[0])
			join = fmt.Sprintf("%s AS l ON l.%s = %s", s.store.quote(lookup.Name), s.store.quote(value.Name), valueExpr)
			displayExpr = "l." + s.store.quote(show.Name)
		}
		break
	}
	s.mu.RUnlock()

	q := s.store.qb.Select(valueExpr, displayExpr).Distinct().From(s.from(w.table))
	if join != "" {
		q = q.LeftJoin(join)
	}
	if len(cond) > 0 {
		q = q.Where(cond)
	}
	q = q.Where(squirrel.NotEq{valueExpr: nil}).OrderBy(valueExpr)

	rows, err := s.store.query(ctx, q)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrClassServer, op, err)
	}
	for _, r := range rows {
		level.Values = append(level.Values, r[0])
		display := r[1]
		if display == nil {
			display = r[0]
		}
		level.DisplayValues = append(level.DisplayValues, display)
	}
	return []types.TreeLevel{level}, nil
}

// Combobox lists the options of the combobox bound to a widget column's reference.
func (s *Service) Combobox(ctx context.Context, formID, widgetColumnID, tableColumnID int) ([]types.ComboboxOption, error) {
	const op = "combobox"
	if _, err := s.form(op, formID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	cb, ok := s.combos[refKey{widgetColumnID, tableColumnID}]
	s.mu.RUnlock()
	if !ok {
		return nil, notFound(op, "no combobox on widget column %d for column %d", widgetColumnID, tableColumnID)
	}

	lookup := s.cat.tables[cb.Table]
	name := func(id int) string {
		c, _ := s.cat.column(lookup, id)
		return s.store.quote(c.Name)
	}
	exprs := []string{name(cb.Value)}
	for _, id := range cb.Show {
		exprs = append(exprs, name(id))
	}
	for _, id := range cb.Hidden {
		exprs = append(exprs, name(id))
	}

	rows, err := s.store.query(ctx, s.store.qb.Select(exprs...).From(s.store.quote(lookup.Name)).OrderBy(name(cb.Value)))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrClassServer, op, err)
	}

	out := make([]types.ComboboxOption, 0, len(rows))
	for _, r := range rows {
		opt := types.ComboboxOption{ID: types.FormatScalar(r[0]), Show: []string{}, Hidden: []string{}}
		for i := range cb.Show {
			opt.Show = append(opt.Show, types.FormatScalar(r[1+i]))
		}
		for i := range cb.Hidden {
			opt.Hidden = append(opt.Hidden, types.FormatScalar(r[1+len(cb.Show)+i]))
		}
		out = append(out, opt)
	}
	return out, nil
}
