package grid

import (
	"strings"

	"github.com/Rana718/Portal/internal/types"
	"github.com/rs/zerolog"
)

// Kind is the explicit variant tag of a display column.
type Kind int

const (
	KindText Kind = iota
	KindCombobox
	KindCheckbox
	KindCheckboxNull
	KindRLS
	KindStyles
)

func (k Kind) String() string {
	switch k {
	case KindCombobox:
		return "combobox"
	case KindCheckbox:
		return "checkbox"
	case KindCheckboxNull:
		return "checkboxNull"
	case KindRLS:
		return "rls"
	case KindStyles:
		return "styles"
	default:
		return "text"
	}
}

// KindOf derives the kind from a descriptor's type tag, falling back to its datatype.
func KindOf(d types.ColumnDescriptor) Kind {
	switch strings.ToLower(d.Type) {
	case "combobox":
		return KindCombobox
	case "checkbox":
		return KindCheckbox
	case "checkboxnull":
		return KindCheckboxNull
	case "rls":
		return KindRLS
	case "styles":
		return KindStyles
	}
	if strings.HasPrefix(strings.ToLower(d.Datatype), "bool") {
		return KindCheckbox
	}
	return KindText
}

// Member is one raw server column folded into a combobox group.
type Member struct {
	TableColumnID *int
	WriteID       *int
	Label         string
	Index         int
}

// ComboGroup is present only on KindCombobox columns.
type ComboGroup struct {
	// Primary indexes Members; it drives the dropdown and drill click.
	Primary int
	Members []Member
}

// PrimaryMember returns the member that drives the dropdown.
func (g *ComboGroup) PrimaryMember() Member {
	return g.Members[g.Primary]
}

// Column is one logical, render-ordered field.
type Column struct {
	Kind           Kind
	WidgetColumnID int
	TableColumnID  *int
	// WriteID is the table column submitted on mutation; nil means the column cannot be written.
	WriteID  *int
	Name     string
	Label    string
	ReadOnly bool
	Required bool
	Default  *string
	FormID   *int
	Width    int
	// Index is the position of the column's displayed value in a row's value array.
	Index int
	Combo *ComboGroup
}

// Drillable reports whether a click on the cell opens another form.
func (c Column) Drillable() bool {
	return c.FormID != nil
}

type HeaderGroup struct {
	WidgetColumnID int
	Label          string
	Span           int
}

type indexKey struct {
	widgetColumnID int
	tableColumnID  int
}

// Projection is the render plan derived from a snapshot's column list.
type Projection struct {
	Headers []HeaderGroup
	Columns []Column
	// Styles is the JSON style column, if the widget carries one.
	Styles *Column

	index map[indexKey]int
	width int
}

type ProjectOptions struct {
	// StylesColumn names the column holding per-cell style JSON.
	StylesColumn string
	Logger       zerolog.Logger
}

// Project turns the server's flat column list into a grouped, render-ordered plan.
func Project(descs []types.ColumnDescriptor, opts ProjectOptions) *Projection {
	p := &Projection{index: make(map[indexKey]int, len(descs)), width: len(descs)}

	for i, d := range descs {
		p.index[indexKey{d.WidgetColumnID, idOrNeg(d.TableColumnID)}] = i
	}

	for i := 0; i < len(descs); {
		d := descs[i]
		kind := KindOf(d)

		if opts.StylesColumn != "" && d.ColumnName == opts.StylesColumn {
			kind = KindStyles
		}

		if kind == KindStyles {
			col := singleColumn(d, kind, i)
			p.Styles = &col
			i++
			continue
		}

		if kind == KindCombobox {
			j, col := comboRun(descs, i, opts.Logger)
			if visible(descs[i]) {
				p.Columns = append(p.Columns, col)
			}
			i = j
			continue
		}

		if visible(d) {
			p.Columns = append(p.Columns, singleColumn(d, kind, i))
		}
		i++
	}

	for _, c := range p.Columns {
		n := len(p.Headers)
		if n > 0 && p.Headers[n-1].WidgetColumnID == c.WidgetColumnID {
			p.Headers[n-1].Span++
			continue
		}
		p.Headers = append(p.Headers, HeaderGroup{WidgetColumnID: c.WidgetColumnID, Label: c.Label, Span: 1})
	}

	return p
}

func singleColumn(d types.ColumnDescriptor, kind Kind, idx int) Column {
	write := d.WriteTableColumnID
	if write == nil {
		write = d.TableColumnID
	}
	return Column{
		Kind:           kind,
		WidgetColumnID: d.WidgetColumnID,
		TableColumnID:  d.TableColumnID,
		WriteID:        write,
		Name:           d.ColumnName,
		Label:          labelOf(d),
		ReadOnly:       d.ReadOnly || kind == KindRLS || kind == KindStyles || write == nil,
		Required:       d.Required,
		Default:        d.Default,
		FormID:         d.FormID,
		Width:          d.Width,
		Index:          idx,
	}
}

// comboRun folds the contiguous combobox run starting at start into one column and
// returns the index after the run.
func comboRun(descs []types.ColumnDescriptor, start int, log zerolog.Logger) (int, Column) {
	first := descs[start]
	runWrite := first.WriteTableColumnID

	j := start + 1
	for ; j < len(descs); j++ {
		d := descs[j]
		if KindOf(d) != KindCombobox || d.WidgetColumnID != first.WidgetColumnID {
			break
		}
		if d.WriteTableColumnID != nil && runWrite != nil && *d.WriteTableColumnID != *runWrite {
			break
		}
		if runWrite == nil {
			runWrite = d.WriteTableColumnID
		}
	}

	group := &ComboGroup{Primary: -1}
	for k := start; k < j; k++ {
		d := descs[k]
		group.Members = append(group.Members, Member{
			TableColumnID: d.TableColumnID,
			WriteID:       d.WriteTableColumnID,
			Label:         labelOf(d),
			Index:         k,
		})
		if d.Primary && group.Primary < 0 {
			group.Primary = k - start
		}
	}
	if group.Primary < 0 {
		group.Primary = 0
	}

	primary := descs[start+group.Primary]
	write := primary.WriteTableColumnID
	if write == nil {
		for _, m := range group.Members {
			if m.WriteID != nil {
				write = m.WriteID
				break
			}
		}
	}
	if write == nil {
		log.Warn().
			Int("widget_column_id", first.WidgetColumnID).
			Msg("combobox group has no write target, rendering read-only")
	}

	readOnly := write == nil
	required := false
	var def *string
	var formID *int
	for k := start; k < j; k++ {
		readOnly = readOnly || descs[k].ReadOnly
		required = required || descs[k].Required
		if def == nil {
			def = descs[k].Default
		}
		if formID == nil {
			formID = descs[k].FormID
		}
	}

	label := labelOf(primary)
	if first.Alias != "" {
		label = first.Alias
	}

	return j, Column{
		Kind:           KindCombobox,
		WidgetColumnID: first.WidgetColumnID,
		TableColumnID:  primary.TableColumnID,
		WriteID:        write,
		Name:           primary.ColumnName,
		Label:          label,
		ReadOnly:       readOnly,
		Required:       required,
		Default:        def,
		FormID:         formID,
		Width:          primary.Width,
		Index:          start + group.Primary,
		Combo:          group,
	}
}

func labelOf(d types.ColumnDescriptor) string {
	if d.Alias != "" {
		return d.Alias
	}
	return d.ColumnName
}

func visible(d types.ColumnDescriptor) bool {
	return d.Visible == nil || *d.Visible
}

func idOrNeg(id *int) int {
	if id == nil {
		return -1
	}
	return *id
}

// ValueIndex finds the value array position of a (widget column, table column) pair.
// A nil table column id is looked up as such.
func (p *Projection) ValueIndex(widgetColumnID int, tableColumnID *int) (int, bool) {
	i, ok := p.index[indexKey{widgetColumnID, idOrNeg(tableColumnID)}]
	return i, ok
}

// ByWriteID returns the logical column that writes the given table column.
func (p *Projection) ByWriteID(id int) (Column, bool) {
	for _, c := range p.Columns {
		if c.WriteID != nil && *c.WriteID == id {
			return c, true
		}
	}
	return Column{}, false
}

// Width is the length of every row's value array.
func (p *Projection) Width() int {
	return p.width
}

// Writable returns the columns that accept input.
func (p *Projection) Writable() []Column {
	var out []Column
	for _, c := range p.Columns {
		if !c.ReadOnly {
			out = append(out, c)
		}
	}
	return out
}

// Cell returns the displayed value of a column in a row.
func (c Column) Cell(row types.DataRow) any {
	if c.Index < 0 || c.Index >= len(row.Values) {
		return nil
	}
	return row.Values[c.Index]
}

// Tokens returns every displayed text of a combobox group in a row.
func (c Column) Tokens(row types.DataRow) []string {
	if c.Combo == nil {
		if v := c.Cell(row); v != nil {
			return []string{types.FormatScalar(v)}
		}
		return nil
	}
	var out []string
	for _, m := range c.Combo.Members {
		if m.Index < len(row.Values) && row.Values[m.Index] != nil {
			if s := strings.TrimSpace(types.FormatScalar(row.Values[m.Index])); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
