package studio

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Definitions describe the tables, widgets and forms served by the studio.
type Definitions struct {
	Tables  []TableDef  `yaml:"tables"`
	Widgets []WidgetDef `yaml:"widgets"`
	Forms   []FormDef   `yaml:"forms"`
}

type ColumnDef struct {
	ID       int     `yaml:"id"`
	Name     string  `yaml:"name"`
	Datatype string  `yaml:"datatype"`
	Required bool    `yaml:"required,omitempty"`
	Default  *string `yaml:"default,omitempty"`
}

// QueryFlags say which mutations a table accepts.
type QueryFlags struct {
	Insert bool `yaml:"insert"`
	Update bool `yaml:"update"`
	Delete bool `yaml:"delete"`
}

type TableDef struct {
	ID         int              `yaml:"id"`
	Name       string           `yaml:"name"`
	PrimaryKey []string         `yaml:"primary_key"`
	Queries    QueryFlags       `yaml:"queries"`
	Columns    []ColumnDef      `yaml:"columns"`
	Rows       []map[string]any `yaml:"rows,omitempty"`
}

// ComboboxDef resolves a foreign key column through a lookup table.
type ComboboxDef struct {
	Table  int   `yaml:"table"`
	Value  int   `yaml:"value_column"`
	Show   []int `yaml:"show"`
	Hidden []int `yaml:"hidden,omitempty"`
}

type ReferenceDef struct {
	TableColumn int          `yaml:"table_column"`
	Alias       string       `yaml:"alias,omitempty"`
	Width       int          `yaml:"width,omitempty"`
	Visible     *bool        `yaml:"visible,omitempty"`
	ReadOnly    bool         `yaml:"readonly,omitempty"`
	FormID      *int         `yaml:"form_id,omitempty"`
	Combobox    *ComboboxDef `yaml:"combobox,omitempty"`
}

type WidgetColumnDef struct {
	ID         int            `yaml:"id"`
	Alias      string         `yaml:"alias,omitempty"`
	Type       string         `yaml:"type,omitempty"`
	ReadOnly   bool           `yaml:"readonly,omitempty"`
	References []ReferenceDef `yaml:"references"`
}

type WidgetDef struct {
	ID      int               `yaml:"id"`
	Name    string            `yaml:"name"`
	Table   int               `yaml:"table"`
	Columns []WidgetColumnDef `yaml:"columns"`
}

type SubWidgetDef struct {
	Widget     int    `yaml:"widget"`
	Name       string `yaml:"name,omitempty"`
	LinkColumn string `yaml:"link_column"`
	ParentKey  string `yaml:"parent_key"`
}

type FormDef struct {
	ID         int            `yaml:"id"`
	Name       string         `yaml:"name"`
	MainWidget int            `yaml:"main_widget"`
	SubWidgets []SubWidgetDef `yaml:"sub_widgets,omitempty"`
	TreeFields []int          `yaml:"tree_fields,omitempty"`
}

type columnRef struct {
	table  *TableDef
	column ColumnDef
}

// Catalog is the validated, indexed form of Definitions.
type Catalog struct {
	defs    *Definitions
	tables  map[int]*TableDef
	columns map[int]columnRef
	widgets map[int]*WidgetDef
	forms   map[int]*FormDef
}

func LoadDefinitions(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definitions: %w", err)
	}
	return ParseDefinitions(data)
}

func ParseDefinitions(data []byte) (*Catalog, error) {
	var defs Definitions
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("failed to parse definitions: %w", err)
	}
	return NewCatalog(&defs)
}

func NewCatalog(defs *Definitions) (*Catalog, error) {
	c := &Catalog{
		defs:    defs,
		tables:  make(map[int]*TableDef),
		columns: make(map[int]columnRef),
		widgets: make(map[int]*WidgetDef),
		forms:   make(map[int]*FormDef),
	}

	for i := range defs.Tables {
		t := &defs.Tables[i]
		if _, dup := c.tables[t.ID]; dup {
			return nil, fmt.Errorf("duplicate table id %d", t.ID)
		}
		c.tables[t.ID] = t
		for _, col := range t.Columns {
			if _, dup := c.columns[col.ID]; dup {
				return nil, fmt.Errorf("duplicate column id %d", col.ID)
			}
			c.columns[col.ID] = columnRef{table: t, column: col}
		}
		if len(t.PrimaryKey) == 0 {
			return nil, fmt.Errorf("table %s has no primary key", t.Name)
		}
		for _, pk := range t.PrimaryKey {
			if _, ok := t.columnByName(pk); !ok {
				return nil, fmt.Errorf("table %s: primary key column %s is not defined", t.Name, pk)
			}
		}
	}

	for i := range defs.Widgets {
		w := &defs.Widgets[i]
		if _, dup := c.widgets[w.ID]; dup {
			return nil, fmt.Errorf("duplicate widget id %d", w.ID)
		}
		if _, ok := c.tables[w.Table]; !ok {
			return nil, fmt.Errorf("widget %d: unknown table %d", w.ID, w.Table)
		}
		c.widgets[w.ID] = w
		for _, wc := range w.Columns {
			for _, ref := range wc.References {
				if err := c.checkReference(w, ref); err != nil {
					return nil, fmt.Errorf("widget %d column %d: %w", w.ID, wc.ID, err)
				}
			}
		}
	}

	for i := range defs.Forms {
		f := &defs.Forms[i]
		main, ok := c.widgets[f.MainWidget]
		if !ok {
			return nil, fmt.Errorf("form %d: unknown main widget %d", f.ID, f.MainWidget)
		}
		for _, sw := range f.SubWidgets {
			if _, ok := c.widgets[sw.Widget]; !ok {
				return nil, fmt.Errorf("form %d: unknown sub widget %d", f.ID, sw.Widget)
			}
		}
		for _, tf := range f.TreeFields {
			if ref, ok := c.columns[tf]; !ok || ref.table.ID != main.Table {
				return nil, fmt.Errorf("form %d: tree field %d is not a column of the main table", f.ID, tf)
			}
		}
		c.forms[f.ID] = f
	}

	return c, nil
}

func (c *Catalog) checkReference(w *WidgetDef, ref ReferenceDef) error {
	col, ok := c.columns[ref.TableColumn]
	if !ok || col.table.ID != w.Table {
		return fmt.Errorf("column %d is not part of table %d", ref.TableColumn, w.Table)
	}
	if cb := ref.Combobox; cb != nil {
		lookup, ok := c.tables[cb.Table]
		if !ok {
			return fmt.Errorf("combobox table %d is not defined", cb.Table)
		}
		for _, id := range append(append([]int{cb.Value}, cb.Show...), cb.Hidden...) {
			if lc, ok := c.columns[id]; !ok || lc.table.ID != lookup.ID {
				return fmt.Errorf("combobox column %d is not part of table %s", id, lookup.Name)
			}
		}
		if len(cb.Show) == 0 {
			return fmt.Errorf("combobox on column %d shows nothing", ref.TableColumn)
		}
	}
	return nil
}

func (t *TableDef) columnByName(name string) (ColumnDef, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnDef{}, false
}

// column returns a column of this table by id.
func (c *Catalog) column(t *TableDef, id int) (ColumnDef, bool) {
	ref, ok := c.columns[id]
	if !ok || ref.table.ID != t.ID {
		return ColumnDef{}, false
	}
	return ref.column, true
}

func (c *Catalog) Tables() []TableDef { return c.defs.Tables }

func (c *Catalog) Forms() []FormDef { return c.defs.Forms }
