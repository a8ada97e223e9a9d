package grid

import (
	"context"
	"fmt"
	"strings"

	"github.com/Rana718/Portal/internal/apperrors"
	"github.com/Rana718/Portal/internal/logger"
	"github.com/Rana718/Portal/internal/types"
	"github.com/rs/zerolog"
)

// Gateway is the subset of the portal REST API the controller needs.
type Gateway interface {
	FetchMain(ctx context.Context, formID, page, limit int, filters []types.Filter) (*types.DisplayResponse, error)
	FetchSub(ctx context.Context, formID, subWidgetID int, pk types.PrimaryKeys, page, limit int) (*types.DisplayResponse, error)
	FetchCombobox(ctx context.Context, formID, widgetColumnID, tableColumnID int) ([]types.ComboboxOption, error)
	Insert(ctx context.Context, formID, widgetID int, req types.MutationRequest) error
	Update(ctx context.Context, formID, widgetID int, req types.MutationRequest) error
	Delete(ctx context.Context, formID, widgetID int, pk types.PrimaryKeys) error
	Form(ctx context.Context, formID int) (*types.FormInfo, error)
	Widget(ctx context.Context, widgetID int) (*types.WidgetInfo, error)
	TableQueries(ctx context.Context, tableID int) (*types.TableQueries, error)
}

// TreeRefresher is the tree sidebar as seen from the grid.
type TreeRefresher interface {
	RefreshRoot(ctx context.Context) error
	ResetUI()
}

// State is the explicit per-form grid state.
type State struct {
	Columns []types.ColumnDescriptor
	Rows    []types.DataRow
	Page    int
	// TotalPages is the backend's page count.
	TotalPages int

	Filters  []types.Filter
	Filtered bool

	Adding     bool
	Draft      Draft
	AutoFilled map[int]bool

	// EditingRow is -1 when no row is being edited.
	EditingRow int
	EditDraft  Draft
	StyleDraft StyleDraft

	MissingFields        []string
	ShowValidationErrors bool

	// SelectedRow is -1 when no row is selected.
	SelectedRow int
	Sub         *types.DisplayResponse

	LastError error
}

type chain struct {
	form     *types.FormInfo
	widgetID int
	tableID  int
}

// Controller mediates every read and write of one form's main grid.
// A Controller is not safe for concurrent use.
type Controller struct {
	gw           Gateway
	formID       int
	pageSize     int
	stylesColumn string
	tree         TreeRefresher
	log          zerolog.Logger

	state       State
	proj        *Projection
	chain       *chain
	options     map[int][]types.ComboboxOption
	selectedKey types.PrimaryKeys
	editingKey  types.PrimaryKeys
}

type Option func(*Controller)

func WithPageSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithStylesColumn names the JSON column that stores per-cell styles.
func WithStylesColumn(name string) Option {
	return func(c *Controller) { c.stylesColumn = name }
}

func WithTree(t TreeRefresher) Option {
	return func(c *Controller) { c.tree = t }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

func New(gw Gateway, formID int, opts ...Option) *Controller {
	c := &Controller{
		gw:       gw,
		formID:   formID,
		pageSize: 50,
		log:      logger.Component("grid"),
		options:  make(map[int][]types.ComboboxOption),
		state:    State{EditingRow: -1, SelectedRow: -1},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.proj = Project(nil, c.projectOptions())
	return c
}

// AttachTree wires the tree sidebar after construction.
func (c *Controller) AttachTree(t TreeRefresher) {
	c.tree = t
}

func (c *Controller) FormID() int { return c.formID }

func (c *Controller) Projection() *Projection { return c.proj }

// State returns a copy of the current state.
func (c *Controller) State() State {
	s := c.state
	s.Rows = append([]types.DataRow(nil), c.state.Rows...)
	s.Filters = append([]types.Filter(nil), c.state.Filters...)
	s.Draft = c.state.Draft.Clone()
	s.EditDraft = c.state.EditDraft.Clone()
	s.MissingFields = append([]string(nil), c.state.MissingFields...)
	return s
}

func (c *Controller) IsAdding() bool { return c.state.Adding }

func (c *Controller) EditingRow() int { return c.state.EditingRow }

func (c *Controller) Filters() []types.Filter {
	return append([]types.Filter(nil), c.state.Filters...)
}

func (c *Controller) projectOptions() ProjectOptions {
	return ProjectOptions{StylesColumn: c.stylesColumn, Logger: c.log}
}

// fail records err as the last error and returns it.
func (c *Controller) fail(err error) error {
	c.state.LastError = err
	return err
}

// Load fetches the first page, applying filters while filtered mode is active.
func (c *Controller) Load(ctx context.Context) error {
	return c.Reload(ctx)
}

// Reload replaces the snapshot wholesale with the first page.
func (c *Controller) Reload(ctx context.Context) error {
	var filters []types.Filter
	if c.state.Filtered {
		filters = c.state.Filters
	}
	resp, err := c.gw.FetchMain(ctx, c.formID, 1, c.pageSize, filters)
	if err != nil {
		return c.fail(fmt.Errorf("failed to load form %d: %w", c.formID, err))
	}

	c.state.Columns = resp.Columns
	c.state.Rows = resp.Data
	c.state.Page = resp.DisplayedWidget.Page
	if c.state.Page == 0 {
		c.state.Page = 1
	}
	c.state.TotalPages = resp.DisplayedWidget.Total
	c.proj = Project(resp.Columns, c.projectOptions())
	c.options = make(map[int][]types.ComboboxOption)
	c.resolveSelection()
	c.resolveEditing()
	c.state.LastError = nil

	c.log.Debug().
		Int("form_id", c.formID).
		Int("rows", len(resp.Data)).
		Bool("filtered", c.state.Filtered).
		Msg("reloaded")
	return nil
}

// LoadMore appends the next page; it is a no-op on the last page.
func (c *Controller) LoadMore(ctx context.Context) (bool, error) {
	if c.state.Page >= c.state.TotalPages {
		return false, nil
	}
	var filters []types.Filter
	if c.state.Filtered {
		filters = c.state.Filters
	}
	resp, err := c.gw.FetchMain(ctx, c.formID, c.state.Page+1, c.pageSize, filters)
	if err != nil {
		return false, c.fail(fmt.Errorf("failed to load page %d: %w", c.state.Page+1, err))
	}
	c.state.Rows = append(c.state.Rows, resp.Data...)
	c.state.Page++
	if resp.DisplayedWidget.Total > 0 {
		c.state.TotalPages = resp.DisplayedWidget.Total
	}
	return true, nil
}

// LoadAll keeps loading pages until the last one.
func (c *Controller) LoadAll(ctx context.Context) error {
	for {
		more, err := c.LoadMore(ctx)
		if err != nil || !more {
			return err
		}
	}
}

// ApplyFilters replaces the Active Filter Set and reloads.
func (c *Controller) ApplyFilters(ctx context.Context, filters []types.Filter) error {
	if len(filters) == 0 {
		return c.ClearFilters(ctx)
	}
	c.state.Filters = append([]types.Filter(nil), filters...)
	c.state.Filtered = true
	return c.Reload(ctx)
}

// ClearFilters drops every filter and reloads unfiltered.
func (c *Controller) ClearFilters(ctx context.Context) error {
	c.state.Filters = nil
	c.state.Filtered = false
	return c.Reload(ctx)
}

func (c *Controller) resolveChain(ctx context.Context) (*chain, error) {
	if c.chain != nil {
		return c.chain, nil
	}
	form, err := c.gw.Form(ctx, c.formID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve form %d: %w", c.formID, err)
	}
	widget, err := c.gw.Widget(ctx, form.MainWidgetID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve widget %d: %w", form.MainWidgetID, err)
	}
	c.chain = &chain{form: form, widgetID: widget.WidgetID, tableID: widget.TableID}
	if c.chain.widgetID == 0 {
		c.chain.widgetID = form.MainWidgetID
	}
	return c.chain, nil
}

// preflight checks that the table has the query the operation needs.
func (c *Controller) preflight(ctx context.Context, op string) (*chain, error) {
	ch, err := c.resolveChain(ctx)
	if err != nil {
		return nil, err
	}
	q, err := c.gw.TableQueries(ctx, ch.tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to check %s capability: %w", op, err)
	}
	var query string
	switch op {
	case "insert":
		query = q.InsertQuery
	case "update":
		query = q.UpdateQuery
	case "delete":
		query = q.DeleteQuery
	}
	if strings.TrimSpace(query) == "" {
		return nil, apperrors.New(apperrors.ErrClassConfig, op, fmt.Sprintf("%s query is not configured for table %d", op, ch.tableID))
	}
	return ch, nil
}

func (c *Controller) clearValidation() {
	c.state.MissingFields = nil
	c.state.ShowValidationErrors = false
}

// StartAdd enters add mode with a draft seeded from defaults and active filters.
func (c *Controller) StartAdd(ctx context.Context) error {
	if _, err := c.preflight(ctx, "insert"); err != nil {
		return c.fail(err)
	}

	c.closeEdit()

	draft := Draft{}
	for _, col := range c.proj.Writable() {
		draft[*col.WriteID] = DefaultDraftValue(col)
	}
	auto := map[int]bool{}
	for _, f := range c.state.Filters {
		if _, ok := c.proj.ByWriteID(f.TableColumnID); ok {
			draft[f.TableColumnID] = f.Value
			auto[f.TableColumnID] = true
		}
	}

	c.state.Adding = true
	c.state.Draft = draft
	c.state.AutoFilled = auto
	c.clearValidation()
	c.state.LastError = nil
	return nil
}

// SetDraft sets one add-draft value.
func (c *Controller) SetDraft(tableColumnID int, value string) error {
	if !c.state.Adding {
		return fmt.Errorf("not in add mode")
	}
	c.state.Draft[tableColumnID] = value
	delete(c.state.AutoFilled, tableColumnID)
	return nil
}

func (c *Controller) CancelAdd() {
	c.state.Adding = false
	c.state.Draft = nil
	c.state.AutoFilled = nil
	c.clearValidation()
}

// SubmitAdd validates and inserts the add draft, then reconciles the view.
func (c *Controller) SubmitAdd(ctx context.Context) error {
	if !c.state.Adding {
		return c.fail(fmt.Errorf("not in add mode"))
	}

	if missing := MissingRequired(c.proj, c.state.Draft, nil); len(missing) > 0 {
		c.state.MissingFields = missing
		c.state.ShowValidationErrors = true
		return c.fail(apperrors.Validation("insert", missing))
	}
	c.clearValidation()

	ch, err := c.resolveChain(ctx)
	if err != nil {
		return c.fail(err)
	}

	req := types.MutationRequest{
		PK:     types.PK{PrimaryKeys: types.PrimaryKeys{}},
		Values: BuildValues(c.proj, c.state.Draft),
	}
	if err := c.gw.Insert(ctx, c.formID, ch.widgetID, req); err != nil {
		if apperrors.Is(err, apperrors.ErrClassValidation) {
			c.state.ShowValidationErrors = true
		}
		return c.fail(fmt.Errorf("failed to insert row: %w", err))
	}

	draft := c.state.Draft
	c.CancelAdd()

	err = c.reconcileAfterInsert(ctx, draft)
	c.refreshTree(ctx)
	if err != nil {
		return c.fail(err)
	}
	return nil
}

// StartEdit enters edit mode for a row, seeding the draft from its displayed values.
func (c *Controller) StartEdit(ctx context.Context, rowIdx int) error {
	if rowIdx < 0 || rowIdx >= len(c.state.Rows) {
		return c.fail(fmt.Errorf("row %d out of range", rowIdx))
	}
	if _, err := c.preflight(ctx, "update"); err != nil {
		return c.fail(err)
	}

	row := c.state.Rows[rowIdx]
	draft := Draft{}
	for _, col := range c.proj.Writable() {
		if col.Combo != nil {
			// An unresolved combobox stays out of the draft so its value is not overwritten.
			if id, ok := c.resolveCombo(ctx, col, row); ok {
				draft[*col.WriteID] = id
			}
			continue
		}
		draft[*col.WriteID] = DecodeCell(col.Kind, col.Cell(row))
	}

	c.CancelAdd()
	c.state.EditingRow = rowIdx
	c.editingKey = row.PrimaryKeys
	c.state.EditDraft = draft
	c.state.StyleDraft = StyleDraft{}
	c.state.LastError = nil
	return nil
}

// resolveCombo maps the displayed labels of a combobox cell back to an option id.
func (c *Controller) resolveCombo(ctx context.Context, col Column, row types.DataRow) (string, bool) {
	tokens := col.Tokens(row)
	if len(tokens) == 0 {
		return "", true
	}
	opts, err := c.comboOptions(ctx, col)
	if err != nil {
		c.log.Warn().Err(err).Int("widget_column_id", col.WidgetColumnID).Msg("combobox options unavailable")
		return "", false
	}
	id, ok := ResolveOption(tokens, opts)
	if !ok {
		c.log.Debug().Int("widget_column_id", col.WidgetColumnID).Strs("labels", tokens).Msg("combobox value not among options")
	}
	return id, ok
}

// ComboOptions returns the options of a combobox column. Options are cached until the next reload.
func (c *Controller) ComboOptions(ctx context.Context, col Column) ([]types.ComboboxOption, error) {
	return c.comboOptions(ctx, col)
}

func (c *Controller) comboOptions(ctx context.Context, col Column) ([]types.ComboboxOption, error) {
	if opts, ok := c.options[col.WidgetColumnID]; ok {
		return opts, nil
	}
	if col.WriteID == nil {
		return nil, fmt.Errorf("combobox %d has no write target", col.WidgetColumnID)
	}
	opts, err := c.gw.FetchCombobox(ctx, c.formID, col.WidgetColumnID, *col.WriteID)
	if err != nil {
		return nil, err
	}
	c.options[col.WidgetColumnID] = opts
	return opts, nil
}

// SetEditDraft sets one edit-draft value.
func (c *Controller) SetEditDraft(tableColumnID int, value string) error {
	if c.state.EditingRow < 0 {
		return fmt.Errorf("not in edit mode")
	}
	c.state.EditDraft[tableColumnID] = value
	return nil
}

// SetStyle records a per-cell style override for the row being edited.
func (c *Controller) SetStyle(column, property string, value *string) error {
	if c.state.EditingRow < 0 {
		return fmt.Errorf("not in edit mode")
	}
	return c.state.StyleDraft.Set(column, property, value)
}

func (c *Controller) closeEdit() {
	c.state.EditingRow = -1
	c.editingKey = nil
	c.state.EditDraft = nil
	c.state.StyleDraft = nil
	c.clearValidation()
}

func (c *Controller) CancelEdit() {
	c.closeEdit()
}

// SubmitEdit validates and updates the edited row, then reloads with filters retained.
func (c *Controller) SubmitEdit(ctx context.Context) error {
	idx := c.state.EditingRow
	if idx < 0 || idx >= len(c.state.Rows) || c.editingKey == nil {
		return c.fail(fmt.Errorf("not in edit mode"))
	}
	row := c.state.Rows[idx]
	if !samePK(c.editingKey.Stringified(), row.PrimaryKeys.Stringified()) {
		c.closeEdit()
		return c.fail(fmt.Errorf("edited row is no longer loaded"))
	}

	if missing := MissingRequired(c.proj, c.state.EditDraft, &row); len(missing) > 0 {
		c.state.MissingFields = missing
		c.state.ShowValidationErrors = true
		return c.fail(apperrors.Validation("update", missing))
	}
	c.clearValidation()

	values := BuildValues(c.proj, c.state.EditDraft)
	if styles := c.proj.Styles; styles != nil && c.stylesColumn != "" && styles.WriteID != nil && len(c.state.StyleDraft) > 0 {
		blob, err := MergeStyles(styles.Cell(row), c.state.StyleDraft)
		if err != nil {
			return c.fail(err)
		}
		values = append(values, types.ValueEntry{TableColumnID: *styles.WriteID, Value: types.StrPtr(blob)})
	}

	ch, err := c.resolveChain(ctx)
	if err != nil {
		return c.fail(err)
	}

	req := types.MutationRequest{
		PK:     types.PK{PrimaryKeys: row.PrimaryKeys.Stringified()},
		Values: values,
	}
	if err := c.gw.Update(ctx, c.formID, ch.widgetID, req); err != nil {
		if apperrors.Is(err, apperrors.ErrClassValidation) {
			c.state.ShowValidationErrors = true
		}
		return c.fail(fmt.Errorf("failed to update row: %w", err))
	}

	c.closeEdit()
	err = c.Reload(ctx)
	c.refreshTree(ctx)
	return err
}

// DeleteRow deletes a row by its primary keys and reloads with filters retained.
func (c *Controller) DeleteRow(ctx context.Context, rowIdx int) error {
	if rowIdx < 0 || rowIdx >= len(c.state.Rows) {
		return c.fail(fmt.Errorf("row %d out of range", rowIdx))
	}
	ch, err := c.preflight(ctx, "delete")
	if err != nil {
		return c.fail(err)
	}

	row := c.state.Rows[rowIdx]
	if err := c.gw.Delete(ctx, c.formID, ch.widgetID, row.PrimaryKeys); err != nil {
		return c.fail(fmt.Errorf("failed to delete row: %w", err))
	}

	if c.state.SelectedRow == rowIdx {
		c.state.SelectedRow = -1
		c.state.Sub = nil
		c.selectedKey = nil
	}
	return c.Reload(ctx)
}

// SelectRow marks a main row as selected and loads its first detail grid.
func (c *Controller) SelectRow(ctx context.Context, rowIdx int) error {
	if rowIdx < 0 || rowIdx >= len(c.state.Rows) {
		return c.fail(fmt.Errorf("row %d out of range", rowIdx))
	}
	row := c.state.Rows[rowIdx]
	c.state.SelectedRow = rowIdx
	c.selectedKey = row.PrimaryKeys
	c.state.Sub = nil

	ch, err := c.resolveChain(ctx)
	if err != nil {
		return c.fail(err)
	}
	if len(ch.form.SubWidgets) == 0 {
		return nil
	}
	sub, err := c.gw.FetchSub(ctx, c.formID, ch.form.SubWidgets[0].WidgetID, row.PrimaryKeys, 1, c.pageSize)
	if err != nil {
		return c.fail(fmt.Errorf("failed to load detail grid: %w", err))
	}
	c.state.Sub = sub
	return nil
}

// resolveSelection keeps the selection on the same record across reloads.
func (c *Controller) resolveSelection() {
	if c.selectedKey == nil {
		c.state.SelectedRow = -1
		return
	}
	want := c.selectedKey.Stringified()
	for i, r := range c.state.Rows {
		if samePK(want, r.PrimaryKeys.Stringified()) {
			c.state.SelectedRow = i
			return
		}
	}
	c.state.SelectedRow = -1
	c.state.Sub = nil
	c.selectedKey = nil
}

// resolveEditing keeps edit mode on the same record across reloads and leaves it
// when the record is no longer loaded.
func (c *Controller) resolveEditing() {
	if c.editingKey == nil {
		return
	}
	want := c.editingKey.Stringified()
	for i, r := range c.state.Rows {
		if samePK(want, r.PrimaryKeys.Stringified()) {
			c.state.EditingRow = i
			return
		}
	}
	c.log.Debug().Interface("primary_keys", c.editingKey).Msg("edited row left the grid, closing edit")
	c.closeEdit()
}

func samePK(a, b types.PrimaryKeys) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

// DrillTarget returns the form a cell navigates to, if any.
func (c *Controller) DrillTarget(colIdx int) (int, bool) {
	if colIdx < 0 || colIdx >= len(c.proj.Columns) {
		return 0, false
	}
	col := c.proj.Columns[colIdx]
	if !col.Drillable() {
		return 0, false
	}
	return *col.FormID, true
}

func (c *Controller) refreshTree(ctx context.Context) {
	if c.tree == nil {
		return
	}
	if err := c.tree.RefreshRoot(ctx); err != nil {
		c.log.Debug().Err(err).Msg("tree refresh failed")
	}
}
