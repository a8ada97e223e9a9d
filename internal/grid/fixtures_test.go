package grid

import (
	"context"

	"github.com/Rana718/Portal/internal/types"
)

type fakeGateway struct {
	columns    []types.ColumnDescriptor
	rows       []types.DataRow
	totalPages int
	form       types.FormInfo
	queries    types.TableQueries
	options    []types.ComboboxOption

	insertErr error
	updateErr error
	deleteErr error

	fetches    [][]types.Filter
	pages      []int
	inserts    []types.MutationRequest
	updates    []types.MutationRequest
	deletes    []types.PrimaryKeys
	comboCalls int
	subCalls   int
}

func (f *fakeGateway) FetchMain(_ context.Context, _, page, _ int, filters []types.Filter) (*types.DisplayResponse, error) {
	f.fetches = append(f.fetches, append([]types.Filter(nil), filters...))
	f.pages = append(f.pages, page)
	total := f.totalPages
	if total == 0 {
		total = 1
	}
	return &types.DisplayResponse{
		DisplayedWidget: types.DisplayedWidget{Page: page, Total: total},
		Columns:         f.columns,
		Data:            append([]types.DataRow(nil), f.rows...),
	}, nil
}

func (f *fakeGateway) FetchSub(_ context.Context, _, _ int, _ types.PrimaryKeys, page, _ int) (*types.DisplayResponse, error) {
	f.subCalls++
	return &types.DisplayResponse{DisplayedWidget: types.DisplayedWidget{Page: page, Total: 1}}, nil
}

func (f *fakeGateway) FetchCombobox(context.Context, int, int, int) ([]types.ComboboxOption, error) {
	f.comboCalls++
	return f.options, nil
}

func (f *fakeGateway) Insert(_ context.Context, _, _ int, req types.MutationRequest) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserts = append(f.inserts, req)
	return nil
}

func (f *fakeGateway) Update(_ context.Context, _, _ int, req types.MutationRequest) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, req)
	return nil
}

func (f *fakeGateway) Delete(_ context.Context, _, _ int, pk types.PrimaryKeys) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletes = append(f.deletes, pk)
	return nil
}

func (f *fakeGateway) Form(_ context.Context, formID int) (*types.FormInfo, error) {
	form := f.form
	form.FormID = formID
	if form.MainWidgetID == 0 {
		form.MainWidgetID = 3
	}
	return &form, nil
}

func (f *fakeGateway) Widget(_ context.Context, widgetID int) (*types.WidgetInfo, error) {
	return &types.WidgetInfo{WidgetID: widgetID, TableID: 9}, nil
}

func (f *fakeGateway) TableQueries(_ context.Context, tableID int) (*types.TableQueries, error) {
	q := f.queries
	q.TableID = tableID
	return &q, nil
}

type fakeTree struct {
	refreshes int
	resets    int
}

func (t *fakeTree) RefreshRoot(context.Context) error {
	t.refreshes++
	return nil
}

func (t *fakeTree) ResetUI() { t.resets++ }

// Value layout: name, status name, status code, active, verified, styles.
func sampleColumns() []types.ColumnDescriptor {
	return []types.ColumnDescriptor{
		{WidgetColumnID: 1, TableColumnID: types.IntPtr(10), ColumnName: "name", Required: true},
		{WidgetColumnID: 2, TableColumnID: types.IntPtr(20), WriteTableColumnID: types.IntPtr(11), ColumnName: "status_name", Alias: "Status", Type: "combobox", Primary: true, FormID: types.IntPtr(4)},
		{WidgetColumnID: 2, TableColumnID: types.IntPtr(21), WriteTableColumnID: types.IntPtr(11), ColumnName: "status_code", Type: "combobox"},
		{WidgetColumnID: 3, TableColumnID: types.IntPtr(12), ColumnName: "active", Type: "checkbox"},
		{WidgetColumnID: 4, TableColumnID: types.IntPtr(13), ColumnName: "verified", Type: "checkboxNull"},
		{WidgetColumnID: 5, TableColumnID: types.IntPtr(14), ColumnName: "styles"},
	}
}

func sampleRows() []types.DataRow {
	return []types.DataRow{
		{PrimaryKeys: types.PrimaryKeys{"id": float64(7)}, Values: []any{"Alice", "Active", "A", true, nil, `{"name":{"color":"red"}}`}},
		{PrimaryKeys: types.PrimaryKeys{"id": float64(8)}, Values: []any{"Bob", "Inactive", "I", false, false, nil}},
	}
}

func allQueries() types.TableQueries {
	return types.TableQueries{
		InsertQuery: "insert into t values (...)",
		UpdateQuery: "update t set ...",
		DeleteQuery: "delete from t where ...",
	}
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		columns: sampleColumns(),
		rows:    sampleRows(),
		queries: allQueries(),
		options: []types.ComboboxOption{
			{ID: "1", Show: []string{"Inactive"}, Hidden: []string{"I"}},
			{ID: "2", Show: []string{"Active"}, Hidden: []string{"A"}},
		},
		form: types.FormInfo{SubWidgets: []types.SubWidget{{WidgetID: 30, Name: "lines"}}},
	}
}
