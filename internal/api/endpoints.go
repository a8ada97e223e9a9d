package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Rana718/Portal/internal/types"
)

// FetchMain loads one page of the form's main widget, narrowed by filters.
func (c *Client) FetchMain(ctx context.Context, formID, page, limit int, filters []types.Filter) (*types.DisplayResponse, error) {
	if filters == nil {
		filters = []types.Filter{}
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("page", strconv.Itoa(page))

	var out types.DisplayResponse
	if err := c.call(ctx, "fetch main", http.MethodPost, fmt.Sprintf("/display/%d/main", formID), q, filters, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchSub loads a detail grid keyed by the selected main row's primary keys.
func (c *Client) FetchSub(ctx context.Context, formID, subWidgetID int, pk types.PrimaryKeys, page, limit int) (*types.DisplayResponse, error) {
	q := url.Values{}
	q.Set("sub_widget_id", strconv.Itoa(subWidgetID))
	q.Set("limit", strconv.Itoa(limit))
	q.Set("page", strconv.Itoa(page))

	var out types.DisplayResponse
	if err := c.call(ctx, "fetch sub", http.MethodPost, fmt.Sprintf("/display/%d/sub", formID), q, types.PK{PrimaryKeys: pk}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchTree loads the tree levels below the given filter chain.
func (c *Client) FetchTree(ctx context.Context, formID int, filters []types.Filter) ([]types.TreeLevel, error) {
	if filters == nil {
		filters = []types.Filter{}
	}
	var out types.TreeLevels
	if err := c.call(ctx, "fetch tree", http.MethodPost, fmt.Sprintf("/display/%d/tree", formID), nil, filters, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) FetchCombobox(ctx context.Context, formID, widgetColumnID, tableColumnID int) ([]types.ComboboxOption, error) {
	var out []types.ComboboxOption
	path := fmt.Sprintf("/display/%d/combobox/%d/%d", formID, widgetColumnID, tableColumnID)
	if err := c.call(ctx, "fetch combobox", http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Insert(ctx context.Context, formID, widgetID int, req types.MutationRequest) error {
	return c.mutate(ctx, "insert", http.MethodPost, dataPath(formID, widgetID), req, nil)
}

func (c *Client) Update(ctx context.Context, formID, widgetID int, req types.MutationRequest) error {
	return c.mutate(ctx, "update", http.MethodPatch, dataPath(formID, widgetID), req, nil)
}

func (c *Client) Delete(ctx context.Context, formID, widgetID int, pk types.PrimaryKeys) error {
	return c.mutate(ctx, "delete", http.MethodDelete, dataPath(formID, widgetID), types.PK{PrimaryKeys: pk}, nil)
}

func dataPath(formID, widgetID int) string {
	return fmt.Sprintf("/data/%d/%d", formID, widgetID)
}

func (c *Client) Form(ctx context.Context, formID int) (*types.FormInfo, error) {
	var out types.FormInfo
	if err := c.call(ctx, "get form", http.MethodGet, fmt.Sprintf("/forms/%d", formID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Widget(ctx context.Context, widgetID int) (*types.WidgetInfo, error) {
	var out types.WidgetInfo
	if err := c.call(ctx, "get widget", http.MethodGet, fmt.Sprintf("/widgets/%d", widgetID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TableQueries returns the insert/update/delete capability metadata of a table.
func (c *Client) TableQueries(ctx context.Context, tableID int) (*types.TableQueries, error) {
	var out types.TableQueries
	if err := c.call(ctx, "get table queries", http.MethodGet, fmt.Sprintf("/tables/%d/queries", tableID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) References(ctx context.Context, widgetID int) ([]types.ReferenceGroup, error) {
	var out []types.ReferenceGroup
	if err := c.call(ctx, "get references", http.MethodGet, fmt.Sprintf("/widgets/%d/references", widgetID), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateReference attaches a table column to a widget column at the given order.
func (c *Client) CreateReference(ctx context.Context, widgetColumnID, tableColumnID, order int) error {
	body := map[string]int{"ref_column_order": order}
	return c.mutate(ctx, "create reference", http.MethodPost, referencePath(widgetColumnID, tableColumnID), body, nil)
}

// UpdateReference sends the full state of a reference.
func (c *Client) UpdateReference(ctx context.Context, ref types.Reference) error {
	return c.mutate(ctx, "update reference", http.MethodPatch, referencePath(ref.WidgetColumnID, ref.TableColumnID), ref.Patch(), nil)
}

func referencePath(widgetColumnID, tableColumnID int) string {
	return fmt.Sprintf("/widgets/columns/%d/references/%d", widgetColumnID, tableColumnID)
}
