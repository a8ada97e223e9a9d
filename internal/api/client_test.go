package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/Rana718/Portal/internal/apperrors"
	"github.com/Rana718/Portal/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	query  string
	body   string
	auth   string
}

type recorder struct {
	mu    sync.Mutex
	calls []recorded
}

func (r *recorder) add(req *http.Request) {
	body, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recorded{
		method: req.Method,
		path:   req.URL.Path,
		query:  req.URL.RawQuery,
		body:   string(body),
		auth:   req.Header.Get("Authorization"),
	})
}

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		rec.add(req)
		h(w, req)
	}))
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL + "/", Token: "tok"}), rec
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestFetchMainSendsFiltersAndPaging(t *testing.T) {
	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{
			"displayed_widget": map[string]int{"page": 1, "total": 3},
			"columns":          []map[string]any{{"widget_column_id": 1, "table_column_id": 5, "column_name": "name"}},
			"data":             []map[string]any{{"primary_keys": map[string]any{"id": 1}, "values": []any{"a"}}},
		})
	})

	resp, err := c.FetchMain(context.Background(), 7, 1, 50, []types.Filter{{TableColumnID: 1, Value: "A"}})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.DisplayedWidget.Total)
	require.Len(t, resp.Data, 1)

	require.Len(t, rec.calls, 1)
	call := rec.calls[0]
	assert.Equal(t, http.MethodPost, call.method)
	assert.Equal(t, "/display/7/main", call.path)
	assert.Equal(t, "limit=50&page=1", call.query)
	assert.JSONEq(t, `[{"table_column_id":1,"value":"A"}]`, call.body)
	assert.Equal(t, "Bearer tok", call.auth)
}

func TestFetchMainUnfilteredSendsEmptyArray(t *testing.T) {
	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"displayed_widget": map[string]int{"page": 1, "total": 1}})
	})
	_, err := c.FetchMain(context.Background(), 7, 1, 10, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, rec.calls[0].body)
}

func TestMutationRetriesOnceWithTrailingSlash(t *testing.T) {
	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/data/7/3/" {
			writeJSON(w, 200, map[string]string{"status": "ok"})
			return
		}
		writeJSON(w, 404, map[string]string{"detail": "Not Found"})
	})

	err := c.Insert(context.Background(), 7, 3, types.MutationRequest{PK: types.PK{PrimaryKeys: types.PrimaryKeys{}}})
	require.NoError(t, err)
	require.Len(t, rec.calls, 2)
	assert.Equal(t, "/data/7/3", rec.calls[0].path)
	assert.Equal(t, "/data/7/3/", rec.calls[1].path)
	assert.Equal(t, rec.calls[0].body, rec.calls[1].body)
}

func TestMutationRetryFailsAsNotFound(t *testing.T) {
	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 404, map[string]string{"detail": "Not Found"})
	})

	err := c.Update(context.Background(), 7, 3, types.MutationRequest{})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrClassNotFound))
	assert.Len(t, rec.calls, 2)
}

func TestQueryNotFoundIsConfigErrorWithoutRetry(t *testing.T) {
	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 404, map[string]string{"detail": "Insert query not found for table 12"})
	})

	err := c.Insert(context.Background(), 7, 3, types.MutationRequest{})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrClassConfig))
	assert.Len(t, rec.calls, 1)
}

func TestMutationStatusClassification(t *testing.T) {
	tests := []struct {
		status int
		body   any
		class  apperrors.ErrorClass
	}{
		{403, map[string]string{"detail": "forbidden"}, apperrors.ErrClassPermission},
		{422, map[string]any{"detail": []map[string]string{{"msg": "value is not a valid integer"}}}, apperrors.ErrClassValidation},
		{500, map[string]string{"message": "boom"}, apperrors.ErrClassServer},
	}
	for _, tt := range tests {
		c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, tt.status, tt.body)
		})
		err := c.Delete(context.Background(), 1, 2, types.PrimaryKeys{"id": "4"})
		require.Error(t, err)
		assert.Equal(t, tt.class, apperrors.GetClass(err), "status %d", tt.status)
		assert.Equal(t, tt.status, apperrors.Status(err))
		assert.Len(t, rec.calls, 1)
	}
}

func TestValidationDetailKeepsStructuredBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 422, map[string]any{"detail": []map[string]string{{"msg": "bad"}}})
	})
	err := c.Insert(context.Background(), 1, 2, types.MutationRequest{})
	var ce *apperrors.ClassifiedError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Detail, "bad")
}

func TestDeleteSendsPrimaryKeysBody(t *testing.T) {
	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(204)
	})
	require.NoError(t, c.Delete(context.Background(), 1, 2, types.PrimaryKeys{"id": "4"}))
	assert.Equal(t, http.MethodDelete, rec.calls[0].method)
	assert.JSONEq(t, `{"primary_keys":{"id":"4"}}`, rec.calls[0].body)
}

func TestFetchTreeAcceptsObjectOrArray(t *testing.T) {
	single := true
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		level := map[string]any{"table_column_id": 4, "name": "Category", "values": []any{"a", "b"}, "display_values": []any{"A", "B"}}
		if single {
			writeJSON(w, 200, level)
			return
		}
		writeJSON(w, 200, []any{level, level})
	})

	levels, err := c.FetchTree(context.Background(), 7, nil)
	require.NoError(t, err)
	require.Len(t, levels, 1)
	assert.Equal(t, 4, levels[0].TableColumnID)

	single = false
	levels, err = c.FetchTree(context.Background(), 7, nil)
	require.NoError(t, err)
	assert.Len(t, levels, 2)
}

func TestReadEndpointsDoNotRetry(t *testing.T) {
	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 404, map[string]string{"detail": "Not Found"})
	})
	_, err := c.Form(context.Background(), 9)
	assert.True(t, apperrors.Is(err, apperrors.ErrClassNotFound))
	assert.Len(t, rec.calls, 1)
}

func TestUpdateReferenceSendsFullPatch(t *testing.T) {
	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]string{})
	})
	ref := types.Reference{TableColumnID: 11, WidgetColumnID: 2, Alias: "Name", Type: "text", Width: 120, Visible: true, RefColumnOrder: 1}
	require.NoError(t, c.UpdateReference(context.Background(), ref))
	assert.Equal(t, http.MethodPatch, rec.calls[0].method)
	assert.Equal(t, "/widgets/columns/2/references/11", rec.calls[0].path)
	assert.JSONEq(t, `{"ref_alias":"Name","type":"text","width":120,"visible":true,"readonly":false,"ref_column_order":1,"form_id":null}`, rec.calls[0].body)
}

func TestNetworkErrorIsClassified(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:1"})
	_, err := c.Widget(context.Background(), 1)
	assert.True(t, apperrors.Is(err, apperrors.ErrClassNetwork))
}
