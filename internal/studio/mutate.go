package studio

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/Rana718/Portal/internal/apperrors"
	"github.com/Rana718/Portal/internal/types"
)

// queryNotFound is the error a table without the given statement answers with.
func queryNotFound(op, kind string, t *TableDef) error {
	return apperrors.New(apperrors.ErrClassConfig, op, fmt.Sprintf("%s query not found for table %s", kind, t.Name))
}

func (s *Service) mutationTarget(op string, formID, widgetID int) (*widgetState, error) {
	f, err := s.form(op, formID)
	if err != nil {
		return nil, err
	}
	owned := f.MainWidget == widgetID
	for _, sw := range f.SubWidgets {
		owned = owned || sw.Widget == widgetID
	}
	if !owned {
		return nil, notFound(op, "widget %d is not part of form %d", widgetID, formID)
	}
	return s.widget(op, widgetID)
}

// coerce converts a submitted string into the value stored for a column's datatype.
func coerce(col ColumnDef, raw *string) (any, error) {
	if raw == nil {
		return nil, nil
	}
	v := *raw
	switch strings.ToLower(col.Datatype) {
	case "boolean", "bool":
		if v == "" {
			return nil, nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a boolean", col.Name, v)
		}
		return b, nil
	case "integer", "int", "bigint":
		if v == "" {
			return nil, nil
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not an integer", col.Name, v)
		}
		return n, nil
	case "real", "float", "double", "numeric":
		if v == "" {
			return nil, nil
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a number", col.Name, v)
		}
		return n, nil
	}
	return v, nil
}

func (s *Service) values(op string, t *TableDef, entries []types.ValueEntry) (map[string]any, error) {
	out := make(map[string]any, len(entries))
	var problems []string
	for _, e := range entries {
		col, ok := s.cat.column(t, e.TableColumnID)
		if !ok {
			problems = append(problems, fmt.Sprintf("column %d is not part of table %s", e.TableColumnID, t.Name))
			continue
		}
		v, err := coerce(col, e.Value)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		out[col.Name] = v
	}
	if len(problems) > 0 {
		return nil, apperrors.New(apperrors.ErrClassValidation, op, strings.Join(problems, "; "))
	}
	return out, nil
}

func (s *Service) pkWhere(op string, t *TableDef, pk types.PrimaryKeys) (squirrel.And, error) {
	var and squirrel.And
	for _, name := range t.PrimaryKey {
		v, ok := pk[name]
		if !ok || v == nil {
			return nil, apperrors.New(apperrors.ErrClassValidation, op, fmt.Sprintf("missing primary key %s", name))
		}
		and = append(and, s.store.textEq(s.store.quote(name), types.FormatScalar(v)))
	}
	return and, nil
}

func (s *Service) quoted(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[s.store.quote(k)] = v
	}
	return out
}

// Insert adds a row built from the submitted values. Required columns that are
// missing or null are rejected unless the database generates them.
func (s *Service) Insert(ctx context.Context, formID, widgetID int, req types.MutationRequest) error {
	const op = "insert"
	w, err := s.mutationTarget(op, formID, widgetID)
	if err != nil {
		return err
	}
	if !w.table.Queries.Insert {
		return queryNotFound(op, "insert", w.table)
	}
	values, err := s.values(op, w.table, req.Values)
	if err != nil {
		return err
	}

	generated := ""
	if len(w.table.PrimaryKey) == 1 {
		if col, ok := w.table.columnByName(w.table.PrimaryKey[0]); ok && isIntegerType(col.Datatype) {
			generated = col.Name
		}
	}
	var missing []string
	for _, col := range w.table.Columns {
		if !col.Required || col.Name == generated {
			continue
		}
		if v, ok := values[col.Name]; !ok || v == nil || v == "" {
			missing = append(missing, col.Name)
		}
	}
	if len(missing) > 0 {
		return apperrors.New(apperrors.ErrClassValidation, op, "required fields are empty: "+strings.Join(missing, ", "))
	}
	if generated != "" && values[generated] == nil {
		delete(values, generated)
	}
	if len(values) == 0 {
		return apperrors.New(apperrors.ErrClassValidation, op, "no values to insert")
	}

	if _, err := s.store.exec(ctx, s.store.qb.Insert(s.store.quote(w.table.Name)).SetMap(s.quoted(values))); err != nil {
		return apperrors.Wrap(apperrors.ErrClassServer, op, err)
	}
	s.log.Debug().Str("table", w.table.Name).Int("widget_id", widgetID).Msg("row inserted")
	return nil
}

// Update writes the submitted values to the row named by the request's primary keys.
func (s *Service) Update(ctx context.Context, formID, widgetID int, req types.MutationRequest) error {
	const op = "update"
	w, err := s.mutationTarget(op, formID, widgetID)
	if err != nil {
		return err
	}
	if !w.table.Queries.Update {
		return queryNotFound(op, "update", w.table)
	}
	cond, err := s.pkWhere(op, w.table, req.PK.PrimaryKeys)
	if err != nil {
		return err
	}
	values, err := s.values(op, w.table, req.Values)
	if err != nil {
		return err
	}
	var blank []string
	for _, col := range w.table.Columns {
		if v, ok := values[col.Name]; ok && col.Required && (v == nil || v == "") {
			blank = append(blank, col.Name)
		}
	}
	if len(blank) > 0 {
		return apperrors.New(apperrors.ErrClassValidation, op, "required fields are empty: "+strings.Join(blank, ", "))
	}
	if len(values) == 0 {
		return nil
	}

	n, err := s.store.exec(ctx, s.store.qb.Update(s.store.quote(w.table.Name)).SetMap(s.quoted(values)).Where(cond))
	if err != nil {
		return apperrors.Wrap(apperrors.ErrClassServer, op, err)
	}
	if n == 0 {
		return notFound(op, "no %s row matches the given primary keys", w.table.Name)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, formID, widgetID int, pk types.PrimaryKeys) error {
	const op = "delete"
	w, err := s.mutationTarget(op, formID, widgetID)
	if err != nil {
		return err
	}
	if !w.table.Queries.Delete {
		return queryNotFound(op, "delete", w.table)
	}
	cond, err := s.pkWhere(op, w.table, pk)
	if err != nil {
		return err
	}
	n, err := s.store.exec(ctx, s.store.qb.Delete(s.store.quote(w.table.Name)).Where(cond))
	if err != nil {
		return apperrors.Wrap(apperrors.ErrClassServer, op, err)
	}
	if n == 0 {
		return notFound(op, "no %s row matches the given primary keys", w.table.Name)
	}
	return nil
}

// TableQueries renders the statements a table accepts as text. A statement the table
// does not accept is left empty.
func (s *Service) TableQueries(tableID int) (*types.TableQueries, error) {
	t, ok := s.cat.tables[tableID]
	if !ok {
		return nil, notFound("get table queries", "table %d not found", tableID)
	}
	out := &types.TableQueries{TableID: t.ID}

	cols := make([]string, 0, len(t.Columns))
	set := make(map[string]any, len(t.Columns))
	args := make([]any, 0, len(t.Columns))
	for _, c := range t.Columns {
		cols = append(cols, s.store.quote(c.Name))
		set[s.store.quote(c.Name)] = nil
		args = append(args, nil)
	}
	pk := squirrel.Eq{}
	for _, name := range t.PrimaryKey {
		pk[s.store.quote(name)] = ""
	}
	table := s.store.quote(t.Name)

	if t.Queries.Insert {
		out.InsertQuery, _, _ = s.store.qb.Insert(table).Columns(cols...).Values(args...).ToSql()
	}
	if t.Queries.Update {
		out.UpdateQuery, _, _ = s.store.qb.Update(table).SetMap(set).Where(pk).ToSql()
	}
	if t.Queries.Delete {
		out.DeleteQuery, _, _ = s.store.qb.Delete(table).Where(pk).ToSql()
	}
	return out, nil
}
