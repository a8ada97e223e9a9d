package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Rana718/Portal/internal/api"
	"github.com/Rana718/Portal/internal/apperrors"
	"github.com/Rana718/Portal/internal/config"
	"github.com/Rana718/Portal/internal/grid"
	"github.com/Rana718/Portal/internal/render"
	"github.com/Rana718/Portal/internal/tree"
	"github.com/Rana718/Portal/internal/types"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// clientConfig loads and validates the settings needed to talk to a backend.
func clientConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ValidateClient(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newClient(cfg *config.Config) *api.Client {
	return api.New(api.Config{
		BaseURL:   cfg.API.BaseURL,
		Token:     cfg.Token(),
		Timeout:   cfg.API.Timeout,
		RateLimit: cfg.API.RateLimit,
		RateBurst: cfg.API.RateBurst,
	})
}

func newController(cfg *config.Config, client *api.Client, formID int) *grid.Controller {
	return grid.New(client, formID,
		grid.WithPageSize(cfg.Grid.PageSize),
		grid.WithStylesColumn(cfg.Grid.StylesColumn),
	)
}

// openGrid loads the first page of a form, narrowed by filters when given.
func openGrid(ctx context.Context, c *grid.Controller, filters []types.Filter) error {
	if len(filters) > 0 {
		return c.ApplyFilters(ctx, filters)
	}
	return c.Load(ctx)
}

// parseFilters reads repeated tc=value flags.
func parseFilters(raw []string) ([]types.Filter, error) {
	filters := make([]types.Filter, 0, len(raw))
	for _, s := range raw {
		f, ok := tree.ParseSegment(s)
		if !ok {
			return nil, fmt.Errorf("invalid filter %q, expected <table_column_id>=<value>", s)
		}
		filters = append(filters, f)
	}
	return filters, nil
}

// parseAssignments reads repeated tc=value flags into draft assignments.
func parseAssignments(raw []string) (map[int]string, error) {
	out := make(map[int]string, len(raw))
	for _, s := range raw {
		key, value, ok := strings.Cut(s, "=")
		if !ok {
			return nil, fmt.Errorf("invalid assignment %q, expected <table_column_id>=<value>", s)
		}
		id, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			return nil, fmt.Errorf("invalid column id in %q", s)
		}
		out[id] = value
	}
	return out, nil
}

// parseStyles reads column:property=value flags. An empty value clears the property.
func parseStyles(raw []string) ([][3]string, error) {
	out := make([][3]string, 0, len(raw))
	for _, s := range raw {
		column, rest, ok := strings.Cut(s, ":")
		if !ok {
			return nil, fmt.Errorf("invalid style %q, expected <column>:<property>=<value>", s)
		}
		property, value, ok := strings.Cut(rest, "=")
		if !ok || column == "" || property == "" {
			return nil, fmt.Errorf("invalid style %q, expected <column>:<property>=<value>", s)
		}
		out = append(out, [3]string{column, property, value})
	}
	return out, nil
}

func confirm(cmd *cobra.Command, prompt string) bool {
	if force, _ := cmd.Flags().GetBool("force"); force {
		return true
	}
	color.Yellow("%s [y/N]: ", prompt)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// reportError prints a classified error in a form the user can act on.
func reportError(w io.Writer, err error) error {
	if err == nil {
		return nil
	}
	var ce *apperrors.ClassifiedError
	if errors.As(err, &ce) && ce.Class == apperrors.ErrClassValidation && len(ce.Fields) > 0 {
		render.Validation(w, ce.Fields)
		return reportedError{err}
	}
	color.New(color.FgRed).Fprintf(w, "❌ %s\n", apperrors.UserMessage(err))
	return reportedError{err}
}

// reportedError marks an error already printed for the user.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

// Reported reports whether err was already printed by a command.
func Reported(err error) bool {
	var r reportedError
	return errors.As(err, &r)
}

// printRows writes the grid in the requested output format.
func printRows(w io.Writer, format string, c *grid.Controller) error {
	state := c.State()
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rowsDocument(c.Projection(), state.Rows))
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(rowsDocument(c.Projection(), state.Rows))
	case "", "table":
		if err := render.Grid(w, c.Projection(), state.Rows, render.GridOptions{
			Selected:   state.SelectedRow,
			Editing:    state.EditingRow,
			RowNumbers: true,
		}); err != nil {
			return err
		}
		fmt.Fprintf(w, "page %d of %d, %d rows loaded\n", state.Page, state.TotalPages, len(state.Rows))
		return nil
	}
	return fmt.Errorf("unknown output format %q (table, yaml, json)", format)
}

type rowDoc struct {
	PrimaryKeys types.PrimaryKeys `json:"primary_keys" yaml:"primary_keys"`
	Values      map[string]string `json:"values" yaml:"values"`
}

func rowsDocument(p *grid.Projection, rows []types.DataRow) []rowDoc {
	out := make([]rowDoc, 0, len(rows))
	for _, row := range rows {
		doc := rowDoc{PrimaryKeys: row.PrimaryKeys, Values: map[string]string{}}
		for _, col := range p.Columns {
			doc.Values[col.Label] = render.CellText(col, row)
		}
		out = append(out, doc)
	}
	return out
}
