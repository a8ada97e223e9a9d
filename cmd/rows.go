package cmd

import (
	"context"
	"fmt"

	"github.com/Rana718/Portal/internal/grid"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var rowsCmd = &cobra.Command{
	Use:   "rows",
	Short: "List, add, edit and delete rows of a form's main grid",
}

var rowsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the main grid of a form",
	Long: `
Print the main grid of a form, one page at a time or every page with --all.

Examples:
  portal rows list --form 3
  portal rows list --form 3 --filter 12=North --all -o yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := gridFromFlags(ctx, cmd)
		if err != nil {
			return reportError(cmd.ErrOrStderr(), err)
		}

		all, _ := cmd.Flags().GetBool("all")
		if all {
			if err := c.LoadAll(ctx); err != nil {
				return reportError(cmd.ErrOrStderr(), err)
			}
		}

		output, _ := cmd.Flags().GetString("output")
		return printRows(cmd.OutOrStdout(), output, c)
	},
}

var rowsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Insert a row into a form's main grid",
	Long: `
Insert a row. Filters given with --filter are applied first and pre-fill the
matching columns of the new row, the same way an active filter does in the grid.
Combobox columns take the option id.

Examples:
  portal rows add --form 3 --set 10="Ada Lovelace" --set 11=2
  portal rows add --form 3 --filter 12=North --set 10=Grace`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := gridFromFlags(ctx, cmd)
		if err != nil {
			return reportError(cmd.ErrOrStderr(), err)
		}

		raw, _ := cmd.Flags().GetStringArray("set")
		values, err := parseAssignments(raw)
		if err != nil {
			return err
		}

		if err := c.StartAdd(ctx); err != nil {
			return reportError(cmd.ErrOrStderr(), err)
		}
		for id, v := range values {
			if _, ok := c.Projection().ByWriteID(id); !ok {
				return fmt.Errorf("column %d is not writable in form %d", id, c.FormID())
			}
			if err := c.SetDraft(id, v); err != nil {
				return err
			}
		}
		if err := c.SubmitAdd(ctx); err != nil {
			return reportError(cmd.ErrOrStderr(), err)
		}

		color.Green("✅ Row added")
		output, _ := cmd.Flags().GetString("output")
		return printRows(cmd.OutOrStdout(), output, c)
	},
}

var rowsEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Update a row of a form's main grid",
	Long: `
Update the row at the given index of the loaded page. Columns not named with
--set keep their current values. Cell styles are merged into the styles column
configured in grid.styles_column; an empty value removes the property.

Examples:
  portal rows edit --form 3 --row 0 --set 10="Ada King"
  portal rows edit --form 3 --row 2 --style name:color=red --style name:background=`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := gridFromFlags(ctx, cmd)
		if err != nil {
			return reportError(cmd.ErrOrStderr(), err)
		}

		row, _ := cmd.Flags().GetInt("row")
		rawSet, _ := cmd.Flags().GetStringArray("set")
		values, err := parseAssignments(rawSet)
		if err != nil {
			return err
		}
		rawStyles, _ := cmd.Flags().GetStringArray("style")
		styles, err := parseStyles(rawStyles)
		if err != nil {
			return err
		}

		if err := c.StartEdit(ctx, row); err != nil {
			return reportError(cmd.ErrOrStderr(), err)
		}
		for id, v := range values {
			if _, ok := c.Projection().ByWriteID(id); !ok {
				return fmt.Errorf("column %d is not writable in form %d", id, c.FormID())
			}
			if err := c.SetEditDraft(id, v); err != nil {
				return err
			}
		}
		for _, s := range styles {
			var value *string
			if s[2] != "" {
				v := s[2]
				value = &v
			}
			if err := c.SetStyle(s[0], s[1], value); err != nil {
				return err
			}
		}
		if err := c.SubmitEdit(ctx); err != nil {
			return reportError(cmd.ErrOrStderr(), err)
		}

		color.Green("✅ Row %d updated", row)
		output, _ := cmd.Flags().GetString("output")
		return printRows(cmd.OutOrStdout(), output, c)
	},
}

var rowsDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a row of a form's main grid",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := gridFromFlags(ctx, cmd)
		if err != nil {
			return reportError(cmd.ErrOrStderr(), err)
		}

		row, _ := cmd.Flags().GetInt("row")
		rows := c.State().Rows
		if row < 0 || row >= len(rows) {
			return fmt.Errorf("row %d out of range, %d rows loaded", row, len(rows))
		}
		if !confirm(cmd, fmt.Sprintf("Delete row %d (%v)?", row, rows[row].PrimaryKeys)) {
			color.Yellow("Cancelled")
			return nil
		}

		if err := c.DeleteRow(ctx, row); err != nil {
			return reportError(cmd.ErrOrStderr(), err)
		}

		color.Green("✅ Row %d deleted", row)
		output, _ := cmd.Flags().GetString("output")
		return printRows(cmd.OutOrStdout(), output, c)
	},
}

// gridFromFlags builds a controller for --form and loads it with --filter applied.
func gridFromFlags(ctx context.Context, cmd *cobra.Command) (*grid.Controller, error) {
	cfg, err := clientConfig()
	if err != nil {
		return nil, err
	}
	if size, _ := cmd.Flags().GetInt("page-size"); size > 0 {
		cfg.Grid.PageSize = size
	}
	formID, _ := cmd.Flags().GetInt("form")
	rawFilters, _ := cmd.Flags().GetStringArray("filter")
	filters, err := parseFilters(rawFilters)
	if err != nil {
		return nil, err
	}

	c := newController(cfg, newClient(cfg), formID)
	if err := openGrid(ctx, c, filters); err != nil {
		return nil, err
	}
	return c, nil
}

func init() {
	rootCmd.AddCommand(rowsCmd)
	rowsCmd.AddCommand(rowsListCmd, rowsAddCmd, rowsEditCmd, rowsDeleteCmd)

	for _, c := range []*cobra.Command{rowsListCmd, rowsAddCmd, rowsEditCmd, rowsDeleteCmd} {
		c.Flags().Int("form", 0, "Form id")
		c.MarkFlagRequired("form")
		c.Flags().StringArray("filter", nil, "Filter as <table_column_id>=<value> (repeatable)")
		c.Flags().Int("page-size", 0, "Rows per page (overrides grid.page_size)")
		c.Flags().StringP("output", "o", "table", "Output format: table, yaml or json")
	}

	rowsListCmd.Flags().Bool("all", false, "Load every page")

	rowsAddCmd.Flags().StringArray("set", nil, "Value as <table_column_id>=<value> (repeatable)")

	rowsEditCmd.Flags().Int("row", -1, "Row index in the loaded page")
	rowsEditCmd.MarkFlagRequired("row")
	rowsEditCmd.Flags().StringArray("set", nil, "Value as <table_column_id>=<value> (repeatable)")
	rowsEditCmd.Flags().StringArray("style", nil, "Cell style as <column>:<property>=<value> (repeatable)")

	rowsDeleteCmd.Flags().Int("row", -1, "Row index in the loaded page")
	rowsDeleteCmd.MarkFlagRequired("row")
}
