package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Rana718/Portal/internal/refsync"
	"github.com/Rana718/Portal/internal/render"
	"github.com/Rana718/Portal/internal/types"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var refsCmd = &cobra.Command{
	Use:   "refs",
	Short: "Inspect and reorder the column references of a widget",
}

var refsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the reference groups of a widget",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sync, err := syncFromFlags(cmd)
		if err != nil {
			return reportError(cmd.ErrOrStderr(), err)
		}
		return render.References(cmd.OutOrStdout(), sync.Groups())
	},
}

var refsMoveCmd = &cobra.Command{
	Use:   "move",
	Short: "Move a reference within or between groups",
	Long: `
Move the reference at position idx of one group to position idx of another and
write the new ordering back. Positions start at 0.

Examples:
  portal refs move --widget 10 --from 1:0 --to 1:2
  portal refs move --widget 10 --from 1:0 --to 3:0`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		srcGroup, srcIdx, err := parseSlot(from)
		if err != nil {
			return err
		}
		dstGroup, dstIdx, err := parseSlot(to)
		if err != nil {
			return err
		}

		sync, err := syncFromFlags(cmd)
		if err != nil {
			return reportError(cmd.ErrOrStderr(), err)
		}
		if !sync.Move(srcGroup, srcIdx, dstGroup, dstIdx) {
			return fmt.Errorf("cannot move %s to %s: unknown slot or the column is already in group %d", from, to, dstGroup)
		}
		if err := sync.Flush(cmd.Context()); err != nil {
			return reportError(cmd.ErrOrStderr(), err)
		}

		color.Green("✅ Reference moved")
		return render.References(cmd.OutOrStdout(), sync.Groups())
	},
}

var refsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change the settings of one reference",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		group, _ := cmd.Flags().GetInt("column")
		tc, _ := cmd.Flags().GetInt("ref")

		sync, err := syncFromFlags(cmd)
		if err != nil {
			return reportError(cmd.ErrOrStderr(), err)
		}

		flags := cmd.Flags()
		err = sync.Update(cmd.Context(), group, tc, func(r *types.Reference) {
			if flags.Changed("width") {
				r.Width, _ = flags.GetInt("width")
			}
			if flags.Changed("visible") {
				r.Visible, _ = flags.GetBool("visible")
			}
			if flags.Changed("readonly") {
				r.ReadOnly, _ = flags.GetBool("readonly")
			}
			if flags.Changed("alias") {
				r.Alias, _ = flags.GetString("alias")
			}
		})
		if err != nil {
			return reportError(cmd.ErrOrStderr(), err)
		}

		color.Green("✅ Reference %d updated", tc)
		return render.References(cmd.OutOrStdout(), sync.Groups())
	},
}

// parseSlot reads group:index.
func parseSlot(s string) (int, int, error) {
	g, i, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid slot %q, expected <widget_column_id>:<index>", s)
	}
	group, err := strconv.Atoi(g)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid group in %q", s)
	}
	idx, err := strconv.Atoi(i)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid index in %q", s)
	}
	return group, idx, nil
}

func syncFromFlags(cmd *cobra.Command) (*refsync.Synchronizer, error) {
	cfg, err := clientConfig()
	if err != nil {
		return nil, err
	}
	widgetID, _ := cmd.Flags().GetInt("widget")
	sync := refsync.New(newClient(cfg), refsync.WithDebounce(cfg.Sync.Debounce))
	if err := sync.Load(cmd.Context(), widgetID); err != nil {
		return nil, err
	}
	return sync, nil
}

func init() {
	rootCmd.AddCommand(refsCmd)
	refsCmd.AddCommand(refsListCmd, refsMoveCmd, refsSetCmd)

	for _, c := range []*cobra.Command{refsListCmd, refsMoveCmd, refsSetCmd} {
		c.Flags().Int("widget", 0, "Widget id")
		c.MarkFlagRequired("widget")
	}

	refsMoveCmd.Flags().String("from", "", "Source slot as <widget_column_id>:<index>")
	refsMoveCmd.Flags().String("to", "", "Destination slot as <widget_column_id>:<index>")
	refsMoveCmd.MarkFlagRequired("from")
	refsMoveCmd.MarkFlagRequired("to")

	refsSetCmd.Flags().Int("column", 0, "Widget column id of the group")
	refsSetCmd.Flags().Int("ref", 0, "Table column id of the reference")
	refsSetCmd.MarkFlagRequired("column")
	refsSetCmd.MarkFlagRequired("ref")
	refsSetCmd.Flags().Int("width", 0, "Column width")
	refsSetCmd.Flags().Bool("visible", true, "Show the column")
	refsSetCmd.Flags().Bool("readonly", false, "Make the column read-only")
	refsSetCmd.Flags().String("alias", "", "Column alias")
}
