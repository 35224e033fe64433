package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/edadash/internal/clean"
	"github.com/KaramelBytes/edadash/internal/loader"
	"github.com/KaramelBytes/edadash/internal/session"
)

var (
	clIn          inputFlags
	clOutput      string
	clDrop        []string
	clFill        string
	clFillText    bool
	clDedupe      bool
	clPrintNotice bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean <file>",
	Short: "Drop columns, remove duplicates and fill missing values",
	Long: `Apply cleaning steps in order: drop columns, remove duplicate rows, then
handle missing values. The result is written as CSV or XLSX (by the --output
extension), or as CSV to stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var strategy clean.Strategy
		if clFill != "" {
			s, err := clean.ParseStrategy(clFill)
			if err != nil {
				return err
			}
			strategy = s
		}
		if clOutput != "" {
			if _, err := loader.FormatFromPath(clOutput); err != nil {
				return fmt.Errorf("--output: %w", err)
			}
		}
		d, err := newDashboard(&clIn, false)
		if err != nil {
			return err
		}
		st, err := openFile(d, args[0])
		if err != nil {
			return err
		}
		// CSV on stdout keeps stdout clean: -v notices move to stderr.
		report := func(st session.State) {
			switch {
			case !toStdout(clOutput):
				printNotices(st)
			case clPrintNotice:
				printNoticesTo(os.Stderr, st)
			}
		}
		report(st)
		if len(clDrop) > 0 {
			if st, err = d.DropColumns(st, clDrop); err != nil {
				return err
			}
			report(st)
		}
		if clDedupe {
			if st, err = d.DropDuplicates(st); err != nil {
				return err
			}
			report(st)
		}
		if strategy != "" {
			if st, err = d.FillMissing(st, strategy, clean.FillOptions{Categorical: clFillText}); err != nil {
				return err
			}
			report(st)
		}
		return exportState(d, st, clOutput)
	},
}

// exportState writes the state's dataset to path, or CSV to stdout.
func exportState(d *session.Dashboard, st session.State, path string) error {
	format := loader.FormatCSV
	if !toStdout(path) {
		f, err := loader.FormatFromPath(path)
		if err != nil {
			return err
		}
		format = f
	}
	b, _, err := d.Export(st, format)
	if err != nil {
		return err
	}
	if err := writeOutput(path, b); err != nil {
		return err
	}
	if !toStdout(path) {
		fmt.Printf("✓ Wrote %d rows × %d columns to %s\n", st.Data.Rows(), st.Data.Width(), path)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	clIn.register(cleanCmd)
	cleanCmd.Flags().StringVarP(&clOutput, "output", "o", "", "output file (.csv or .xlsx); CSV to stdout if omitted")
	cleanCmd.Flags().StringSliceVar(&clDrop, "drop", nil, "columns to drop (comma-separated, repeatable)")
	cleanCmd.Flags().StringVar(&clFill, "fill", "", "missing values: mean | median | mode | drop")
	cleanCmd.Flags().BoolVar(&clFillText, "fill-text", false, "with --fill mode, also fill text columns with their most frequent value")
	cleanCmd.Flags().BoolVar(&clDedupe, "dedupe", false, "remove duplicate rows")
	cleanCmd.Flags().BoolVarP(&clPrintNotice, "verbose", "v", false, "print step messages (to stderr when writing CSV to stdout)")
}
