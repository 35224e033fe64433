package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	rbIn        inputFlags
	rbQuiet     bool
	rbKeepGoing bool
)

var reportBatchCmd = &cobra.Command{
	Use:   "report-batch <files...>",
	Short: "Generate reports for many files with progress",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		d, err := newDashboard(&rbIn, !rpNoPDF)
		if err != nil {
			return err
		}
		applyProfileFlags(cmd, d)

		total := len(files)
		failed := 0
		for i, path := range files {
			if !rbQuiet {
				fmt.Printf("[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			st, err := openFile(d, path)
			if err == nil {
				st, err = d.GenerateReport(cmd.Context(), st)
			}
			if err != nil {
				if !rbKeepGoing {
					return fmt.Errorf("%s: %w", path, err)
				}
				failed++
				fmt.Printf("✗ %s: %v\n", filepath.Base(path), err)
				continue
			}
			if !rbQuiet {
				printNotices(st)
				printReportFiles(st)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, total)
		}
		if !rbQuiet {
			fmt.Printf("✓ Generated %d report(s)\n", total)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportBatchCmd)
	rbIn.register(reportBatchCmd)
	registerProfileFlags(reportBatchCmd)
	reportBatchCmd.Flags().BoolVar(&rbQuiet, "quiet", false, "suppress progress and non-essential output")
	reportBatchCmd.Flags().BoolVar(&rbKeepGoing, "keep-going", false, "continue with the next file after a failure")
}
