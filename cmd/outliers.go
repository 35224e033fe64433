package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/edadash/internal/dataset"
	"github.com/KaramelBytes/edadash/internal/outlier"
)

var (
	olIn     inputFlags
	olColumn string
	olPolicy string
	olK      float64
	olOutput string
)

var outliersCmd = &cobra.Command{
	Use:   "outliers <file>",
	Short: "Detect and handle IQR outliers",
	Long: `Without --column, list the IQR fences and outlier counts of every numeric
column. With --column, apply --policy (none, cap or remove) to that column and
write the result with --output.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		policy, err := outlier.ParsePolicy(olPolicy)
		if err != nil {
			return err
		}
		if olK <= 0 {
			return fmt.Errorf("--iqr-k must be positive")
		}
		d, err := newDashboard(&olIn, false)
		if err != nil {
			return err
		}
		d.IQRK = olK
		st, err := openFile(d, args[0])
		if err != nil {
			return err
		}
		if olColumn == "" {
			if len(st.Data.NumericColumns()) == 0 {
				fmt.Printf("• %s\n", dataset.ErrNoNumericColumns)
				return nil
			}
			fmt.Print(outlierTable(outlier.Scan(st.Data, olK)))
			return nil
		}
		st, err = d.HandleOutliers(st, olColumn, policy)
		if err != nil {
			if dataset.IsInfo(err) {
				printNotices(st)
				return nil
			}
			return err
		}
		if policy == outlier.PolicyNone {
			printNotices(st)
			return nil
		}
		if toStdout(olOutput) {
			printNoticesTo(os.Stderr, st)
		} else {
			printNotices(st)
		}
		return exportState(d, st, olOutput)
	},
}

func outlierTable(results []outlier.Result) string {
	var b strings.Builder
	b.WriteString("| column | q1 | q3 | iqr | lower | upper | outliers |\n|---|---|---|---|---|---|---|\n")
	for _, r := range results {
		if r.Empty {
			fmt.Fprintf(&b, "| %s | | | | | | no values |\n", escapeCell(r.Column))
			continue
		}
		fmt.Fprintf(&b, "| %s | %.4g | %.4g | %.4g | %.4g | %.4g | %d |\n",
			escapeCell(r.Column), r.Bounds.Q1, r.Bounds.Q3, r.Bounds.IQR, r.Bounds.Lower, r.Bounds.Upper, r.Count)
	}
	return b.String()
}

func init() {
	rootCmd.AddCommand(outliersCmd)
	olIn.register(outliersCmd)
	outliersCmd.Flags().StringVarP(&olColumn, "column", "c", "", "numeric column to handle")
	outliersCmd.Flags().StringVar(&olPolicy, "policy", "none", "none | cap | remove")
	outliersCmd.Flags().Float64Var(&olK, "iqr-k", outlier.DefaultK, "IQR multiplier for the fences")
	outliersCmd.Flags().StringVarP(&olOutput, "output", "o", "", "output file (.csv or .xlsx); CSV to stdout if omitted")
}
