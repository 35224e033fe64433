package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/edadash/internal/profile"
	"github.com/KaramelBytes/edadash/internal/session"
)

var (
	rpIn         inputFlags
	rpFormat     string
	rpOutputPath string
	rpNoPDF      bool
	rpTitle      string
	rpSampleRows int
	rpNoPlots    bool
	rpIQRK       float64
	rpGroupBy    []string
)

var reportCmd = &cobra.Command{
	Use:   "report <file>",
	Short: "Profile a file and write an HTML (and PDF) report",
	Long: `Profile a dataset. With the default --format html the report is written to
the output directory as HTML and JSON, converted to PDF with wkhtmltopdf, and
recorded in the report catalog. --format md or json prints the report to
stdout, or writes it to --output.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format := strings.ToLower(strings.TrimSpace(rpFormat))
		switch format {
		case "html", "md", "markdown", "json":
		default:
			return fmt.Errorf("unsupported --format: %s (use html|md|json)", rpFormat)
		}
		d, err := newDashboard(&rpIn, format == "html" && !rpNoPDF)
		if err != nil {
			return err
		}
		applyProfileFlags(cmd, d)
		st, err := openFile(d, args[0])
		if err != nil {
			return err
		}
		if format == "html" {
			st, err = d.GenerateReport(cmd.Context(), st)
			if err != nil {
				return err
			}
			printNotices(st)
			printReportFiles(st)
			return nil
		}

		opt := d.Profile
		opt.IQRK = d.IQRK
		rep, err := profile.Build(st.Data, opt)
		if err != nil {
			return err
		}
		var out []byte
		if format == "json" {
			if out, err = rep.JSON(); err != nil {
				return err
			}
		} else {
			out = []byte(rep.Markdown())
		}
		if err := writeOutput(rpOutputPath, out); err != nil {
			return err
		}
		if rpOutputPath != "" && rpOutputPath != "-" {
			fmt.Printf("✓ Wrote report to %s\n", rpOutputPath)
		}
		return nil
	},
}

// applyProfileFlags copies the report flags that were set onto d.
func applyProfileFlags(cmd *cobra.Command, d *session.Dashboard) {
	f := cmd.Flags()
	if f.Changed("title") {
		d.Profile.Title = rpTitle
	}
	if f.Changed("sample-rows") && rpSampleRows >= 0 {
		d.Profile.SampleRows = rpSampleRows
	}
	if rpNoPlots {
		d.Profile.Plots = false
	}
	if f.Changed("iqr-k") && rpIQRK > 0 {
		d.IQRK = rpIQRK
	}
	if len(rpGroupBy) > 0 {
		d.Profile.GroupBy = rpGroupBy
	}
}

func printReportFiles(st session.State) {
	if st.Report == nil {
		return
	}
	fmt.Printf("  html: %s\n", st.Report.HTML)
	if st.Report.PDF != "" {
		fmt.Printf("  pdf:  %s\n", st.Report.PDF)
	}
	fmt.Printf("  json: %s\n", st.Report.JSON)
	if st.Report.EntryID != "" {
		fmt.Printf("  id:   %s\n", st.Report.EntryID)
	}
}

func registerProfileFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&rpNoPDF, "no-pdf", false, "skip PDF export")
	cmd.Flags().StringVar(&rpTitle, "title", "", "report title (default from report_title)")
	cmd.Flags().IntVar(&rpSampleRows, "sample-rows", 5, "number of sample rows to include")
	cmd.Flags().BoolVar(&rpNoPlots, "no-plots", false, "omit distribution charts")
	cmd.Flags().Float64Var(&rpIQRK, "iqr-k", 1.5, "IQR multiplier for outlier counts")
	cmd.Flags().StringSliceVar(&rpGroupBy, "group-by", nil, "comma-separated column names to group by (repeatable)")
}

func init() {
	rootCmd.AddCommand(reportCmd)
	rpIn.register(reportCmd)
	registerProfileFlags(reportCmd)
	reportCmd.Flags().StringVarP(&rpFormat, "format", "f", "html", "html | md | json")
	reportCmd.Flags().StringVarP(&rpOutputPath, "output", "o", "", "output path for md/json (stdout if omitted)")
}
