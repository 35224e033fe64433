package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/edadash/internal/dataset"
	"github.com/KaramelBytes/edadash/internal/session"
)

var (
	pvIn     inputFlags
	pvRows   int
	pvSchema bool
)

var previewCmd = &cobra.Command{
	Use:   "preview <file>",
	Short: "Show the first rows and column types of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDashboard(&pvIn, false)
		if err != nil {
			return err
		}
		st, err := openFile(d, args[0])
		if err != nil {
			return err
		}
		printNotices(st)
		rows := pvRows
		if !cmd.Flags().Changed("rows") {
			rows = currentConfig().PreviewRows
		}
		fmt.Print(previewMarkdown(st.Data, rows, pvSchema))
		return nil
	},
}

// previewMarkdown renders the head of ds as a Markdown table, optionally
// followed by the column schema.
func previewMarkdown(ds *dataset.Dataset, rows int, schema bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n\n", session.Describe(ds))
	names := ds.Names()
	b.WriteString("| " + strings.Join(escapeCells(names), " | ") + " |\n")
	b.WriteString("|" + strings.Repeat("---|", len(names)) + "\n")
	for _, r := range session.Preview(ds, rows) {
		b.WriteString("| " + strings.Join(escapeCells(r), " | ") + " |\n")
	}
	if schema {
		b.WriteString("\n| column | type | missing |\n|---|---|---|\n")
		for _, c := range ds.Columns() {
			fmt.Fprintf(&b, "| %s | %s | %d |\n", escapeCell(c.Name), c.Kind, c.Missing())
		}
	}
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "\\|")
}

func escapeCells(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = escapeCell(s)
	}
	return out
}

func init() {
	rootCmd.AddCommand(previewCmd)
	pvIn.register(previewCmd)
	previewCmd.Flags().IntVarP(&pvRows, "rows", "n", 5, "rows to show (default from preview_rows)")
	previewCmd.Flags().BoolVar(&pvSchema, "schema", false, "also list column types and missing counts")
}
