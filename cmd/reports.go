package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/edadash/internal/catalog"
)

var (
	rsLimit int
	rsID    string
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List generated reports, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := catalog.Load(currentConfig().OutputDir)
		if err != nil {
			return err
		}
		if rsID != "" {
			e, ok := c.Get(rsID)
			if !ok {
				return fmt.Errorf("report not found: %s", rsID)
			}
			fmt.Printf("id:       %s\nsource:   %s\nshape:    %d rows × %d columns\nwarnings: %d\ncreated:  %s\nhtml:     %s\n",
				e.ID, e.Source, e.Rows, e.Columns, e.Warnings, e.CreatedAt.Format("2006-01-02 15:04:05"), e.HTMLPath)
			if e.PDFPath != "" {
				fmt.Printf("pdf:      %s\n", e.PDFPath)
			}
			if e.JSONPath != "" {
				fmt.Printf("json:     %s\n", e.JSONPath)
			}
			return nil
		}
		list := c.List()
		if len(list) == 0 {
			fmt.Println("(no reports)")
			return nil
		}
		if rsLimit > 0 && len(list) > rsLimit {
			list = list[:rsLimit]
		}
		for _, e := range list {
			pdfMark := ""
			if e.PDFPath != "" {
				pdfMark = " +pdf"
			}
			fmt.Printf("- %s: %s (%d×%d, %d warnings%s) %s\n",
				e.ID, e.Source, e.Rows, e.Columns, e.Warnings, pdfMark, e.CreatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportsCmd)
	reportsCmd.Flags().IntVarP(&rsLimit, "limit", "n", 0, "show at most n reports (0 = all)")
	reportsCmd.Flags().StringVar(&rsID, "id", "", "show one report in detail")
}
