package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/edadash/internal/plot"
)

var (
	plIn     inputFlags
	plKind   string
	plX      string
	plY      string
	plBins   int
	plWidth  int
	plHeight int
	plTitle  string
	plOutput string
)

var plotCmd = &cobra.Command{
	Use:   "plot <file>",
	Short: "Render a histogram, box, scatter, line or bar chart as PNG",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := plot.ParseKind(plKind)
		if err != nil {
			return err
		}
		d, err := newDashboard(&plIn, false)
		if err != nil {
			return err
		}
		st, err := openFile(d, args[0])
		if err != nil {
			return err
		}
		png, st, err := d.Plot(st, plot.Request{
			Kind: kind, X: plX, Y: plY, Bins: plBins,
			Width: plWidth, Height: plHeight, Title: plTitle,
		})
		if err != nil {
			return err
		}
		out := plOutput
		if out == "" {
			base := filepath.Base(args[0])
			out = fmt.Sprintf("%s_%s.png", strings.TrimSuffix(base, filepath.Ext(base)), kind)
		}
		if err := writeOutput(out, png); err != nil {
			return err
		}
		if out != "-" {
			desc := st.Plot.X
			if st.Plot.Y != "" {
				desc = strings.Trim(st.Plot.X+" / "+st.Plot.Y, " /")
			}
			fmt.Printf("✓ Wrote %s plot (%s) to %s\n", kind, desc, out)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(plotCmd)
	plIn.register(plotCmd)
	kinds := make([]string, 0, len(plot.Kinds()))
	for _, k := range plot.Kinds() {
		kinds = append(kinds, string(k))
	}
	plotCmd.Flags().StringVarP(&plKind, "kind", "k", string(plot.KindHistogram), strings.Join(kinds, " | "))
	plotCmd.Flags().StringVarP(&plX, "x", "x", "", "x column (suggested if omitted)")
	plotCmd.Flags().StringVarP(&plY, "y", "y", "", "y column for scatter and line (suggested if omitted)")
	plotCmd.Flags().IntVar(&plBins, "bins", 0, "histogram bins (default 20)")
	plotCmd.Flags().IntVar(&plWidth, "width", 0, "image width in pixels (default 800)")
	plotCmd.Flags().IntVar(&plHeight, "height", 0, "image height in pixels (default 480)")
	plotCmd.Flags().StringVar(&plTitle, "title", "", "chart title")
	plotCmd.Flags().StringVarP(&plOutput, "output", "o", "", "PNG path, or - for stdout (default <file>_<kind>.png)")
}
