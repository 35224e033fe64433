package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/edadash/internal/config"
	"github.com/KaramelBytes/edadash/internal/logging"
)

var (
	// Global flags
	cfgFile string
	debug   bool
	// Directory/tool flags (override config if set)
	flagOutputDir   string
	flagDataDir     string
	flagWkhtmltopdf string

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "edadash",
	Short: "edadash: explore, clean and profile tabular data",
	Long: `edadash loads CSV, XLSX, XLS and ODS files, previews and cleans them, handles
outliers, draws plots and writes profiling reports (HTML, with PDF export via
wkhtmltopdf). Run "edadash serve" for the browser dashboard.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.edadash/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&flagOutputDir, "output-dir", "", "directory for reports (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "directory for uploaded files (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagWkhtmltopdf, "wkhtmltopdf", "", "path to the wkhtmltopdf binary (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to defaults so read-only commands still work
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = cfgpkg.Defaults()
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("output-dir") && flagOutputDir != "" {
		cfg.OutputDir = flagOutputDir
	}
	if f.Changed("data-dir") && flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}
	if f.Changed("wkhtmltopdf") && flagWkhtmltopdf != "" {
		cfg.WkhtmltopdfPath = flagWkhtmltopdf
	}

	level := cfg.LogLevel
	if debug {
		level = logrus.DebugLevel.String()
	}
	if err := logging.Setup(level, cfg.LogFormat); err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %v\n", err)
	}
}

// currentConfig returns the loaded configuration, loading it on first use
// when the command ran without the initializer.
func currentConfig() *cfgpkg.Global {
	if cfg == nil {
		loadConfig()
	}
	return cfg
}
