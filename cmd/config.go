package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/edadash/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set edadash configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		fmt.Printf("data_dir: %s\n", c.DataDir)
		fmt.Printf("output_dir: %s\n", c.OutputDir)
		if c.WkhtmltopdfPath != "" {
			fmt.Printf("wkhtmltopdf_path: %s\n", c.WkhtmltopdfPath)
		} else {
			fmt.Println("wkhtmltopdf_path: (wkhtmltopdf on PATH)")
		}
		fmt.Printf("pdf_timeout_sec: %d\n", c.PDFTimeoutSec)
		fmt.Printf("listen_addr: %s\n", c.ListenAddr)
		fmt.Printf("max_upload_mb: %d\n", c.MaxUploadMB)
		fmt.Printf("preview_rows: %d\n", c.PreviewRows)
		fmt.Printf("csv_encodings: %s\n", strings.Join(c.CSVEncodings, ", "))
		fmt.Printf("report_title: %s\n", c.ReportTitle)
		fmt.Printf("report_basename: %s\n", c.ReportBasename)
		fmt.Printf("log_level: %s\n", c.LogLevel)
		fmt.Printf("log_format: %s\n", c.LogFormat)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c := *currentConfig()
		positive := func() (int, error) {
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return 0, fmt.Errorf("invalid positive int for %s: %v", key, val)
			}
			return i, nil
		}
		switch key {
		case "data_dir":
			c.DataDir = val
		case "output_dir":
			c.OutputDir = val
		case "wkhtmltopdf_path":
			c.WkhtmltopdfPath = val
		case "pdf_timeout_sec":
			i, err := positive()
			if err != nil {
				return err
			}
			c.PDFTimeoutSec = i
		case "listen_addr":
			c.ListenAddr = val
		case "max_upload_mb":
			i, err := positive()
			if err != nil {
				return err
			}
			c.MaxUploadMB = i
		case "preview_rows":
			i, err := strconv.Atoi(val)
			if err != nil || i < 0 {
				return fmt.Errorf("invalid int for preview_rows: %v", val)
			}
			c.PreviewRows = i
		case "csv_encodings":
			var encs []string
			for _, e := range strings.Split(val, ",") {
				if e = strings.TrimSpace(e); e != "" {
					encs = append(encs, e)
				}
			}
			c.CSVEncodings = encs
		case "report_title":
			c.ReportTitle = val
		case "report_basename":
			c.ReportBasename = val
		case "log_level":
			switch strings.ToLower(val) {
			case "debug", "info", "warn", "warning", "error":
				c.LogLevel = strings.ToLower(val)
			default:
				return fmt.Errorf("invalid log_level: %s (use debug|info|warn|error)", val)
			}
		case "log_format":
			switch strings.ToLower(val) {
			case "text", "json":
				c.LogFormat = strings.ToLower(val)
			default:
				return fmt.Errorf("invalid log_format: %s (use text or json)", val)
			}
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := c.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(&c, cfgFile); err != nil {
			return err
		}
		cfg = &c
		fmt.Println("✓ Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
