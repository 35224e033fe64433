package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	DataDir         string `mapstructure:"data_dir" yaml:"data_dir"`
	OutputDir       string `mapstructure:"output_dir" yaml:"output_dir"`
	WkhtmltopdfPath string `mapstructure:"wkhtmltopdf_path" yaml:"wkhtmltopdf_path"`
	PDFTimeoutSec   int    `mapstructure:"pdf_timeout_sec" yaml:"pdf_timeout_sec"`

	// Dashboard server
	ListenAddr  string `mapstructure:"listen_addr" yaml:"listen_addr"`
	MaxUploadMB int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	PreviewRows int    `mapstructure:"preview_rows" yaml:"preview_rows"`

	// Loading
	CSVEncodings []string `mapstructure:"csv_encodings" yaml:"csv_encodings"`

	// Reports
	ReportTitle    string `mapstructure:"report_title" yaml:"report_title"`
	ReportBasename string `mapstructure:"report_basename" yaml:"report_basename"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// Defaults returns the built-in configuration.
func Defaults() *Global {
	return &Global{
		DataDir:        "data",
		OutputDir:      "output",
		PDFTimeoutSec:  120,
		ListenAddr:     "127.0.0.1:8501",
		MaxUploadMB:    200,
		PreviewRows:    5,
		CSVEncodings:   []string{"utf-8", "utf-16", "cp1252", "latin-1"},
		ReportTitle:    "EDA Report",
		ReportBasename: "eda_report",
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// PDFTimeout is the wkhtmltopdf timeout as a duration.
func (c *Global) PDFTimeout() time.Duration {
	return time.Duration(c.PDFTimeoutSec) * time.Second
}

// MaxUploadBytes is the upload limit in bytes.
func (c *Global) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// Validate rejects values the program cannot run with.
func (c *Global) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DataDir) == "" {
		errs = append(errs, errors.New("data_dir must not be empty"))
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		errs = append(errs, errors.New("output_dir must not be empty"))
	}
	if c.MaxUploadMB <= 0 {
		errs = append(errs, fmt.Errorf("max_upload_mb must be positive, got %d", c.MaxUploadMB))
	}
	if c.PreviewRows < 0 {
		errs = append(errs, fmt.Errorf("preview_rows must not be negative, got %d", c.PreviewRows))
	}
	if c.PDFTimeoutSec <= 0 {
		errs = append(errs, fmt.Errorf("pdf_timeout_sec must be positive, got %d", c.PDFTimeoutSec))
	}
	if len(c.CSVEncodings) == 0 {
		errs = append(errs, errors.New("csv_encodings must list at least one encoding"))
	}
	if strings.ContainsAny(c.ReportBasename, `/\`) || strings.TrimSpace(c.ReportBasename) == "" {
		errs = append(errs, fmt.Errorf("report_basename must be a plain file name, got %q", c.ReportBasename))
	}
	return errors.Join(errs...)
}

func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".edadash"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.edadash/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := defaultDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
// A .env file in the working directory is loaded into the environment first.
func Load(cfgFile string) (*Global, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	v := viper.New()
	v.SetEnvPrefix("EDADASH")
	v.AutomaticEnv()

	d := Defaults()
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("wkhtmltopdf_path", d.WkhtmltopdfPath)
	v.SetDefault("pdf_timeout_sec", d.PDFTimeoutSec)
	v.SetDefault("listen_addr", d.ListenAddr)
	v.SetDefault("max_upload_mb", d.MaxUploadMB)
	v.SetDefault("preview_rows", d.PreviewRows)
	v.SetDefault("csv_encodings", d.CSVEncodings)
	v.SetDefault("report_title", d.ReportTitle)
	v.SetDefault("report_basename", d.ReportBasename)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else if dir, err := defaultDir(); err == nil {
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		var notFound viper.ConfigFileNotFoundError
		if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &c, nil
}
