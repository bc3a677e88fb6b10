package config

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/hiroki-yamauchi/notebook-health-analyzer/analyzer"
	"github.com/hiroki-yamauchi/notebook-health-analyzer/logging"
	"github.com/hiroki-yamauchi/notebook-health-analyzer/reporter"
)

// ErrInvalid is returned when a loaded configuration fails validation
var ErrInvalid = errors.New("invalid configuration")

// EnvPrefix prefixes every environment override, e.g. NBHEALTH_ANALYSIS_PARALLELISM
const EnvPrefix = "NBHEALTH"

// AnalysisConfig configures the analysis engine and the analyzer constants
type AnalysisConfig struct {
	Parallelism     int `mapstructure:"parallelism" yaml:"parallelism"` // Analyzers running at once per notebook
	analyzer.Params `mapstructure:",squash" yaml:",inline"`
}

// ReportConfig configures report rendering
type ReportConfig struct {
	Format    string `mapstructure:"format" yaml:"format"`         // json, html or markdown
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"` // Empty writes to stdout
}

// HistoryConfig configures the run history store
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"` // Record every analyzed report
	Path    string `mapstructure:"path" yaml:"path"`       // SQLite database file
}

// Config wraps the entire configuration of the analyzer
type Config struct {
	Log        logging.Config      `mapstructure:"log" yaml:"log"`
	Analysis   AnalysisConfig      `mapstructure:"analysis" yaml:"analysis"`
	Weights    analyzer.Weights    `mapstructure:"weights" yaml:"weights"`
	Thresholds analyzer.Thresholds `mapstructure:"thresholds" yaml:"thresholds"`
	Report     ReportConfig        `mapstructure:"report" yaml:"report"`
	History    HistoryConfig       `mapstructure:"history" yaml:"history"`
}

// Load loads the config from the file path, applying defaults first and environment
// overrides last. An empty path loads defaults and environment variables only.
func Load(filePath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Bind environment variables
	if err := bindEnvs(v); err != nil {
		return nil, err
	}

	if filePath != "" {
		v.SetConfigFile(filePath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", filePath, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	params := analyzer.DefaultParams()
	return &Config{
		Log:        logging.Config{Level: "info", Format: "console"},
		Analysis:   AnalysisConfig{Parallelism: 4, Params: params},
		Weights:    analyzer.DefaultWeights(),
		Thresholds: analyzer.DefaultThresholds(),
		Report:     ReportConfig{Format: string(reporter.FormatJSON)},
		History:    HistoryConfig{Path: ".nbhealth/history.db"},
	}
}

// setDefaults registers every key of Default with v
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("analysis.parallelism", d.Analysis.Parallelism)
	v.SetDefault("analysis.max_line_length", d.Analysis.MaxLineLength)
	v.SetDefault("analysis.formatting_k", d.Analysis.FormattingK)
	v.SetDefault("analysis.technique_increment", d.Analysis.TechniqueIncrement)
	v.SetDefault("analysis.monolith_lines", d.Analysis.MonolithLines)
	v.SetDefault("analysis.ignore_magic_commands", d.Analysis.IgnoreMagics)
	for c, w := range d.Weights.Categories {
		v.SetDefault("weights.categories."+string(c), w)
	}
	for id, w := range d.Weights.Metrics {
		v.SetDefault("weights.metrics."+string(id), w)
	}
	v.SetDefault("thresholds.excellent", d.Thresholds.Excellent)
	v.SetDefault("thresholds.good", d.Thresholds.Good)
	v.SetDefault("thresholds.fair", d.Thresholds.Fair)
	v.SetDefault("thresholds.poor", d.Thresholds.Poor)
	v.SetDefault("report.format", d.Report.Format)
	v.SetDefault("report.output_dir", d.Report.OutputDir)
	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("history.path", d.History.Path)
}

// envKeys lists the keys that can be overridden from the environment.
// Each key maps to EnvPrefix + the upper-cased key with dots replaced by underscores.
var envKeys = []string{
	"log.level",
	"log.format",
	"analysis.parallelism",
	"analysis.max_line_length",
	"analysis.formatting_k",
	"analysis.technique_increment",
	"analysis.monolith_lines",
	"analysis.ignore_magic_commands",
	"thresholds.excellent",
	"thresholds.good",
	"thresholds.fair",
	"thresholds.poor",
	"report.format",
	"report.output_dir",
	"history.enabled",
	"history.path",
}

// EnvName returns the environment variable that overrides key
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// bindEnvs binds the environment variables to the viper instance
func bindEnvs(v *viper.Viper) error {
	keys := slices.Clone(envKeys)
	for _, c := range analyzer.Categories {
		keys = append(keys, "weights.categories."+string(c))
	}
	for _, id := range analyzer.MetricIDs() {
		keys = append(keys, "weights.metrics."+string(id))
	}

	for _, key := range keys {
		if err := v.BindEnv(key, EnvName(key)); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the configuration and reports every problem found
func (c *Config) Validate() error {
	var errs []error

	if c.Analysis.Parallelism < 1 {
		errs = append(errs, fmt.Errorf("analysis.parallelism must be at least 1, got %d", c.Analysis.Parallelism))
	}
	if _, err := analyzer.NewRegistry(c.Analysis.Params, c.Weights); err != nil {
		errs = append(errs, err)
	}
	if err := c.Thresholds.Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := reporter.ParseFormat(c.Report.Format); err != nil {
		errs = append(errs, err)
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.History.Enabled && c.History.Path == "" {
		errs = append(errs, errors.New("history.path is required when history is enabled"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// Registry builds the metric registry described by the configuration
func (c *Config) Registry() (*analyzer.Registry, error) {
	return analyzer.NewRegistry(c.Analysis.Params, c.Weights)
}

// Dump writes the configuration as YAML
func Dump(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}
