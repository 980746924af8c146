package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/gridkit/pkg/mode"
	"github.com/oakwood-commons/gridkit/pkg/settings"
)

// appConfig is the gridkit.yaml app config. Unset fields keep the
// defaults.
type appConfig struct {
	Locale         string  `yaml:"locale,omitempty"`
	Currency       string  `yaml:"currency,omitempty"`
	Timezone       string  `yaml:"timezone,omitempty"`
	MergeStrategy  string  `yaml:"mergeStrategy,omitempty"`
	AllowConflicts *bool   `yaml:"allowConflicts,omitempty"`
	AutomaticCasts *bool   `yaml:"automaticCasts,omitempty"`
	CacheCasts     *bool   `yaml:"cacheCasts,omitempty"`
	ParallelRows   *int    `yaml:"parallelRows,omitempty"`
	NoColor        *bool   `yaml:"noColor,omitempty"`
	LogLevel       *string `yaml:"logLevel,omitempty"`
}

var logLevels = map[string]int8{"debug": -1, "info": 0, "warn": 1, "error": 2}

// loadAppConfig reads path strictly: unknown keys are errors. An empty
// path yields the zero config.
func loadAppConfig(path string) (appConfig, error) {
	var cfg appConfig
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c appConfig) validate() error {
	if c.MergeStrategy != "" {
		if _, err := mode.ParseStrategy(c.MergeStrategy); err != nil {
			return err
		}
	}
	if c.LogLevel != nil {
		if _, ok := logLevels[*c.LogLevel]; !ok {
			return fmt.Errorf("unknown logLevel %q (expected debug, info, warn or error)", *c.LogLevel)
		}
	}
	if c.ParallelRows != nil && *c.ParallelRows < 0 {
		return fmt.Errorf("parallelRows must be non-negative, got %d", *c.ParallelRows)
	}
	return nil
}

// apply copies the set fields onto run.
func (c appConfig) apply(run *settings.Run) {
	if c.Locale != "" {
		run.Locale = c.Locale
	}
	if c.Currency != "" {
		run.Currency = c.Currency
	}
	if c.Timezone != "" {
		run.Timezone = c.Timezone
	}
	if c.MergeStrategy != "" {
		run.Strategy = c.MergeStrategy
	}
	if c.AllowConflicts != nil {
		run.AllowConflicts = *c.AllowConflicts
	}
	if c.AutomaticCasts != nil {
		run.AutomaticCasts = *c.AutomaticCasts
	}
	if c.CacheCasts != nil {
		run.CacheCasts = *c.CacheCasts
	}
	if c.ParallelRows != nil {
		run.ParallelRows = *c.ParallelRows
	}
	if c.NoColor != nil {
		run.NoColor = *c.NoColor
	}
	if c.LogLevel != nil {
		run.MinLogLevel = logLevels[*c.LogLevel]
	}
}

// effectiveConfig is the config view of resolved settings.
func effectiveConfig(run *settings.Run) appConfig {
	level := "warn"
	for name, l := range logLevels {
		if l == run.MinLogLevel {
			level = name
		}
	}
	return appConfig{
		Locale:         run.Locale,
		Currency:       run.Currency,
		Timezone:       run.Timezone,
		MergeStrategy:  run.Strategy,
		AllowConflicts: &run.AllowConflicts,
		AutomaticCasts: &run.AutomaticCasts,
		CacheCasts:     &run.CacheCasts,
		ParallelRows:   &run.ParallelRows,
		NoColor:        &run.NoColor,
		LogLevel:       &level,
	}
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective app config",
	Long: `Print the settings a compile would use, after layering the defaults, the
app config file and any flags, as a gridkit.yaml document.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(effectiveConfig(runSettings())); err != nil {
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}
		if path := resolveConfigPath(configFile); path != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "# loaded from %s\n", path)
		}
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	},
}
