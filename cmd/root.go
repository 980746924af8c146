package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/gridkit/pkg/logger"
	"github.com/oakwood-commons/gridkit/pkg/mode"
	"github.com/oakwood-commons/gridkit/pkg/settings"
)

var (
	configFile string
	debug      bool
	verbose    bool
	noColor    bool
	quiet      bool

	locale    string
	currency  string
	timezone  string
	strategy  string
	strict    bool
	parallel  int
	noCache   bool
	noAutoCst bool
)

// rootCtx carries the logger and run settings resolved before a command
// runs.
var rootCtx = context.Background()

var rootCmd = &cobra.Command{
	Use:   settings.CliBinaryName,
	Short: "Compile data-grid declarations into a render contract",
	Long: `gridkit compiles a table declaration (markup, props configuration, or both)
and a set of rows into the contract a grid renderer consumes: visible column
descriptors, formatted cells, resolved actions, filters and diagnostics.`,
	Example: "\n  gridkit compile --definition posts.yaml --rows posts.json\n" +
		"  gridkit compile -d posts.yaml -r posts.json --user token.jwt -o table\n" +
		"  gridkit detect -d posts.yaml --format markdown\n",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		run, err := resolveSettings(cmd)
		if err != nil {
			return err
		}
		lgr := logger.Get(run.MinLogLevel)
		lgr = logger.WithValues(lgr, logger.RootCommandKey, settings.CliBinaryName, logger.SubCommandKey, cmd.Name())
		base := cmd.Context()
		if base == nil {
			base = context.Background()
		}
		ctx := logger.WithLogger(base, lgr)
		rootCtx = settings.IntoContext(ctx, run)
		return nil
	},
}

// resolveSettings layers the defaults, the app config file and the flags
// the user set.
func resolveSettings(cmd *cobra.Command) (*settings.Run, error) {
	run := settings.NewCliParams()
	run.MinLogLevel = 1
	cfg, err := loadAppConfig(resolveConfigPath(configFile))
	if err != nil {
		return nil, err
	}
	cfg.apply(run)

	flags := cmd.Flags()
	switch {
	case debug:
		run.MinLogLevel = -1
	case verbose:
		run.MinLogLevel = 0
	}
	run.IsQuiet = quiet
	if noColor || os.Getenv("NO_COLOR") != "" {
		run.NoColor = true
	}
	if flags.Changed("locale") {
		run.Locale = locale
	}
	if flags.Changed("currency") {
		run.Currency = currency
	}
	if flags.Changed("timezone") {
		run.Timezone = timezone
	}
	if flags.Changed("strategy") {
		s, err := mode.ParseStrategy(strategy)
		if err != nil {
			return nil, err
		}
		run.Strategy = string(s)
	}
	if strict {
		run.Strategy = string(mode.StrictMerge)
		run.AllowConflicts = false
	}
	if flags.Changed("parallel") {
		run.ParallelRows = parallel
	}
	if noCache {
		run.CacheCasts = false
	}
	if noAutoCst {
		run.AutomaticCasts = false
	}
	if _, err := run.Location(); err != nil {
		return nil, err
	}
	return run, nil
}

// runSettings returns the settings resolved for the running command.
func runSettings() *settings.Run {
	if run, ok := settings.FromContext(rootCtx); ok {
		return run
	}
	return settings.NewCliParams()
}

// resolveConfigPath returns the explicit path, else gridkit.yaml in the
// working directory, else $XDG_CONFIG_HOME/gridkit/gridkit.yaml or
// ~/.config/gridkit/gridkit.yaml. "" means no config file.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	candidates := []string{settings.ConfigFileName}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		candidates = append(candidates, filepath.Join(xdg, settings.CliBinaryName, settings.ConfigFileName))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", settings.CliBinaryName, settings.ConfigFileName))
	}
	for _, c := range candidates {
		if st, err := os.Stat(c); err == nil && !st.IsDir() {
			return c
		}
	}
	return ""
}

func init() { //nolint:gochecknoinits
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "path to a gridkit.yaml app config")
	pf.BoolVar(&debug, "debug", false, "log at debug level")
	pf.BoolVarP(&verbose, "verbose", "v", false, "log at info level")
	pf.BoolVarP(&quiet, "quiet", "q", false, "suppress diagnostics on stderr")
	pf.BoolVar(&noColor, "no-color", false, "disable color output")
	pf.StringVar(&locale, "locale", "", "locale for number, currency and date formatting (default en-US)")
	pf.StringVar(&currency, "currency", "", "ISO 4217 currency code (default USD)")
	pf.StringVar(&timezone, "timezone", "", "IANA time zone dates render in (default UTC)")
	pf.StringVar(&strategy, "strategy", "", "merge strategy for hybrid tables: children-priority|props-priority|permissive-merge|strict-merge")
	pf.BoolVar(&strict, "strict", false, "use strict-merge and refuse to render conflicting declarations")
	pf.IntVar(&parallel, "parallel", 0, "rows formatted concurrently (0 = GOMAXPROCS)")
	pf.BoolVar(&noCache, "no-cast-cache", false, "disable render-scoped cast memoization")
	pf.BoolVar(&noAutoCst, "no-auto-casts", false, "disable automatic cast selection")

	rootCmd.Version = versionString()
	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.AddCommand(compileCmd, detectCmd, configCmd, versionCmd)
}

// Execute runs the root command. An interrupt cancels the command's
// context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func versionString() string {
	v := settings.VersionInformation
	return fmt.Sprintf("%s %s (commit %s, built %s)", settings.CliBinaryName, v.BuildVersion, v.Commit, v.BuildTime)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the gridkit version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), versionString())
		return err
	},
}
