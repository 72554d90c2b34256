package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"saysh/internal/config"
	"saysh/internal/core"
	"saysh/internal/logging"
)

var (
	// Global flags
	verbose bool
	homeDir string
	workDir string

	// Logger
	logger *zap.Logger
)

// rootCmd starts the interactive prompt.
var rootCmd = &cobra.Command{
	Use:   "saysh",
	Short: "saysh - say what you want, run the shell command",
	Long: `saysh turns plain English into shell commands and runs them.

  "list files and count lines"
  "create a file called notes.txt", then "display that file"

Several operations in one sentence become a pipeline: each command's
output feeds the next.

Run without arguments to start the interactive prompt.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewDevelopmentConfig()
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		zcfg.DisableStacktrace = true
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
	RunE: runInteractive,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "saysh home directory (default: $SAYSH_HOME or ~/.saysh)")
	rootCmd.PersistentFlags().StringVarP(&workDir, "workdir", "C", "", "Directory commands run in (default: current)")

	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Show what would run without running it")
	runCmd.Flags().BoolVarP(&runYes, "yes", "y", false, "Accept suggestions and destructive commands without asking")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries to show")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(correctCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitError carries a command's exit status out of cobra.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func exitCode(err error) int {
	if e, ok := err.(*exitError); ok {
		return e.code
	}
	fmt.Fprintln(os.Stderr, err)
	return 1
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func resolveHome() string {
	if homeDir != "" {
		return homeDir
	}
	return config.Home()
}

// loadConfig reads config.yaml from the home directory and starts logging.
func loadConfig() (*config.Config, string, error) {
	home := resolveHome()
	cfg, err := config.Load(config.DefaultPath(home))
	if err != nil {
		return nil, home, err
	}
	cfg.ResolvePaths(home)
	if verbose {
		cfg.Session.Verbose = true
	}

	if err := logging.Initialize(home, cfg.Logging.Options()); err != nil {
		logger.Warn("File logging unavailable", zap.Error(err))
	}
	logger.Debug("Config loaded", zap.String("home", home), zap.String("vocabulary", cfg.Vocabulary.Path))
	return cfg, home, nil
}

// newEngine builds the engine for a subcommand and reports its startup
// warnings through the CLI logger.
func newEngine(cfg *config.Config, opts ...core.Option) (*core.Engine, error) {
	if workDir != "" {
		opts = append(opts, core.WithWorkDir(workDir))
	}
	e, err := core.New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	for _, w := range e.Warnings() {
		logger.Warn(w)
	}
	return e, nil
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
