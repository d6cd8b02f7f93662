package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jward/contexthelper"
	"github.com/jward/contexthelper/internal/config"
	"github.com/jward/contexthelper/internal/logging"
)

var (
	flagConfig  string
	flagDB      string
	flagFormat  string
	flagVerbose bool
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

// logger is built in PersistentPreRunE from the loaded configuration.
var logger = zap.NewNop()

func main() {
	defer func() { _ = logger.Sync() }()
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "contexthelper",
	Short:         "Q&A threads for the code around your cursor",
	Long:          "contexthelper finds the function enclosing a cursor position, builds a search query from the types declared in it, and lists matching Q&A threads with their top answers.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
	// No Run; prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: ./contexthelper.yaml or ~/.config/contexthelper/)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "history database path (default: .contexthelper/history.db relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log at debug level")

	rootCmd.AddCommand(assistCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(historyCmd)
}

// loadConfig reads the configuration and builds the process logger from it.
func loadConfig() (config.Config, error) {
	cfg, err := contexthelper.LoadConfig(flagConfig)
	if err != nil {
		return config.Config{}, err
	}
	if flagVerbose {
		cfg.LogLevel = "debug"
	}
	l, err := logging.New(cfg.LogLevel, logging.Format(cfg.LogFormat))
	if err != nil {
		return config.Config{}, err
	}
	logger = l
	return cfg, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the history database path: the --db flag, then the
// configured db_path, then the default under the repo root.
func resolveDBPath(repoRoot, configured string) string {
	path := flagDB
	if path == "" {
		path = configured
	}
	if path != "" {
		if filepath.IsAbs(path) {
			return path
		}
		return filepath.Join(repoRoot, path)
	}
	return filepath.Join(repoRoot, ".contexthelper", "history.db")
}

// resolveFilePath converts a file argument to an absolute path.
func resolveFilePath(file string) (string, error) {
	if filepath.IsAbs(file) {
		return file, nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving file path %q: %w", file, err)
	}
	return abs, nil
}
