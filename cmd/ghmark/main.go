// Package main provides the CLI entrypoint for ghmark, a bookmark
// manager that stores bookmarks as issues in a GitHub repository.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rgopal/ghmark/internal/cache"
	"github.com/rgopal/ghmark/internal/config"
	"github.com/rgopal/ghmark/internal/credstore"
	"github.com/rgopal/ghmark/internal/gh"
	"github.com/rgopal/ghmark/internal/index"
	"github.com/rgopal/ghmark/internal/logger"
	"github.com/rgopal/ghmark/internal/resolver"
	"github.com/rgopal/ghmark/internal/sync"
)

// apiURLEnvVar overrides the GitHub API base URL, for GitHub
// Enterprise hosts and tests.
const apiURLEnvVar = "GHMARK_API_URL"

var (
	flagLogLevel string
	flagLogFile  string
)

func main() {
	defer logger.Close()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ghmark",
	Short: "Save bookmarks as GitHub issues",
	Long: `ghmark stores web-page bookmarks as issues in a GitHub repository,
one issue per bookmark, with the metadata kept in a frontmatter block
and the type and tags kept as labels.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "also write logs to this file")
}

func setupLogging(cmd *cobra.Command, args []string) error {
	level, err := logger.ParseLevel(flagLogLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)

	if flagLogFile != "" {
		if err := logger.SetLogFile(flagLogFile); err != nil {
			return err
		}
	}
	return nil
}

// app bundles the wired-up components behind every remote command.
type app struct {
	cfg    *config.Config
	client *gh.Client
	cache  *cache.Cache
	index  *index.DB
	res    *resolver.Resolver
	syncer *sync.Syncer
}

// newApp loads configuration, resolves the credential and wires the
// cache, resolver and syncer together. withIndex controls whether the
// local SQLite index is opened.
func newApp(withIndex bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	token, err := credstore.New("").Token()
	if err != nil {
		return nil, err
	}

	baseURL := os.Getenv(apiURLEnvVar)
	var client *gh.Client
	if baseURL != "" {
		client = gh.NewWithBaseURL(token, baseURL)
	} else {
		client = gh.New(token)
	}

	a := &app{
		cfg:    cfg,
		client: client,
		cache:  cache.New(cache.DefaultTTL),
	}

	if withIndex && cfg.Complete() {
		path, err := indexPath(cfg)
		if err != nil {
			return nil, err
		}
		idx, err := index.InitDB(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open local index: %w", err)
		}
		a.index = idx
	}

	a.res = resolver.New(a.client, a.cache, a.cfg)
	a.syncer = sync.New(a.client, a.cfg, a.cache, a.index, a.res)
	return a, nil
}

func (a *app) close() {
	if a.index != nil {
		if err := a.index.Close(); err != nil {
			logger.Warn("failed to close local index: %v", err)
		}
	}
}

// indexPath is ~/.cache/ghmark/{owner}_{repo}.db.
func indexPath(cfg *config.Config) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	dir := filepath.Join(homeDir, ".cache", "ghmark")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%s.db", cfg.Owner, cfg.Repo)), nil
}
