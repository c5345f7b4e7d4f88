// Package cli implements the lighthttp command-line interface.
//
// The CLI sends HTTP requests through the request and cached packages, so
// every outcome is reported the same way the library reports it: a status
// line, then the body.
//
// # Commands
//
//   - send: send a request, optionally through a cache backend
//   - status: send a request and report only its status
//   - cache: inspect or clear the file cache
//   - completion: generate shell completion scripts
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context.
package cli

import (
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/matzehuels/lighthttp/internal/config"
	"github.com/matzehuels/lighthttp/pkg/buildinfo"
	"github.com/matzehuels/lighthttp/pkg/cache"
	"github.com/matzehuels/lighthttp/pkg/observability"
	"github.com/matzehuels/lighthttp/pkg/request"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "lighthttp"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// ErrRequestFailed is returned by commands whose request did not succeed.
// The failure has already been printed.
var ErrRequestFailed = stderrors.New("request failed")

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Out    io.Writer

	configPath string
	cfg        config.Config
	metrics    bool
	registry   *prometheus.Registry

	// memory backs the "memory" cache backend for the lifetime of the process.
	memory *cache.Memory
}

// New creates a new CLI instance with a default logger writing to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Out:    os.Stdout,
		cfg:    config.Default(),
		memory: cache.NewMemory(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	var (
		baseURL string
		timeout time.Duration
	)

	root := &cobra.Command{
		Use:           appName,
		Short:         "lighthttp sends HTTP requests with uniform status reporting and caching",
		Long:          `lighthttp sends HTTP requests, reports transport and status failures uniformly, decodes JSON bodies and can memoize successful responses in memory, on disk, in Redis or in MongoDB.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("base") {
				cfg.BaseURL = baseURL
			}
			if flags.Changed("timeout") {
				cfg.Timeout = timeout
			}
			c.cfg = cfg

			if c.metrics {
				c.registry = prometheus.NewRegistry()
				m := observability.NewPrometheus(c.registry)
				observability.SetHTTPHooks(m)
				observability.SetCacheHooks(m)
			}

			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.registry == nil {
				return nil
			}
			return printMetrics(c.Out, c.registry)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/lighthttp/config.toml)")
	pf.StringVar(&baseURL, "base", "", "base URL relative request URIs are resolved against")
	pf.DurationVar(&timeout, "timeout", 0, "request timeout (default from config, 30s)")
	pf.BoolVar(&c.metrics, "metrics", false, "print request and cache metrics after the command")

	root.AddCommand(c.sendCommand())
	root.AddCommand(c.statusCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// newClient builds a request client from the loaded configuration.
func (c *CLI) newClient() (*request.Client, error) {
	return request.NewClient(c.cfg.BaseURL,
		request.WithTimeout(c.cfg.Timeout),
		request.WithDefaultHeaders(c.cfg.Headers),
		request.WithLogger(c.Logger),
	)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/lighthttp/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// fileCacheDir returns the configured file cache directory, or cacheDir.
func (c *CLI) fileCacheDir() (string, error) {
	if c.cfg.Cache.Dir != "" {
		return c.cfg.Cache.Dir, nil
	}
	return cacheDir()
}
