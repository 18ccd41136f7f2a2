package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"flipview/internal/app"
	"flipview/internal/config"
	"flipview/internal/engine"
	"flipview/internal/logger"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "configs/config.yaml"

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "flipview",
		Short:         "Query engine for daily flip partitions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default $FLIPVIEW_CONFIG or "+defaultConfigPath+")")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override app.log_level")

	root.AddCommand(newServeCmd(opts), newQueryCmd(opts), newPartitionsCmd(opts))
	return root
}

// resolveConfigPath picks the flag, then FLIPVIEW_CONFIG, then the default
// file when it exists. An empty result means environment and defaults only.
func (o *rootOptions) resolveConfigPath() string {
	if p := strings.TrimSpace(o.configPath); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv("FLIPVIEW_CONFIG")); p != "" {
		return p
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath
	}
	return ""
}

func (o *rootOptions) loadConfig() (*config.Config, string, error) {
	path := o.resolveConfigPath()
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", fmt.Errorf("load config: %w", err)
	}
	if o.logLevel != "" {
		cfg.App.LogLevel = o.logLevel
	}
	return cfg, path, nil
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logFile, err := setupLogOutput(cfg.App.LogPath, os.Stdout)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			if logFile != nil {
				defer logFile.Close()
			}
			defer logger.Sync()
			logger.Infof("config loaded (env=%s, file=%s)", cfg.App.Env, orDefault(path, "<env>"))

			a, err := app.NewApp(cfg, app.WithConfigPath(path))
			if err != nil {
				return fmt.Errorf("init app: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.Run(ctx)
		},
	}
}

func newPartitionsCmd(opts *rootOptions) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "partitions",
		Short: "List the days the partition index knows about",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openCLIApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()
			eng := a.Engine()
			keys, err := eng.Partitions(cmd.Context())
			if refresh {
				keys, err = eng.RefreshIndex(cmd.Context())
			}
			if err != nil {
				return err
			}
			if keys == nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "no partition index found")
				return nil
			}
			out := cmd.OutOrStdout()
			for _, k := range keys {
				fmt.Fprintln(out, k)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore the cached index")
	return cmd
}

// openCLIApp builds an App without the HTTP server and sends logs to stderr
// so stdout only carries command output.
func openCLIApp(opts *rootOptions) (*app.App, error) {
	cfg, _, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	if _, err := setupLogOutput("", os.Stderr); err != nil {
		return nil, err
	}
	return app.NewApp(cfg, app.WithoutHTTP())
}

func setupLogOutput(path string, console io.Writer) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		log.SetOutput(console)
		logger.SetOutput(console)
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(console, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func isNoData(err error) bool {
	return errors.Is(err, engine.ErrNoDataAvailable)
}
