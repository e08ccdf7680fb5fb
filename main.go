package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/llehouerou/deckcast/internal/config"
	"github.com/llehouerou/deckcast/internal/db"
	"github.com/llehouerou/deckcast/internal/errmsg"
	"github.com/llehouerou/deckcast/internal/library"
	"github.com/llehouerou/deckcast/internal/logging"
	"github.com/llehouerou/deckcast/internal/output"
	"github.com/llehouerou/deckcast/internal/source"
)

type options struct {
	configPath string
	logLevel   string
}

func main() {
	var opts options

	rootCmd := &cobra.Command{
		Use:           "deckcast",
		Short:         "Multi-deck streaming audio console",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config.toml")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override the configured log level")

	rootCmd.AddCommand(
		setupPlayCommand(&opts),
		setupScanCommand(&opts),
		setupSourcesCommand(&opts),
	)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds what every command needs.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *sql.DB
	library *library.Library
}

func openApp(ctx context.Context, opts *options) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, errors.New(errmsg.Format(errmsg.OpConfigLoad, err))
	}
	logCfg := cfg.GetLogConfig()
	if opts.logLevel != "" {
		logCfg.Level = opts.logLevel
	}
	logger, err := logging.New(logCfg, os.Stderr)
	if err != nil {
		return nil, errors.New(errmsg.Format(errmsg.OpInitialize, err))
	}

	path := cfg.Library.Database
	if path == "" {
		path, err = db.DefaultPath()
		if err != nil {
			return nil, errors.New(errmsg.Format(errmsg.OpLibraryOpen, err))
		}
	}
	conn, err := db.Open(path)
	if err != nil {
		return nil, errors.New(errmsg.FormatWith(errmsg.OpLibraryOpen, path, err))
	}

	lib := library.New(conn)
	if err := lib.SyncSources(ctx, cfg.Library.Sources); err != nil {
		conn.Close()
		return nil, errors.New(errmsg.Format(errmsg.OpSourceAdd, err))
	}
	logger.Debug("library opened", "path", path)

	return &app{cfg: cfg, logger: logger, db: conn, library: lib}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.logger.Warn("closing library", "error", err)
	}
}

// sourceOpener decodes local files and caches remote ones.
func (a *app) sourceOpener() *source.Factory {
	dir := a.cfg.Cache.Dir
	if dir == "" {
		dir = source.DefaultCacheDir()
	}
	client := &http.Client{Timeout: 2 * time.Minute}
	cache := source.NewCache(dir, client, logging.Module(a.logger, "cache"))
	return source.NewFactory(cache, logging.Module(a.logger, "source"))
}

// sinkOpener builds the configured output backend.
func (a *app) sinkOpener(backend string) (output.Opener, error) {
	out := a.cfg.GetOutputConfig()
	if backend == "" {
		backend = out.Backend
	}
	logger := logging.Module(a.logger, "output")
	switch backend {
	case "speaker":
		return output.NewSpeaker(out.SampleRate, out.Buffer(), logger), nil
	case "wav":
		return output.NewRecorder(out.RecordDir, out.IsPaced(), logger), nil
	case "discard":
		return output.NewDiscard(out.IsPaced()), nil
	default:
		return nil, fmt.Errorf("unknown output backend %q", backend)
	}
}
