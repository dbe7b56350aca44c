package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/samber/do"

	"github.com/robert-at-pretension-io/ipxact-lint/internal/config"
	"github.com/robert-at-pretension-io/ipxact-lint/internal/library"
	"github.com/robert-at-pretension-io/ipxact-lint/internal/lint"
)

// newInjector wires the services one command needs for the project at
// rootPath. Services are built lazily, so commands that never touch the
// library never scan it.
func newInjector(ctx context.Context, opts *globalOptions, rootPath string, stderr io.Writer) *do.Injector {
	injector := do.New()

	do.Provide(injector, func(i *do.Injector) (*slog.Logger, error) {
		return newLogger(opts, stderr)
	})

	do.Provide(injector, func(i *do.Injector) (*config.Config, error) {
		if opts.configPath != "" {
			cfg, err := config.LoadFile(opts.configPath)
			if err != nil {
				return nil, fmt.Errorf("loading config %s: %w", opts.configPath, err)
			}
			return cfg, nil
		}
		return config.Load(rootPath)
	})

	do.Provide(injector, func(i *do.Injector) (*lint.Linter, error) {
		cfg, err := do.Invoke[*config.Config](i)
		if err != nil {
			return nil, err
		}
		logger, err := do.Invoke[*slog.Logger](i)
		if err != nil {
			return nil, err
		}
		return lint.New(cfg, logger), nil
	})

	do.Provide(injector, func(i *do.Injector) (*library.Store, error) {
		linter, err := do.Invoke[*lint.Linter](i)
		if err != nil {
			return nil, err
		}
		return linter.Open(ctx, rootPath)
	})

	return injector
}

func newLogger(opts *globalOptions, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	switch strings.ToLower(opts.logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning", "":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", opts.logLevel)
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if opts.format == lint.FormatJSON {
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
}
