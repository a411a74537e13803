package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/efejjota/wasmcanvas/internal/config"
	"github.com/efejjota/wasmcanvas/internal/demo"
	"github.com/efejjota/wasmcanvas/internal/display"
	"github.com/efejjota/wasmcanvas/internal/frame"
	"github.com/efejjota/wasmcanvas/internal/imports"
	"github.com/efejjota/wasmcanvas/internal/loader"
	"github.com/efejjota/wasmcanvas/internal/page"
	"github.com/efejjota/wasmcanvas/internal/window"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	pagePath := flag.String("page", "", "Path to the page manifest")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	mode := flag.String("mode", "", "Display mode (window, headless, terminal)")
	ticks := flag.Uint64("ticks", 0, "Stop after N frames (0 = run until interrupted)")
	snapshot := flag.String("snapshot", "", "Write a PNG of all canvases on exit")
	printConfig := flag.Bool("print-config", false, "Print the effective settings and exit")
	flag.Parse()

	settings, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	// Flags win over the file and the environment, but only when given.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "page":
			settings.Page = *pagePath
		case "log-level":
			settings.LogLevel = *logLevel
		case "mode":
			settings.Display.Mode = *mode
		case "ticks":
			settings.Display.Ticks = *ticks
		case "snapshot":
			settings.Snapshot.Path = *snapshot
		}
	})
	if err := settings.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *printConfig {
		if err := settings.Dump(os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	logger, err := newLogger(settings.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(settings, logger); err != nil {
		logger.Fatal("wasmcanvas stopped", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	if lvl == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func run(settings *config.Settings, logger *zap.Logger) error {
	manifest, err := page.ParseManifest(settings.Page)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ldr, err := loader.New(logger, &loader.Config{CacheDir: settings.Runtime.CacheDir}, imports.LibM())
	if err != nil {
		return err
	}
	defer ldr.Close(context.Background())

	// Every driver schedules its frames here; the display back-end below
	// is the only thing that ticks it.
	queue := frame.NewQueue()
	host := demo.NewHost(ldr, queue, logger)
	defer host.Close(context.Background())

	doc := page.NewDocument()
	host.DefineElement(ctx, doc, manifest.CustomElement)
	manifest.Build(doc)

	logger.Info("Starting demos",
		zap.String("page", manifest.Path()),
		zap.String("title", manifest.Title),
		zap.Int("demos", len(manifest.Demos)),
		zap.String("mode", settings.Display.Mode),
	)

	// Startups must not hold up frames of demos that are already up.
	// Failures are logged per demo by the host.
	go host.StartAll(ctx, doc, manifest.Demos)

	if err := runDisplay(ctx, settings, doc, queue, logger); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if path := settings.Snapshot.Path; path != "" {
		if err := display.Snapshot(path, doc.Canvases()); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
		logger.Info("Snapshot written", zap.String("path", path))
	}
	logger.Info("Shutdown complete")
	return nil
}

func runDisplay(ctx context.Context, settings *config.Settings, doc *page.Document, queue *frame.Queue, logger *zap.Logger) error {
	hc := display.HeadlessConfig{Hz: settings.Display.Hz, Ticks: settings.Display.Ticks}

	switch settings.Display.Mode {
	case config.ModeHeadless:
		every := settings.Snapshot.Every
		return display.RunHeadless(ctx, queue, hc, func(tick uint64) error {
			if every == 0 || settings.Snapshot.Path == "" || (tick+1)%every != 0 {
				return nil
			}
			return display.Snapshot(settings.Snapshot.Path, doc.Canvases())
		})

	case config.ModeTerminal:
		term := display.NewTerminal(os.Stdout, int(os.Stdout.Fd()))
		return display.RunHeadless(ctx, queue, hc, func(uint64) error {
			return term.Draw(doc.Canvases())
		})

	default:
		return window.Run(ctx, doc, queue, window.Config{
			Title: settings.Display.Title,
			Scale: settings.Display.Scale,
		}, logger)
	}
}
