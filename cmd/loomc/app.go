// # cmd/loomc/app.go
package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gobwas/glob"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"loom/internal/compiler"
	"loom/internal/compiler/diag"
	"loom/internal/compiler/parser"
	"loom/internal/config"
	"loom/internal/history"
	"loom/internal/observability"
	"loom/internal/routes"
	"loom/internal/util"
	"loom/internal/watcher"
)

type App struct {
	Config   *config.Config
	Compiler *compiler.Compiler
	Manifest *routes.Manifest

	sessionID  string
	store      *history.Store
	limiter    *util.Limiter
	teaProgram *tea.Program
}

// BuildReport summarizes one batch build or watch-mode rebuild.
type BuildReport struct {
	Files    int
	Pages    int
	Errors   int // fatal parse errors
	Issues   int // recoverable diagnostics
	Duration time.Duration
	Diags    []diag.Diagnostic
}

func NewApp(cfg *config.Config) (*App, error) {
	app := &App{
		Config:    cfg,
		Compiler:  compiler.New(cfg.Vocabulary()),
		Manifest:  routes.NewManifest(),
		sessionID: uuid.NewString(),
		limiter:   util.NewLimiter(cfg.Watch.RatePerSecond, cfg.Watch.Burst),
	}

	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, fmt.Errorf("open build history: %w", err)
		}
		app.store = store
	}

	return app, nil
}

func (a *App) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

// BuildAll scans the source trees and compiles every component file, then
// writes the route manifest.
func (a *App) BuildAll(ctx context.Context) (BuildReport, error) {
	ctx, span := observability.Tracer.Start(ctx, "loomc.BuildAll")
	defer span.End()

	start := time.Now()
	var report BuildReport

	files, err := a.ScanDirectories(a.Config.SrcPaths, a.Config.Exclude.Dirs, a.Config.Exclude.Files)
	if err != nil {
		return report, err
	}

	for _, path := range files {
		a.compileOne(ctx, path, &report)
	}

	if err := a.Manifest.Write(a.Config.Output.Routes); err != nil {
		slog.Error("failed to write route manifest", "path", a.Config.Output.Routes, "error", err)
	}
	observability.RoutesGauge.Set(float64(a.Manifest.Len()))

	report.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Int("files", report.Files),
		attribute.Int("errors", report.Errors),
	)
	a.recordSnapshot(report)
	return report, nil
}

// compileOne runs the pipeline on one file, writes the generated sibling and
// updates the manifest entry. Fatal parse errors skip the write but never
// stop the batch.
func (a *App) compileOne(ctx context.Context, path string, report *BuildReport) {
	_, span := observability.Tracer.Start(ctx, "loomc.compileFile",
		trace.WithAttributes(attribute.String("path", path)))
	defer span.End()

	report.Files++
	start := time.Now()

	content, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("failed to read file", "path", path, "error", err)
		report.Errors++
		observability.CompiledTotal.WithLabelValues("read_error").Inc()
		return
	}

	out, err := a.Compiler.Compile(path, content)
	if out.Diagnostics != nil {
		for _, d := range out.Diagnostics.All() {
			observability.DiagnosticsTotal.WithLabelValues(string(d.Kind)).Inc()
			report.Diags = append(report.Diags, d)
			if d.Fatal() {
				report.Errors++
			} else {
				report.Issues++
			}
		}
	}
	if err != nil {
		slog.Warn("compile failed", "path", path, "error", err)
		observability.CompiledTotal.WithLabelValues("parse_error").Inc()
		return
	}

	if err := os.WriteFile(out.File, []byte(out.Code), 0o644); err != nil {
		slog.Error("failed to write output", "path", out.File, "error", err)
		report.Errors++
		observability.CompiledTotal.WithLabelValues("write_error").Inc()
		return
	}

	a.Manifest.Set(path, out.Route)
	if out.Route != nil {
		report.Pages++
	}

	grammar := strings.TrimPrefix(filepath.Ext(path), ".")
	observability.CompileDuration.WithLabelValues(grammar).Observe(time.Since(start).Seconds())
	observability.CompiledTotal.WithLabelValues("ok").Inc()
	slog.Debug("compiled", "path", path, "out", out.File, "page", out.Route != nil)
}

func (a *App) ScanDirectories(paths []string, excludeDirs, excludeFiles []string) ([]string, error) {
	var files []string

	dirGlobs := make([]glob.Glob, 0, len(excludeDirs))
	for _, p := range excludeDirs {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude dir pattern %q: %w", p, err)
		}
		dirGlobs = append(dirGlobs, g)
	}

	fileGlobs := make([]glob.Glob, 0, len(excludeFiles))
	for _, p := range excludeFiles {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude file pattern %q: %w", p, err)
		}
		fileGlobs = append(fileGlobs, g)
	}

	for _, root := range paths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			base := filepath.Base(path)

			if d.IsDir() {
				for _, g := range dirGlobs {
					if g.Match(base) {
						return filepath.SkipDir
					}
				}
				return nil
			}

			if compiler.IsGenerated(path) {
				return nil
			}
			if parser.DetectGrammar(path) == "" {
				return nil
			}

			for _, g := range fileGlobs {
				if g.Match(base) {
					return nil
				}
			}

			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return files, nil
}

// HandleChanges is the watcher callback: recompile the changed files, patch
// the manifest, and refresh the TUI.
func (a *App) HandleChanges(paths []string) {
	observability.WatcherEventsTotal.Add(float64(len(paths)))

	if !a.limiter.Allow(1) {
		observability.RebuildsThrottledTotal.Inc()
		if err := a.limiter.Wait(context.Background(), 1); err != nil {
			return
		}
	}

	slog.Info("detected changes", "count", len(paths))
	ctx, span := observability.Tracer.Start(context.Background(), "loomc.rebuild")
	defer span.End()

	start := time.Now()
	var report BuildReport

	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			a.Manifest.Set(path, nil)
			gen := compiler.OutputPath(path)
			if rmErr := os.Remove(gen); rmErr != nil && !os.IsNotExist(rmErr) {
				slog.Warn("failed to remove stale output", "path", gen, "error", rmErr)
			}
			continue
		}
		a.compileOne(ctx, path, &report)
	}

	if err := a.Manifest.Write(a.Config.Output.Routes); err != nil {
		slog.Error("failed to write route manifest", "path", a.Config.Output.Routes, "error", err)
	}
	observability.RoutesGauge.Set(float64(a.Manifest.Len()))

	report.Duration = time.Since(start)
	a.recordSnapshot(report)
	a.PrintSummary(report)

	if a.teaProgram != nil {
		a.teaProgram.Send(updateMsg{report: report, routes: a.Manifest.Len()})
	}

	if a.Config.Alerts.Beep && (report.Errors > 0 || report.Issues > 0) {
		fmt.Print("\a")
	}
}

func (a *App) recordSnapshot(report BuildReport) {
	if a.store == nil {
		return
	}
	err := a.store.SaveSnapshot(history.Snapshot{
		SessionID:  a.sessionID,
		FileCount:  report.Files,
		PageCount:  report.Pages,
		ErrorCount: report.Errors,
		IssueCount: report.Issues,
		DurationMS: report.Duration.Milliseconds(),
	})
	if err != nil {
		slog.Warn("failed to record build snapshot", "error", err)
	}
}

func (a *App) PrintSummary(report BuildReport) {
	if !a.Config.Alerts.Terminal {
		return
	}

	fmt.Println(strings.Repeat("-", 40))
	fmt.Printf("Build: %d files, %d pages in %v\n", report.Files, report.Pages, report.Duration)

	if report.Errors == 0 && report.Issues == 0 {
		fmt.Println("✅ No issues found.")
	} else {
		fmt.Printf("⚠️  %d errors, %d warnings:\n", report.Errors, report.Issues)
		for _, d := range report.Diags {
			fmt.Printf("   %s\n", d.String())
		}
	}
	fmt.Println(strings.Repeat("-", 40))
}

func (a *App) RunUI() error {
	m := initialModel()
	p := tea.NewProgram(m, tea.WithAltScreen())
	a.teaProgram = p

	go func() {
		report, err := a.BuildAll(context.Background())
		if err != nil {
			slog.Error("initial build failed", "error", err)
			return
		}
		a.teaProgram.Send(updateMsg{report: report, routes: a.Manifest.Len()})
	}()

	_, err := p.Run()
	return err
}

func (a *App) StartWatcher() error {
	w, err := watcher.NewWatcher(
		a.Config.Watch.Debounce,
		a.Config.Exclude.Dirs,
		a.Config.Exclude.Files,
		a.HandleChanges,
	)
	if err != nil {
		return err
	}
	// Runs until the process exits.
	return w.Watch(a.Config.SrcPaths)
}
