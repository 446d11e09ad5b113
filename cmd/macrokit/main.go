// Package main is the entry point for macrokit.
//
// macrokit renders macros against a workspace of projects stored as JSONL
// tables. Configuration is read from CLI flags, with defaults from
// MACROKIT_* environment variables.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/fsnotify/fsnotify"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/maruel/macrokit/internal/host"
	"github.com/maruel/macrokit/internal/macro"
	"github.com/maruel/macrokit/internal/render"
)

// envConfig holds the defaults read from the environment.
type envConfig struct {
	DataDir  string        `env:"MACROKIT_DATA_DIR" envDefault:"./data"`
	Project  string        `env:"MACROKIT_PROJECT"`
	LogLevel string        `env:"MACROKIT_LOG_LEVEL" envDefault:"info"`
	CacheTTL time.Duration `env:"MACROKIT_CACHE_TTL" envDefault:"5m"`
	User     string        `env:"MACROKIT_USER"`
}

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "macrokit: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	var cfg envConfig
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	version := flag.Bool("version", false, "Print version and exit")
	dataDir := flag.String("data-dir", cfg.DataDir, "Workspace directory")
	projectID := flag.String("project", cfg.Project, "Project identifier; defaults to the only project of the workspace")
	user := flag.String("user", cfg.User, "Login of the user rendering the page, used by CURRENT USER")
	card := flag.Int("card", 0, "Number of the card the page belongs to, used by THIS CARD")
	mqlQuery := flag.String("mql", "", "MQL query")
	apiVersion := flag.String("api-version", "v2", "Result key format (v1, v2)")
	macroName := flag.String("macro", "table", "Macro to render (value, table, variable)")
	variable := flag.String("variable", "", "Project variable rendered by -macro variable")
	cacheable := flag.Bool("cacheable", false, "Print whether the macro output can be cached and exit")
	initWS := flag.Bool("init", false, "Write the demo workspace into -data-dir")
	watch := flag.Bool("watch", false, "Render again when workspace files change")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	cacheTTL := flag.Duration("cache-ttl", cfg.CacheTTL, "How long cacheable output is reused; 0 disables the cache")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}

	if *version {
		printVersion()
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	ll := &slog.LevelVar{}
	switch *logLevel {
	case "debug":
		ll.Set(slog.LevelDebug)
	case "info":
		ll.Set(slog.LevelInfo)
	case "warn":
		ll.Set(slog.LevelWarn)
	case "error":
		ll.Set(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level: %q", *logLevel)
	}
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:       ll,
		TimeFormat:  "15:04:05.000", // Like time.TimeOnly plus milliseconds.
		NoColor:     !isatty.IsTerminal(os.Stderr.Fd()),
		ReplaceAttr: dropZero,
	}))
	slog.SetDefault(logger)

	if *initWS {
		if err := host.WriteSample(*dataDir); err != nil {
			return fmt.Errorf("failed to write the demo workspace: %w", err)
		}
		slog.InfoContext(ctx, "Wrote demo workspace", "dir", *dataDir, "project", host.SampleProject)
		if *mqlQuery == "" && *variable == "" {
			return nil
		}
	}

	v, err := macro.ParseAPIVersion(*apiVersion)
	if err != nil {
		return err
	}
	var m render.Macro
	switch *macroName {
	case "value":
		m = &render.ValueMacro{Query: *mqlQuery, Version: v}
	case "table":
		m = &render.TableMacro{Query: *mqlQuery, Version: v}
	case "variable":
		if *variable == "" {
			return errors.New("-macro variable requires -variable")
		}
		m = &render.ProjectVariableMacro{Name: *variable}
	default:
		return fmt.Errorf("unknown macro: %q", *macroName)
	}
	if *macroName != "variable" && *mqlQuery == "" {
		return fmt.Errorf("-macro %s requires -mql", *macroName)
	}

	if *user != "" {
		ctx = host.WithCurrentUser(ctx, *user)
	}
	if *card > 0 {
		ctx = host.WithCurrentCard(ctx, *card)
	}
	r := &runner{
		dataDir:   *dataDir,
		project:   *projectID,
		macro:     m,
		cacheable: *cacheable,
		renderer:  render.NewRenderer(*cacheTTL),
	}
	if err := r.run(ctx); err != nil {
		if !*watch {
			return err
		}
		slog.ErrorContext(ctx, "Render failed", "err", err)
	}
	if !*watch {
		return nil
	}
	return r.watch(ctx)
}

// runner loads the workspace and renders one macro.
type runner struct {
	dataDir   string
	project   string
	macro     render.Macro
	cacheable bool
	renderer  *render.Renderer
}

func (r *runner) run(ctx context.Context) error {
	start := time.Now()
	store, err := host.LoadWorkspace(ctx, r.dataDir)
	if err != nil {
		return err
	}
	h := host.New(store, host.Options{})
	id := r.project
	if id == "" {
		ids, err := h.Projects()
		if err != nil {
			return err
		}
		if len(ids) != 1 {
			return fmt.Errorf("-project is required, the workspace has %d projects", len(ids))
		}
		id = ids[0]
	}
	p, err := h.Project(ctx, id, macro.QueryOptions{AlertReceiver: logAlerts{ctx}})
	if err != nil {
		return err
	}
	if r.cacheable {
		ok, err := r.macro.CanBeCached(ctx, p)
		if err != nil {
			return err
		}
		fmt.Println(ok)
		return nil
	}
	res, err := r.renderer.Render(ctx, p, r.macro)
	if err != nil {
		return err
	}
	fmt.Print(res.Output)
	if res.Output != "" && res.Output[len(res.Output)-1] != '\n' {
		fmt.Println()
	}
	slog.DebugContext(ctx, "Rendered", "project", id, "macro", r.macro.Key(), "cacheable", res.Cacheable, "hit", res.Hit, "dur", time.Since(start))
	return nil
}

// watch renders again on every change under the workspace until ctx is
// canceled.
func (r *runner) watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()
	if err := r.addDirs(w); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Watching workspace", "dir", r.dataDir)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			slog.InfoContext(ctx, "Workspace modified", "path", event.Name, "op", event.Op.String())
			if event.Has(fsnotify.Create) {
				if err := r.addDirs(w); err != nil {
					slog.WarnContext(ctx, "Error watching workspace", "err", err)
				}
			}
			r.renderer.Invalidate()
			if err := r.run(ctx); err != nil {
				slog.ErrorContext(ctx, "Render failed", "err", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.WarnContext(ctx, "Error watching workspace", "err", err)
		}
	}
}

// addDirs watches the workspace directory and each project directory.
func (r *runner) addDirs(w *fsnotify.Watcher) error {
	if err := w.Add(r.dataDir); err != nil {
		return err
	}
	entries, err := os.ReadDir(r.dataDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			if err := w.Add(filepath.Join(r.dataDir, e.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

// logAlerts reports query alerts as warnings.
type logAlerts struct {
	ctx context.Context //nolint:containedctx // Alerts are raised synchronously within the render.
}

func (a logAlerts) Alert(message string) {
	slog.WarnContext(a.ctx, "MQL alert", "msg", message)
}

// dropZero drops attributes with a zero value.
func dropZero(groups []string, a slog.Attr) slog.Attr {
	skip := false
	switch t := a.Value.Any().(type) {
	case string:
		skip = t == ""
	case bool:
		skip = !t
	case uint64:
		skip = t == 0
	case int64:
		skip = t == 0
	case float64:
		skip = t == 0
	case time.Time:
		skip = t.IsZero()
	case time.Duration:
		skip = t == 0
	case nil:
		skip = true
	}
	if skip {
		return slog.Attr{}
	}
	return a
}

func printVersion() {
	version, goVersion, revision, dirty := getBuildInfo()
	fmt.Printf("macrokit %s\n", version)
	fmt.Printf("  Go version: %s\n", goVersion)
	fmt.Printf("  Revision:   %s\n", revision)
	if dirty {
		fmt.Printf("  Modified:   true\n")
	}
}

func getBuildInfo() (version, goVersion, revision string, dirty bool) {
	version = "unknown"
	goVersion = "unknown"
	revision = "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	version = info.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}
	goVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return
}
