package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"

	"github.com/rebeliceyang/lazyroster/internal/app"
	"github.com/rebeliceyang/lazyroster/internal/config"
	"github.com/rebeliceyang/lazyroster/internal/engine"
	"github.com/rebeliceyang/lazyroster/internal/filter"
	"github.com/rebeliceyang/lazyroster/internal/history"
	"github.com/rebeliceyang/lazyroster/internal/logging"
	"github.com/rebeliceyang/lazyroster/internal/models"
	"github.com/rebeliceyang/lazyroster/internal/presets"
)

// cliOptions holds the parsed command line
type cliOptions struct {
	configFile string

	file    string
	sheet   string
	appends []string
	pgDSN   string
	pgQuery string
	pgTable string

	rules      []string
	quick      []string
	preset     string
	savePreset string
	mode       string
	search     string
	restore    int64

	stats        bool
	limit        int
	export       string
	format       string
	snapshot     bool
	note         string
	recent       int
	recentFilter string

	tui bool
}

// batch reports whether a flag asked for non-interactive output
func (o *cliOptions) batch() bool {
	return o.stats || o.export != "" || o.snapshot || o.recent > 0 || o.savePreset != "" || o.limit > 0
}

func parseFlags(args []string, stderr io.Writer) (*cliOptions, error) {
	o := &cliOptions{}
	fs := pflag.NewFlagSet("lazyroster", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVarP(&o.configFile, "config", "c", "", "config file (default: user config dir, then ./config.yaml)")
	fs.StringVarP(&o.file, "file", "f", "", "dataset file (.csv, .tsv, .json or .xlsx)")
	fs.StringVar(&o.sheet, "sheet", "", "workbook sheet to load (default: first sheet)")
	fs.StringArrayVar(&o.appends, "append", nil, "append the rows of another dataset file (repeatable)")
	fs.StringVar(&o.pgDSN, "pg-dsn", "", "Postgres connection string (overrides postgres.* config)")
	fs.StringVar(&o.pgQuery, "pg-query", "", "SQL query whose result is the dataset")
	fs.StringVar(&o.pgTable, "pg-table", "", "Table (or schema.table) loaded as the dataset")
	fs.StringArrayVarP(&o.rules, "rule", "r", nil, "rule expression, e.g. GPA>=3.5 or Status~Active (repeatable)")
	fs.StringArrayVarP(&o.quick, "quick", "q", nil, "quick filter id: "+quickIDs()+" (repeatable)")
	fs.StringVarP(&o.preset, "preset", "p", "", "apply a saved preset by name")
	fs.StringVar(&o.savePreset, "save-preset", "", "save the resulting rules as a named preset")
	fs.StringVarP(&o.mode, "mode", "m", "", "combine rules with all or any (default from config)")
	fs.StringVarP(&o.search, "search", "s", "", "search text; !text negates, Column:text targets a column")
	fs.Int64Var(&o.restore, "restore", 0, "restore the rules, mode and search of a snapshot by id")
	fs.BoolVar(&o.stats, "stats", false, "print statistics of the filtered rows")
	fs.IntVarP(&o.limit, "limit", "n", 0, "print at most n rows (default data.page_size)")
	fs.StringVarP(&o.export, "export", "o", "", "export the filtered rows to a file, or - for stdout")
	fs.StringVar(&o.format, "format", "", "export format: csv, tsv, json or xlsx (default from extension or config)")
	fs.BoolVar(&o.snapshot, "snapshot", false, "record the filtered view in history")
	fs.StringVar(&o.note, "note", "", "note stored with --snapshot")
	fs.IntVar(&o.recent, "recent", 0, "list the n most recent snapshots")
	fs.StringVar(&o.recentFilter, "recent-filter", "", "only list snapshots matching this text")
	fs.BoolVarP(&o.tui, "tui", "t", false, "force the interactive interface")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.file == "" && fs.NArg() > 0 {
		o.file = fs.Arg(0)
	}
	return o, nil
}

func quickIDs() string {
	ids := make([]string, 0, len(presets.List()))
	for _, qf := range presets.List() {
		ids = append(ids, qf.ID)
	}
	return strings.Join(ids, ", ")
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	loader := config.NewLoader(opts.configFile)
	cfg, err := loader.Load()
	if err != nil {
		log.New(stderr, "", 0).Printf("Warning: Could not load config: %v (using defaults)", err)
		cfg = config.GetDefaults()
	}

	interactive := opts.tui || (!opts.batch() && isTerminal(stdout))

	logger, closeLog, err := newLogger(cfg, interactive, stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	if opts.recent > 0 {
		return listRecent(stdout, cfg, opts)
	}

	ctx := context.Background()
	src, err := openSource(ctx, opts, cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	mode := cfg.Mode()
	if opts.mode != "" {
		if mode, err = models.ParseFilterMode(opts.mode); err != nil {
			return err
		}
	}

	session := engine.NewSession(
		engine.WithLogger(logger),
		engine.WithParallelism(cfg.Parallelism()),
		engine.WithMode(mode),
	)

	ds, err := src.Load(ctx)
	if err != nil {
		logger.LogLoad(ctx, src.Name(), 0, 0, err)
		return err
	}
	session.Load(ds)

	var store *history.Store
	if cfg.History.Enabled && (interactive || opts.snapshot || opts.restore > 0) {
		if store, err = history.NewStore(cfg.HistoryPath()); err != nil {
			return err
		}
		defer store.Close()
	} else if opts.snapshot || opts.restore > 0 {
		return errHistoryDisabled
	}

	if opts.restore > 0 {
		if opts.preset != "" {
			return errors.New("--restore and --preset are mutually exclusive")
		}
		if err := restoreSnapshot(session, store, opts.restore, stderr); err != nil {
			return err
		}
	}

	var mgr *presets.Manager
	if opts.preset != "" || opts.savePreset != "" || interactive {
		if mgr, err = presets.NewManager(cfg.PresetsPath()); err != nil {
			return err
		}
	}

	if err := applyRules(session, mgr, opts, stderr); err != nil {
		return err
	}
	if opts.mode != "" {
		session.SetMode(mode)
	}
	applySearch(session, cfg, opts.search)

	if opts.savePreset != "" {
		p, err := mgr.Add(opts.savePreset, "", session.Rules())
		if err != nil {
			return err
		}
		fmt.Fprintf(stderr, "Saved preset %q (%d rules)\n", p.Name, len(p.Rules))
	}

	if interactive {
		return runTUI(cfg, loader, logger, app.Deps{
			Session: session,
			Logger:  logger,
			Presets: mgr,
			History: store,
			Reload:  src.Load,
		})
	}
	return runBatch(ctx, stdout, stderr, cfg, opts, session, store, logger)
}

var errHistoryDisabled = errors.New("history is disabled in config")

// listRecent prints recorded snapshots; it needs no dataset
func listRecent(w io.Writer, cfg *config.Config, opts *cliOptions) error {
	if !cfg.History.Enabled {
		return errHistoryDisabled
	}
	store, err := history.NewStore(cfg.HistoryPath())
	if err != nil {
		return err
	}
	defer store.Close()
	return printRecent(w, store, opts.recent, opts.recentFilter)
}

// restoreSnapshot reinstalls the rules, mode and search recorded in a snapshot
func restoreSnapshot(session *engine.Session, store *history.Store, id int64, stderr io.Writer) error {
	snap, err := store.Get(id)
	if err != nil {
		return err
	}
	rs, err := snap.RuleSet()
	if err != nil {
		return fmt.Errorf("snapshot %d: %w", id, err)
	}
	for _, stale := range session.Restore(rs, snap.Search) {
		fmt.Fprintf(stderr, "Warning: %v\n", stale)
	}
	fmt.Fprintf(stderr, "Restored snapshot #%d (%d rules, %s)\n", snap.ID, len(snap.Rules), strings.ToUpper(string(snap.Mode)))
	return nil
}

// applyRules installs --preset, then --rule and --quick on top of it
func applyRules(session *engine.Session, mgr *presets.Manager, opts *cliOptions, stderr io.Writer) error {
	if opts.preset != "" {
		p, err := mgr.GetByName(opts.preset)
		if err != nil {
			return err
		}
		rs, err := presets.RuleSet(*p)
		if err != nil {
			return fmt.Errorf("preset %q: %w", p.Name, err)
		}
		for _, stale := range session.ReplaceRules(rs) {
			fmt.Fprintf(stderr, "Warning: %v\n", stale)
		}
		if err := mgr.RecordUsage(p.ID); err != nil {
			fmt.Fprintf(stderr, "Warning: %v\n", err)
		}
	}

	ds := session.Dataset()
	kindOf := func(column string) (models.ColumnKind, bool) {
		c, ok := ds.Column(column)
		return c.Kind, ok
	}
	for _, expr := range opts.rules {
		r, err := filter.ParseExpr(expr, kindOf)
		if err != nil {
			return fmt.Errorf("--rule %q: %w", expr, err)
		}
		if _, err := session.AddRule(r); err != nil {
			return fmt.Errorf("--rule %q: %w", expr, err)
		}
	}
	for _, id := range opts.quick {
		if err := session.ApplyQuickFilter(id); err != nil {
			return fmt.Errorf("--quick %q: %w", id, err)
		}
	}
	return nil
}

// applySearch installs the search text. Without a Column: prefix the
// configured default search column is used when the dataset has it.
func applySearch(session *engine.Session, cfg *config.Config, text string) {
	if text == "" {
		return
	}
	q := session.SetSearchText(text)
	col := cfg.General.DefaultSearchColumn
	if q.AllColumns() && col != "" && session.Dataset().ColumnIndex(col) >= 0 {
		q.Column = col
		session.SetSearch(q)
	}
}

func runTUI(cfg *config.Config, loader *config.Loader, logger *logging.Logger, deps app.Deps) error {
	model := app.New(cfg, deps)

	tuiOpts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.UI.MouseEnabled {
		tuiOpts = append(tuiOpts, tea.WithMouseCellMotion())
	}
	p := tea.NewProgram(model, tuiOpts...)

	if loader.File() != "" {
		loader.Watch(func(next *config.Config, err error) {
			if err != nil {
				logger.Warn("config reload failed", "file", loader.File(), "error", err)
				p.Send(app.StatusMsg{Text: "config reload failed: " + err.Error()})
				return
			}
			if level, err := logging.ParseLevel(next.Log.Level); err == nil {
				logger.SetLevel(level)
			}
			logger.Info("config reloaded", "file", loader.File())
			p.Send(app.ConfigChangedMsg{Config: next})
		})
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}

// newLogger builds the logger from config. The TUI owns the terminal, so
// in interactive mode logs go to log.file or nowhere.
func newLogger(cfg *config.Config, interactive bool, stderr io.Writer) (*logging.Logger, func(), error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}

	var out io.Writer = stderr
	closeFn := func() {}
	switch {
	case cfg.Log.File != "":
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = f
		closeFn = func() { _ = f.Close() }
	case interactive:
		out = io.Discard
	}

	return logging.New(logging.Options{Level: level, Format: cfg.Log.Format, Output: out}), closeFn, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
