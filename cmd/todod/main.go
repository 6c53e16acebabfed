package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/todod/internal/config"
	"github.com/sandeepkv93/todod/internal/logger"
	"github.com/sandeepkv93/todod/internal/remote"
	"github.com/sandeepkv93/todod/internal/scheduler"
	"github.com/sandeepkv93/todod/internal/settings"
	"github.com/sandeepkv93/todod/internal/storage"
	"github.com/sandeepkv93/todod/internal/store"
	"github.com/sandeepkv93/todod/internal/transfer"
	"github.com/sandeepkv93/todod/internal/update"
	"go.uber.org/zap"
)

const usage = `usage: todod [-config file] [command]

commands:
  (none)          start the terminal UI
  export [file]   write every todo as JSON (stdout when file is omitted)
  import <file>   upsert todos from an export (sqlite backend only)
`

func main() {
	configPath := flag.String("config", "todod.yml", "optional YAML config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if err := run(*configPath, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "todod failed: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogDevelopment, cfg.LogFile)
	if err != nil {
		return err
	}
	defer logger.Sync(log)

	backend, closeBackend, err := openBackend(cfg, log)
	if err != nil {
		return err
	}
	defer closeBackend()

	if len(args) > 0 {
		return runCommand(cfg, backend, args)
	}
	return runTUI(cfg, backend, log)
}

func openBackend(cfg config.RuntimeConfig, log *zap.Logger) (store.Persistence, func(), error) {
	switch cfg.Backend {
	case config.BackendRemote:
		client, err := remote.New(cfg.APIURL,
			remote.WithToken(cfg.APIToken),
			remote.WithTimeout(cfg.RequestTimeout),
			remote.WithLogger(log.Named("remote")),
		)
		if err != nil {
			return nil, nil, err
		}
		return client, func() {}, nil
	default:
		repo, err := storage.OpenSQLite(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		backend := storage.NewBackend(repo, storage.WithBackendLogger(log.Named("storage")))
		return backend, func() { _ = repo.Close() }, nil
	}
}

func runTUI(cfg config.RuntimeConfig, backend store.Persistence, log *zap.Logger) error {
	prefsProvider := settings.FileProvider{Path: cfg.SettingsPath}
	prefs, err := prefsProvider.Load()
	if err != nil {
		log.Warn("preferences unreadable, using defaults", zap.Error(err))
	}

	opts := []store.Option{
		store.WithLogger(log.Named("store")),
		store.WithCriteria(prefs.Criteria),
		store.WithTopCategories(cfg.TopCategories),
	}
	if sess, ok := backend.(store.Session); ok {
		opts = append(opts, store.WithSession(sess))
	}
	st := store.New(backend, opts...)
	st.SetSearch(prefs.Search)

	engine := scheduler.NewEngine(cfg.SchedulerBuffer, scheduler.WithLogger(log.Named("scheduler")))
	engine.Start()
	defer engine.Stop()

	var notifier update.DesktopNotifier = update.NoopDesktopNotifier{}
	if cfg.DesktopNotifications {
		notifier = update.ExecDesktopNotifier{}
	}

	program := tea.NewProgram(update.NewModel(update.Deps{
		Store:          st,
		Scheduler:      engine,
		Settings:       prefsProvider,
		Notifier:       notifier,
		DesktopEnabled: cfg.DesktopNotifications,
		Density:        prefs.Density,
		Timeout:        cfg.RequestTimeout,
		Logger:         log.Named("tui"),
	}), tea.WithAltScreen())
	_, err = program.Run()
	return err
}

func runCommand(cfg config.RuntimeConfig, backend store.Persistence, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	switch args[0] {
	case "export":
		tasks, err := backend.GetTodos(ctx, store.ListFilter{})
		if err != nil {
			return err
		}
		var w io.Writer = os.Stdout
		if len(args) > 1 {
			f, err := os.Create(args[1])
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		return transfer.Export(w, tasks, time.Now())
	case "import":
		if len(args) < 2 {
			return fmt.Errorf("import requires a file")
		}
		local, ok := backend.(*storage.Backend)
		if !ok {
			return fmt.Errorf("import is only supported with the %s backend", config.BackendSQLite)
		}
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()
		tasks, err := transfer.Import(f)
		if err != nil {
			return err
		}
		created, updated, err := local.ImportTasks(ctx, tasks)
		if err != nil {
			return err
		}
		fmt.Printf("imported %d todo(s): %d new, %d updated\n", len(tasks), created, updated)
		return nil
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}
