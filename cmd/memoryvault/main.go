package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/liftingwater/MemoryVault/internal/config"
	"github.com/liftingwater/MemoryVault/internal/domain"
	"github.com/liftingwater/MemoryVault/internal/leitner"
	"github.com/liftingwater/MemoryVault/internal/logger"
	"github.com/liftingwater/MemoryVault/internal/storage"
	"github.com/liftingwater/MemoryVault/internal/sync"
	"github.com/liftingwater/MemoryVault/internal/web"
)

const usage = `Usage: memoryvault [flags] [command]

Commands:
  serve              Run the HTTP API (default)
  sync               Import decks from every registered source
  add-source PATH    Register a deck directory or git URL
  check              Verify that every card sits in the box it claims

Flags:
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "memoryvault:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := config.Flags("memoryvault")
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(fs)
	if err != nil {
		return err
	}
	log := logger.Setup(cfg.Log, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := open(cfg, log)
	if err != nil {
		return err
	}
	defer app.close()

	command := fs.Arg(0)
	switch command {
	case "", "serve":
		return serve(ctx, cfg.Server, app, log)
	case "sync":
		if app.syncer == nil {
			return errors.New("sync needs the sqlite storage driver")
		}
		report, err := app.syncer.Run(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Synced %d sources: %d created, %d deleted, %d errors.\n",
			report.Sources, report.Created, report.Deleted, report.Errors)
		return nil
	case "add-source":
		if app.syncer == nil {
			return errors.New("add-source needs the sqlite storage driver")
		}
		if fs.NArg() != 2 {
			return errors.New("usage: memoryvault add-source PATH")
		}
		id, err := app.syncer.AddSource(fs.Arg(1))
		if err != nil {
			return err
		}
		fmt.Printf("Added source %d: %s\n", id, fs.Arg(1))
		return nil
	case "check":
		if err := app.engine.Verify(); err != nil {
			return err
		}
		counts := app.engine.Counts()
		fmt.Println("Box registry is consistent.")
		for box := domain.MinBox; box <= domain.MaxBox; box++ {
			fmt.Printf("  box %d: %d cards\n", box, counts[box])
		}
		return nil
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

type application struct {
	engine *leitner.Engine
	syncer *sync.Syncer
	db     *storage.DB
}

func (a *application) close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}
}

// open wires the engine to the configured card store.
func open(cfg *config.Config, log *slog.Logger) (*application, error) {
	if cfg.Storage.Driver == "memory" {
		engine, err := leitner.NewEngine(leitner.NewMemoryCollection(), leitner.NewSequence(0),
			leitner.WithHistory(leitner.NewMemoryHistory()), leitner.WithLogger(log))
		if err != nil {
			return nil, err
		}
		log.Info("using in-memory card store")
		return &application{engine: engine}, nil
	}

	db, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}
	log.Info("database opened", "path", cfg.Storage.Path)

	engine, err := leitner.NewEngine(db, db, leitner.WithHistory(db), leitner.WithLogger(log))
	if err != nil {
		db.Close()
		return nil, err
	}
	return &application{
		engine: engine,
		syncer: sync.New(db, engine, cfg.Sync.ReposDir, log),
		db:     db,
	}, nil
}

func serve(ctx context.Context, cfg config.ServerConfig, app *application, log *slog.Logger) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           web.NewServer(app.engine, app.syncer, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
