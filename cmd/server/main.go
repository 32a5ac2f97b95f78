package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/tabletop/internal/config"
	"github.com/DoyleJ11/tabletop/internal/engine"
	"github.com/DoyleJ11/tabletop/internal/games/blackjack"
	"github.com/DoyleJ11/tabletop/internal/httpapi"
	"github.com/DoyleJ11/tabletop/internal/hub"
	"github.com/DoyleJ11/tabletop/internal/journal"
	"github.com/DoyleJ11/tabletop/internal/room"
	"github.com/DoyleJ11/tabletop/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run() (err error) {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, err := newLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	policy, err := room.PolicyByName(cfg.DisconnectPolicy)
	if err != nil {
		return err
	}

	catalog := engine.NewCatalog(blackjack.New())
	if _, err := catalog.Lookup(cfg.DefaultGame); err != nil {
		return fmt.Errorf("default game: %w", err)
	}

	var j journal.Journal = journal.Nop{}
	if cfg.DatabaseURL != "" {
		store, openErr := journal.Open(cfg.DatabaseURL)
		if openErr != nil {
			return openErr
		}
		defer func() { err = multierr.Append(err, store.Close()) }()
		j = store
		log.Info("journal enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := hub.NewHub(ctx, hub.Options{
		Catalog:     catalog,
		DefaultGame: cfg.DefaultGame,
		Room: room.Options{
			MaxChainDepth: cfg.MaxChainDepth,
			Disconnect:    policy,
			IdleGrace:     cfg.EmptyRoomTTL,
		},
		Journal: j,
		Logger:  log,
	})

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: httpapi.SetupRoutes(h, ws.Options{
			OutboxSize:   cfg.OutboxSize,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		}, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr), zap.Strings("games", catalog.Names()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		h.Shutdown()

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		select {
		case <-h.Done():
		case <-sctx.Done():
		}
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}
