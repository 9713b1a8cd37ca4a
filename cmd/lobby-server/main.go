package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"peer-arcade/internal/accounts"
	"peer-arcade/internal/app/lobby"
	"peer-arcade/internal/catalog"
	"peer-arcade/internal/config"
	"peer-arcade/internal/logging"
	"peer-arcade/internal/provision"
	"peer-arcade/internal/rooms"
	"peer-arcade/internal/store"
	httptransport "peer-arcade/internal/transport/http"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := config.LoadDotenv(); err != nil {
		panic(err)
	}
	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	logging.Init(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	docs, err := store.Open(ctx, cfg.Lobby)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Lobby.StoreBackend).Msg("store init failed")
	}
	defer docs.Close()
	if err := store.Ping(ctx, docs); err != nil {
		log.Fatal().Err(err).Msg("store ping failed")
	}

	rm, err := rooms.NewManager(ctx, docs, rooms.NewEventBuffer(cfg.Lobby.EventBuffer))
	if err != nil {
		log.Fatal().Err(err).Msg("load rooms failed")
	}
	ledger, err := accounts.NewLedger(ctx, docs, 0)
	if err != nil {
		log.Fatal().Err(err).Msg("load accounts failed")
	}
	games := catalog.New(cfg.Lobby.GamesDir)
	prov := provision.New(rm, games, provision.ExecLauncher{
		Env:    os.Environ(),
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}, provision.Options{
		BindHost:      cfg.Lobby.BindHost,
		AdvertiseHost: cfg.Lobby.AdvertiseHost,
	})

	svc, err := lobby.NewService(ctx, rm, games, ledger, prov, docs, lobby.Options{RequireLogin: cfg.Lobby.RequireLogin})
	if err != nil {
		log.Fatal().Err(err).Msg("lobby init failed")
	}

	r := httptransport.NewRouter(svc, docs, cfg.Lobby)
	httptransport.LogRoutes(r)

	server := &http.Server{
		Addr:              cfg.Lobby.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.Lobby.HTTPAddr).Str("games_dir", games.Dir()).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		// Event streams block until the buffer closes.
		svc.Events().Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped")
		return
	}
	log.Info().Msg("server stopped")
}
