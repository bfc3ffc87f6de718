package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fixit/internal/app"
	"fixit/internal/config"
	"fixit/internal/router"
	"fixit/pkg/logger"
)

func main() {
	// config + logger
	cfg, err := config.Load()
	if err != nil {
		l := logger.New("prod")
		l.Fatal().Err(err).Msg("config")
	}
	l := logger.New(cfg.Env)

	// storage, events, link cache
	rt, err := app.Open(context.Background(), cfg, l)
	if err != nil {
		l.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("backend init failed")
	}
	defer rt.Close()

	// http
	srv := newServer(cfg, router.New(l, rt.Backend, cfg))
	go func() {
		l.Info().Str("addr", srv.Addr).Str("driver", cfg.DBDriver).Msg("api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal().Err(err).Msg("server error")
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	l.Info().Msg("shutdown complete")
}

func newServer(cfg config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
