package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"scamtrap/app/config"
	"scamtrap/app/server"
	"scamtrap/app/service/analysis"
	"scamtrap/app/service/callback"
	"scamtrap/app/service/session"
	"scamtrap/app/util/mylog"

	"github.com/gofiber/fiber/v2/log"
	"github.com/joho/godotenv"
	"github.com/samber/do"
	"golang.org/x/sync/errgroup"
)

func main() {
	di := do.New()
	defer di.Shutdown()
	defer log.Info("Waiting for services to finish...")

	mylog.Preinit()

	_ = godotenv.Load()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	do.Provide(di, session.New)
	do.Provide(di, analysis.New)
	do.Provide(di, callback.New)
	do.Provide(di, server.New)

	slog.Info("Service started", "listen", cfg.Server.Listen)

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		log.Info("Shutting down...")

		cancel()
	}()

	g, gctx := errgroup.WithContext(appCtx)

	g.Go(func() error {
		return do.MustInvoke[*server.Service](di).Run(gctx)
	})

	g.Go(func() error {
		do.MustInvoke[*callback.Service](di).Run(gctx)
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("service failed: %v", err)
	}
}
