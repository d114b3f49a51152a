package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/flatjson/internal/api"
	"github.com/dgallion1/flatjson/internal/artifact"
	"github.com/dgallion1/flatjson/internal/config"
	"github.com/dgallion1/flatjson/internal/fetch"
	"github.com/dgallion1/flatjson/internal/pipeline"
	"github.com/dgallion1/flatjson/internal/store"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := fetch.NewFetcher(cfg.FetchTimeout, cfg.FetchMaxBytes)

	var (
		uploader pipeline.Uploader
		links    api.Linker
		objects  api.ObjectStore
		closeFn  = func() {}
	)
	if cfg.UseStore() {
		client := store.NewClient(cfg.StoreURL, cfg.StoreAPIKey, cfg.PublicBaseURL)
		uploader, links, objects = client, client, client
		closeFn = client.Close
		log.Info("uploading artifacts to object store", "url", cfg.StoreURL)
	} else {
		base := cfg.PublicBaseURL
		if base == "" {
			base = "/artifacts"
		}
		dir := &artifact.DirStore{Root: cfg.OutputDir, BaseURL: base}
		uploader, links = dir, dir
		log.Info("writing artifacts to local directory", "dir", cfg.OutputDir)
	}

	orch := pipeline.NewOrchestrator(cfg, uploader, log)
	orch.Start(ctx)

	srv := api.NewServer(orch, fetcher, links, objects, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.FetchTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		fetcher.Close()
		closeFn()
	}()

	log.Info("starting flatjson", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
