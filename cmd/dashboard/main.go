package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blackmichael/karma-feed/internal/api"
	"github.com/blackmichael/karma-feed/internal/config"
	"github.com/blackmichael/karma-feed/internal/feed"
	"github.com/blackmichael/karma-feed/internal/httpserver"
	"github.com/blackmichael/karma-feed/internal/leaderboard"
	"github.com/blackmichael/karma-feed/internal/session"
	"github.com/blackmichael/karma-feed/internal/sqlite"
	"github.com/blackmichael/karma-feed/internal/view"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := cfg.NewLogger(os.Stdout)

	// Shares the session written by `karmafeed login`.
	creds, err := sqlite.NewRepository(cfg.StorePath)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer creds.Close()
	logger.Info("opened session store", "path", cfg.StorePath)

	client := api.NewClient(cfg.APIURL, creds,
		api.WithTimeout(cfg.HTTPTimeout),
		api.WithLogger(logger),
	)

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sess := session.New(client, creds, logger)
	if err := sess.Init(ctx); err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	logger.Info("session initialised", "state", sess.State().String())

	posts := feed.NewController(client, logger)
	feedView := view.NewFeed(posts, client, logger)
	go posts.Mount(ctx)

	sess.OnSignedOut(func() {
		logger.Warn("session ended, run `karmafeed login` to sign in again")
	})

	// Start the leaderboard poller in the background
	board := leaderboard.NewPoller(client, cfg.LeaderboardInterval, logger)
	go board.Run(ctx)

	// Start the HTTP server
	server := httpserver.NewServer(cfg, sess, posts, feedView, board, logger)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server exited with error", "error", err)
		}
	}()

	logger.Info("dashboard started", "port", cfg.Port, "api_url", cfg.APIURL)

	// Wait for shutdown signal
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down http server", "error", err)
	}

	return nil
}
