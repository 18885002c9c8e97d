package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/homer/internal/handler"
	"github.com/cognicore/homer/internal/setup"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file (optional)")
		dbPath     = flag.String("db", "", "SQLite corpus database (default from config, else in-memory)")
		corpusPath = flag.String("corpus", "", "Corpus file to seed an empty store")
		addr       = flag.String("addr", "", "Listen address (default from config)")
		debug      = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	logger, err := setup.NewLogger(*debug)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, comp, cleanup, err := setup.Build(ctx, setup.Params{
		ConfigPath: *configPath,
		DBPath:     *dbPath,
		CorpusPath: *corpusPath,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal("Failed to build engine", zap.Error(err))
	}
	defer cleanup()

	listen := *addr
	if listen == "" {
		listen = comp.Config.Server.Addr
	}

	srv := &http.Server{
		Addr:              listen,
		Handler:           handler.SetupRouter(engine, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Graceful shutdown failed", zap.Error(err))
		}
	}()

	trained, _, pairs := engine.Status()
	logger.Info("Starting server",
		zap.String("addr", listen),
		zap.Bool("trained", trained),
		zap.Int("pairs", pairs))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
	logger.Info("Server stopped")
}
