package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "docsearch/internal/adapters/mcp"
	"docsearch/internal/bootstrap"
	"docsearch/internal/config"
	"docsearch/internal/observability/logging"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.NewJSONLogger("mcp", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	srv := mcpadapter.NewServer(app.Searcher, app.Documents, cfg.MCPOwnerID, version)
	if err := srv.ServeStdio(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("mcp server error: %v", err)
	}
}
