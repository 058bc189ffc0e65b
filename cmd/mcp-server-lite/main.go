// Package main provides the lightweight entry point for the bio-age MCP server.
// This version requires no external databases - uses in-memory caching and SQLite.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/bioage-mcp-server/internal/config"
	"github.com/bioage-mcp-server/internal/mcp"
)

func main() {
	// stdout is reserved for the protocol
	log.SetOutput(os.Stderr)

	cfg := config.LoadLiteConfig()
	log.Printf("Data directory: %s", cfg.DataDir)

	server, err := mcp.NewLiteServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}
	defer server.Close()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		log.Printf("MCP server failed: %v", err)
		return
	}

	log.Println("Bio-age MCP server (lite) stopped")
}
