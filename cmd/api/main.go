package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tastevine/backend/config"
	"github.com/tastevine/backend/internal/database"
	"github.com/tastevine/backend/internal/server"
	"github.com/tastevine/backend/internal/service"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Redis is optional; without it chat responses are simply not cached
	redisClient, err := database.NewRedisClient(cfg)
	if err != nil {
		log.Printf("Continuing without Redis: %v", err)
		redisClient = nil
	}

	assistant, err := service.NewCookingAssistant(cfg, redisClient)
	if err != nil {
		log.Fatalf("Failed to create cooking assistant: %v", err)
	}

	store := service.NewVectorStore(db.Gorm)

	// Semantic search needs the inference token; keyword search works
	// without it
	var embedder service.QueryEmbedder
	if gen, err := service.NewEmbeddingGenerator(cfg); err != nil {
		log.Printf("Semantic search disabled: %v", err)
	} else {
		embedder = gen
	}

	srv := server.New(cfg, assistant, store, embedder)

	errChan := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s:%s", cfg.ServerHost, cfg.ServerPort)
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-quit:
		log.Printf("Received signal: %v", sig)
	}

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}
	log.Println("Server stopped")
}
