package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Mediquereminder/medique-sub000/internal/medication"
	"github.com/Mediquereminder/medique-sub000/pkg/config"
	"github.com/Mediquereminder/medique-sub000/pkg/logger"
)

func main() {
	// Load .env if present; real deployments set the environment directly
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger := logger.New(cfg.LogLevel)

	// Initialize Medication Service
	service, err := medication.New(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize Medication Service: %v", err)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	// Start service in a goroutine
	go func() {
		logger.Infof("Starting Medication Service on %s", addr)
		if err := service.Start(addr); err != nil {
			logger.Fatalf("Failed to start Medication Service: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down Medication Service...")
	if err := service.Stop(); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
	logger.Info("Medication Service stopped")
}
