package main

import (
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rideon/rideon/internal/api"
	"github.com/rideon/rideon/internal/config"
	"github.com/rideon/rideon/internal/database"
	"github.com/rideon/rideon/internal/email"
	"github.com/rideon/rideon/internal/realtime"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
)

// main is the entry point for the RideOn backend server.
func main() {
	// --- 1. Load Configuration ---
	// It's a common practice to load configuration from a .env file during development.
	// This allows for easy management of secrets and settings without hardcoding them.
	// In a production environment, these would typically be set as actual environment variables.
	if err := godotenv.Load(); err != nil {
		log.Println("INFO: No .env file found, using environment variables from the system.")
	}

	cfg, err := config.New()
	if err != nil {
		// A valid configuration is required to run, so we exit if it fails.
		log.Fatalf("FATAL: Failed to load application configuration: %v", err)
	}

	// --- 2. Ensure Required Directories Exist ---
	if err := os.MkdirAll(cfg.DbPath, 0755); err != nil {
		log.Fatalf("FATAL: Failed to create database directory at %s: %v", cfg.DbPath, err)
	}

	log.Println("INFO: Application directories verified.")

	broker := realtime.NewBroker()

	emailService := email.NewEmailService(email.SMTPServerConfig{
		Host:     cfg.SmtpHost,
		Port:     cfg.SmtpPort,
		Username: cfg.SmtpUser,
		Password: cfg.SmtpPass,
		Sender:   cfg.SmtpSender,
	})

	log.Println("INFO: Realtime broker and email service initialized.")

	// --- 3. Initialize Database Service ---
	// The database service manages all connections and ensures thread-safe writes.
	dbFullPath := filepath.Join(cfg.DbPath, "rideon.db")
	dbService, err := database.NewService(dbFullPath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database service: %v", err)
	}
	// 'defer' ensures that the Close() method is called when the main function exits,
	// gracefully closing all open database connections.
	defer dbService.Close()

	log.Println("INFO: Database service initialized successfully.")

	// --- 4. Initialize Database Schema ---
	// This step creates the necessary tables (accounts, invitations, users,
	// teams, mile logs, weekly stats) if they do not already exist. It's safe
	// to run on every startup.
	if err := dbService.InitDB(); err != nil {
		log.Fatalf("FATAL: Failed to initialize database schema: %v", err)
	}

	log.Println("INFO: Database schema verified.")

	// --- 5. Set Up API Server and Routes ---
	// Create a new instance of our API server, injecting the dependencies it
	// needs (like the config and the database service).
	serverAPI := api.NewServer(cfg, dbService, broker, emailService)

	// Create a new Chi router. Chi is a lightweight and powerful router for Go.
	router := chi.NewRouter()

	// Register all the application's API endpoints and middleware with the router.
	serverAPI.RegisterRoutes(router)

	log.Println("INFO: API routes registered.")

	// --- 6. Start the HTTP Server ---
	log.Printf("INFO: RideOn server starting on %s", cfg.ServerAddr)

	// ListenAndServe blocks until the server is stopped or an unrecoverable
	// error occurs.
	if err := http.ListenAndServe(cfg.ServerAddr, router); err != nil {
		log.Fatalf("FATAL: Failed to start server: %v", err)
	}
}
