// main.go
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"go-pharmacy/config"
	"go-pharmacy/controllers"
	"go-pharmacy/email"
	"go-pharmacy/routes"
	"go-pharmacy/store"
	"go-pharmacy/utils"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found. Proceeding with environment variables.")
	}

	cfg := config.Load()
	initLogger(cfg.Env)

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET is not set")
		os.Exit(1)
	}

	// Connect to MongoDB
	client, err := utils.ConnectDB(cfg.MongoURI)
	if err != nil {
		slog.Error("failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			slog.Error("failed to disconnect from MongoDB", "error", err)
		}
	}()
	db := client.Database(cfg.Database)

	// Initialize the mail gateway
	mailer, err := email.NewService(cfg)
	if err != nil {
		slog.Error("failed to initialize email service", "error", err)
		os.Exit(1)
	}

	tokens := utils.NewTokenManager(cfg.JWTSecret)

	// Initialize controllers
	authController := controllers.NewAuthController(store.NewAccountStore(db), tokens, mailer)
	productController := controllers.NewProductController(store.NewProductStore(db))

	// Set up the router
	router := mux.NewRouter()
	routes.RegisterRoutes(router, authController, productController, tokens)

	slog.Info("server is running", "port", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func initLogger(env string) {
	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(handler))
}
