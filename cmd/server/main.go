package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/circuitlink/backend/internal/router"
	"github.com/circuitlink/backend/internal/search"
	"github.com/circuitlink/backend/internal/store"
	"github.com/circuitlink/backend/internal/ws"
	"github.com/circuitlink/backend/pkg/cache"
	"github.com/circuitlink/backend/pkg/config"
	"github.com/circuitlink/backend/pkg/firebase"
	"github.com/circuitlink/backend/pkg/logger"
	"github.com/circuitlink/backend/validators"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment")
	}
	cfg := config.Load()

	if err := logger.Init(cfg.LogLevel, cfg.LogPath); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	var authClient *auth.Client
	var firebaseApp *firebase.App
	if cfg.StoreBackend == "firestore" || !cfg.DisableAuth {
		app, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath, cfg.FirestoreProjectID)
		if err != nil {
			logger.S.Fatalw("failed to initialize firebase", "err", err)
		}
		firebaseApp = app
		if !cfg.DisableAuth {
			authClient = app.AuthClient
		}
	}

	st, err := openStore(ctx, cfg, firebaseApp)
	if err != nil {
		logger.S.Fatalw("failed to open store", "backend", cfg.StoreBackend, "err", err)
	}
	defer st.Close(ctx)
	logger.S.Infow("store ready", "backend", cfg.StoreBackend)

	cacheClient := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword)
	defer cacheClient.Close()

	searchIndex := search.New(cfg.MeiliHost, cfg.MeiliAPIKey)
	hub := ws.NewHub()

	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()
	router.SetupMiddleware(e)
	router.SetupRoutes(e, st, authClient, cacheClient, searchIndex, hub)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil {
			logger.S.Infow("server stopped", "err", err)
		}
	}()
	logger.S.Infow("server started", "port", cfg.Port, "env", cfg.Env)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.S.Errorw("shutdown failed", "err", err)
	}
}

// openStore builds the document store selected by STORE_BACKEND.
func openStore(ctx context.Context, cfg *config.Config, app *firebase.App) (store.Store, error) {
	switch cfg.StoreBackend {
	case "firestore":
		if app == nil {
			return nil, fmt.Errorf("firestore backend requires firebase credentials")
		}
		client, err := app.FirestoreClient(ctx)
		if err != nil {
			return nil, err
		}
		return store.NewFirestoreStore(client), nil
	case "mongo":
		client, err := config.InitMongo(cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		return store.NewMongoStore(client.Database(cfg.MongoDatabase)), nil
	case "postgres":
		db, err := config.InitPostgres(cfg.PostgresConnStr)
		if err != nil {
			return nil, err
		}
		return store.NewPostgresStore(db)
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
