package main

import (
	"context"
	"flag"
	"log"
	"net/http"

	firebase "firebase.google.com/go/v4"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/snaplyticdigital-coder/myreceipt-app-sub000/internal/config"
	"github.com/snaplyticdigital-coder/myreceipt-app-sub000/internal/extraction"
	"github.com/snaplyticdigital-coder/myreceipt-app-sub000/internal/service"
	"github.com/snaplyticdigital-coder/myreceipt-app-sub000/internal/store"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	var storeImpl store.Store
	if cfg.Firestore.ProjectID == "" {
		logger.Info("using in-memory store for local development")
		storeImpl = store.NewMemoryStore()
	} else {
		app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.Firestore.ProjectID})
		if err != nil {
			logger.Fatal("failed to initialize firebase app", zap.Error(err))
		}
		firestoreClient, err := app.Firestore(ctx)
		if err != nil {
			logger.Fatal("failed to create firestore client", zap.Error(err))
		}
		defer firestoreClient.Close()
		storeImpl = store.NewFirestoreStore(firestoreClient)
	}

	ocr := extraction.NewClient(cfg.Extraction.BaseURL, cfg.Extraction.Timeout)
	svc := service.NewReceiptService(storeImpl, ocr, logger)
	mux := service.NewHandler(svc, logger).Mux()

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"User-Agent",
			"X-User-Id",
		},
		OptionsSuccessStatus: http.StatusNoContent,
		AllowCredentials:     true,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      h2c.NewHandler(c.Handler(mux), &http2.Server{}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("starting server",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("extractionBaseUrl", cfg.Extraction.BaseURL))
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func newLogger(cfg config.LoggerConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zc zap.Config
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
