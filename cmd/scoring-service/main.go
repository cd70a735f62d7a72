package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/healthflow-ai/platform/pkg/common/config"
	"github.com/healthflow-ai/platform/pkg/common/database"
	"github.com/healthflow-ai/platform/pkg/common/kafka"
	"github.com/healthflow-ai/platform/pkg/common/logger"
	"github.com/healthflow-ai/platform/pkg/features"
	"github.com/healthflow-ai/platform/pkg/observability/metrics"
	"github.com/healthflow-ai/platform/pkg/scoring"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}

	predictionRepo := scoring.NewRepository(db)
	if err := predictionRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate prediction tables")
	}

	featureRepo := features.NewRepository(db)
	cache := features.NewCache(database.GetRedis(), cfg.FeatureCachePrefix, cfg.FeatureCacheTTL)
	predictor := scoring.NewPredictor(cfg.ModelArtifactDir)

	svc := scoring.NewService(featureRepo, cache, predictor, predictionRepo,
		cfg.ModelName, cfg.HighRiskThreshold, cfg.MediumRiskThreshold)
	handler := scoring.NewHTTPHandler(svc, predictionRepo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Score reactively as the featurizer publishes extractions.
	consumer := kafka.NewConsumer(cfg.FeaturesTopic, cfg.KafkaGroupID)
	defer consumer.Close()
	go func() {
		if err := consumer.Consume(ctx, svc.HandleFeatureEvent); err != nil && ctx.Err() == nil {
			logger.Log.WithError(err).Error("feature event consumer stopped")
		}
	}()

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"UP","service":"scoring"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	handler.Register(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, "8086"),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": "8086",
		}).Info("Scoring Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Scoring Service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}

	logger.Log.Info("Scoring Service stopped")
}
