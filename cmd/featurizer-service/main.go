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
	"github.com/healthflow-ai/platform/pkg/fhir"
	"github.com/healthflow-ai/platform/pkg/nlp"
	"github.com/healthflow-ai/platform/pkg/observability/metrics"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}

	repo := features.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate feature tables")
	}

	recordStore := fhir.NewStore(db)

	vocab, err := nlp.LoadVocabulary(cfg.NLPVocabularyPath)
	if err != nil {
		logger.Log.WithError(err).Warn("could not load NLP vocabulary, using defaults")
	}
	var modelExtractor nlp.EntityExtractor
	if cfg.NERBaseURL != "" {
		modelExtractor = nlp.NewModelExtractor(cfg.NERBaseURL, cfg.NERTimeout)
	}
	pipeline := nlp.NewPipeline(modelExtractor, nlp.NewKeywordExtractor(vocab))
	builder := nlp.NewTextFeatureBuilder(pipeline)

	cache := features.NewCache(database.GetRedis(), cfg.FeatureCachePrefix, cfg.FeatureCacheTTL)

	producer := kafka.NewProducer(cfg.FeaturesTopic)
	defer producer.Close()

	svc, err := features.NewService(recordStore, repo, builder, cache, producer)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to construct extraction service")
	}
	handler := features.NewHTTPHandler(svc, repo, cache)

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"UP","service":"featurizer"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	handler.Register(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, "8085"),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": "8085",
		}).Info("Featurizer Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Featurizer Service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}

	logger.Log.Info("Featurizer Service stopped")
}
