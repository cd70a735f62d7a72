package scoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/healthflow-ai/platform/pkg/common/logger"
	"github.com/healthflow-ai/platform/pkg/common/models"
	"github.com/healthflow-ai/platform/pkg/features"
	"github.com/healthflow-ai/platform/pkg/observability/metrics"
)

// ErrNoFeatures marks a patient with no extracted features to score.
var ErrNoFeatures = errors.New("no features extracted for patient")

// FeatureSource reads persisted feature vectors for scoring.
type FeatureSource interface {
	Find(ctx context.Context, patientID string) (*features.PatientFeatures, error)
	ListIDs(ctx context.Context) ([]string, error)
}

// PredictionStore persists scored predictions, upserting by patient id.
type PredictionStore interface {
	Save(ctx context.Context, prediction *RiskPrediction) error
}

// Service scores persisted feature vectors into readmission risk
// predictions. It runs on demand over HTTP and reactively off the
// features.extracted event stream.
type Service struct {
	features        FeatureSource
	cache           *features.Cache
	predictor       *Predictor
	repo            PredictionStore
	modelName       string
	highThreshold   float64
	mediumThreshold float64
}

func NewService(source FeatureSource, cache *features.Cache, predictor *Predictor, repo PredictionStore, modelName string, highThreshold, mediumThreshold float64) *Service {
	return &Service{
		features:        source,
		cache:           cache,
		predictor:       predictor,
		repo:            repo,
		modelName:       modelName,
		highThreshold:   highThreshold,
		mediumThreshold: mediumThreshold,
	}
}

func (s *Service) ScorePatient(ctx context.Context, patientID string) (*models.PredictionResponse, error) {
	start := time.Now()

	vector, err := s.featureVector(ctx, patientID)
	if err != nil {
		return nil, err
	}

	score, version, err := s.predictor.Predict(s.modelName, numericFeatures(vector))
	if err != nil {
		return nil, fmt.Errorf("scoring patient %s: %w", patientID, err)
	}

	category := s.categorize(score)
	prediction := &RiskPrediction{
		PatientID:    patientID,
		RiskScore:    score,
		RiskCategory: category,
		ModelVersion: version,
	}
	if err := s.repo.Save(ctx, prediction); err != nil {
		return nil, fmt.Errorf("persisting prediction: %w", err)
	}

	metrics.IncPredictionScored()
	return &models.PredictionResponse{
		PatientID:    patientID,
		RiskScore:    score,
		RiskCategory: category,
		ModelVersion: version,
		Latency:      time.Since(start),
	}, nil
}

// ScoreAll scores every patient with persisted features, capturing each
// outcome independently.
func (s *Service) ScoreAll(ctx context.Context) (scored []string, failed []models.BulkExtractionError, err error) {
	ids, err := s.features.ListIDs(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("listing patients: %w", err)
	}

	scored = []string{}
	failed = []models.BulkExtractionError{}
	for _, patientID := range ids {
		if ctx.Err() != nil {
			return scored, failed, ctx.Err()
		}
		if _, err := s.ScorePatient(ctx, patientID); err != nil {
			failed = append(failed, models.BulkExtractionError{PatientID: patientID, Error: err.Error()})
			continue
		}
		scored = append(scored, patientID)
	}
	return scored, failed, nil
}

// HandleFeatureEvent scores the patient named by a features.extracted event.
func (s *Service) HandleFeatureEvent(ctx context.Context, event models.Event) error {
	patientID, _ := event.Data["patient_id"].(string)
	if patientID == "" {
		logger.Log.WithField("event_id", event.ID).Warn("feature event without patient_id, skipping")
		return nil
	}

	if _, err := s.ScorePatient(ctx, patientID); err != nil {
		return fmt.Errorf("scoring from event %s: %w", event.ID, err)
	}
	return nil
}

func (s *Service) featureVector(ctx context.Context, patientID string) (models.FeatureVector, error) {
	if vector, ok := s.cache.Get(ctx, patientID); ok {
		return vector, nil
	}

	record, err := s.features.Find(ctx, patientID)
	if err != nil {
		if errors.Is(err, features.ErrNotFound) {
			return nil, fmt.Errorf("%w %s", ErrNoFeatures, patientID)
		}
		return nil, err
	}
	return models.FeatureVector(record.FeaturesJSON), nil
}

func (s *Service) categorize(score float64) string {
	switch {
	case score >= s.highThreshold:
		return "high"
	case score >= s.mediumThreshold:
		return "medium"
	default:
		return "low"
	}
}

// numericFeatures keeps the scalar entries of a feature vector, tolerating
// both freshly-built ints and JSON-decoded float64s.
func numericFeatures(vector models.FeatureVector) map[string]float64 {
	out := make(map[string]float64, len(vector))
	for key, value := range vector {
		switch v := value.(type) {
		case float64:
			out[key] = v
		case int:
			out[key] = float64(v)
		}
	}
	return out
}
