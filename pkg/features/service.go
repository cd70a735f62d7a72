package features

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/healthflow-ai/platform/pkg/common/logger"
	"github.com/healthflow-ai/platform/pkg/common/models"
	"github.com/healthflow-ai/platform/pkg/fhir"
	"github.com/healthflow-ai/platform/pkg/nlp"
)

// ErrPatientNotFound is the terminal status for a patient with neither raw
// FHIR data nor a persisted feature record. Callers must treat it as
// not-found, not as a transient failure.
var ErrPatientNotFound = errors.New("Patient not found and no existing record")

// RecordStore is the read surface over the raw record store.
type RecordStore interface {
	Patient(ctx context.Context, patientID string) (fhir.Resource, error)
	Observations(ctx context.Context, patientID string) ([]fhir.Resource, error)
	Notes(ctx context.Context, patientID string) ([]string, error)
}

// FeatureStore persists consolidated feature vectors, upserting by patient id.
type FeatureStore interface {
	Find(ctx context.Context, patientID string) (*PatientFeatures, error)
	Save(ctx context.Context, patientID string, vector models.FeatureVector) error
	ListIDs(ctx context.Context) ([]string, error)
}

// EventPublisher announces completed extractions on the event bus.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

// VectorCache is the write surface of the feature cache; the Redis-backed
// Cache is the production implementation.
type VectorCache interface {
	Put(ctx context.Context, patientID string, vector models.FeatureVector)
	Invalidate(ctx context.Context, patientID string)
}

// Service orchestrates the per-patient extraction pipeline: structured
// extractors, text features, merge, upsert. It holds no mutable state
// across calls, so callers may run extractions for distinct patients in
// parallel; concurrent extraction of the same patient id is last-write-wins.
type Service struct {
	records   RecordStore
	repo      FeatureStore
	builder   *nlp.TextFeatureBuilder
	cache     VectorCache
	publisher EventPublisher
}

func NewService(records RecordStore, repo FeatureStore, builder *nlp.TextFeatureBuilder, cache VectorCache, publisher EventPublisher) (*Service, error) {
	if err := CheckDisjoint(); err != nil {
		return nil, fmt.Errorf("feature schema invariant violated: %w", err)
	}
	return &Service{
		records:   records,
		repo:      repo,
		builder:   builder,
		cache:     cache,
		publisher: publisher,
	}, nil
}

// ExtractFeatures builds, persists, and returns the consolidated feature
// vector for one patient. Re-running with unchanged source data converges
// to the same vector and never duplicates the stored record.
func (s *Service) ExtractFeatures(ctx context.Context, patientID string) (models.FeatureVector, error) {
	existing, err := s.repo.Find(ctx, patientID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("looking up existing features: %w", err)
	}

	vector := models.FeatureVector{}

	patient, patientErr := s.records.Patient(ctx, patientID)
	switch {
	case patientErr == nil:
		observations, obsErr := s.records.Observations(ctx, patientID)
		if obsErr != nil {
			logger.Log.WithError(obsErr).WithField("patient_id", patientID).
				Warn("could not fetch observations, extracting without them")
			observations = nil
		}
		merge(vector, ExtractDemographics(patient))
		merge(vector, ExtractVitals(observations))
		merge(vector, ExtractLabs(observations))
		merge(vector, ExtractEncounters(observations))

	case errors.Is(patientErr, fhir.ErrNotFound):
		if existing == nil {
			return nil, ErrPatientNotFound
		}
		// Raw data is gone but we have a prior snapshot: reuse it verbatim
		// rather than failing the extraction.
		logger.Log.WithField("patient_id", patientID).
			Info("no raw resource, reusing persisted feature snapshot")
		for key, value := range existing.FeaturesJSON {
			vector[key] = value
		}

	default:
		return nil, fmt.Errorf("fetching patient resource: %w", patientErr)
	}

	notes, notesErr := s.records.Notes(ctx, patientID)
	if notesErr != nil {
		logger.Log.WithError(notesErr).WithField("patient_id", patientID).
			Warn("could not fetch clinical notes, treating as empty")
		notes = nil
	}
	// NLP keys are always refreshed, even on the snapshot-reuse path.
	merge(vector, s.builder.Build(ctx, notes))

	if err := s.repo.Save(ctx, patientID, vector); err != nil {
		if s.cache != nil {
			// Drop any cached vector so readers fall back to the table
			// rather than serving an entry of unknown vintage after a
			// failed write.
			s.cache.Invalidate(ctx, patientID)
		}
		return nil, fmt.Errorf("persisting features: %w", err)
	}

	if s.cache != nil {
		s.cache.Put(ctx, patientID, vector)
	}

	if s.publisher != nil {
		payload := map[string]interface{}{
			"patient_id":   patientID,
			"feature_keys": len(vector),
			"extracted_at": time.Now().UTC(),
		}
		if err := s.publisher.PublishEvent(ctx, "features.extracted", "featurizer", payload); err != nil {
			logger.Log.WithError(err).WithField("patient_id", patientID).
				Warn("failed to publish extraction event")
		}
	}

	return vector, nil
}

// ExtractAll runs extraction for every known patient sequentially. One
// patient's failure never aborts the batch; each outcome is captured
// independently.
func (s *Service) ExtractAll(ctx context.Context) (models.BulkExtractionResponse, error) {
	ids, err := s.repo.ListIDs(ctx)
	if err != nil {
		return models.BulkExtractionResponse{}, fmt.Errorf("listing patients: %w", err)
	}

	resp := models.BulkExtractionResponse{
		Status:       "success",
		PatientIDs:   []string{},
		ErrorDetails: []models.BulkExtractionError{},
	}

	for _, patientID := range ids {
		if ctx.Err() != nil {
			return resp, ctx.Err()
		}
		if _, err := s.ExtractFeatures(ctx, patientID); err != nil {
			resp.ErrorDetails = append(resp.ErrorDetails, models.BulkExtractionError{
				PatientID: patientID,
				Error:     err.Error(),
			})
			continue
		}
		resp.PatientIDs = append(resp.PatientIDs, patientID)
	}

	resp.Extracted = len(resp.PatientIDs)
	resp.Errors = len(resp.ErrorDetails)
	return resp, nil
}

// Merging is a plain union because extractor namespaces are disjoint; see
// CheckDisjoint.
func merge(dst, src models.FeatureVector) {
	for key, value := range src {
		dst[key] = value
	}
}
