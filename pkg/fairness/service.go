package fairness

import (
	"context"
	"time"

	"github.com/healthflow-ai/platform/pkg/common/logger"
	"github.com/healthflow-ai/platform/pkg/common/models"
	"github.com/healthflow-ai/platform/pkg/observability/metrics"
)

// RowSource provides the joined rows; the gorm Repository is the production
// implementation.
type RowSource interface {
	JoinedRows(ctx context.Context) ([]models.PredictionRow, error)
}

// Service recomputes the fairness and drift reports from current data on
// every call. A fetch failure degrades to the empty report rather than
// surfacing an error; the monitor is never in the extraction hot path.
type Service struct {
	rows RowSource
}

func NewService(rows RowSource) *Service {
	return &Service{rows: rows}
}

func (s *Service) Report(ctx context.Context) models.FairnessReport {
	metrics.IncFairnessRun()

	rows, err := s.rows.JoinedRows(ctx)
	if err != nil {
		logger.Log.WithError(err).Warn("could not fetch joined prediction data, returning degraded report")
		return models.FairnessReport{
			DemographicAnalysis: []models.GroupStats{},
			AgeGroupAnalysis:    []models.GroupStats{},
			BiasMetrics:         []models.BiasMetric{},
			Recommendations:     []models.Recommendation{},
			GeneratedAt:         time.Now().UTC(),
		}
	}

	return ComputeMetrics(rows)
}

func (s *Service) Drift(ctx context.Context) models.DriftReport {
	rows, err := s.rows.JoinedRows(ctx)
	if err != nil {
		logger.Log.WithError(err).Warn("could not fetch joined prediction data for drift check")
		rows = nil
	}
	return ComputeDrift(rows)
}
