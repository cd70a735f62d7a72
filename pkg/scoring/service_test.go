package scoring

import (
	"context"
	"errors"
	"testing"

	"github.com/healthflow-ai/platform/pkg/common/logger"
	"github.com/healthflow-ai/platform/pkg/common/models"
	"github.com/healthflow-ai/platform/pkg/features"
	"gorm.io/datatypes"
)

func init() {
	logger.Init()
}

type fakeFeatureSource struct {
	rows map[string]*features.PatientFeatures
}

func (f *fakeFeatureSource) Find(_ context.Context, patientID string) (*features.PatientFeatures, error) {
	row, ok := f.rows[patientID]
	if !ok {
		return nil, features.ErrNotFound
	}
	return row, nil
}

func (f *fakeFeatureSource) ListIDs(context.Context) ([]string, error) {
	ids := make([]string, 0, len(f.rows))
	for id := range f.rows {
		ids = append(ids, id)
	}
	return ids, nil
}

type fakePredictionStore struct {
	saved   map[string]*RiskPrediction
	saveErr error
}

func newFakePredictionStore() *fakePredictionStore {
	return &fakePredictionStore{saved: map[string]*RiskPrediction{}}
}

func (f *fakePredictionStore) Save(_ context.Context, prediction *RiskPrediction) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved[prediction.PatientID] = prediction
	return nil
}

func featureRow(patientID string, age, bmi float64) *features.PatientFeatures {
	return &features.PatientFeatures{
		PatientID:    patientID,
		FeaturesJSON: datatypes.JSONMap{"age": age, "bmi": bmi},
	}
}

func newScoringService(t *testing.T, source FeatureSource, store PredictionStore, bias float64) *Service {
	t.Helper()
	dir := t.TempDir()
	writeArtifact(t, dir, "readmission", "v1", []string{"age", "bmi"}, bias, []float64{0, 0})
	return NewService(source, nil, NewPredictor(dir), store, "readmission", 0.7, 0.4)
}

func TestScorePatientPersistsPrediction(t *testing.T) {
	source := &fakeFeatureSource{rows: map[string]*features.PatientFeatures{
		"p1": featureRow("p1", 64, 27.5),
	}}
	store := newFakePredictionStore()
	// Bias 2 gives sigmoid(2) ~= 0.88, a high-risk score.
	svc := newScoringService(t, source, store, 2)

	resp, err := svc.ScorePatient(context.Background(), "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.RiskCategory != "high" {
		t.Fatalf("expected high risk, got %s (%v)", resp.RiskCategory, resp.RiskScore)
	}
	if resp.ModelVersion != "v1" {
		t.Fatalf("expected model version v1, got %s", resp.ModelVersion)
	}

	saved, ok := store.saved["p1"]
	if !ok {
		t.Fatal("prediction was not persisted")
	}
	if saved.RiskScore != resp.RiskScore || saved.RiskCategory != resp.RiskCategory {
		t.Fatalf("stored prediction differs from response: %+v vs %+v", saved, resp)
	}
}

func TestScorePatientWithoutFeatures(t *testing.T) {
	svc := newScoringService(t, &fakeFeatureSource{rows: map[string]*features.PatientFeatures{}}, newFakePredictionStore(), 0)

	_, err := svc.ScorePatient(context.Background(), "ghost")
	if !errors.Is(err, ErrNoFeatures) {
		t.Fatalf("expected ErrNoFeatures, got %v", err)
	}
}

func TestScorePatientSurfacesPersistenceFailure(t *testing.T) {
	source := &fakeFeatureSource{rows: map[string]*features.PatientFeatures{
		"p1": featureRow("p1", 64, 27.5),
	}}
	store := newFakePredictionStore()
	store.saveErr = errors.New("disk full")
	svc := newScoringService(t, source, store, 0)

	if _, err := svc.ScorePatient(context.Background(), "p1"); err == nil {
		t.Fatal("persistence failure must surface")
	}
}

func TestCategorizeThresholds(t *testing.T) {
	svc := NewService(nil, nil, nil, nil, "readmission", 0.7, 0.4)

	cases := []struct {
		score float64
		want  string
	}{
		{0.85, "high"},
		{0.7, "high"},
		{0.69, "medium"},
		{0.4, "medium"},
		{0.39, "low"},
		{0, "low"},
	}
	for _, tc := range cases {
		if got := svc.categorize(tc.score); got != tc.want {
			t.Fatalf("categorize(%v) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestScoreAllIsolatesFailures(t *testing.T) {
	source := &fakeFeatureSource{rows: map[string]*features.PatientFeatures{
		"p1": featureRow("p1", 64, 27.5),
		"p2": {PatientID: "p2"}, // no FeaturesJSON, still scoreable as all-zero
	}}
	store := newFakePredictionStore()
	svc := newScoringService(t, source, store, 0)

	scored, failed, err := svc.ScoreAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scored) != 2 || len(failed) != 0 {
		t.Fatalf("expected 2 scored, got scored=%v failed=%v", scored, failed)
	}
}

func TestHandleFeatureEvent(t *testing.T) {
	source := &fakeFeatureSource{rows: map[string]*features.PatientFeatures{
		"p1": featureRow("p1", 64, 27.5),
	}}
	store := newFakePredictionStore()
	svc := newScoringService(t, source, store, 0)

	event := models.Event{
		ID:   "evt-1",
		Type: "features.extracted",
		Data: map[string]interface{}{"patient_id": "p1"},
	}
	if err := svc.HandleFeatureEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := store.saved["p1"]; !ok {
		t.Fatal("event handling must persist a prediction")
	}
}

func TestHandleFeatureEventWithoutPatientID(t *testing.T) {
	store := newFakePredictionStore()
	svc := newScoringService(t, &fakeFeatureSource{}, store, 0)

	event := models.Event{ID: "evt-2", Type: "features.extracted", Data: map[string]interface{}{}}
	if err := svc.HandleFeatureEvent(context.Background(), event); err != nil {
		t.Fatalf("malformed events are skipped, not errors: %v", err)
	}
	if len(store.saved) != 0 {
		t.Fatal("nothing should be scored for a malformed event")
	}
}

func TestNumericFeaturesToleratesIntAndFloat(t *testing.T) {
	vector := models.FeatureVector{
		"age":       float64(64),
		"note_len":  120,
		"gender":    "male",
		"mentioned": []string{"diabetes"},
	}

	numeric := numericFeatures(vector)
	if numeric["age"] != 64 || numeric["note_len"] != 120 {
		t.Fatalf("expected numeric entries preserved, got %v", numeric)
	}
	if _, ok := numeric["gender"]; ok {
		t.Fatal("non-numeric entries must be dropped")
	}
	if len(numeric) != 2 {
		t.Fatalf("expected 2 entries, got %v", numeric)
	}
}
