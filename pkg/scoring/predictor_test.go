package scoring

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeArtifact(t *testing.T, dir, model, version string, featureNames []string, bias float64, coefficients []float64) string {
	t.Helper()

	names := ""
	for i, name := range featureNames {
		if i > 0 {
			names += ","
		}
		names += fmt.Sprintf("%q", name)
	}
	coefs := ""
	for i, c := range coefficients {
		if i > 0 {
			coefs += ","
		}
		coefs += fmt.Sprintf("%g", c)
	}

	payload := fmt.Sprintf(`{
  "model": {
    "type": "classification",
    "algorithm": "logistic_regression",
    "version": %q,
    "feature_names": [%s],
    "weights": {"bias": %g, "coefficients": [%s]}
  }
}`, version, names, bias, coefs)

	path := filepath.Join(dir, model+"_latest.json")
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("writing artifact: %v", err)
	}
	return path
}

func TestPredictorScoresArtifact(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "readmission", "v3", []string{"age", "bmi"}, -1, []float64{0.02, 0.01})

	predictor := NewPredictor(dir)
	score, version, err := predictor.Predict("readmission", map[string]float64{"age": 70, "bmi": 30})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if version != "v3" {
		t.Fatalf("expected version v3, got %s", version)
	}

	// -1 + 0.02*70 + 0.01*30 = 0.7
	want := 1 / (1 + math.Exp(-0.7))
	if math.Abs(score-want) > 1e-12 {
		t.Fatalf("expected %v, got %v", want, score)
	}
}

func TestPredictorMissingFeaturesDefaultToZero(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "readmission", "v1", []string{"age", "bmi"}, 0, []float64{0.1, 5})

	predictor := NewPredictor(dir)
	score, _, err := predictor.Predict("readmission", map[string]float64{"age": 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := 1 / (1 + math.Exp(-1.0))
	if math.Abs(score-want) > 1e-12 {
		t.Fatalf("absent bmi must contribute zero: expected %v, got %v", want, score)
	}
}

func TestPredictorMissingArtifact(t *testing.T) {
	predictor := NewPredictor(t.TempDir())
	if _, _, err := predictor.Predict("readmission", nil); err == nil {
		t.Fatal("expected an error for a missing artifact")
	}
}

func TestPredictorReloadsPromotedModel(t *testing.T) {
	dir := t.TempDir()
	path := writeArtifact(t, dir, "readmission", "v1", []string{"age"}, 0, []float64{0})

	predictor := NewPredictor(dir)
	if _, version, err := predictor.Predict("readmission", nil); err != nil || version != "v1" {
		t.Fatalf("expected v1, got %s (%v)", version, err)
	}

	writeArtifact(t, dir, "readmission", "v2", []string{"age"}, 0, []float64{0})
	// Force a distinct modification time; same-nanosecond writes would
	// otherwise hit the cache.
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("bumping mtime: %v", err)
	}

	if _, version, err := predictor.Predict("readmission", nil); err != nil || version != "v2" {
		t.Fatalf("expected promoted v2, got %s (%v)", version, err)
	}
}

func TestPredictorRejectsEmptyFeatureNames(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "readmission", "v1", nil, 0, nil)

	predictor := NewPredictor(dir)
	if _, _, err := predictor.Predict("readmission", nil); err == nil {
		t.Fatal("expected an error for an artifact without feature names")
	}
}
