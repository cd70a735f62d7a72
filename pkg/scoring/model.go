package scoring

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/healthflow-ai/platform/pkg/ml/linear"
)

// Artifact is the frozen classifier produced by the offline training and
// hyperparameter-tuning pipeline. Only the weights and feature ordering are
// consumed here; the training algorithm is opaque to this service.
type Artifact struct {
	Model struct {
		Type         string         `json:"type"`
		Algorithm    string         `json:"algorithm"`
		Version      string         `json:"version"`
		FeatureNames []string       `json:"feature_names"`
		Weights      linear.Weights `json:"weights"`
	} `json:"model"`
}

// Predictor loads <model>_latest.json artifacts from a directory, caching
// per modification time so promoted models are picked up without a restart.
type Predictor struct {
	dir   string
	cache map[string]cachedArtifact
	mu    sync.RWMutex
}

type cachedArtifact struct {
	artifact Artifact
	modTime  int64
}

func NewPredictor(dir string) *Predictor {
	return &Predictor{
		dir:   dir,
		cache: make(map[string]cachedArtifact),
	}
}

// Predict scores one feature mapping. Features the artifact expects but the
// mapping lacks default to zero; the feature store uses absent-key
// semantics for missing source data and the artifact is trained accordingly.
func (p *Predictor) Predict(model string, features map[string]float64) (float64, string, error) {
	artifact, err := p.loadArtifact(model)
	if err != nil {
		return 0, "", err
	}
	if len(artifact.Model.FeatureNames) == 0 {
		return 0, "", fmt.Errorf("artifact missing feature names")
	}

	sample := make([]float64, len(artifact.Model.FeatureNames))
	for idx, name := range artifact.Model.FeatureNames {
		sample[idx] = features[name]
	}

	return linear.Predict(artifact.Model.Weights, sample), artifact.Model.Version, nil
}

func (p *Predictor) loadArtifact(model string) (Artifact, error) {
	latest := filepath.Join(p.dir, fmt.Sprintf("%s_latest.json", model))
	info, err := os.Stat(latest)
	if err != nil {
		return Artifact{}, err
	}
	mod := info.ModTime().UnixNano()

	p.mu.RLock()
	cached, ok := p.cache[model]
	p.mu.RUnlock()
	if ok && cached.modTime == mod {
		return cached.artifact, nil
	}

	content, err := os.ReadFile(latest)
	if err != nil {
		return Artifact{}, err
	}
	var artifact Artifact
	if err := json.Unmarshal(content, &artifact); err != nil {
		return Artifact{}, err
	}
	p.mu.Lock()
	p.cache[model] = cachedArtifact{artifact: artifact, modTime: mod}
	p.mu.Unlock()
	return artifact, nil
}
