package features

import (
	"strings"

	"github.com/healthflow-ai/platform/pkg/common/models"
	"github.com/healthflow-ai/platform/pkg/fhir"
)

// labTargets maps each lab feature to its LOINC code and display-text
// fallback. Order matters for the text fallback: "hdl"/"ldl" must be tested
// before the bare "cholesterol" substring.
var labTargets = []struct {
	key   string
	code  string
	text  string
}{
	{"avg_hdl", "2085-9", "hdl"},
	{"avg_ldl", "18262-6", "ldl"},
	{"avg_cholesterol", "2093-3", "cholesterol"},
	{"avg_triglycerides", "2571-8", "triglyceride"},
	{"avg_hemoglobin", "718-7", "hemoglobin"},
}

// ExtractLabs aggregates lab-result observations into averaged features,
// one key per analyte, absent when no usable observation exists.
func ExtractLabs(observations []fhir.Resource) models.FeatureVector {
	samples := make(map[string][]float64)

	for _, obs := range observations {
		code := observationCode(obs)
		text := observationText(obs)

		for _, target := range labTargets {
			if code == target.code || (code == "" && strings.Contains(text, target.text)) {
				if value, ok := quantityValue(obs); ok {
					samples[target.key] = append(samples[target.key], value)
				}
				break
			}
		}
	}

	vector := models.FeatureVector{}
	for key, values := range samples {
		vector[key] = round2(mean(values))
	}
	return vector
}
