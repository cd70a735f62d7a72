package nlp

import (
	"context"
	"strings"

	"github.com/healthflow-ai/platform/pkg/common/models"
)

// conditionFlags maps each comorbidity flag key to the substrings that raise
// it when found in the extracted condition list.
var conditionFlags = []struct {
	key     string
	matches []string
}{
	{"nlp_has_diabetes", []string{"diabetes"}},
	{"nlp_has_hypertension", []string{"hypertension"}},
	{"nlp_has_chf", []string{"chf", "heart failure"}},
	{"nlp_has_copd", []string{"copd", "chronic obstructive"}},
	{"nlp_has_ckd", []string{"ckd", "chronic kidney"}},
}

const polypharmacyThreshold = 5

// TextFeatureBuilder turns a patient's clinical notes into the fixed NLP
// feature subset. The key set is identical whether or not any notes exist;
// partial NLP output is never produced.
type TextFeatureBuilder struct {
	extractor EntityExtractor
}

func NewTextFeatureBuilder(extractor EntityExtractor) *TextFeatureBuilder {
	return &TextFeatureBuilder{extractor: extractor}
}

func (b *TextFeatureBuilder) Build(ctx context.Context, notes []string) models.FeatureVector {
	if len(notes) == 0 {
		return EmptyTextFeatures()
	}

	combined := strings.Join(notes, " ")
	entities, err := b.extractor.Extract(ctx, combined)
	if err != nil {
		// The pipeline façade already degrades internally; a hard failure
		// here still yields the full key set.
		entities = models.EntityExtractionResult{}
	}

	conditions := entities["conditions"]
	medications := entities["medications"]
	conditionText := strings.ToLower(strings.Join(conditions, " "))

	features := models.FeatureVector{
		"nlp_num_conditions":       len(conditions),
		"nlp_num_medications":      len(medications),
		"nlp_polypharmacy":         boolFlag(len(medications) >= polypharmacyThreshold),
		"nlp_note_length":          len(combined),
		"nlp_note_count":           len(notes),
		"nlp_avg_note_length":      float64(len(combined)) / float64(len(notes)),
		"nlp_conditions_mentioned": append([]string{}, conditions...),
		"nlp_medications_mentioned": append([]string{}, medications...),

		// Symptom detection is a reserved placeholder; these keys are part
		// of the fixed schema but always zero.
		"nlp_num_symptoms": 0,
		"nlp_has_pain":     0,
		"nlp_has_dyspnea":  0,
	}

	for _, flag := range conditionFlags {
		features[flag.key] = boolFlag(containsAny(conditionText, flag.matches))
	}

	return features
}

// EmptyTextFeatures is the canonical "no text available" vector: every NLP
// key present with a zero or empty value.
func EmptyTextFeatures() models.FeatureVector {
	features := models.FeatureVector{
		"nlp_num_conditions":        0,
		"nlp_num_medications":       0,
		"nlp_polypharmacy":          0,
		"nlp_note_length":           0,
		"nlp_note_count":            0,
		"nlp_avg_note_length":       float64(0),
		"nlp_conditions_mentioned":  []string{},
		"nlp_medications_mentioned": []string{},
		"nlp_num_symptoms":          0,
		"nlp_has_pain":              0,
		"nlp_has_dyspnea":           0,
	}
	for _, flag := range conditionFlags {
		features[flag.key] = 0
	}
	return features
}

// TextFeatureKeys returns the fixed NLP key set.
func TextFeatureKeys() []string {
	keys := make([]string, 0, 16)
	for key := range EmptyTextFeatures() {
		keys = append(keys, key)
	}
	return keys
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}

func boolFlag(condition bool) int {
	if condition {
		return 1
	}
	return 0
}
