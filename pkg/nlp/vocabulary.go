package nlp

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Vocabulary holds the fixed keyword lists used by the fallback extractor.
type Vocabulary struct {
	Conditions  []string `yaml:"conditions" json:"conditions"`
	Medications []string `yaml:"medications" json:"medications"`
}

// LoadVocabulary reads a vocabulary file, falling back to the built-in
// defaults when no path is configured.
func LoadVocabulary(path string) (Vocabulary, error) {
	if path == "" {
		return DefaultVocabulary(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultVocabulary(), err
	}

	var vocab Vocabulary
	if err := yaml.Unmarshal(content, &vocab); err != nil {
		return Vocabulary{}, err
	}

	if len(vocab.Conditions) == 0 && len(vocab.Medications) == 0 {
		return Vocabulary{}, errors.New("no vocabulary entries configured")
	}

	return vocab, nil
}

func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Conditions: []string{
			"diabetes", "hypertension", "copd", "chf", "mi", "stroke",
			"pneumonia", "sepsis", "uti", "cancer",
		},
		Medications: []string{
			"aspirin", "metformin", "insulin", "lisinopril", "atorvastatin",
			"warfarin", "heparin", "furosemide",
		},
	}
}
