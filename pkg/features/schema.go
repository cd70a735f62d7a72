package features

import (
	"fmt"

	"github.com/healthflow-ai/platform/pkg/nlp"
)

// Each extractor owns a disjoint slice of the feature vocabulary. The merge
// in the extraction service is a plain union of mappings, which is only
// correct while these namespaces stay disjoint; CheckDisjoint enforces that
// at service construction instead of leaving it to convention.
var (
	demographicKeys = []string{"age", "gender"}

	vitalKeys = []string{
		"avg_systolic_bp", "avg_diastolic_bp", "height_cm", "weight_kg", "bmi",
	}

	labKeys = []string{
		"avg_cholesterol", "avg_hdl", "avg_ldl", "avg_triglycerides", "avg_hemoglobin",
	}

	encounterKeys = []string{
		"total_observations", "observation_span_days", "consultation_frequency",
	}
)

func CheckDisjoint() error {
	namespaces := map[string][]string{
		"demographics": demographicKeys,
		"vitals":       vitalKeys,
		"labs":         labKeys,
		"encounters":   encounterKeys,
		"nlp":          nlp.TextFeatureKeys(),
	}

	owner := make(map[string]string)
	for namespace, keys := range namespaces {
		for _, key := range keys {
			if existing, taken := owner[key]; taken {
				return fmt.Errorf("feature key %q claimed by both %s and %s extractors", key, existing, namespace)
			}
			owner[key] = namespace
		}
	}
	return nil
}
