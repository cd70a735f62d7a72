package features

import (
	"math"
	"strings"

	"github.com/healthflow-ai/platform/pkg/fhir"
)

// Shared helpers for the observation-driven extractors. Observations are
// matched primarily by LOINC code, with a lowercase display-text fallback
// for exports that omit codings.

func observationCode(obs fhir.Resource) string {
	code, ok := obs.GetMap("code")
	if !ok {
		return ""
	}
	for _, coding := range code.Maps("coding") {
		if value, ok := coding.GetString("code"); ok {
			return value
		}
	}
	return ""
}

func observationText(obs fhir.Resource) string {
	code, ok := obs.GetMap("code")
	if !ok {
		return ""
	}
	if text, ok := code.GetString("text"); ok {
		return strings.ToLower(text)
	}
	for _, coding := range code.Maps("coding") {
		if display, ok := coding.GetString("display"); ok {
			return strings.ToLower(display)
		}
	}
	return ""
}

func quantityValue(container fhir.Resource) (float64, bool) {
	quantity, ok := container.GetMap("valueQuantity")
	if !ok {
		return 0, false
	}
	return quantity.GetFloat("value")
}

// componentValue finds the valueQuantity of the component carrying the given
// LOINC code (blood-pressure panels nest systolic/diastolic this way).
func componentValue(obs fhir.Resource, loincCode string) (float64, bool) {
	for _, component := range obs.Maps("component") {
		code, ok := component.GetMap("code")
		if !ok {
			continue
		}
		for _, coding := range code.Maps("coding") {
			if value, ok := coding.GetString("code"); ok && value == loincCode {
				return quantityValue(component)
			}
		}
	}
	return 0, false
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
