package features

import (
	"strings"

	"github.com/healthflow-ai/platform/pkg/common/models"
	"github.com/healthflow-ai/platform/pkg/fhir"
)

const (
	loincBloodPressure = "85354-9"
	loincSystolic      = "8480-6"
	loincDiastolic     = "8462-4"
	loincHeight        = "8302-2"
	loincWeight        = "29463-7"
	loincBMI           = "39156-5"
)

// ExtractVitals aggregates vital-sign observations into averaged features.
// Repeated observations of the same vital are averaged; vitals with no
// usable observation are absent from the result. BMI prefers recorded BMI
// observations and otherwise derives from averaged height and weight.
func ExtractVitals(observations []fhir.Resource) models.FeatureVector {
	var systolic, diastolic, heights, weights, bmis []float64

	for _, obs := range observations {
		code := observationCode(obs)
		text := observationText(obs)

		switch {
		case code == loincBloodPressure || strings.Contains(text, "blood pressure"):
			if value, ok := componentValue(obs, loincSystolic); ok {
				systolic = append(systolic, value)
			}
			if value, ok := componentValue(obs, loincDiastolic); ok {
				diastolic = append(diastolic, value)
			}
		case code == loincHeight || strings.Contains(text, "body height"):
			if value, ok := quantityValue(obs); ok {
				heights = append(heights, value)
			}
		case code == loincWeight || strings.Contains(text, "body weight"):
			if value, ok := quantityValue(obs); ok {
				weights = append(weights, value)
			}
		case code == loincBMI || strings.Contains(text, "body mass index"):
			if value, ok := quantityValue(obs); ok {
				bmis = append(bmis, value)
			}
		}
	}

	vector := models.FeatureVector{}
	if len(systolic) > 0 {
		vector["avg_systolic_bp"] = round2(mean(systolic))
	}
	if len(diastolic) > 0 {
		vector["avg_diastolic_bp"] = round2(mean(diastolic))
	}
	if len(heights) > 0 {
		vector["height_cm"] = round2(mean(heights))
	}
	if len(weights) > 0 {
		vector["weight_kg"] = round2(mean(weights))
	}

	switch {
	case len(bmis) > 0:
		vector["bmi"] = round2(mean(bmis))
	case len(heights) > 0 && len(weights) > 0:
		heightM := mean(heights) / 100
		if heightM > 0 {
			vector["bmi"] = round2(mean(weights) / (heightM * heightM))
		}
	}

	return vector
}
