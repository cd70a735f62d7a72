package features

import (
	"strings"
	"time"

	"github.com/healthflow-ai/platform/pkg/common/models"
	"github.com/healthflow-ai/platform/pkg/fhir"
)

// ExtractDemographics reads age and gender from a raw Patient resource.
// Missing or malformed fields are simply absent from the result.
func ExtractDemographics(patient fhir.Resource) models.FeatureVector {
	vector := models.FeatureVector{}
	if patient == nil {
		return vector
	}

	if birthDate, ok := patient.GetString("birthDate"); ok {
		if born, ok := fhir.ParseTime(birthDate); ok {
			if age := yearsSince(born, time.Now().UTC()); age >= 0 {
				vector["age"] = float64(age)
			}
		}
	}

	if gender, ok := patient.GetString("gender"); ok {
		vector["gender"] = strings.ToLower(gender)
	}

	return vector
}

func yearsSince(born, now time.Time) int {
	years := now.Year() - born.Year()
	// Not yet had this year's birthday.
	if now.Month() < born.Month() || (now.Month() == born.Month() && now.Day() < born.Day()) {
		years--
	}
	return years
}
