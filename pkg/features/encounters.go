package features

import (
	"math"
	"sort"
	"time"

	"github.com/healthflow-ai/platform/pkg/common/models"
	"github.com/healthflow-ai/platform/pkg/fhir"
)

// ExtractEncounters derives encounter-frequency features from observation
// timestamps. Only observations with a parseable effectiveDateTime count
// toward the span; fewer than two valid dates yields no span fields at all.
func ExtractEncounters(observations []fhir.Resource) models.FeatureVector {
	vector := models.FeatureVector{}
	if len(observations) == 0 {
		return vector
	}

	vector["total_observations"] = len(observations)

	var dates []time.Time
	for _, obs := range observations {
		if ts, ok := obs.EffectiveTime(); ok {
			dates = append(dates, ts)
		}
	}
	if len(dates) < 2 {
		return vector
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	spanDays := int(dates[len(dates)-1].Sub(dates[0]).Hours() / 24)

	vector["observation_span_days"] = spanDays
	vector["consultation_frequency"] = round4(float64(len(observations)) / math.Max(float64(spanDays), 1))
	return vector
}

func round4(value float64) float64 {
	return math.Round(value*10000) / 10000
}
