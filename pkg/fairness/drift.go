package fairness

import (
	"math"
	"time"

	"github.com/healthflow-ai/platform/pkg/common/models"
)

// Drift detection compares the first half of the joined rows (reference)
// against the second half (current) per numeric column using the population
// stability index. A real deployment would compare training data against
// live data; halving the current table approximates that with what the
// store holds.
const (
	psiBins           = 10
	psiDriftThreshold = 0.2
)

type driftColumn struct {
	name   string
	getter func(models.PredictionRow) (float64, bool)
}

var driftColumns = []driftColumn{
	{"risk_score", func(r models.PredictionRow) (float64, bool) { return r.RiskScore, true }},
	{"age", func(r models.PredictionRow) (float64, bool) { return deref(r.Age) }},
	{"bmi", func(r models.PredictionRow) (float64, bool) { return deref(r.BMI) }},
	{"systolic_bp", func(r models.PredictionRow) (float64, bool) { return deref(r.SystolicBP) }},
	{"cholesterol", func(r models.PredictionRow) (float64, bool) { return deref(r.Cholesterol) }},
}

func deref(v *float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}

// ComputeDrift builds the per-column PSI report. Fewer than two rows yields
// a degraded empty report, never an error.
func ComputeDrift(rows []models.PredictionRow) models.DriftReport {
	report := models.DriftReport{
		Columns:     []models.DriftColumn{},
		SampleSize:  len(rows),
		GeneratedAt: time.Now().UTC(),
	}
	if len(rows) < 2 {
		return report
	}

	mid := len(rows) / 2
	reference := rows[:mid]
	current := rows[mid:]

	for _, column := range driftColumns {
		refValues := columnValues(reference, column.getter)
		curValues := columnValues(current, column.getter)
		if len(refValues) == 0 || len(curValues) == 0 {
			continue
		}

		psi := populationStabilityIndex(refValues, curValues)
		drifted := psi >= psiDriftThreshold
		report.Columns = append(report.Columns, models.DriftColumn{
			Column:  column.name,
			PSI:     round4(psi),
			Drifted: drifted,
		})
		if drifted {
			report.DriftedColumns++
		}
	}

	return report
}

func columnValues(rows []models.PredictionRow, getter func(models.PredictionRow) (float64, bool)) []float64 {
	values := make([]float64, 0, len(rows))
	for _, row := range rows {
		if v, ok := getter(row); ok {
			values = append(values, v)
		}
	}
	return values
}

// populationStabilityIndex bins both samples over the reference range and
// sums (cur-ref)*ln(cur/ref) across bins, with a small floor to keep empty
// bins finite.
func populationStabilityIndex(reference, current []float64) float64 {
	lo, hi := reference[0], reference[0]
	for _, v := range reference {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi == lo {
		hi = lo + 1
	}

	refDist := binShares(reference, lo, hi)
	curDist := binShares(current, lo, hi)

	const floor = 1e-4
	var psi float64
	for i := 0; i < psiBins; i++ {
		ref := math.Max(refDist[i], floor)
		cur := math.Max(curDist[i], floor)
		psi += (cur - ref) * math.Log(cur/ref)
	}
	return psi
}

func binShares(values []float64, lo, hi float64) []float64 {
	counts := make([]float64, psiBins)
	width := (hi - lo) / psiBins
	for _, v := range values {
		idx := int((v - lo) / width)
		if idx < 0 {
			idx = 0
		}
		if idx >= psiBins {
			idx = psiBins - 1
		}
		counts[idx]++
	}
	for i := range counts {
		counts[i] /= float64(len(values))
	}
	return counts
}
