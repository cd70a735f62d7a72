package fairness

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/healthflow-ai/platform/pkg/common/models"
)

// Fixed audit thresholds. The fairness score uses a deliberately steep
// linear penalty: a 10-percentage-point gender gap already costs 50 points.
const (
	parityThreshold    = 0.10
	disparateThreshold = 0.80
	scorePenaltySlope  = 500
	highRiskCategory   = "high"
)

type ageBand struct {
	label string
	upper float64 // inclusive upper edge
}

// Half-open-on-left, closed-on-right bands over ages 0..120.
var ageBands = []ageBand{
	{"18-30", 30},
	{"31-50", 50},
	{"51-70", 70},
	{"70+", 120},
}

// ComputeMetrics turns joined prediction+feature rows into a fairness
// report. It never partially computes: when the bias metrics cannot be
// established the metric list is empty and the score is 0, with the group
// analyses still present when rows exist.
func ComputeMetrics(rows []models.PredictionRow) models.FairnessReport {
	report := models.FairnessReport{
		DemographicAnalysis: []models.GroupStats{},
		AgeGroupAnalysis:    []models.GroupStats{},
		BiasMetrics:         []models.BiasMetric{},
		Recommendations:     []models.Recommendation{},
		SampleSize:          len(rows),
		GeneratedAt:         time.Now().UTC(),
	}
	if len(rows) == 0 {
		return report
	}

	report.DemographicAnalysis = genderAnalysis(rows)
	report.AgeGroupAnalysis = ageBandAnalysis(rows)

	maleRate, maleOK := groupRate(rows, "male")
	femaleRate, femaleOK := groupRate(rows, "female")
	if !maleOK || !femaleOK {
		return report
	}

	parity := math.Abs(maleRate - femaleRate)
	parityStatus := "pass"
	if parity >= parityThreshold {
		parityStatus = "warning"
	}

	impact := disparateImpact(maleRate, femaleRate)
	impactStatus := "pass"
	if impact < disparateThreshold {
		impactStatus = "fail"
	}

	report.BiasMetrics = []models.BiasMetric{
		{
			Metric:    "Demographic Parity Difference",
			Value:     round4(parity),
			Threshold: parityThreshold,
			Status:    parityStatus,
		},
		{
			Metric:    "Disparate Impact Ratio",
			Value:     round4(impact),
			Threshold: disparateThreshold,
			Status:    impactStatus,
		},
	}

	report.OverallScore = fairnessScore(parity)
	report.Recommendations = append(report.Recommendations, parityRecommendation(parity, maleRate, femaleRate))

	return report
}

func genderAnalysis(rows []models.PredictionRow) []models.GroupStats {
	counts := make(map[string]int)
	highs := make(map[string]int)
	for _, row := range rows {
		if row.Gender == nil || *row.Gender == "" {
			continue
		}
		group := strings.ToLower(*row.Gender)
		counts[group]++
		if row.RiskCategory == highRiskCategory {
			highs[group]++
		}
	}
	return groupStats(counts, highs)
}

func ageBandAnalysis(rows []models.PredictionRow) []models.GroupStats {
	counts := make(map[string]int)
	highs := make(map[string]int)
	for _, row := range rows {
		if row.Age == nil {
			continue
		}
		band, ok := bandFor(*row.Age)
		if !ok {
			continue
		}
		counts[band]++
		if row.RiskCategory == highRiskCategory {
			highs[band]++
		}
	}

	stats := groupStats(counts, highs)
	sort.Slice(stats, func(i, j int) bool {
		return bandIndex(stats[i].Group) < bandIndex(stats[j].Group)
	})
	return stats
}

func bandFor(age float64) (string, bool) {
	if age < 0 {
		return "", false
	}
	for _, band := range ageBands {
		if age <= band.upper {
			return band.label, true
		}
	}
	return "", false
}

func bandIndex(label string) int {
	for i, band := range ageBands {
		if band.label == label {
			return i
		}
	}
	return len(ageBands)
}

func groupStats(counts, highs map[string]int) []models.GroupStats {
	groups := make([]string, 0, len(counts))
	for group := range counts {
		groups = append(groups, group)
	}
	sort.Strings(groups)

	stats := make([]models.GroupStats, 0, len(groups))
	for _, group := range groups {
		rate := float64(highs[group]) / float64(counts[group])
		stats = append(stats, models.GroupStats{
			Group:        group,
			HighRiskRate: round2(rate * 100),
			SampleSize:   counts[group],
		})
	}
	return stats
}

// groupRate returns the high-risk fraction for a gender group, reporting
// ok=false when the group is absent or empty.
func groupRate(rows []models.PredictionRow, gender string) (float64, bool) {
	var total, high int
	for _, row := range rows {
		if row.Gender == nil || strings.ToLower(*row.Gender) != gender {
			continue
		}
		total++
		if row.RiskCategory == highRiskCategory {
			high++
		}
	}
	if total == 0 {
		return 0, false
	}
	return float64(high) / float64(total), true
}

// disparateImpact is min/max of the two rates, defined as 1.0 when both
// rates are zero.
func disparateImpact(a, b float64) float64 {
	if a == 0 && b == 0 {
		return 1.0
	}
	return math.Min(a, b) / math.Max(a, b)
}

func fairnessScore(parity float64) int {
	score := 100 - parity*scorePenaltySlope
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	// Settle float noise (0.15*500 computes as 75.00000000000001) before
	// truncating.
	return int(math.Round(score*1e9) / 1e9)
}

func parityRecommendation(parity, maleRate, femaleRate float64) models.Recommendation {
	if parity < parityThreshold {
		return models.Recommendation{
			Severity: "info",
			Title:    "Demographic parity acceptable",
			Message: fmt.Sprintf("High-risk rates differ by %.1f percentage points across genders, within the %.0f-point threshold.",
				parity*100, parityThreshold*100),
		}
	}

	higher := "male"
	if femaleRate > maleRate {
		higher = "female"
	}
	return models.Recommendation{
		Severity: "warning",
		Title:    "Demographic parity gap detected",
		Message: fmt.Sprintf("%s patients are flagged high-risk %.1f percentage points more often; review model calibration across genders.",
			strings.ToUpper(higher[:1])+higher[1:], parity*100),
	}
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func round4(value float64) float64 {
	return math.Round(value*10000) / 10000
}
