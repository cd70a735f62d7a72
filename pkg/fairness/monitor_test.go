package fairness

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/healthflow-ai/platform/pkg/common/logger"
	"github.com/healthflow-ai/platform/pkg/common/models"
)

func init() {
	logger.Init()
}

func row(gender string, age float64, category string) models.PredictionRow {
	return models.PredictionRow{
		RiskCategory: category,
		Gender:       &gender,
		Age:          &age,
	}
}

// cohort builds n rows for one gender with the given number flagged high.
func cohort(gender string, age float64, n, high int) []models.PredictionRow {
	rows := make([]models.PredictionRow, 0, n)
	for i := 0; i < n; i++ {
		category := "low"
		if i < high {
			category = "high"
		}
		rows = append(rows, row(gender, age, category))
	}
	return rows
}

func findMetric(t *testing.T, report models.FairnessReport, name string) models.BiasMetric {
	t.Helper()
	for _, metric := range report.BiasMetrics {
		if metric.Metric == name {
			return metric
		}
	}
	t.Fatalf("metric %q missing from %v", name, report.BiasMetrics)
	return models.BiasMetric{}
}

func TestComputeMetricsWorkedExample(t *testing.T) {
	// male high-risk rate 0.40, female 0.25.
	rows := append(cohort("male", 60, 10, 4), cohort("female", 55, 8, 2)...)

	report := ComputeMetrics(rows)

	parity := findMetric(t, report, "Demographic Parity Difference")
	if parity.Value != 0.15 {
		t.Fatalf("expected parity 0.15, got %v", parity.Value)
	}
	if parity.Status != "warning" {
		t.Fatalf("parity 0.15 must be a warning, got %s", parity.Status)
	}
	if parity.Threshold != 0.10 {
		t.Fatalf("expected parity threshold 0.10, got %v", parity.Threshold)
	}

	impact := findMetric(t, report, "Disparate Impact Ratio")
	if impact.Value != 0.625 {
		t.Fatalf("expected impact 0.25/0.40 = 0.625, got %v", impact.Value)
	}
	if impact.Status != "fail" {
		t.Fatalf("impact below 0.80 must fail, got %s", impact.Status)
	}

	// 100 - 0.15*500 = 25.
	if report.OverallScore != 25 {
		t.Fatalf("expected score 25, got %d", report.OverallScore)
	}

	if len(report.Recommendations) != 1 {
		t.Fatalf("expected exactly one parity recommendation, got %d", len(report.Recommendations))
	}
	rec := report.Recommendations[0]
	if rec.Severity != "warning" {
		t.Fatalf("expected warning recommendation, got %s", rec.Severity)
	}
	if !strings.Contains(rec.Message, "Male") {
		t.Fatalf("expected the higher-rate group named, got %q", rec.Message)
	}

	if report.SampleSize != 18 {
		t.Fatalf("expected sample size 18, got %d", report.SampleSize)
	}
}

func TestComputeMetricsParityIsSymmetric(t *testing.T) {
	forward := append(cohort("male", 60, 10, 4), cohort("female", 55, 8, 2)...)
	reversed := append(cohort("male", 60, 8, 2), cohort("female", 55, 10, 4)...)

	a := ComputeMetrics(forward)
	b := ComputeMetrics(reversed)

	if findMetric(t, a, "Demographic Parity Difference").Value != findMetric(t, b, "Demographic Parity Difference").Value {
		t.Fatal("parity must not depend on which group is higher")
	}
	if a.OverallScore != b.OverallScore {
		t.Fatalf("scores differ: %d vs %d", a.OverallScore, b.OverallScore)
	}
	if !strings.Contains(b.Recommendations[0].Message, "Female") {
		t.Fatalf("reversed cohort must name female as the higher group, got %q", b.Recommendations[0].Message)
	}
}

func TestComputeMetricsEqualRatesPass(t *testing.T) {
	rows := append(cohort("male", 60, 10, 3), cohort("female", 55, 10, 3)...)

	report := ComputeMetrics(rows)
	if findMetric(t, report, "Demographic Parity Difference").Status != "pass" {
		t.Fatal("equal rates must pass the parity check")
	}
	if findMetric(t, report, "Disparate Impact Ratio").Value != 1.0 {
		t.Fatal("equal rates must give impact 1.0")
	}
	if report.OverallScore != 100 {
		t.Fatalf("expected score 100, got %d", report.OverallScore)
	}
	if report.Recommendations[0].Severity != "info" {
		t.Fatalf("expected info recommendation, got %s", report.Recommendations[0].Severity)
	}
}

func TestComputeMetricsBothRatesZero(t *testing.T) {
	rows := append(cohort("male", 60, 5, 0), cohort("female", 55, 5, 0)...)

	report := ComputeMetrics(rows)
	impact := findMetric(t, report, "Disparate Impact Ratio")
	if impact.Value != 1.0 {
		t.Fatalf("impact must define 0/0 as 1.0, got %v", impact.Value)
	}
	if impact.Status != "pass" {
		t.Fatalf("expected pass, got %s", impact.Status)
	}
}

func TestComputeMetricsScoreClampsAtZero(t *testing.T) {
	// male 1.0 vs female 0.0: parity 1.0 would score -400 unclamped.
	rows := append(cohort("male", 60, 4, 4), cohort("female", 55, 4, 0)...)

	report := ComputeMetrics(rows)
	if report.OverallScore != 0 {
		t.Fatalf("expected clamped score 0, got %d", report.OverallScore)
	}
}

func TestComputeMetricsScoreTruncates(t *testing.T) {
	// male 1/3, female 1/4: parity 0.08333 -> score 58.33 -> 58.
	rows := append(cohort("male", 60, 3, 1), cohort("female", 55, 4, 1)...)

	report := ComputeMetrics(rows)
	if report.OverallScore != 58 {
		t.Fatalf("expected truncated score 58, got %d", report.OverallScore)
	}
	if findMetric(t, report, "Demographic Parity Difference").Status != "pass" {
		t.Fatal("parity below threshold must pass")
	}
}

func TestComputeMetricsMissingGenderGroup(t *testing.T) {
	rows := cohort("male", 60, 6, 2)

	report := ComputeMetrics(rows)
	if len(report.BiasMetrics) != 0 {
		t.Fatalf("bias metrics need both gender groups, got %v", report.BiasMetrics)
	}
	if report.OverallScore != 0 {
		t.Fatalf("expected zero score without metrics, got %d", report.OverallScore)
	}
	if len(report.DemographicAnalysis) != 1 {
		t.Fatalf("group analysis must still be present, got %v", report.DemographicAnalysis)
	}
	if len(report.Recommendations) != 0 {
		t.Fatalf("no recommendation without metrics, got %v", report.Recommendations)
	}
}

func TestComputeMetricsNoData(t *testing.T) {
	report := ComputeMetrics(nil)

	if report.SampleSize != 0 || report.OverallScore != 0 {
		t.Fatalf("expected degraded empty report, got %+v", report)
	}
	if report.DemographicAnalysis == nil || report.BiasMetrics == nil || report.Recommendations == nil {
		t.Fatal("degraded report must carry empty slices, not nulls")
	}
}

func TestAgeBandAnalysis(t *testing.T) {
	rows := []models.PredictionRow{
		row("male", 25, "high"),
		row("female", 45, "low"),
		row("male", 65, "low"),
		row("female", 85, "high"),
	}

	report := ComputeMetrics(rows)
	bands := report.AgeGroupAnalysis
	if len(bands) != 4 {
		t.Fatalf("expected 4 bands, got %v", bands)
	}

	wantOrder := []string{"18-30", "31-50", "51-70", "70+"}
	for i, want := range wantOrder {
		if bands[i].Group != want {
			t.Fatalf("band %d: expected %s, got %s", i, want, bands[i].Group)
		}
		if bands[i].SampleSize != 1 {
			t.Fatalf("band %s: expected sample size 1, got %d", want, bands[i].SampleSize)
		}
	}
	if bands[0].HighRiskRate != 100.0 {
		t.Fatalf("expected 100%% high-risk in 18-30, got %v", bands[0].HighRiskRate)
	}
	if bands[1].HighRiskRate != 0.0 {
		t.Fatalf("expected 0%% high-risk in 31-50, got %v", bands[1].HighRiskRate)
	}
}

func TestBandForEdges(t *testing.T) {
	cases := []struct {
		age  float64
		band string
		ok   bool
	}{
		{0, "18-30", true},
		{30, "18-30", true},
		{31, "31-50", true},
		{50, "31-50", true},
		{70, "51-70", true},
		{71, "70+", true},
		{120, "70+", true},
		{121, "", false},
		{-1, "", false},
	}
	for _, tc := range cases {
		band, ok := bandFor(tc.age)
		if band != tc.band || ok != tc.ok {
			t.Fatalf("bandFor(%v) = %q,%v; want %q,%v", tc.age, band, ok, tc.band, tc.ok)
		}
	}
}

type failingRows struct{}

func (failingRows) JoinedRows(context.Context) ([]models.PredictionRow, error) {
	return nil, errors.New("join query failed")
}

func TestServiceReportDegradesOnFetchFailure(t *testing.T) {
	svc := NewService(failingRows{})

	report := svc.Report(context.Background())
	if report.SampleSize != 0 {
		t.Fatalf("expected degraded report, got %+v", report)
	}
	if report.BiasMetrics == nil {
		t.Fatal("degraded report must carry empty slices")
	}
}
