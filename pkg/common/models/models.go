package models

import "time"

// FeatureVector is the consolidated per-patient feature mapping. Keys form a
// fixed but extensible vocabulary; absent source data means an absent key,
// never a sentinel value.
type FeatureVector = map[string]interface{}

// EntityExtractionResult maps an entity category ("conditions",
// "medications", or a model-assigned group label) to a de-duplicated,
// first-seen-ordered list of surface strings.
type EntityExtractionResult = map[string][]string

// Entity is a single labelled span returned by the NER model endpoint.
type Entity struct {
	Word  string `json:"word"`
	Group string `json:"entity_group"`
}

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // features.extracted, predictions.scored
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// Feature extraction API envelopes
type ExtractionResponse struct {
	Status    string        `json:"status"`
	PatientID string        `json:"patient_id"`
	Features  FeatureVector `json:"features"`
}

type BulkExtractionError struct {
	PatientID string `json:"patient_id"`
	Error     string `json:"error"`
}

type BulkExtractionResponse struct {
	Status       string                `json:"status"`
	Extracted    int                   `json:"extracted"`
	Errors       int                   `json:"errors"`
	PatientIDs   []string              `json:"patient_ids"`
	ErrorDetails []BulkExtractionError `json:"error_details"`
}

// FeatureStats summarizes the persisted feature table.
type FeatureStats struct {
	TotalPatients      int64    `json:"total_patients"`
	AverageAge         *float64 `json:"average_age"`
	AverageBMI         *float64 `json:"average_bmi"`
	AverageCholesterol *float64 `json:"average_cholesterol"`
}

// Scoring models
type PredictionResponse struct {
	PatientID    string        `json:"patient_id"`
	RiskScore    float64       `json:"risk_score"`
	RiskCategory string        `json:"risk_category"`
	ModelVersion string        `json:"model_version"`
	Latency      time.Duration `json:"latency"`
}

// PredictionRow is one joined prediction+feature row consumed by the
// fairness monitor. Feature columns are nullable in the store.
type PredictionRow struct {
	RiskCategory    string   `json:"risk_category"`
	RiskScore       float64  `json:"risk_score"`
	FraminghamScore *float64 `json:"framingham_score"`
	Age             *float64 `json:"age"`
	Gender          *string  `json:"gender"`
	BMI             *float64 `json:"bmi"`
	SystolicBP      *float64 `json:"systolic_bp"`
	Cholesterol     *float64 `json:"cholesterol"`
}

// Fairness report models
type GroupStats struct {
	Group        string  `json:"group"`
	HighRiskRate float64 `json:"highRiskRate"`
	SampleSize   int     `json:"sampleSize"`
}

type BiasMetric struct {
	Metric    string  `json:"metric"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
	Status    string  `json:"status"` // pass, warning, fail
}

type Recommendation struct {
	Severity string `json:"severity"` // info, warning
	Title    string `json:"title"`
	Message  string `json:"message"`
}

// FairnessReport is recomputed from current data on every invocation and is
// never persisted by this platform.
type FairnessReport struct {
	OverallScore        int              `json:"overall_score"`
	DemographicAnalysis []GroupStats     `json:"demographic_analysis"`
	AgeGroupAnalysis    []GroupStats     `json:"age_group_analysis"`
	BiasMetrics         []BiasMetric     `json:"bias_metrics"`
	Recommendations     []Recommendation `json:"recommendations"`
	SampleSize          int              `json:"sample_size"`
	GeneratedAt         time.Time        `json:"generated_at"`
}

// Drift report models
type DriftColumn struct {
	Column  string  `json:"column"`
	PSI     float64 `json:"psi"`
	Drifted bool    `json:"drifted"`
}

type DriftReport struct {
	Columns        []DriftColumn `json:"columns"`
	DriftedColumns int           `json:"drifted_columns"`
	SampleSize     int           `json:"sample_size"`
	GeneratedAt    time.Time     `json:"generated_at"`
}
