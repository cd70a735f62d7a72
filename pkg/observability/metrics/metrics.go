package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	extractionsSucceeded atomic.Int64
	extractionsFailed    atomic.Int64
	nlpFallbacks         atomic.Int64
	predictionsScored    atomic.Int64
	fairnessRuns         atomic.Int64
)

func IncExtractionSucceeded() { extractionsSucceeded.Add(1) }
func IncExtractionFailed()    { extractionsFailed.Add(1) }
func IncNLPFallback()         { nlpFallbacks.Add(1) }
func IncPredictionScored()    { predictionsScored.Add(1) }
func IncFairnessRun()         { fairnessRuns.Add(1) }

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP healthflow_extractions_succeeded_total Number of per-patient feature extractions completed successfully.\n")
	fmt.Fprintf(w, "# TYPE healthflow_extractions_succeeded_total counter\n")
	fmt.Fprintf(w, "healthflow_extractions_succeeded_total %d\n", extractionsSucceeded.Load())

	fmt.Fprintf(w, "# HELP healthflow_extractions_failed_total Number of per-patient feature extractions that failed.\n")
	fmt.Fprintf(w, "# TYPE healthflow_extractions_failed_total counter\n")
	fmt.Fprintf(w, "healthflow_extractions_failed_total %d\n", extractionsFailed.Load())

	fmt.Fprintf(w, "# HELP healthflow_nlp_fallbacks_total Number of entity extractions served by the keyword fallback path.\n")
	fmt.Fprintf(w, "# TYPE healthflow_nlp_fallbacks_total counter\n")
	fmt.Fprintf(w, "healthflow_nlp_fallbacks_total %d\n", nlpFallbacks.Load())

	fmt.Fprintf(w, "# HELP healthflow_predictions_scored_total Number of readmission risk predictions persisted.\n")
	fmt.Fprintf(w, "# TYPE healthflow_predictions_scored_total counter\n")
	fmt.Fprintf(w, "healthflow_predictions_scored_total %d\n", predictionsScored.Load())

	fmt.Fprintf(w, "# HELP healthflow_fairness_runs_total Number of fairness reports computed.\n")
	fmt.Fprintf(w, "# TYPE healthflow_fairness_runs_total counter\n")
	fmt.Fprintf(w, "healthflow_fairness_runs_total %d\n", fairnessRuns.Load())
}
