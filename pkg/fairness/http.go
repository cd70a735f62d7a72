package fairness

import (
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/healthflow-ai/platform/pkg/common/logger"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/fairness/metrics", h.handleMetrics).Methods(http.MethodGet)
	router.HandleFunc("/fairness/report", h.handleReport).Methods(http.MethodGet)
	router.HandleFunc("/fairness/drift", h.handleDrift).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	report := h.service.Report(r.Context())
	writeJSON(w, http.StatusOK, report)
}

func (h *HTTPHandler) handleDrift(w http.ResponseWriter, r *http.Request) {
	report := h.service.Drift(r.Context())
	writeJSON(w, http.StatusOK, report)
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head><title>Fairness Audit</title></head>
<body>
<h1>Fairness Audit</h1>
{{if eq .SampleSize 0}}
<p>No data available yet</p>
{{else}}
<p>Overall fairness score: <strong>{{.OverallScore}}</strong> / 100 ({{.SampleSize}} samples)</p>
<h2>High-risk rate by gender</h2>
<table border="1">
<tr><th>Group</th><th>High-risk rate (%)</th><th>Sample size</th></tr>
{{range .DemographicAnalysis}}<tr><td>{{.Group}}</td><td>{{.HighRiskRate}}</td><td>{{.SampleSize}}</td></tr>
{{end}}</table>
<h2>High-risk rate by age band</h2>
<table border="1">
<tr><th>Band</th><th>High-risk rate (%)</th><th>Sample size</th></tr>
{{range .AgeGroupAnalysis}}<tr><td>{{.Group}}</td><td>{{.HighRiskRate}}</td><td>{{.SampleSize}}</td></tr>
{{end}}</table>
<h2>Bias metrics</h2>
<table border="1">
<tr><th>Metric</th><th>Value</th><th>Threshold</th><th>Status</th></tr>
{{range .BiasMetrics}}<tr><td>{{.Metric}}</td><td>{{.Value}}</td><td>{{.Threshold}}</td><td>{{.Status}}</td></tr>
{{end}}</table>
<h2>Recommendations</h2>
<ul>
{{range .Recommendations}}<li><strong>[{{.Severity}}] {{.Title}}</strong>: {{.Message}}</li>
{{end}}</ul>
{{end}}
</body>
</html>`))

func (h *HTTPHandler) handleReport(w http.ResponseWriter, r *http.Request) {
	report := h.service.Report(r.Context())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := reportTemplate.Execute(w, report); err != nil {
		logger.Log.WithError(err).Error("failed to render fairness report")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Error("failed to encode response")
	}
}
