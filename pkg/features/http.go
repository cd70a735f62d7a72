package features

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/healthflow-ai/platform/pkg/common/logger"
	"github.com/healthflow-ai/platform/pkg/common/models"
	"github.com/healthflow-ai/platform/pkg/observability/metrics"
)

type HTTPHandler struct {
	service *Service
	repo    *Repository
	cache   *Cache
}

func NewHTTPHandler(service *Service, repo *Repository, cache *Cache) *HTTPHandler {
	return &HTTPHandler{service: service, repo: repo, cache: cache}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/extract/patient/{id}", h.handleExtractPatient).Methods(http.MethodPost)
	router.HandleFunc("/extract/all", h.handleExtractAll).Methods(http.MethodPost)
	router.HandleFunc("/features/{id}", h.handleGetFeatures).Methods(http.MethodGet)
	router.HandleFunc("/features", h.handleListFeatures).Methods(http.MethodGet)
	router.HandleFunc("/stats", h.handleStats).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleExtractPatient(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["id"]

	vector, err := h.service.ExtractFeatures(r.Context(), patientID)
	if err != nil {
		metrics.IncExtractionFailed()
		if errors.Is(err, ErrPatientNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": err.Error()})
			return
		}
		logger.Log.WithError(err).WithField("patient_id", patientID).Error("feature extraction failed")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
		return
	}

	metrics.IncExtractionSucceeded()
	writeJSON(w, http.StatusOK, models.ExtractionResponse{
		Status:    "success",
		PatientID: patientID,
		Features:  vector,
	})
}

func (h *HTTPHandler) handleExtractAll(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.ExtractAll(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("bulk extraction failed")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) handleGetFeatures(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["id"]

	// Cache first; fall back to the feature table.
	if vector, ok := h.cache.Get(r.Context(), patientID); ok {
		writeJSON(w, http.StatusOK, models.ExtractionResponse{
			Status:    "success",
			PatientID: patientID,
			Features:  vector,
		})
		return
	}

	record, err := h.repo.Find(r.Context(), patientID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": "Features not found"})
			return
		}
		logger.Log.WithError(err).WithField("patient_id", patientID).Error("failed to load features")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, record)
}

func (h *HTTPHandler) handleListFeatures(w http.ResponseWriter, r *http.Request) {
	records, err := h.repo.List(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to list features")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":    len(records),
		"features": records,
	})
}

func (h *HTTPHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.Stats(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to compute feature stats")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Error("failed to encode response")
	}
}
