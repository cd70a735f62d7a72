package scoring

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/healthflow-ai/platform/pkg/common/logger"
)

type HTTPHandler struct {
	service *Service
	repo    *Repository
}

func NewHTTPHandler(service *Service, repo *Repository) *HTTPHandler {
	return &HTTPHandler{service: service, repo: repo}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/score/patient/{id}", h.handleScorePatient).Methods(http.MethodPost)
	router.HandleFunc("/score/all", h.handleScoreAll).Methods(http.MethodPost)
	router.HandleFunc("/predictions", h.handleListPredictions).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleScorePatient(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["id"]

	resp, err := h.service.ScorePatient(r.Context(), patientID)
	if err != nil {
		if errors.Is(err, ErrNoFeatures) {
			writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": err.Error()})
			return
		}
		logger.Log.WithError(err).WithField("patient_id", patientID).Error("scoring failed")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) handleScoreAll(w http.ResponseWriter, r *http.Request) {
	scored, failed, err := h.service.ScoreAll(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("bulk scoring failed")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "success",
		"scored":        len(scored),
		"errors":        len(failed),
		"patient_ids":   scored,
		"error_details": failed,
	})
}

func (h *HTTPHandler) handleListPredictions(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	predictions, err := h.repo.List(r.Context(), limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list predictions")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":       len(predictions),
		"predictions": predictions,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Error("failed to encode response")
	}
}
