package features

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/healthflow-ai/platform/pkg/common/models"
	"github.com/healthflow-ai/platform/pkg/fhir"
)

func newHandlerRouter(t *testing.T, records RecordStore, store FeatureStore) *mux.Router {
	t.Helper()
	svc := newTestService(t, records, store, nil)
	router := mux.NewRouter()
	NewHTTPHandler(svc, nil, nil).Register(router)
	return router
}

func TestExtractEndpointSuccess(t *testing.T) {
	records := &fakeRecords{patients: map[string]fhir.Resource{"p1": testPatient()}}
	router := newHandlerRouter(t, records, newFakeStore())

	req := httptest.NewRequest(http.MethodPost, "/extract/patient/p1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp models.ExtractionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != "success" || resp.PatientID != "p1" {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	if len(resp.Features) == 0 {
		t.Fatal("expected a populated feature vector")
	}
}

func TestExtractEndpointUnknownPatient(t *testing.T) {
	router := newHandlerRouter(t, &fakeRecords{}, newFakeStore())

	req := httptest.NewRequest(http.MethodPost, "/extract/patient/ghost", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body["error"] != "Patient not found and no existing record" {
		t.Fatalf("error message is an external contract, got %q", body["error"])
	}
}

func TestExtractAllEndpoint(t *testing.T) {
	records := &fakeRecords{patients: map[string]fhir.Resource{"p1": testPatient()}}
	store := newFakeStore()
	store.rows["p1"] = &PatientFeatures{PatientID: "p1"}
	router := newHandlerRouter(t, records, store)

	req := httptest.NewRequest(http.MethodPost, "/extract/all", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp models.BulkExtractionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Extracted != 1 || resp.Errors != 0 {
		t.Fatalf("unexpected bulk outcome: %+v", resp)
	}
}
