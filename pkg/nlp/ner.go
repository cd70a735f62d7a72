package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/healthflow-ai/platform/pkg/common/models"
)

// ModelExtractor calls a pretrained biomedical NER model served over HTTP.
// The endpoint returns labelled spans; spans are grouped by entity label and
// de-duplicated on exact surface-string match, first seen wins.
type ModelExtractor struct {
	baseURL string
	client  *http.Client
}

func NewModelExtractor(baseURL string, timeout time.Duration) *ModelExtractor {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &ModelExtractor{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout, Transport: transport},
	}
}

type nerRequest struct {
	Text string `json:"text"`
}

type nerResponse struct {
	Entities []models.Entity `json:"entities"`
}

func (m *ModelExtractor) Extract(ctx context.Context, text string) (models.EntityExtractionResult, error) {
	if text == "" {
		return models.EntityExtractionResult{}, nil
	}

	body, err := json.Marshal(nerRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("encoding ner request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/ner", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ner inference request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ner endpoint returned status %d", resp.StatusCode)
	}

	var payload nerResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding ner response: %w", err)
	}

	return GroupEntities(payload.Entities), nil
}

// GroupEntities buckets spans by entity group label, dropping exact
// duplicate surface strings within a label.
func GroupEntities(entities []models.Entity) models.EntityExtractionResult {
	result := models.EntityExtractionResult{}
	seen := make(map[string]map[string]struct{})

	for _, entity := range entities {
		if entity.Group == "" || entity.Word == "" {
			continue
		}
		if seen[entity.Group] == nil {
			seen[entity.Group] = make(map[string]struct{})
		}
		if _, dup := seen[entity.Group][entity.Word]; dup {
			continue
		}
		seen[entity.Group][entity.Word] = struct{}{}
		result[entity.Group] = append(result[entity.Group], entity.Word)
	}

	return result
}
