// Package forecast wraps a pretrained time-series model behind a numeric
// interface and scores recent actuals against the predicted quantile band.
package forecast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aidogstack/incident-copilot/internal/utils"
)

// Quantiles is the model's per-step prediction: the median plus the 10th and
// 90th percentile bounds, each horizon steps long.
type Quantiles struct {
	Median []float64 `json:"median"`
	P10    []float64 `json:"p10"`
	P90    []float64 `json:"p90"`
}

// Model is the black-box forecasting function: standardized series in,
// quantile forecast out.
type Model interface {
	Predict(ctx context.Context, window []float64, intervalSeconds, horizon int) (Quantiles, error)
}

// HTTPModel calls a model inference server over HTTP.
type HTTPModel struct {
	endpoint   string
	httpClient *http.Client
}

// NewHTTPModel constructs a client for a forecasting inference endpoint.
func NewHTTPModel(endpoint string, timeout time.Duration) (*HTTPModel, error) {
	if endpoint == "" {
		return nil, utils.NewFault("forecast.model", utils.KindModelUnavailable, fmt.Errorf("no inference endpoint configured"))
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPModel{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Predict posts the standardized window and decodes the quantile response.
func (m *HTTPModel) Predict(ctx context.Context, window []float64, intervalSeconds, horizon int) (Quantiles, error) {
	payload := map[string]any{
		"series":           window,
		"interval_seconds": intervalSeconds,
		"horizon":          horizon,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Quantiles{}, fmt.Errorf("marshal forecast request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return Quantiles{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return Quantiles{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Quantiles{}, fmt.Errorf("forecast server returned %s", resp.Status)
	}

	var q Quantiles
	if err := json.NewDecoder(resp.Body).Decode(&q); err != nil {
		return Quantiles{}, fmt.Errorf("decode forecast response: %w", err)
	}
	if len(q.Median) == 0 || len(q.P10) != len(q.Median) || len(q.P90) != len(q.Median) {
		return Quantiles{}, fmt.Errorf("forecast server returned mismatched quantile lengths")
	}
	return q, nil
}
