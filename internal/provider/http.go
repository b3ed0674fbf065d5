package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"nickandperla.net/calcpad/internal/eval"
	apperrors "nickandperla.net/calcpad/internal/errors"
)

// HTTP is a client for the calculator service's JSON API.
type HTTP struct {
	URL     string
	Timeout time.Duration
	Client  *http.Client
}

// HTTPOption configures the HTTP provider.
type HTTPOption func(*HTTP)

// WithHTTPURL sets the service base URL.
func WithHTTPURL(baseURL string) HTTPOption {
	return func(h *HTTP) { h.URL = strings.TrimRight(baseURL, "/") }
}

// WithHTTPTimeout sets the per-request timeout.
func WithHTTPTimeout(timeout time.Duration) HTTPOption {
	return func(h *HTTP) { h.Timeout = timeout }
}

// WithHTTPClient sets the underlying client. Its own timeout is left alone.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTP) { h.Client = c }
}

// NewHTTP creates a new HTTP provider.
func NewHTTP(opts ...HTTPOption) *HTTP {
	h := &HTTP{
		URL:     "http://localhost:5000",
		Timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.Client == nil {
		h.Client = &http.Client{Timeout: h.Timeout}
	}
	return h
}

// calculateReply tells a missing result apart from a zero one.
type calculateReply struct {
	Expression string   `json:"expression"`
	Value      *float64 `json:"result"`
	Formatted  string   `json:"formatted_result"`
}

// Evaluate sends the expression to POST /api/calculate. A reply carrying
// an error message is an *EvaluationError whatever its status; a reply
// with neither an error nor a result is a transport error.
func (h *HTTP) Evaluate(ctx context.Context, req Request) (Result, error) {
	var resp calculateReply
	if err := h.do(ctx, http.MethodPost, "/api/calculate", req, &resp); err != nil {
		return Result{}, err
	}
	if resp.Value == nil {
		return Result{}, apperrors.New(apperrors.ErrCodeTransport, "decode response: missing result").
			WithContext("path", "/api/calculate")
	}
	return Result{Expression: resp.Expression, Value: *resp.Value, Formatted: resp.Formatted}, nil
}

// Config fetches GET /api/config.
func (h *HTTP) Config(ctx context.Context) (Config, error) {
	var cfg Config
	if err := h.do(ctx, http.MethodGet, "/api/config", nil, &cfg); err != nil {
		return Config{}, err
	}
	return cfg.Normalize(), nil
}

// SetAngleMode updates the angle mode.
func (h *HTTP) SetAngleMode(ctx context.Context, mode eval.AngleMode) error {
	return h.do(ctx, http.MethodPut, "/api/config/angle-mode", AngleModeBody{AngleMode: string(mode)}, nil)
}

// SetDecimalPlaces updates the number of decimal places.
func (h *HTTP) SetDecimalPlaces(ctx context.Context, places int) error {
	return h.do(ctx, http.MethodPut, "/api/config/decimal-places", DecimalPlacesBody{DecimalPlaces: &places}, nil)
}

// SetNotation updates the result notation.
func (h *HTTP) SetNotation(ctx context.Context, n eval.Notation) error {
	return h.do(ctx, http.MethodPut, "/api/config/notation", NotationBody{Notation: string(n)}, nil)
}

// History fetches GET /api/history.
func (h *HTTP) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	path := "/api/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp HistoryResponse
	if err := h.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.History, nil
}

// SearchHistory fetches GET /api/history/search.
func (h *HTTP) SearchHistory(ctx context.Context, query string) ([]HistoryEntry, error) {
	var resp SearchResponse
	path := "/api/history/search?query=" + url.QueryEscape(query)
	if err := h.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// ClearHistory calls DELETE /api/history/clear.
func (h *HTTP) ClearHistory(ctx context.Context) error {
	return h.do(ctx, http.MethodDelete, "/api/history/clear", nil, nil)
}

// Memory fetches GET /api/memory.
func (h *HTTP) Memory(ctx context.Context) (float64, error) {
	var resp MemoryResponse
	if err := h.do(ctx, http.MethodGet, "/api/memory", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Value, nil
}

// MemoryAdd calls POST /api/memory/add.
func (h *HTTP) MemoryAdd(ctx context.Context, v float64) error {
	return h.do(ctx, http.MethodPost, "/api/memory/add", MemoryValueBody{Value: &v}, nil)
}

// MemorySubtract calls POST /api/memory/subtract.
func (h *HTTP) MemorySubtract(ctx context.Context, v float64) error {
	return h.do(ctx, http.MethodPost, "/api/memory/subtract", MemoryValueBody{Value: &v}, nil)
}

// MemoryClear calls DELETE /api/memory/clear.
func (h *HTTP) MemoryClear(ctx context.Context) error {
	return h.do(ctx, http.MethodDelete, "/api/memory/clear", nil, nil)
}

// do performs one JSON round trip. Any reply with an error message becomes
// an *EvaluationError; everything else that fails is a transport error.
func (h *HTTP) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode request").
				WithContext("path", path)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.URL+path, reader)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeTransport, "build request").
			WithContext("path", path)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.Client.Do(req)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeTransport, "request failed").
			WithContext("method", method).
			WithContext("path", path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeTransport, "read response").
			WithContext("path", path)
	}

	var e ErrorResponse
	if json.Unmarshal(data, &e) == nil && e.Error != "" {
		return &EvaluationError{Message: e.Error}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return apperrors.New(apperrors.ErrCodeTransport, fmt.Sprintf("service error: %s", resp.Status)).
			WithContext("path", path).
			WithContext("body", strings.TrimSpace(string(data)))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeTransport, "decode response").
			WithContext("path", path)
	}
	return nil
}
