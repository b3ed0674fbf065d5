package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nickandperla.net/calcpad/internal/eval"
	apperrors "nickandperla.net/calcpad/internal/errors"
)

func writeTestJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestHTTPEvaluate(t *testing.T) {
	var got Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/calculate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeTestJSON(w, http.StatusOK, CalculateResponse{
			Success: true,
			Result:  Result{Expression: got.Expression, Value: 15, Formatted: "15"},
		})
	}))
	defer srv.Close()

	h := NewHTTP(WithHTTPURL(srv.URL + "/"))
	res, err := h.Evaluate(context.Background(), Request{Expression: "12+3", Config: eval.DefaultSettings()})
	require.NoError(t, err)
	assert.Equal(t, Result{Expression: "12+3", Value: 15, Formatted: "15"}, res)
	assert.Equal(t, "12+3", got.Expression)
	assert.Equal(t, eval.Degrees, got.AngleMode)
	assert.Equal(t, 6, got.DecimalPlaces)
	assert.Equal(t, eval.Standard, got.Notation)
}

func TestHTTPRequestWireFormat(t *testing.T) {
	data, err := json.Marshal(Request{Expression: "1+1", Config: eval.DefaultSettings()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"expression":"1+1","angle_mode":"deg","decimal_places":6,"notation":"standard"}`, string(data))
}

func TestHTTPEvaluationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: "Cannot divide by zero"})
	}))
	defer srv.Close()

	_, err := NewHTTP(WithHTTPURL(srv.URL)).Evaluate(context.Background(), Request{Expression: "1/0"})
	require.Error(t, err)
	evalErr, ok := AsEvaluationError(err)
	require.True(t, ok, "expected evaluation error, got %v", err)
	assert.Equal(t, "Cannot divide by zero", evalErr.Message)
	assert.False(t, apperrors.IsCode(err, apperrors.ErrCodeTransport))
}

func TestHTTPServerFailureIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewHTTP(WithHTTPURL(srv.URL)).Evaluate(context.Background(), Request{Expression: "1+1"})
	require.Error(t, err)
	_, ok := AsEvaluationError(err)
	assert.False(t, ok)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeTransport))
}

func TestHTTPErrorBodyIsEvaluationErrorWhateverTheStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   any
	}{
		{"ok with error", http.StatusOK, map[string]string{"error": "Cannot divide by zero"}},
		{"server error with message", http.StatusInternalServerError,
			ErrorResponse{Error: "Internal server error: boom"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeTestJSON(w, tt.status, tt.body)
			}))
			defer srv.Close()

			_, err := NewHTTP(WithHTTPURL(srv.URL)).Evaluate(context.Background(), Request{Expression: "1/0"})
			evalErr, ok := AsEvaluationError(err)
			require.True(t, ok, "expected evaluation error, got %v", err)
			assert.NotEmpty(t, evalErr.Message)
			assert.False(t, apperrors.IsCode(err, apperrors.ErrCodeTransport))
		})
	}
}

func TestHTTPMissingResultIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, map[string]any{"success": true})
	}))
	defer srv.Close()

	_, err := NewHTTP(WithHTTPURL(srv.URL)).Evaluate(context.Background(), Request{Expression: "1+1"})
	require.Error(t, err)
	_, ok := AsEvaluationError(err)
	assert.False(t, ok)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeTransport))
}

func TestHTTPZeroResultIsKept(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, map[string]any{"success": true, "expression": "1-1", "result": 0})
	}))
	defer srv.Close()

	res, err := NewHTTP(WithHTTPURL(srv.URL)).Evaluate(context.Background(), Request{Expression: "1-1"})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Value)
	assert.Equal(t, "1-1", res.Expression)
}

func TestHTTPConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTP(WithHTTPURL(url), WithHTTPTimeout(time.Second)).Memory(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeTransport))
}

func TestHTTPTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewHTTP(WithHTTPURL(srv.URL)).Config(ctx)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeTransport))
}

func TestHTTPConfigHistoryMemory(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var memoryBody MemoryValueBody
	var placesBody DecimalPlacesBody
	var searched string

	mux := http.NewServeMux()
	mux.HandleFunc("/api/config", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, map[string]any{
			"angle_mode": "radians", "decimal_places": 4, "notation": "scientific",
		})
	})
	mux.HandleFunc("/api/config/decimal-places", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		json.NewDecoder(r.Body).Decode(&placesBody)
		writeTestJSON(w, http.StatusOK, DecimalPlacesBody{Success: true, DecimalPlaces: placesBody.DecimalPlaces})
	})
	mux.HandleFunc("/api/history", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		writeTestJSON(w, http.StatusOK, HistoryResponse{
			Success: true, Count: 1,
			History: []HistoryEntry{{ID: "01H", Expression: "12+3", Result: 15, Timestamp: ts}},
		})
	})
	mux.HandleFunc("/api/history/search", func(w http.ResponseWriter, r *http.Request) {
		searched = r.URL.Query().Get("query")
		writeTestJSON(w, http.StatusOK, SearchResponse{Success: true, Query: searched, Results: []HistoryEntry{}})
	})
	mux.HandleFunc("/api/memory", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, MemoryResponse{Success: true, Value: 45, FormattedValue: "45"})
	})
	mux.HandleFunc("/api/memory/add", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&memoryBody)
		writeTestJSON(w, http.StatusOK, MemoryUpdateResponse{Success: true, MemoryValue: 45})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx := context.Background()
	h := NewHTTP(WithHTTPURL(srv.URL))

	cfg, err := h.Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, Config{AngleMode: eval.Radians, DecimalPlaces: 4, Notation: eval.Scientific}, cfg)

	require.NoError(t, h.SetDecimalPlaces(ctx, 8))
	require.NotNil(t, placesBody.DecimalPlaces)
	assert.Equal(t, 8, *placesBody.DecimalPlaces)

	history, err := h.History(ctx, 5)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "12+3", history[0].Expression)
	assert.True(t, ts.Equal(history[0].Timestamp))

	results, err := h.SearchHistory(ctx, "sin(30)+1")
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, "sin(30)+1", searched)

	v, err := h.Memory(ctx)
	require.NoError(t, err)
	assert.Equal(t, 45.0, v)

	require.NoError(t, h.MemoryAdd(ctx, 2.5))
	require.NotNil(t, memoryBody.Value)
	assert.Equal(t, 2.5, *memoryBody.Value)
}
