package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"nickandperla.net/calcpad/internal/eval"
	"nickandperla.net/calcpad/internal/provider"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 64 << 10

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, provider.HealthResponse{Status: "healthy", Version: Version})
}

// calculateRequest is provider.Request with a nullable expression so a
// missing field can be told apart from an empty one.
type calculateRequest struct {
	Expression *string `json:"expression"`
	eval.Settings
}

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var body calculateRequest
	if !decodeBody(w, r, &body) {
		metricEvaluations.WithLabelValues(outcomeInvalid).Inc()
		return
	}
	if body.Expression == nil {
		metricEvaluations.WithLabelValues(outcomeInvalid).Inc()
		writeError(w, http.StatusBadRequest, "Missing required field: expression")
		return
	}
	expression := strings.TrimSpace(*body.Expression)
	if expression == "" {
		metricEvaluations.WithLabelValues(outcomeInvalid).Inc()
		writeError(w, http.StatusBadRequest, eval.MsgEmpty)
		return
	}

	// Fields the caller left out fall back to the saved configuration.
	saved, err := s.backend.Config(r.Context())
	if err != nil {
		s.internalError(w, r, "load config", err)
		return
	}
	settings := mergeSettings(body.Settings, saved)
	if err := settings.Validate(); err != nil {
		metricEvaluations.WithLabelValues(outcomeInvalid).Inc()
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	settings = settings.Normalize()

	ctx, span := s.tracer.Start(r.Context(), "calculate", trace.WithAttributes(
		attribute.String("calc.expression", expression),
		attribute.String("calc.angle_mode", string(settings.AngleMode)),
		attribute.Int("calc.decimal_places", settings.DecimalPlaces),
		attribute.String("calc.notation", string(settings.Notation)),
	))
	defer span.End()

	start := time.Now()
	res, err := s.backend.Evaluate(ctx, provider.Request{Expression: expression, Config: settings})
	metricEvaluationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if evalErr, ok := provider.AsEvaluationError(err); ok {
			metricEvaluations.WithLabelValues(outcomeError).Inc()
			writeError(w, http.StatusUnprocessableEntity, evalErr.Message)
			return
		}
		s.internalError(w, r, "evaluate", err)
		return
	}

	metricEvaluations.WithLabelValues(outcomeSuccess).Inc()
	span.SetAttributes(attribute.Float64("calc.result", res.Value))
	writeJSON(w, http.StatusOK, provider.CalculateResponse{Success: true, Result: res})
}

func mergeSettings(req, saved eval.Settings) eval.Settings {
	if req.AngleMode == "" {
		req.AngleMode = saved.AngleMode
	}
	if req.DecimalPlaces == 0 {
		req.DecimalPlaces = saved.DecimalPlaces
	}
	if req.Notation == "" {
		req.Notation = saved.Notation
	}
	return req
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.backend.Config(r.Context())
	if err != nil {
		s.internalError(w, r, "load config", err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleSetAngleMode(w http.ResponseWriter, r *http.Request) {
	var body provider.AngleModeBody
	if !decodeBody(w, r, &body) {
		return
	}
	if body.AngleMode == "" {
		writeError(w, http.StatusBadRequest, "Missing required field: angle_mode")
		return
	}
	if !s.applySetting(w, r, s.backend.SetAngleMode(r.Context(), eval.AngleMode(body.AngleMode))) {
		return
	}
	mode, _ := eval.ParseAngleMode(body.AngleMode)
	writeJSON(w, http.StatusOK, provider.AngleModeBody{Success: true, AngleMode: string(mode)})
}

func (s *Server) handleSetDecimalPlaces(w http.ResponseWriter, r *http.Request) {
	var body provider.DecimalPlacesBody
	if !decodeBody(w, r, &body) {
		return
	}
	if body.DecimalPlaces == nil {
		writeError(w, http.StatusBadRequest, "Missing required field: decimal_places")
		return
	}
	if !s.applySetting(w, r, s.backend.SetDecimalPlaces(r.Context(), *body.DecimalPlaces)) {
		return
	}
	writeJSON(w, http.StatusOK, provider.DecimalPlacesBody{Success: true, DecimalPlaces: body.DecimalPlaces})
}

func (s *Server) handleSetNotation(w http.ResponseWriter, r *http.Request) {
	var body provider.NotationBody
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Notation == "" {
		writeError(w, http.StatusBadRequest, "Missing required field: notation")
		return
	}
	if !s.applySetting(w, r, s.backend.SetNotation(r.Context(), eval.Notation(body.Notation))) {
		return
	}
	n, _ := eval.ParseNotation(body.Notation)
	writeJSON(w, http.StatusOK, provider.NotationBody{Success: true, Notation: string(n)})
}

// applySetting writes the error response for a failed config update and
// reports whether err was nil.
func (s *Server) applySetting(w http.ResponseWriter, r *http.Request, err error) bool {
	if err == nil {
		return true
	}
	if evalErr, ok := provider.AsEvaluationError(err); ok {
		writeError(w, http.StatusUnprocessableEntity, evalErr.Message)
		return false
	}
	s.internalError(w, r, "save config", err)
	return false
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	entries, err := s.backend.History(r.Context(), limit)
	if err != nil {
		s.internalError(w, r, "load history", err)
		return
	}
	writeJSON(w, http.StatusOK, provider.HistoryResponse{Success: true, Count: len(entries), History: entries})
}

func (s *Server) handleSearchHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		writeError(w, http.StatusBadRequest, "Missing required parameter: query")
		return
	}
	results, err := s.backend.SearchHistory(r.Context(), query)
	if err != nil {
		s.internalError(w, r, "search history", err)
		return
	}
	writeJSON(w, http.StatusOK, provider.SearchResponse{Success: true, Query: query, Count: len(results), Results: results})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.ClearHistory(r.Context()); err != nil {
		s.internalError(w, r, "clear history", err)
		return
	}
	writeJSON(w, http.StatusOK, provider.SuccessResponse{Success: true})
}

func (s *Server) handleMemory(w http.ResponseWriter, r *http.Request) {
	v, err := s.backend.Memory(r.Context())
	if err != nil {
		s.internalError(w, r, "read memory", err)
		return
	}
	writeJSON(w, http.StatusOK, provider.MemoryResponse{Success: true, Value: v, FormattedValue: s.format(r, v)})
}

// handleMemoryAdjust adds sign times the posted value to memory.
func (s *Server) handleMemoryAdjust(sign float64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Value json.RawMessage `json:"value"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		if len(body.Value) == 0 || string(body.Value) == "null" {
			writeError(w, http.StatusBadRequest, "Missing required field: value")
			return
		}
		var v float64
		if err := json.Unmarshal(body.Value, &v); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "Value must be a number")
			return
		}

		next, err := s.backend.AdjustMemory(sign * v)
		if err != nil {
			s.internalError(w, r, "update memory", err)
			return
		}
		metricMemoryValue.Set(next)
		writeJSON(w, http.StatusOK, provider.MemoryUpdateResponse{
			Success:        true,
			Value:          v,
			MemoryValue:    next,
			FormattedValue: s.format(r, next),
		})
	}
}

func (s *Server) handleMemoryClear(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.MemoryClear(r.Context()); err != nil {
		s.internalError(w, r, "clear memory", err)
		return
	}
	metricMemoryValue.Set(0)
	writeJSON(w, http.StatusOK, provider.MemoryUpdateResponse{Success: true})
}

// format renders v with the saved configuration, or the defaults if it
// cannot be read.
func (s *Server) format(r *http.Request, v float64) string {
	cfg, err := s.backend.Config(r.Context())
	if err != nil {
		cfg = eval.DefaultSettings()
	}
	return eval.FormatSettings(v, cfg)
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.logger.Error(op+" failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

// decodeBody decodes a JSON body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

// Helpers
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, provider.ErrorResponse{Success: false, Error: message})
}
