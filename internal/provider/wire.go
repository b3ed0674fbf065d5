package provider

// JSON bodies exchanged with the calculator service.

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// SuccessResponse acknowledges a request without a payload.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// CalculateResponse is returned by POST /api/calculate.
type CalculateResponse struct {
	Success bool `json:"success"`
	Result
}

// AngleModeBody is the request and response of PUT /api/config/angle-mode.
type AngleModeBody struct {
	Success   bool   `json:"success,omitempty"`
	AngleMode string `json:"angle_mode"`
}

// DecimalPlacesBody is the request and response of PUT /api/config/decimal-places.
type DecimalPlacesBody struct {
	Success       bool `json:"success,omitempty"`
	DecimalPlaces *int `json:"decimal_places"`
}

// NotationBody is the request and response of PUT /api/config/notation.
type NotationBody struct {
	Success  bool   `json:"success,omitempty"`
	Notation string `json:"notation"`
}

// HistoryResponse is returned by GET /api/history.
type HistoryResponse struct {
	Success bool           `json:"success"`
	Count   int            `json:"count"`
	History []HistoryEntry `json:"history"`
}

// SearchResponse is returned by GET /api/history/search.
type SearchResponse struct {
	Success bool           `json:"success"`
	Query   string         `json:"query"`
	Count   int            `json:"count"`
	Results []HistoryEntry `json:"results"`
}

// MemoryResponse is returned by GET /api/memory.
type MemoryResponse struct {
	Success        bool    `json:"success"`
	Value          float64 `json:"value"`
	FormattedValue string  `json:"formatted_value"`
}

// MemoryValueBody is the request of POST /api/memory/add and subtract.
type MemoryValueBody struct {
	Value *float64 `json:"value"`
}

// MemoryUpdateResponse is returned by the memory mutation endpoints.
type MemoryUpdateResponse struct {
	Success        bool    `json:"success"`
	Value          float64 `json:"value,omitempty"`
	MemoryValue    float64 `json:"memory_value"`
	FormattedValue string  `json:"formatted_value,omitempty"`
}
