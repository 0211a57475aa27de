// Package queryapi exposes the Query Service over HTTP (spec.md §4.9, §4.10):
// POST /api/query, POST /api/query/landmark/{id}, and GET /health. A bare
// http.ServeMux with no router library, handler methods on an app struct,
// and http.Error/json.NewEncoder responses.
package queryapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"landmarkvector/internal/corrid"
	"landmarkvector/internal/errs"
	"landmarkvector/internal/observability"
	"landmarkvector/internal/query"
	"landmarkvector/internal/version"
)

const module = "queryapi"

// correlationHeaders lists inbound headers checked for a caller-supplied
// correlation ID, in priority order.
var correlationHeaders = []string{
	"X-Correlation-ID", "X-Request-ID",
	"Correlation-ID", "Request-ID",
	"X-Trace-ID", "Trace-ID",
}

// app holds the server's collaborators. Handlers are methods on app so each
// one closes over the Query Service without package-level state.
type app struct {
	svc *query.Service
}

// Register mounts the query API's routes on mux.
func Register(mux *http.ServeMux, svc *query.Service) {
	a := &app{svc: svc}
	mux.HandleFunc("/health", a.healthHandler)
	mux.HandleFunc("/api/query", a.queryHandler)
	mux.HandleFunc("/api/query/landmark/", a.queryLandmarkHandler)
}

func (a *app) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, "", map[string]string{"status": "healthy", "version": version.Version})
}

type queryRequestBody struct {
	QueryText  string `json:"query_text"`
	TopK       int    `json:"top_k"`
	LandmarkID string `json:"landmark_id"`
	SourceType string `json:"source_type"`
}

func (a *app) queryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	correlationID := extractCorrelationID(r)
	ctx := corrid.With(r.Context(), correlationID)
	if correlationID == "" {
		ctx, correlationID = corrid.Ensure(ctx)
	}

	var body queryRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body", correlationID)
		return
	}
	if body.TopK == 0 {
		body.TopK = 10
	}

	resp, err := a.svc.Query(ctx, query.Request{
		QueryText:  body.QueryText,
		TopK:       body.TopK,
		LandmarkID: body.LandmarkID,
		SourceType: body.SourceType,
	})
	if err != nil {
		a.writeServiceError(w, r, err, correlationID)
		return
	}
	writeJSON(w, http.StatusOK, correlationID, resp)
}

func (a *app) queryLandmarkHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	landmarkID := strings.TrimPrefix(r.URL.Path, "/api/query/landmark/")
	if landmarkID == "" {
		http.Error(w, "landmark id required", http.StatusBadRequest)
		return
	}

	correlationID := extractCorrelationID(r)
	ctx := corrid.With(r.Context(), correlationID)
	if correlationID == "" {
		ctx, correlationID = corrid.Ensure(ctx)
	}

	var body queryRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body", correlationID)
		return
	}
	if body.TopK == 0 {
		body.TopK = 10
	}

	resp, err := a.svc.Query(ctx, query.Request{
		QueryText:  body.QueryText,
		TopK:       body.TopK,
		LandmarkID: landmarkID,
		SourceType: body.SourceType,
	})
	if err != nil {
		a.writeServiceError(w, r, err, correlationID)
		return
	}
	writeJSON(w, http.StatusOK, correlationID, resp)
}

// writeServiceError maps a Query Service error to an HTTP status and logs
// it. ValidationError is the caller's fault (400); everything else is
// classified via the shared errs taxonomy.
func (a *app) writeServiceError(w http.ResponseWriter, r *http.Request, err error, correlationID string) {
	var verr *query.ValidationError
	if asValidationError(err, &verr) {
		writeError(w, http.StatusBadRequest, "validation_error", verr.Error(), correlationID)
		return
	}

	// Status codes follow the query API's fixed set: 400 validation, 502
	// upstream (embedding or vector store) failure, 504 timeout.
	var status int
	var code string
	switch errs.KindOf(err) {
	case errs.KindValidation, errs.KindNotFound:
		status, code = http.StatusBadRequest, "validation_error"
	case errs.KindCancelled:
		status, code = http.StatusGatewayTimeout, "timeout"
	default:
		status, code = http.StatusBadGateway, "upstream_error"
	}

	observability.ErrorEvent(r.Context(), module, "query_request_failed", err).Str("correlation_id", correlationID).Send()
	writeError(w, status, code, err.Error(), correlationID)
}

func asValidationError(err error, target **query.ValidationError) bool {
	ve, ok := err.(*query.ValidationError)
	if !ok {
		return false
	}
	*target = ve
	return true
}

func extractCorrelationID(r *http.Request) string {
	for _, h := range correlationHeaders {
		if v := r.Header.Get(h); v != "" {
			return v
		}
	}
	return ""
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code          string `json:"code"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlation_id"`
}

func writeError(w http.ResponseWriter, status int, code, message, correlationID string) {
	writeJSON(w, status, correlationID, errorEnvelope{Error: errorBody{Code: code, Message: message, CorrelationID: correlationID}})
}

// writeJSON encodes body as the response, echoing correlationID in the
// X-Correlation-ID header per spec.md §6 (the response body separately
// carries its own correlation_id field for callers that only read JSON).
func writeJSON(w http.ResponseWriter, status int, correlationID string, body any) {
	w.Header().Set("Content-Type", "application/json")
	if correlationID != "" {
		w.Header().Set("X-Correlation-ID", correlationID)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
