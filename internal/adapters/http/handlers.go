package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"gymadmin/internal/adapters/http/middleware"
	"gymadmin/internal/domain/member"
	"gymadmin/internal/domain/outbox"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response_encode_failed", "error", err)
	}
}

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("internal_error", "request_id", middleware.RequestID(r.Context()), "path", r.URL.Path, "error", err.Error())
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
}

// writeError maps domain errors onto HTTP statuses; anything unrecognised is a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *member.ValidationError
		cerr *member.ConflictError
		nerr *member.NotFoundError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "validation failed", Fields: verr.Fields})
	case errors.As(err, &cerr):
		writeJSON(w, http.StatusConflict, errorBody{Error: cerr.Error(), Fields: map[string]string{cerr.Field: cerr.Error()}})
	case errors.As(err, &nerr):
		writeJSON(w, http.StatusNotFound, errorBody{Error: nerr.Error()})
	case errors.Is(err, outbox.ErrEntryClosed):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	default:
		internalError(w, r, err)
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

// strictDecode decodes JSON from the request body, rejecting unknown fields and trailing data.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

// pathID parses the {id} wildcard. Non-numeric and non-positive IDs cannot exist.
func pathID(r *http.Request, entity string) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &member.NotFoundError{Entity: entity, Key: raw}
	}
	return id, nil
}

// queryBool reads a boolean flag such as ?dry_run=1; malformed values are false.
func queryBool(r *http.Request, key string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(key))
	return err == nil && v
}

// handleHealth serves GET /healthz, pinging the database when configured.
func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.opts.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.Health.PingContext(ctx); err != nil {
			slog.Error("health_check_failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCSRFToken hands out a token for non-JSON writes such as CSV uploads.
func (s *server) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	token := middleware.CSRFToken(r)
	w.Header().Set("X-CSRF-Token", token)
	writeJSON(w, http.StatusOK, map[string]string{"csrf_token": token})
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
