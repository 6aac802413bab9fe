package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/Simplici0/printshop/internal/pricing"
	"github.com/Simplici0/printshop/internal/store"
)

const maxBodyBytes = 1 << 20

// httpError is a failure with a status and a message safe to show to the caller.
type httpError struct {
	status  int
	message string
}

func (e *httpError) Error() string {
	return e.message
}

func badRequest(msg string) error {
	return &httpError{status: http.StatusBadRequest, message: msg}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v before committing the status, so an encoding failure
// still reaches the client as a 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError maps domain errors onto status codes. Anything unrecognised is
// logged and reported as a 500 without detail.
func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		httpErr  *httpError
		inputErr *pricing.InvalidInputError
	)
	switch {
	case errors.As(err, &httpErr):
		writeMessage(w, httpErr.status, httpErr.message)
	case errors.As(err, &inputErr):
		writeMessage(w, http.StatusBadRequest, inputErr.Message)
	case errors.Is(err, store.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "not found")
	default:
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON reads the request body into v, reporting malformed input as a 400.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid JSON body")
	}
	return nil
}
