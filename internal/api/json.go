package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/notegraph/internal/apperr"
	"github.com/starford/notegraph/internal/mutator"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeError maps service errors to status codes. Unknown errors are logged
// and reported as 500.
func writeError(w http.ResponseWriter, op string, err error, attrs ...any) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody("already exists"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
	case errors.Is(err, apperr.ErrInvalidName):
		writeJSON(w, http.StatusBadRequest, errorBody("invalid name"))
	case errors.Is(err, apperr.ErrSelfLink):
		writeJSON(w, http.StatusBadRequest, errorBody(apperr.ErrSelfLink.Error()))
	default:
		slog.Error(op+" failed", append(attrs, slog.String("error", err.Error()))...)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// writeCascade writes a cascade report: 200 when every document was
// updated, 207 with the failures listed when some were not.
func writeCascade(w http.ResponseWriter, op string, report *mutator.CascadeReport, err error, attrs ...any) {
	var cascadeErr *mutator.CascadeError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, report)
	case errors.As(err, &cascadeErr) && report != nil:
		slog.Warn(op+" incomplete", append(attrs, slog.Int("failed", len(cascadeErr.Failures)))...)
		writeJSON(w, http.StatusMultiStatus, report)
	default:
		writeError(w, op, err, attrs...)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}
