package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/liftsource/catalog-import/internal/importer"
	"github.com/liftsource/catalog-import/internal/logging"
)

// errorResponse is the JSON error envelope for all failure responses.
type errorResponse struct {
	Error   string   `json:"error"`
	Kind    string   `json:"kind,omitempty"`
	Columns []string `json:"columns,omitempty"`
}

// writeError writes a JSON error response and logs it with request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	logging.FromContext(r.Context()).Warn("request failed", "status", status, "error", message)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message})
}

// writeParseError maps a file-level parse failure onto a 422 carrying the
// error kind, so the upload UI can tell an empty file from a missing column.
func writeParseError(w http.ResponseWriter, r *http.Request, parseErr *importer.ParseError) {
	logging.FromContext(r.Context()).Info("upload rejected",
		"kind", string(parseErr.Kind), "error", parseErr.Error())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnprocessableEntity)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error:   parseErr.Error(),
		Kind:    string(parseErr.Kind),
		Columns: parseErr.Columns,
	})
}

// writePipelineError maps stage and gate failures onto HTTP statuses.
func writePipelineError(w http.ResponseWriter, r *http.Request, err error) {
	var stageErr *importer.StageError
	switch {
	case errors.Is(err, importer.ErrBlocked):
		writeError(w, r, http.StatusConflict, "blocking issues must be resolved before confirming")
	case errors.As(err, &stageErr):
		writeError(w, r, http.StatusConflict, stageErr.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, err.Error())
	}
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers already sent; nothing to do but log.
		slog.Error("json encode failed", "error", err)
	}
}
