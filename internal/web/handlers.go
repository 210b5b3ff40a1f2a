package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/liftsource/catalog-import/internal/importer"
	"github.com/liftsource/catalog-import/internal/logging"
)

// createImportResponse is returned when a file upload opens a new session.
type createImportResponse struct {
	ImportID string            `json:"importId"`
	Stage    importer.Stage    `json:"stage"`
	Preview  *importer.Preview `json:"preview"`
}

// resultResponse wraps the terminal summary with its completion message.
type resultResponse struct {
	Summary *importer.Summary `json:"summary"`
	Message string            `json:"message"`
}

// handleDownloadTemplate serves the import template CSV.
func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", importer.TemplateFileName))
	_, _ = w.Write(importer.TemplateCSV())
}

// handleCreateImport accepts an uploaded file, runs the Upload stage
// (parse -> group -> resolve -> validate) and opens a session at Preview.
func (s *Server) handleCreateImport(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize)
	if err := r.ParseMultipartForm(s.cfg.Import.MaxFileSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "file exceeds maximum upload size")
			return
		}
		writeError(w, r, http.StatusBadRequest, "invalid multipart request body")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "read upload: "+err.Error())
		return
	}

	pipeline := importer.NewPipeline(s.lookup, s.writer)
	pipeline.Resolver().SetConcurrency(s.cfg.Import.ResolveConcurrency)
	pipeline.Executor().SetConcurrency(s.cfg.Import.ExecuteConcurrency)

	preview, err := pipeline.Upload(r.Context(), data)
	if err != nil {
		var parseErr *importer.ParseError
		if errors.As(err, &parseErr) {
			writeParseError(w, r, parseErr)
			return
		}
		logger.Error("upload failed", "file", header.Filename, "error", err)
		writeError(w, r, http.StatusInternalServerError, "resolve catalog references: "+err.Error())
		return
	}

	sess := s.sessions.Create(pipeline)
	logger.Info("import session opened",
		"import_id", sess.ID,
		"file", header.Filename,
		"products", preview.Products,
		"variants", preview.Variants,
	)

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, createImportResponse{
		ImportID: sess.ID,
		Stage:    pipeline.Stage(),
		Preview:  preview,
	})
}

// handlePreview recomputes and returns the preview for a session.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	preview, err := sess.Pipeline.Preview(r.Context())
	if err != nil {
		writePipelineError(w, r, err)
		return
	}
	writeJSON(w, preview)
}

// handleConfirm gates on blocking issues and executes the import exactly once.
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	logger := logging.WithFields(r.Context(), "import_id", sess.ID)

	summary, err := sess.Pipeline.Confirm(r.Context())
	if err != nil {
		logger.Warn("confirm rejected", "error", err)
		writePipelineError(w, r, err)
		return
	}

	logger.Info("import confirmed",
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
	)
	writeJSON(w, resultResponse{Summary: summary, Message: summary.Message()})
}

// handleResult returns the terminal summary for a completed session.
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	summary, err := sess.Pipeline.Summary()
	if err != nil {
		writePipelineError(w, r, err)
		return
	}
	writeJSON(w, resultResponse{Summary: summary, Message: summary.Message()})
}

// handleReset performs the single backward transition, Preview -> Upload.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	if err := sess.Pipeline.Reset(); err != nil {
		writePipelineError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"importId": sess.ID, "stage": sess.Pipeline.Stage()})
}

// session loads the import session from the URL, writing a 404 when missing.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session, bool) {
	id := chi.URLParam(r, "importID")
	sess, ok := s.sessions.Get(id)
	if !ok {
		writeError(w, r, http.StatusNotFound, "unknown import session")
		return nil, false
	}
	return sess, true
}
