package http

import (
	"bytes"
	"errors"
	"net/http"

	"committee/internal/log"
)

// handleExport downloads the books as a snapshot document.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.books.Export(&buf); err != nil {
		s.logger.ErrorContext(r.Context(), "Export failed", log.FieldOperation, log.OpExport, log.FieldError, err)
		ResponseForError(err).Write(w)
		return
	}
	name := "committee-" + s.now().Format("2006-01-02") + ".json"
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleImport replaces the collections present in the uploaded document and
// answers with the resulting dashboard.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxImportBytes)
	if err := s.books.Import(r.Context(), body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ErrorResponse(http.StatusRequestEntityTooLarge, "snapshot too large").Write(w)
			return
		}
		ResponseForError(err).Write(w)
		return
	}
	NewJSONResponse().Body(toDashboard(s.books.Dashboard())).Write(w)
}

func (s *Server) handleListBackups(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r.URL.Query(), "limit")
	if err != nil {
		ResponseForError(err).Write(w)
		return
	}
	infos, err := s.books.ListBackups(r.Context(), limit)
	if err != nil {
		s.logBackupError(r, "List backups failed", err)
		ResponseForError(err).Write(w)
		return
	}
	resp := make([]backupResponse, len(infos))
	for i, b := range infos {
		resp[i] = toBackup(b)
	}
	NewJSONResponse().Body(resp).Write(w)
}

// handleCreateBackup takes a backup now. The body is optional and may carry
// a label.
func (s *Server) handleCreateBackup(w http.ResponseWriter, r *http.Request) {
	req := backupRequest{Label: "manual"}
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			ResponseForError(err).Write(w)
			return
		}
		if req.Label = sanitizeInput(req.Label); req.Label == "" {
			req.Label = "manual"
		}
	}
	info, err := s.books.Backup(r.Context(), req.Label)
	if err != nil {
		s.logBackupError(r, "Backup failed", err)
		ResponseForError(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toBackup(info)).Write(w)
}

// handleRestoreBackup restores ?id=, or the latest backup without one.
func (s *Server) handleRestoreBackup(w http.ResponseWriter, r *http.Request) {
	info, err := s.books.RestoreBackup(r.Context(), sanitizeInput(r.URL.Query().Get("id")))
	if err != nil {
		s.logBackupError(r, "Restore failed", err)
		ResponseForError(err).Write(w)
		return
	}
	NewJSONResponse().Body(toBackup(info)).Write(w)
}

func (s *Server) logBackupError(r *http.Request, msg string, err error) {
	s.logger.WithComponent(log.ComponentStorage).ErrorContext(r.Context(), msg, log.FieldError, err)
}

