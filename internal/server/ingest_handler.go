package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"govpal/internal/apperr"
	"govpal/internal/ingest"
)

const multipartMemory = 32 << 20

type errorBody struct {
	Detail string `json:"detail"`
}

// handleIngest accepts multipart uploads under the "files" field with
// optional dept, year and comma-separated tags applied to every file.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: "Invalid multipart form: " + err.Error()})
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck // temp file cleanup

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: "No files provided"})
		return
	}

	var opts ingest.Options
	if dept := strings.TrimSpace(r.FormValue("dept")); dept != "" {
		opts.Dept = &dept
	}
	if raw := strings.TrimSpace(r.FormValue("year")); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Detail: fmt.Sprintf("Invalid year: %q", raw)})
			return
		}
		opts.Year = &year
	}
	opts.Tags = ingest.ParseTags(r.FormValue("tags"))

	files := make([]ingest.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Detail: "Reading upload: " + err.Error()})
			return
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Detail: "Reading upload: " + err.Error()})
			return
		}
		files = append(files, ingest.File{Name: fh.Filename, Content: content})
	}

	summary, err := s.svc.Ingest.IngestBatch(r.Context(), files, opts)
	if err != nil {
		s.logger.Error("ingest batch aborted", "error", err, "kind", apperr.KindOf(err), "files", len(files))
		writeJSON(w, apperr.HTTPStatus(err), errorBody{Detail: "Ingestion error: " + err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
