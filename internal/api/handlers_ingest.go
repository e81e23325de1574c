package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/mdsplit/internal/export"
	"github.com/dgallion1/mdsplit/internal/parser"
	"github.com/dgallion1/mdsplit/internal/pathstore"
	"github.com/dgallion1/mdsplit/internal/pipeline"
)

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), bodyErrorStatus(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := s.readUpload(file)
	if err != nil {
		jsonError(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	}

	docID := r.FormValue("doc_id")
	if docID != "" {
		if err := pathstore.ValidateDocID(docID); err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	job := pipeline.NewJob(filename, r.FormValue("title"), docID, data)
	job.Force, _ = strconv.ParseBool(r.FormValue("force"))

	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, submitted(job))
}

func (s *Server) handleBatchIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), bodyErrorStatus(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}
	force, _ := strconv.ParseBool(r.FormValue("force"))

	results := make([]map[string]any, 0, len(files))
	for _, fh := range files {
		filename := sanitizeFilename(fh.Filename)
		failed := func(msg string) {
			results = append(results, map[string]any{"filename": filename, "error": msg})
		}
		if !parser.IsSupportedExtension(filename) {
			failed(fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)))
			continue
		}

		data, err := s.openUpload(fh)
		if err != nil {
			failed(err.Error())
			continue
		}

		job := pipeline.NewJob(filename, "", "", data)
		job.Force = force
		if err := s.orchestrator.Submit(job); err != nil {
			failed(err.Error())
			continue
		}
		results = append(results, submitted(job))
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"jobs": results})
}

func (s *Server) openUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file")
	}
	defer f.Close()
	return s.readUpload(f)
}

func (s *Server) readUpload(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file")
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)
	}
	return data, nil
}

func submitted(job *pipeline.Job) map[string]any {
	snap := job.Snapshot()
	return map[string]any{
		"filename": snap.Filename,
		"job_id":   snap.ID,
		"doc_id":   snap.DocID,
		"status":   snap.Status,
		"poll_url": fmt.Sprintf("/api/ingest/%s/status", snap.ID),
	}
}

func (s *Server) jobFromURL(w http.ResponseWriter, r *http.Request) *pipeline.Job {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
	}
	return job
}

func (s *Server) handleIngestStatus(w http.ResponseWriter, r *http.Request) {
	job := s.jobFromURL(w, r)
	if job == nil {
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

// finishedJob returns the job when it has reached a terminal status.
func (s *Server) finishedJob(w http.ResponseWriter, r *http.Request) *pipeline.Job {
	job := s.jobFromURL(w, r)
	if job == nil {
		return nil
	}
	if status := job.CurrentStatus(); !status.Terminal() {
		jsonError(w, fmt.Sprintf("job is %s", status), http.StatusConflict)
		return nil
	}
	return job
}

func (s *Server) handleJobSections(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	job := s.finishedJob(w, r)
	if job == nil {
		return
	}

	ns, _ := job.Results()
	var buf bytes.Buffer
	if err := export.WriteNormalized(&buf, format, ns); err != nil {
		s.log.Error("encode sections failed", "job_id", job.ID, "error", err)
		jsonError(w, "failed to encode sections", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", export.ContentType(format))
	w.Write(buf.Bytes())
}

func (s *Server) handleJobChunks(w http.ResponseWriter, r *http.Request) {
	job := s.finishedJob(w, r)
	if job == nil {
		return
	}
	_, chunks := job.Results()
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id": job.ID,
		"chunks": chunks,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" || name == "_" {
		name = "unnamed"
	}
	return name
}
