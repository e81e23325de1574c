package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dgallion1/mdsplit/internal/export"
	"github.com/dgallion1/mdsplit/internal/normalize"
)

type segmentRequest struct {
	Text      string `json:"text"`
	Normalize bool   `json:"normalize"`
}

// handleSegment splits markdown sent in the request body. The body is either
// raw text or a JSON segmentRequest; ?format selects the response encoding.
func (s *Server) handleSegment(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	var req segmentRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, "invalid json body: "+err.Error(), bodyErrorStatus(err))
			return
		}
	} else {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			jsonError(w, "failed to read body: "+err.Error(), bodyErrorStatus(err))
			return
		}
		req.Text = string(data)
		req.Normalize, _ = strconv.ParseBool(r.URL.Query().Get("normalize"))
	}

	sections := s.seg.Split(req.Text)
	s.metrics.ObserveSections("api", sections)

	var buf bytes.Buffer
	if req.Normalize {
		ns := normalize.All(r.Context(), s.orchestrator.Normalizer(), sections)
		s.metrics.ObserveNormalized(ns)
		err = export.WriteNormalized(&buf, format, ns)
	} else {
		err = export.Write(&buf, format, sections)
	}
	if err != nil {
		s.log.Error("encode sections failed", "format", format, "error", err)
		jsonError(w, "failed to encode sections", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", export.ContentType(format))
	w.Write(buf.Bytes())
}

func bodyErrorStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}
