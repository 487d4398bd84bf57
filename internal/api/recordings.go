// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/loomverse/studio/internal/store"
	"github.com/loomverse/studio/internal/studio"
)

func (s *Server) handleListRecordings(w http.ResponseWriter, r *http.Request) {
	var (
		list []*store.Record
		err  error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		list, err = s.studio.SearchRecordings(r.Context(), q)
	} else {
		list, err = s.studio.ListRecordings(r.Context())
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []*store.Record{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetRecording(w http.ResponseWriter, r *http.Request) {
	rec, err := s.studio.GetRecording(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type updateRecordingRequest struct {
	Title               string `json:"title"`
	Description         string `json:"description"`
	EditedTranscription string `json:"editedTranscription"`
}

func (s *Server) handleUpdateRecording(w http.ResponseWriter, r *http.Request) {
	var req updateRecordingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	rec, err := s.studio.UpdateRecording(r.Context(), chi.URLParam(r, "id"), studio.RecordUpdate{
		Title:               req.Title,
		Description:         req.Description,
		EditedTranscription: req.EditedTranscription,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleEnrichRecording re-runs metadata generation for a recording whose
// save completed without it.
func (s *Server) handleEnrichRecording(w http.ResponseWriter, r *http.Request) {
	rec, err := s.studio.EnrichRecording(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleCleanTranscript(w http.ResponseWriter, r *http.Request) {
	rec, err := s.studio.RemoveFillerWords(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteRecording(w http.ResponseWriter, r *http.Request) {
	if err := s.studio.DeleteRecording(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleViewRecording(w http.ResponseWriter, r *http.Request) {
	views, err := s.studio.ViewRecording(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"views": views})
}

func (s *Server) handleShareRecording(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.studio.ShareRecording(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	rec, err := s.studio.GetRecording(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.studio.GetRecording(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	data, mime, err := s.studio.Media(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", downloadName(rec.Title, id)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// downloadName builds a safe ASCII filename from the recording title.
// Accents are folded away and anything else unusual becomes an underscore.
func downloadName(title, id string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), title)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		name = id
	}
	return name + ".webm"
}
