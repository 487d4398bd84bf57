// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"

	"github.com/loomverse/studio/internal/log"
	"github.com/loomverse/studio/internal/media"
	"github.com/loomverse/studio/internal/preview"
	"github.com/loomverse/studio/internal/studio"
)

// startSessionRequest selects the capture inputs for a new session. A body
// that selects nothing, including an empty body, records camera plus
// microphone.
type startSessionRequest struct {
	Title  string `json:"title"`
	Video  bool   `json:"video"`
	Audio  bool   `json:"audio"`
	Screen bool   `json:"screen"`
}

type sessionResponse struct {
	ID             string      `json:"id"`
	State          string      `json:"state"`
	Elapsed        string      `json:"elapsed"`
	ElapsedSeconds int64       `json:"elapsedSeconds"`
	Countdown      bool        `json:"countdown"`
	Live           bool        `json:"live"`
	Paused         bool        `json:"paused"`
	HasScreen      bool        `json:"hasScreen"`
	Pip            pipResponse `json:"pip"`
}

type pipResponse struct {
	Corner string `json:"corner"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
}

func (s *Server) handleCheckAccess(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.studio.CheckAccess(r.Context()))
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid request body")
			return
		}
	}

	sess, err := s.studio.StartSession(r.Context(), studio.StartOptions{
		Title:  req.Title,
		Video:  req.Video,
		Audio:  req.Audio,
		Screen: req.Screen,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	s.resetPip()

	logger := log.WithContext(r.Context(), s.logger)
	logger.Info().
		Str("event", "api.session_started").Str("session_id", sess.ID).Msg("session started")
	writeJSON(w, http.StatusCreated, s.sessionBody())
}

func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	body, err := s.sessionBodyErr()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleCancelSession(w http.ResponseWriter, r *http.Request) {
	if err := s.studio.CancelSession(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": "idle"})
}

func (s *Server) handlePauseSession(w http.ResponseWriter, r *http.Request) {
	s.sessionCommand(w, s.studio.PauseSession)
}

func (s *Server) handleResumeSession(w http.ResponseWriter, r *http.Request) {
	s.sessionCommand(w, s.studio.ResumeSession)
}

func (s *Server) handleStopSession(w http.ResponseWriter, r *http.Request) {
	s.sessionCommand(w, s.studio.StopSession)
}

func (s *Server) handleDiscardSession(w http.ResponseWriter, r *http.Request) {
	if err := s.studio.DiscardSession(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": "discarded"})
}

// handleCyclePip moves the camera overlay to the next corner and returns
// the new placement.
func (s *Server) handleCyclePip(w http.ResponseWriter, r *http.Request) {
	s.pipMu.Lock()
	s.pip = s.pip.Next()
	s.pipMu.Unlock()
	writeJSON(w, http.StatusOK, s.pipBody())
}

func (s *Server) resetPip() {
	s.pipMu.Lock()
	s.pip = preview.BottomRight
	s.pipMu.Unlock()
}

func (s *Server) pipBody() pipResponse {
	s.pipMu.Lock()
	c := s.pip
	s.pipMu.Unlock()
	x, y := preview.Offset(c, media.FrameWidth, media.FrameHeight,
		preview.PiPWidth, preview.PiPHeight, preview.PiPMargin)
	return pipResponse{Corner: c.String(), X: x, Y: y}
}

type saveSessionRequest struct {
	Description string `json:"description"`
}

func (s *Server) handleSaveSession(w http.ResponseWriter, r *http.Request) {
	var req saveSessionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid request body")
			return
		}
	}

	rec, err := s.studio.SaveSession(r.Context(), req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) sessionCommand(w http.ResponseWriter, cmd func() error) {
	if err := cmd(); err != nil {
		writeError(w, err)
		return
	}
	body, err := s.sessionBodyErr()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) sessionBody() *sessionResponse {
	body, _ := s.sessionBodyErr()
	return body
}

func (s *Server) sessionBodyErr() (*sessionResponse, error) {
	sess, err := s.studio.Session()
	if err != nil {
		return nil, err
	}
	st := sess.State()
	ind := preview.IndicatorFor(st)
	elapsed := sess.Elapsed()
	return &sessionResponse{
		ID:             sess.ID,
		State:          string(st),
		Elapsed:        preview.FormatElapsed(elapsed),
		ElapsedSeconds: int64(elapsed.Seconds()),
		Countdown:      ind.Countdown,
		Live:           ind.Live,
		Paused:         ind.Paused,
		HasScreen:      sess.HasScreen(),
		Pip:            s.pipBody(),
	}, nil
}
