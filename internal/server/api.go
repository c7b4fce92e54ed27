package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"screen-state-recognizer/internal/app"
	"screen-state-recognizer/internal/catalog"
)

const (
	defaultWait = 10 * time.Second
	maxWait     = 5 * time.Minute
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"running": s.app.IsRunning(),
		"state":   s.app.CurrentState(),
	})
}

func (s *Server) handleRecognize(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.RecognizeOnce())
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Reload())
}

func (s *Server) handleStates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.States())
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.TestEnvironment())
}

// parseTimeout accepts a Go duration ("15s") or plain seconds ("15").
func parseTimeout(v string) (time.Duration, error) {
	if v == "" {
		return defaultWait, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		secs, serr := strconv.ParseFloat(v, 64)
		if serr != nil {
			return 0, errors.New("invalid timeout " + strconv.Quote(v))
		}
		d = time.Duration(secs * float64(time.Second))
	}
	if d <= 0 {
		return 0, errors.New("timeout must be positive")
	}
	if d > maxWait {
		d = maxWait
	}
	return d, nil
}

func (s *Server) handleWait(w http.ResponseWriter, r *http.Request) {
	label := r.URL.Query().Get("state")
	if label == "" {
		writeError(w, http.StatusBadRequest, errors.New("state is required"))
		return
	}
	timeout, err := parseTimeout(r.URL.Query().Get("timeout"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rep, err := s.app.WaitForState(r.Context(), label, timeout)
	switch {
	case errors.Is(err, app.ErrUnknownLabel):
		writeError(w, http.StatusNotFound, err)
	case err != nil:
		writeJSON(w, http.StatusRequestTimeout, map[string]any{"reached": false, "error": err.Error(), "report": rep})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"reached": true, "report": rep})
	}
}

func (s *Server) handleReadRegions(w http.ResponseWriter, r *http.Request) {
	label := r.URL.Query().Get("state")
	readings, err := s.app.ReadRegions(label)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": label, "readings": readings})
}

type confirmRequest struct {
	State    string            `json:"state"`
	Readings []catalog.Reading `json:"readings"`
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	changed, err := s.app.ConfirmText(req.State, req.Readings)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"changed": changed})
}

type expectedRequest struct {
	State        string         `json:"state"`
	Regions      []catalog.Rect `json:"regions"`
	ExpectedText []string       `json:"expected_text"`
}

func (s *Server) handleExpected(w http.ResponseWriter, r *http.Request) {
	var req expectedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.State == "" || len(req.Regions) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("state and regions are required"))
		return
	}
	changed, err := s.app.SetExpectedText(req.State, req.Regions, req.ExpectedText)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"changed": changed})
}

type templateRequest struct {
	State string `json:"state"`
	// Region crops the captured frame; the whole frame is stored when nil.
	Region *catalog.Rect `json:"region"`
}

func (s *Server) handleCaptureTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.State) == "" {
		writeError(w, http.StatusBadRequest, errors.New("state is required"))
		return
	}
	name, err := s.app.CaptureTemplate(req.State, req.Region)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"state": req.State, "file": name})
}
