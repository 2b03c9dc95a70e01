package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"bioask/pkg/ai"
	"bioask/pkg/answer"
	"bioask/pkg/chat"
	"bioask/pkg/session"

	"github.com/go-chi/chi/v5"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

// --- DTOs ---

type levelOption struct {
	Value    string `json:"value"`
	Audience string `json:"audience"`
}

type configResponse struct {
	Endpoint string           `json:"endpoint"`
	Levels   []levelOption    `json:"levels"`
	Defaults session.Settings `json:"defaults"`
}

// settingsRequest is used for session creation and settings updates.
// Omitted fields keep their current value.
type settingsRequest struct {
	Model        *string `json:"model"`
	ExplainLevel *string `json:"explain_level"`
}

type questionRequest struct {
	Question string `json:"question"`
}

type questionResponse struct {
	Answer answer.StructuredAnswer `json:"answer"`
	Text   string                  `json:"text"`
	Model  string                  `json:"model"`
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	levels := make([]levelOption, 0, len(ai.ExplainLevels()))
	for _, l := range ai.ExplainLevels() {
		levels = append(levels, levelOption{Value: string(l), Audience: l.Audience()})
	}
	writeJSON(w, http.StatusOK, configResponse{
		Endpoint: s.endpoint,
		Levels:   levels,
		Defaults: s.defaults,
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	settings, err := applySettings(s.defaults, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess := s.store.Create(settings)
	s.logger.Info("web_session_created", "session_id", sess.ID, "model", settings.Model)
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.logger.Info("web_session_deleted", "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req settingsRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	settings, err := applySettings(sess.Settings(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess.SetModel(settings.Model)
	sess.SetExplainLevel(settings.ExplainLevel)
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// handleQuestion answers one question with a non-streaming completion.
func (s *Server) handleQuestion(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req questionRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	result, err := s.service.Complete(r.Context(), sess, req.Question)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, questionResponse{Answer: result.Answer, Text: result.Text, Model: result.Model})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return sess, true
}

func applySettings(base session.Settings, req settingsRequest) (session.Settings, error) {
	out := base
	if req.Model != nil {
		model := strings.TrimSpace(*req.Model)
		if model == "" {
			return session.Settings{}, errors.New("model must not be empty")
		}
		out.Model = model
	}
	if req.ExplainLevel != nil {
		level, err := ai.ParseExplainLevel(*req.ExplainLevel)
		if err != nil {
			return session.Settings{}, err
		}
		out.ExplainLevel = level
	}
	return out, nil
}

// statusFor maps turn errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, chat.ErrEmptyQuestion):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrSessionBusy):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

// decodeJSON reads the request body into v. An empty body is accepted when allowEmpty is set.
func decodeJSON(r *http.Request, v any, allowEmpty bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

// writeJSON is a helper function for sending json responses.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for sending a standardized json error.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
