package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bioask/pkg/answer"
	"bioask/pkg/chat"
	"bioask/pkg/session"

	"github.com/gorilla/websocket"
)

const (
	frameDelta  = "delta"
	frameAnswer = "answer"
	frameError  = "error"

	writeWait = 10 * time.Second
)

// wsFrame is sent from the server to the browser.
type wsFrame struct {
	Type   string                   `json:"type"`
	Delta  string                   `json:"delta,omitempty"`
	Answer *answer.StructuredAnswer `json:"answer,omitempty"`
	Error  string                   `json:"error,omitempty"`
	Code   string                   `json:"code,omitempty"`
}

// handleWebSocket streams answers for one session. Turns run one at a time
// inside the read loop.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("web_ws_upgrade_failed", "session_id", sess.ID, "error", err)
		return
	}
	defer conn.Close()

	s.logger.Debug("web_ws_connected", "session_id", sess.ID)

	// Hijacked connections outlive the request context.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("web_ws_closed", "session_id", sess.ID, "error", err)
			}
			return
		}

		var req questionRequest
		if err := json.Unmarshal(message, &req); err != nil {
			if err := writeFrame(conn, wsFrame{
				Type:  frameError,
				Error: `Invalid message format. Send JSON with a "question" field.`,
				Code:  "invalid_message",
			}); err != nil {
				return
			}
			continue
		}

		if err := s.streamTurn(ctx, conn, sess, req.Question); err != nil {
			s.logger.Debug("web_ws_write_failed", "session_id", sess.ID, "error", err)
			return
		}
	}
}

// streamTurn runs one turn, forwarding fragments as delta frames. The returned
// error is a write failure; turn failures are reported to the client.
func (s *Server) streamTurn(ctx context.Context, conn *websocket.Conn, sess *session.Session, question string) error {
	turn, err := s.service.Begin(ctx, sess, question)
	if err != nil {
		return writeFrame(conn, errorFrame(err))
	}

	for turn.Next() {
		if err := writeFrame(conn, wsFrame{Type: frameDelta, Delta: turn.Fragment()}); err != nil {
			_ = turn.Abort(fmt.Errorf("client disconnected: %w", err))
			return err
		}
	}

	result, err := turn.Finish()
	if err != nil {
		return writeFrame(conn, errorFrame(err))
	}
	return writeFrame(conn, wsFrame{Type: frameAnswer, Answer: &result})
}

func errorFrame(err error) wsFrame {
	code := "llm_error"
	switch {
	case errors.Is(err, session.ErrSessionBusy):
		code = "busy"
	case errors.Is(err, chat.ErrEmptyQuestion):
		code = "empty_question"
	}
	return wsFrame{Type: frameError, Error: err.Error(), Code: code}
}

func writeFrame(conn *websocket.Conn, frame wsFrame) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(frame)
}
