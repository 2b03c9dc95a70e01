package chat

import (
	"fmt"
	"strings"
	"time"

	"bioask/pkg/ai"
	"bioask/pkg/answer"
	"bioask/pkg/session"
)

// Turn is one question/answer exchange on a session, from Begin to Finish.
// A Turn is driven by a single goroutine.
type Turn struct {
	service  *Service
	session  *session.Session
	stream   ai.ChatStream
	model    string
	question string
	started  time.Time

	text     strings.Builder
	fragment string
	fragN    int
	err      error
	finished bool
	result   answer.StructuredAnswer
}

// Question returns the trimmed question.
func (t *Turn) Question() string { return t.question }

// Model returns the model the turn was sent to.
func (t *Turn) Model() string { return t.model }

// Next advances to the next non-empty fragment. It returns false when the
// stream ends or fails; Err reports which.
func (t *Turn) Next() bool {
	if t.finished || t.err != nil {
		return false
	}
	for t.stream.Next() {
		delta := t.stream.Content()
		if delta == "" {
			continue
		}
		t.fragment = delta
		t.fragN++
		t.text.WriteString(delta)
		return true
	}
	if err := t.stream.Err(); err != nil {
		t.err = fmt.Errorf("stream interrupted: %w", err)
	}
	t.fragment = ""
	return false
}

// Fragment returns the fragment read by the last call to Next.
func (t *Turn) Fragment() string { return t.fragment }

// Text returns everything received so far.
func (t *Turn) Text() string { return t.text.String() }

// Err returns the stream failure, if any.
func (t *Turn) Err() error { return t.err }

// Abort stops the turn with cause and finishes it.
func (t *Turn) Abort(cause error) error {
	if t.err == nil && cause != nil {
		t.err = cause
	}
	_, err := t.Finish()
	return err
}

// Finish closes the stream and records the outcome on the session: the parsed
// answer and the assistant message on success, a single "Error: ..." entry on
// failure. Calling Finish again returns the first outcome.
func (t *Turn) Finish() (answer.StructuredAnswer, error) {
	if t.finished {
		return t.result, t.err
	}
	t.finished = true
	defer t.session.End()

	if err := t.stream.Close(); err != nil {
		t.service.logger.Debug("chat_stream_close_error", "error", err)
	}

	logger := t.service.logger
	elapsed := time.Since(t.started)

	if t.err != nil {
		t.session.AppendMessage(ai.Message{Role: ai.RoleAssistant, Content: ai.ErrorEntry(t.err)})
		logger.Error("chat_stream_error",
			"session_id", t.session.ID,
			"model", t.model,
			"fragments", t.fragN,
			"elapsed_ms", elapsed.Milliseconds(),
			"error", t.err,
		)
		return answer.StructuredAnswer{}, t.err
	}

	full := t.text.String()
	t.result = answer.Parse(full)
	t.session.SetLastAnswer(t.result)
	t.session.AppendMessage(ai.Message{Role: ai.RoleAssistant, Content: full})

	logger.Info("chat_stream_done",
		"session_id", t.session.ID,
		"model", t.model,
		"fragments", t.fragN,
		"chars", len(full),
		"topics", len(t.result.Topics),
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return t.result, nil
}
