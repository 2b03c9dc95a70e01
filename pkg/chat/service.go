package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bioask/pkg/ai"
	"bioask/pkg/config"
	"bioask/pkg/logging"
	"bioask/pkg/session"
)

// ErrEmptyQuestion is returned when a blank question is submitted.
var ErrEmptyQuestion = errors.New("question is empty")

// Service turns questions into streamed answers against a provider.
type Service struct {
	provider     ai.Provider
	historyLimit int
	timeout      time.Duration
	logger       *slog.Logger
}

// NewService creates a chat service. A nil logger uses slog.Default().
func NewService(provider ai.Provider, cfg config.Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.LLM.APITimeoutSeconds
	if timeout <= 0 {
		timeout = config.Default().LLM.APITimeoutSeconds
	}
	return &Service{
		provider:     provider,
		historyLimit: cfg.LLM.HistoryMessages,
		timeout:      time.Duration(timeout) * time.Second,
		logger:       logger,
	}
}

// StreamAnswer opens a streaming completion for question. The returned stream
// is bounded by the service timeout and must be closed by the caller.
func (s *Service) StreamAnswer(
	ctx context.Context,
	history []ai.Message,
	question string,
	model string,
	level ai.ExplainLevel,
) (ai.ChatStream, error) {
	msgs := ai.BuildMessages(history, question, level, s.historyLimit)

	if s.logger.Enabled(ctx, logging.LevelTrace) {
		s.logger.Log(ctx, logging.LevelTrace, "chat_stream_prompt",
			"model", model,
			"message_count", len(msgs),
			"messages_full", dumpMessages(msgs),
		)
	}

	s.logger.Info("chat_stream_start",
		"model", model,
		"explain_level", string(level),
		"message_count", len(msgs),
		"history_messages", len(history),
	)

	streamCtx, cancel := context.WithTimeout(ctx, s.timeout)
	stream, err := s.provider.CreateChatCompletionStream(streamCtx, ai.ChatRequest{
		Model:    model,
		Messages: msgs,
	})
	if err != nil {
		cancel()
		s.logger.Error("chat_stream_create_error", "model", model, "error", err)
		return nil, fmt.Errorf("failed to reach local LLM: %w", err)
	}

	return &cancelStream{ChatStream: stream, cancel: cancel}, nil
}

// cancelStream releases the request context when the stream is closed.
type cancelStream struct {
	ai.ChatStream
	cancel context.CancelFunc
}

func (s *cancelStream) Close() error {
	err := s.ChatStream.Close()
	s.cancel()
	return err
}

func dumpMessages(msgs []ai.Message) string {
	var sb strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			sb.WriteString("\n---\n")
		}
		sb.WriteString(string(msg.Role))
		sb.WriteString(": ")
		sb.WriteString(msg.Content)
	}
	return sb.String()
}

// Begin starts a turn on sess: it claims the session, records the question and
// opens the stream. If the stream cannot be opened the failure is recorded in
// the history and returned.
func (s *Service) Begin(ctx context.Context, sess *session.Session, question string) (*Turn, error) {
	ex, err := s.claim(sess, question)
	if err != nil {
		return nil, err
	}

	stream, err := s.StreamAnswer(ctx, ex.history, ex.question, ex.model, ex.level)
	if err != nil {
		sess.AppendMessage(ai.Message{Role: ai.RoleAssistant, Content: ai.ErrorEntry(err)})
		sess.End()
		return nil, err
	}

	return &Turn{
		service:  s,
		session:  sess,
		stream:   stream,
		model:    ex.model,
		question: ex.question,
		started:  time.Now(),
	}, nil
}

// exchange is a claimed session with its question recorded.
type exchange struct {
	question string
	model    string
	level    ai.ExplainLevel
	history  []ai.Message
}

// claim validates question, marks sess busy and appends the user message. The
// returned history is the snapshot taken before the append. The caller must
// release the session with End.
func (s *Service) claim(sess *session.Session, question string) (exchange, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return exchange{}, ErrEmptyQuestion
	}
	if err := sess.TryBegin(); err != nil {
		return exchange{}, err
	}

	settings := sess.Settings()
	level := settings.ExplainLevel
	if level == "" {
		level = ai.DefaultExplainLevel
	}

	// Snapshot before appending so the question is not replayed twice.
	history := sess.History()
	sess.AppendMessage(ai.Message{Role: ai.RoleUser, Content: question})

	return exchange{
		question: question,
		model:    strings.TrimSpace(settings.Model),
		level:    level,
		history:  history,
	}, nil
}

// Ask runs a whole turn, calling onDelta for every fragment as it arrives.
func (s *Service) Ask(ctx context.Context, sess *session.Session, question string, onDelta func(string)) (*Turn, error) {
	turn, err := s.Begin(ctx, sess, question)
	if err != nil {
		return nil, err
	}
	for turn.Next() {
		if onDelta != nil {
			onDelta(turn.Fragment())
		}
	}
	if _, err := turn.Finish(); err != nil {
		return turn, err
	}
	return turn, nil
}
