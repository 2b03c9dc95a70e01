package chat

import (
	"context"
	"fmt"
	"time"

	"bioask/pkg/ai"
	"bioask/pkg/answer"
	"bioask/pkg/session"
)

// Completion is the outcome of a non-streaming exchange.
type Completion struct {
	Answer answer.StructuredAnswer
	Text   string
	Model  string
}

// Complete answers question with a single non-streaming request and records
// the exchange on sess the same way a streamed turn does.
func (s *Service) Complete(ctx context.Context, sess *session.Session, question string) (Completion, error) {
	ex, err := s.claim(sess, question)
	if err != nil {
		return Completion{}, err
	}
	defer sess.End()

	msgs := ai.BuildMessages(ex.history, ex.question, ex.level, s.historyLimit)
	s.logger.Info("chat_complete_start",
		"session_id", sess.ID,
		"model", ex.model,
		"explain_level", string(ex.level),
		"message_count", len(msgs),
	)

	started := time.Now()
	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.provider.CreateChatCompletion(reqCtx, ai.ChatRequest{
		Model:    ex.model,
		Messages: msgs,
	})
	if err != nil {
		err = fmt.Errorf("failed to reach local LLM: %w", err)
		sess.AppendMessage(ai.Message{Role: ai.RoleAssistant, Content: ai.ErrorEntry(err)})
		s.logger.Error("chat_complete_error", "session_id", sess.ID, "model", ex.model, "error", err)
		return Completion{}, err
	}

	result := answer.Parse(resp.Content)
	sess.SetLastAnswer(result)
	sess.AppendMessage(ai.Message{Role: ai.RoleAssistant, Content: resp.Content})

	model := resp.Model
	if model == "" {
		model = ex.model
	}
	s.logger.Info("chat_complete_done",
		"session_id", sess.ID,
		"model", model,
		"chars", len(resp.Content),
		"topics", len(result.Topics),
		"elapsed_ms", time.Since(started).Milliseconds(),
	)
	return Completion{Answer: result, Text: resp.Content, Model: model}, nil
}
