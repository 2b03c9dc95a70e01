package ai

import (
	"fmt"
	"strings"
)

// ErrorPrefix marks assistant history entries that record a failed exchange.
const ErrorPrefix = "Error: "

// MaxHistoryMessages caps how many prior messages may be replayed to the model.
const MaxHistoryMessages = 10

var diagramKeywords = []string{"diagram", "draw", "chart", "graph", "visualize", "figure"}

// IsDiagramRequest reports whether the question asks for a diagram.
func IsDiagramRequest(question string) bool {
	lower := strings.ToLower(question)
	for _, keyword := range diagramKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// SystemPrompt builds the instruction sent ahead of every question.
// The three headings it mandates are the ones the answer parser looks for.
func SystemPrompt(level ExplainLevel, question string) string {
	parts := []string{
		"You are a helpful biology assistant.",
		fmt.Sprintf("Explain the concepts clearly for %s.", level.Audience()),
		"Your response MUST be structured with the following markdown headings:",
		"## Answer, ## Confidence Score, ## Related Topics.",
		"For the Confidence Score, provide a percentage (e.g., 95%).",
		"For Related Topics, provide a bulleted list.",
	}
	if IsDiagramRequest(question) {
		parts = append(parts,
			"The user asked for a visual: include a simple plain-text diagram inside the Answer section, in a fenced code block.")
	}
	return strings.Join(parts, " ")
}

// BuildMessages assembles the request messages for a question.
// With historyLimit <= 0 the request is exactly [system, user]. Otherwise up to
// historyLimit prior entries are replayed between them, skipping recorded errors.
func BuildMessages(history []Message, question string, level ExplainLevel, historyLimit int) []Message {
	msgs := []Message{
		{Role: RoleSystem, Content: SystemPrompt(level, question)},
	}

	if historyLimit > MaxHistoryMessages {
		historyLimit = MaxHistoryMessages
	}
	if historyLimit > 0 {
		replay := make([]Message, 0, len(history))
		for _, msg := range history {
			if msg.Role == RoleSystem {
				continue
			}
			if msg.Role == RoleAssistant && IsErrorEntry(msg.Content) {
				continue
			}
			replay = append(replay, msg)
		}
		if len(replay) > historyLimit {
			replay = replay[len(replay)-historyLimit:]
		}
		msgs = append(msgs, replay...)
	}

	return append(msgs, Message{Role: RoleUser, Content: question})
}

// ErrorEntry formats the assistant history entry recorded for a failed exchange.
func ErrorEntry(err error) string {
	if err == nil {
		return ErrorPrefix + "unknown error"
	}
	return ErrorPrefix + err.Error()
}

// IsErrorEntry reports whether content was produced by ErrorEntry.
func IsErrorEntry(content string) bool {
	return strings.HasPrefix(content, ErrorPrefix)
}
