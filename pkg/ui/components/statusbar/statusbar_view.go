package statusbar

import (
	"fmt"
	"strings"

	"bioask/pkg/ui/styles"

	"github.com/charmbracelet/x/ansi"
)

// StatusBarView renders the footer line: model, explain level, turn state and
// a key hint or a transient message.
type StatusBarView struct {
	model    string
	level    string
	state    string
	messages int
	message  string
	width    int
}

// NewStatusBarView creates a new status bar view
func NewStatusBarView() *StatusBarView {
	return &StatusBarView{
		state: "ready",
		width: 80,
	}
}

// SetModel updates the active model displayed.
func (s *StatusBarView) SetModel(model string) {
	s.model = strings.TrimSpace(model)
}

// SetLevel updates the explain level displayed.
func (s *StatusBarView) SetLevel(level string) {
	s.level = level
}

// SetState shows the turn state ("ready", "streaming", ...).
func (s *StatusBarView) SetState(state string) {
	s.state = state
}

// SetMessageCount shows the number of history entries.
func (s *StatusBarView) SetMessageCount(n int) {
	s.messages = n
}

// SetMessage replaces the key hint until cleared with "".
func (s *StatusBarView) SetMessage(msg string) {
	s.message = msg
}

// SetWidth updates the width for rendering
func (s *StatusBarView) SetWidth(width int) {
	s.width = width
}

// Render returns the styled status bar string
func (s *StatusBarView) Render() string {
	modelLabel := s.model
	if modelLabel == "" {
		modelLabel = "unknown"
	}
	tail := s.message
	if tail == "" {
		tail = "Tab focus | Ctrl+L level | Ctrl+N new | Ctrl+C quit"
	}
	content := fmt.Sprintf("[bioask] %s | [llm]: %s | [level]: %s | %d msgs | %s",
		s.state, modelLabel, s.level, s.messages, tail)

	// Truncate if too long (ANSI-aware width).
	maxWidth := max(s.width-2, 10)
	if ansi.StringWidth(content) > maxWidth {
		content = ansi.Truncate(content, maxWidth, "...")
	}

	styled := styles.StatusBarStyle.Render(content)
	if w := ansi.StringWidth(styled); w < s.width {
		styled += strings.Repeat(" ", s.width-w)
	}
	return styled
}
