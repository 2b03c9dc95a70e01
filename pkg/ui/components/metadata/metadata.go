package metadata

import (
	"strings"

	"bioask/pkg/answer"
	"bioask/pkg/ui/components/utils"
	"bioask/pkg/ui/styles"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
)

const (
	confidenceLabel = "Confidence Score"
	topicsLabel     = "Related Topics to Explore"
)

// TopicSelectedMsg is emitted when a topic chip is activated. Activation has no
// effect beyond highlighting the chip.
type TopicSelectedMsg struct {
	Topic string
}

// Panel shows the confidence metric and related-topic chips of the last answer.
type Panel struct {
	answer   *answer.StructuredAnswer
	selected int
	focused  bool
	width    int
}

// New creates an empty metadata panel.
func New() *Panel {
	return &Panel{selected: -1}
}

// SetAnswer shows a new structured answer and clears the chip highlight.
func (p *Panel) SetAnswer(a answer.StructuredAnswer) {
	p.answer = &a
	p.selected = -1
}

// Clear hides the panel contents.
func (p *Panel) Clear() {
	p.answer = nil
	p.selected = -1
	p.focused = false
}

// HasAnswer reports whether there is anything to show.
func (p *Panel) HasAnswer() bool {
	return p.answer != nil
}

// HasTopics reports whether there are chips to focus.
func (p *Panel) HasTopics() bool {
	return p.answer != nil && len(p.answer.Topics) > 0
}

// Selected returns the highlighted topic, if any.
func (p *Panel) Selected() (string, bool) {
	if !p.HasTopics() || p.selected < 0 || p.selected >= len(p.answer.Topics) {
		return "", false
	}
	return p.answer.Topics[p.selected], true
}

// Focus moves key handling to the chips.
func (p *Panel) Focus() {
	p.focused = true
	if p.selected < 0 && p.HasTopics() {
		p.selected = 0
	}
}

// Blur releases focus.
func (p *Panel) Blur() {
	p.focused = false
}

// Focused reports whether the chips have focus.
func (p *Panel) Focused() bool {
	return p.focused
}

// SetWidth updates the panel width.
func (p *Panel) SetWidth(width int) {
	p.width = width
}

// Update moves the chip highlight.
func (p *Panel) Update(msg tea.KeyPressMsg) tea.Cmd {
	if !p.focused || !p.HasTopics() {
		return nil
	}
	last := len(p.answer.Topics) - 1

	switch msg.String() {
	case "left", "up":
		if p.selected > 0 {
			p.selected--
		}
	case "right", "down":
		if p.selected < last {
			p.selected++
		}
	case "home":
		p.selected = 0
	case "end":
		p.selected = last
	case "enter", "space":
		topic, ok := p.Selected()
		if !ok {
			return nil
		}
		return func() tea.Msg { return TopicSelectedMsg{Topic: topic} }
	}
	return nil
}

// View renders the panel, or "" when there is no answer yet.
func (p *Panel) View() string {
	if p.answer == nil {
		return ""
	}
	width := max(p.width, 20)
	inner := width - 4

	var sb strings.Builder
	sb.WriteString(styles.LabelStyle.Render(confidenceLabel))
	sb.WriteString("  ")
	sb.WriteString(styles.MetricValueStyle.Render(p.answer.Confidence))
	sb.WriteString("\n")

	if len(p.answer.Topics) > 0 {
		sb.WriteString(styles.LabelStyle.Render(topicsLabel))
		sb.WriteString("\n")
		sb.WriteString(p.renderChips(inner))
	}

	style := styles.PanelStyle
	if p.focused {
		style = styles.PanelFocusedStyle
	}
	return style.Width(width).Render(sb.String())
}

// renderChips lays chips out left to right, wrapping to new rows at width.
// Every row is padded to width so the chip block keeps a straight right edge.
func (p *Panel) renderChips(width int) string {
	var rows []string
	var row []string
	rowWidth := 0
	flush := func() {
		rows = append(rows, utils.PadStyled(strings.Join(row, " "), width))
		row = nil
		rowWidth = 0
	}

	for i, topic := range p.answer.Topics {
		style := styles.ChipStyle
		if i == p.selected {
			style = styles.ChipSelectedStyle
		}
		chip := style.Render(utils.TruncateToWidth(topic, max(width-2, 1)))
		chipWidth := lipgloss.Width(chip)

		if rowWidth > 0 && rowWidth+1+chipWidth > width {
			flush()
		}
		if rowWidth > 0 {
			rowWidth++
		}
		row = append(row, chip)
		rowWidth += chipWidth
	}
	if len(row) > 0 {
		flush()
	}
	return strings.Join(rows, "\n")
}
