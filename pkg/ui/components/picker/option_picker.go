package picker

import (
	"strings"

	"bioask/pkg/ui/components/utils"
	"bioask/pkg/ui/styles"

	tea "charm.land/bubbletea/v2"
)

// Option is one selectable entry. Label is shown; Value is reported back.
type Option struct {
	Value string
	Label string
}

// OptionPickerSelectMsg is emitted when the user confirms a selection.
type OptionPickerSelectMsg struct {
	FieldKey string
	Value    string
}

// OptionPickerPanel is a modal list picker with type-to-filter.
type OptionPickerPanel struct {
	title    string
	fieldKey string
	options  []Option
	filter   string
	selected int
	scroll   int
	visible  bool
	width    int
	height   int
}

// NewOptionPickerPanel creates a new option picker panel.
func NewOptionPickerPanel() *OptionPickerPanel {
	return &OptionPickerPanel{}
}

// Show displays the picker for a field, preselecting the option whose value is current.
func (p *OptionPickerPanel) Show(title, fieldKey string, options []Option, current string) {
	p.visible = true
	p.title = title
	p.fieldKey = fieldKey
	p.options = append([]Option(nil), options...)
	p.filter = ""
	p.selected = 0
	p.scroll = 0

	if current != "" {
		for i, option := range p.options {
			if option.Value == current {
				p.selected = i
				break
			}
		}
	}

	p.ensureVisible(p.filteredOptions(), p.listHeight())
}

// Hide hides the picker.
func (p *OptionPickerPanel) Hide() {
	p.visible = false
}

// IsVisible reports whether the picker is visible.
func (p *OptionPickerPanel) IsVisible() bool {
	return p.visible
}

// FieldKey returns the field the picker was opened for.
func (p *OptionPickerPanel) FieldKey() string {
	return p.fieldKey
}

// SetSize updates the picker dimensions.
func (p *OptionPickerPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// Update handles keyboard input for the picker.
func (p *OptionPickerPanel) Update(msg tea.KeyPressMsg) tea.Cmd {
	if !p.visible {
		return nil
	}

	filtered := p.filteredOptions()
	listHeight := p.listHeight()

	switch msg.String() {
	case "up":
		if p.selected > 0 {
			p.selected--
		}
	case "down":
		if p.selected < len(filtered)-1 {
			p.selected++
		}
	case "pgup":
		p.selected -= listHeight
	case "pgdown":
		p.selected += listHeight
	case "home":
		p.selected = 0
	case "end":
		p.selected = len(filtered) - 1

	case "enter":
		if len(filtered) > 0 && p.selected >= 0 && p.selected < len(filtered) {
			value := filtered[p.selected].Value
			fieldKey := p.fieldKey
			p.Hide()
			return func() tea.Msg {
				return OptionPickerSelectMsg{FieldKey: fieldKey, Value: value}
			}
		}
		return nil

	case "esc":
		p.Hide()
		return nil

	case "backspace":
		if p.filter != "" {
			runes := []rune(p.filter)
			p.filter = string(runes[:len(runes)-1])
			p.selected = 0
		}

	default:
		if text := msg.Key().Text; text != "" {
			p.filter += text
			p.selected = 0
		}
	}

	p.ensureVisible(p.filteredOptions(), listHeight)
	return nil
}

// View renders the picker.
func (p *OptionPickerPanel) View() string {
	if !p.visible {
		return ""
	}

	boxWidth, contentWidth, listHeight := p.dimensions()
	filtered := p.filteredOptions()

	var content strings.Builder
	content.WriteString(styles.TitleStyle.Render(p.title))
	content.WriteString("\n")
	if p.filter == "" {
		content.WriteString(styles.PlaceholderStyle.Render("type to filter"))
	} else {
		content.WriteString(styles.TextBoldStyle.Render("> " + p.filter))
	}
	content.WriteString("\n\n")

	if len(filtered) == 0 {
		content.WriteString(styles.TextMutedStyle.Render("No options available"))
		for i := 1; i < listHeight; i++ {
			content.WriteString("\n")
		}
	} else {
		for i := 0; i < listHeight; i++ {
			index := p.scroll + i
			if index >= len(filtered) {
				content.WriteString("\n")
				continue
			}
			line := utils.TruncateToWidth("  "+filtered[index].label(), contentWidth)
			if index == p.selected {
				content.WriteString(styles.SelectedStyle.Render(utils.PadPlain(line, contentWidth)))
			} else {
				content.WriteString(styles.TextStyle.Render(line))
			}
			content.WriteString("\n")
		}
	}

	content.WriteString("\n")
	content.WriteString(styles.FooterStyle.Render("Up/Down Navigate | Enter Select | Esc Cancel"))

	return styles.BoxStyle.Width(boxWidth).Render(content.String())
}

func (o Option) label() string {
	if o.Label != "" {
		return o.Label
	}
	return o.Value
}

func (p *OptionPickerPanel) filteredOptions() []Option {
	filter := strings.ToLower(strings.TrimSpace(p.filter))
	if filter == "" {
		return p.options
	}
	var out []Option
	for _, option := range p.options {
		if strings.Contains(strings.ToLower(option.label()), filter) ||
			strings.Contains(strings.ToLower(option.Value), filter) {
			out = append(out, option)
		}
	}
	return out
}

func (p *OptionPickerPanel) ensureVisible(options []Option, listHeight int) {
	if len(options) == 0 {
		p.selected = 0
		p.scroll = 0
		return
	}

	if p.selected < 0 {
		p.selected = 0
	}
	if p.selected >= len(options) {
		p.selected = len(options) - 1
	}

	maxScroll := len(options) - listHeight
	if maxScroll < 0 {
		maxScroll = 0
	}
	if p.scroll > maxScroll {
		p.scroll = maxScroll
	}

	if p.selected < p.scroll {
		p.scroll = p.selected
	}
	if p.selected >= p.scroll+listHeight {
		p.scroll = p.selected - listHeight + 1
	}
	if p.scroll < 0 {
		p.scroll = 0
	}
}

func (p *OptionPickerPanel) dimensions() (int, int, int) {
	width := p.width
	height := p.height
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 24
	}

	boxWidth := min(width-2, 60)
	boxWidth = max(boxWidth, 36)

	contentWidth := max(boxWidth-6, 10)

	// title, filter, blank, blank, footer
	const fixedLines = 5
	listHeight := max(height-6-fixedLines, 1)
	listHeight = min(listHeight, 10)

	return boxWidth, contentWidth, listHeight
}

func (p *OptionPickerPanel) listHeight() int {
	_, _, listHeight := p.dimensions()
	return listHeight
}
