package settings

import (
	"strings"

	"bioask/pkg/ai"
	"bioask/pkg/ui/components/utils"
	"bioask/pkg/ui/styles"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
)

// Field keys used in picker and change messages.
const (
	FieldModel        = "model"
	FieldExplainLevel = "explain_level"
)

// ModelChangedMsg is emitted whenever the model name is edited.
type ModelChangedMsg struct {
	Model string
}

// OpenPickerMsg asks the parent to open the picker for a field.
type OpenPickerMsg struct {
	FieldKey string
}

// SettingsPanel is the configuration sidebar: model name, explain level and
// the endpoint the app is connected to.
type SettingsPanel struct {
	modelInput textinput.Model
	level      ai.ExplainLevel
	endpoint   string
	selected   int
	focused    bool
	width      int
	height     int
}

var fieldOrder = []string{FieldModel, FieldExplainLevel}

// NewSettingsPanel creates the panel pre-filled with the current settings.
func NewSettingsPanel(model string, level ai.ExplainLevel, endpoint string) *SettingsPanel {
	input := textinput.New()
	input.Placeholder = "model name"
	input.Prompt = ""
	input.CharLimit = 128
	input.SetValue(model)

	if level == "" {
		level = ai.DefaultExplainLevel
	}

	return &SettingsPanel{
		modelInput: input,
		level:      level,
		endpoint:   endpoint,
	}
}

// Model returns the trimmed model name.
func (sp *SettingsPanel) Model() string {
	return strings.TrimSpace(sp.modelInput.Value())
}

// SetModel replaces the model name, e.g. after a picker selection.
func (sp *SettingsPanel) SetModel(model string) {
	sp.modelInput.SetValue(model)
	sp.modelInput.CursorEnd()
}

// Level returns the selected explain level.
func (sp *SettingsPanel) Level() ai.ExplainLevel {
	return sp.level
}

// SetLevel updates the explain level shown.
func (sp *SettingsPanel) SetLevel(level ai.ExplainLevel) {
	sp.level = level
}

// Endpoint returns the connection URL shown in the panel.
func (sp *SettingsPanel) Endpoint() string {
	return sp.endpoint
}

// SelectedField returns the key of the highlighted field.
func (sp *SettingsPanel) SelectedField() string {
	return fieldOrder[sp.selected]
}

// Focus gives the panel keyboard focus, starting on the model field.
func (sp *SettingsPanel) Focus() tea.Cmd {
	sp.focused = true
	sp.selected = 0
	return sp.modelInput.Focus()
}

// Blur removes keyboard focus.
func (sp *SettingsPanel) Blur() {
	sp.focused = false
	sp.modelInput.Blur()
}

// Focused reports whether the panel has focus.
func (sp *SettingsPanel) Focused() bool {
	return sp.focused
}

// SetSize updates the panel dimensions.
func (sp *SettingsPanel) SetSize(width, height int) {
	sp.width = width
	sp.height = height
	sp.modelInput.SetWidth(max(sp.contentWidth()-1, 1))
}

// Update handles keys while the panel is focused.
func (sp *SettingsPanel) Update(msg tea.KeyPressMsg) tea.Cmd {
	if !sp.focused {
		return nil
	}

	switch msg.String() {
	case "up":
		if sp.selected > 0 {
			sp.selected--
			sp.modelInput.Focus()
		}
		return nil
	case "down":
		if sp.selected < len(fieldOrder)-1 {
			sp.selected++
			sp.modelInput.Blur()
		}
		return nil
	case "enter":
		key := sp.SelectedField()
		return func() tea.Msg { return OpenPickerMsg{FieldKey: key} }
	}

	if sp.SelectedField() != FieldModel {
		return nil
	}

	before := sp.modelInput.Value()
	var cmd tea.Cmd
	sp.modelInput, cmd = sp.modelInput.Update(msg)
	if sp.modelInput.Value() == before {
		return cmd
	}
	model := sp.Model()
	return tea.Batch(cmd, func() tea.Msg { return ModelChangedMsg{Model: model} })
}

// View renders the panel.
func (sp *SettingsPanel) View() string {
	width := sp.contentWidth()

	var sb strings.Builder
	sb.WriteString(styles.TitleStyle.Render("Configuration"))
	sb.WriteString("\n\n")

	sb.WriteString(sp.label("Model name", FieldModel))
	sb.WriteString("\n")
	if sp.focused && sp.SelectedField() == FieldModel {
		sb.WriteString(sp.modelInput.View())
	} else if model := sp.Model(); model != "" {
		sb.WriteString(styles.ValueStyle.Render(utils.TruncateToWidth(model, width)))
	} else {
		sb.WriteString(styles.PlaceholderStyle.Render("not set"))
	}
	sb.WriteString("\n\n")

	sb.WriteString(sp.label("Explain like I'm...", FieldExplainLevel))
	sb.WriteString("\n")
	sb.WriteString(styles.ValueStyle.Render(utils.TruncateToWidth(sp.level.Audience(), width)))
	sb.WriteString("\n\n")

	sb.WriteString(styles.LabelStyle.Render("Connected to local LLM at:"))
	sb.WriteString("\n")
	sb.WriteString(styles.TextMutedStyle.Render(utils.TruncateToWidth(sp.endpoint, width)))

	if sp.focused {
		sb.WriteString("\n\n")
		sb.WriteString(styles.FooterStyle.Render(utils.TruncateToWidth("Up/Down Field | Enter Pick", width)))
	}

	style := styles.PanelStyle
	if sp.focused {
		style = styles.PanelFocusedStyle
	}
	style = style.Width(max(sp.width, 1))
	if sp.height > 0 {
		style = style.Height(sp.height)
	}
	return style.Render(sb.String())
}

func (sp *SettingsPanel) label(text, field string) string {
	if sp.focused && sp.SelectedField() == field {
		return styles.SelectedStyle.Render(text)
	}
	return styles.LabelStyle.Render(text)
}

// contentWidth is the width inside the border and padding.
func (sp *SettingsPanel) contentWidth() int {
	return max(sp.width-4, 1)
}
