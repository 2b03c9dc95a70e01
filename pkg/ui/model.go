package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"bioask/pkg/ai"
	"bioask/pkg/chat"
	"bioask/pkg/session"
	"bioask/pkg/ui/components/chatview"
	"bioask/pkg/ui/components/metadata"
	"bioask/pkg/ui/components/picker"
	"bioask/pkg/ui/components/settings"
	"bioask/pkg/ui/components/statusbar"
	"bioask/pkg/ui/components/utils"
	"bioask/pkg/ui/components/welcome"
	"bioask/pkg/ui/render"
	"bioask/pkg/ui/styles"

	"charm.land/bubbles/v2/textarea"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	osc52 "github.com/aymanbagabas/go-osc52/v2"
)

const (
	sidebarWidth    = 34
	minSidebarWidth = 80 // screens narrower than this hide the settings sidebar
	inputHeight     = 3
	headerHeight    = 3
	minChatHeight   = 3

	errorLinePrefix = "An error occurred while communicating with the LLM: "
)

type focusArea int

const (
	focusInput focusArea = iota
	focusSettings
	focusTopics
)

// streamEventMsg wraps one event of the running turn.
type streamEventMsg struct {
	event chat.StreamEvent
}

// Options configures the chat screen.
type Options struct {
	Service  *chat.Service
	Session  *session.Session
	Endpoint string
	// Models is the discovered model list offered by the model picker.
	Models   []string
	Markdown *render.MarkdownRenderer
	// Clipboard receives OSC52 copy sequences; defaults to os.Stdout.
	Clipboard io.Writer
	Context   context.Context
}

// Model is the Bubble Tea model of the chat screen.
type Model struct {
	service   *chat.Service
	session   *session.Session
	models    []string
	clipboard io.Writer
	ctx       context.Context

	chat     *chatview.ChatView
	settings *settings.SettingsPanel
	meta     *metadata.Panel
	picker   *picker.OptionPickerPanel
	status   *statusbar.StatusBarView
	input    textarea.Model

	focus   focusArea
	turn    *chat.Turn
	events  <-chan chat.StreamEvent
	errLine string

	width  int
	height int
	chatW  int
	chatH  int
	ready  bool
}

// NewModel creates the chat screen for a session.
func NewModel(opts Options) *Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	clipboard := opts.Clipboard
	if clipboard == nil {
		clipboard = os.Stdout
	}

	sett := opts.Session.Settings()

	input := textarea.New()
	input.Placeholder = "Ask your biology question here..."
	input.ShowLineNumbers = false
	input.SetHeight(inputHeight)
	input.Focus()

	chatView := chatview.New(opts.Markdown)
	chatView.SetPlaceholder(welcome.WelcomeMessage())
	chatView.SetMessages(opts.Session.History())

	status := statusbar.NewStatusBarView()
	status.SetModel(sett.Model)
	status.SetLevel(string(sett.ExplainLevel))
	status.SetMessageCount(opts.Session.Len())

	m := &Model{
		service:   opts.Service,
		session:   opts.Session,
		models:    append([]string(nil), opts.Models...),
		clipboard: clipboard,
		ctx:       ctx,
		chat:      chatView,
		settings:  settings.NewSettingsPanel(sett.Model, sett.ExplainLevel, opts.Endpoint),
		meta:      metadata.New(),
		picker:    picker.NewOptionPickerPanel(),
		status:    status,
		input:     input,
		focus:     focusInput,
	}
	if last, ok := opts.Session.LastAnswer(); ok {
		m.meta.SetAnswer(last)
	}
	return m
}

// Run starts the chat screen and blocks until the user quits.
func Run(ctx context.Context, opts Options) error {
	opts.Context = ctx
	p := tea.NewProgram(NewModel(opts), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.picker.SetSize(msg.Width, msg.Height)

	case tea.KeyPressMsg:
		cmd = m.handleKey(msg)

	case tea.PasteMsg:
		if m.focus == focusInput && !m.picker.IsVisible() {
			m.input.InsertString(msg.Content)
		}

	case tea.MouseWheelMsg:
		cmd = m.chat.Update(msg)

	case streamEventMsg:
		cmd = m.handleStreamEvent(msg.event)

	case settings.ModelChangedMsg:
		m.session.SetModel(msg.Model)
		m.status.SetModel(msg.Model)

	case settings.OpenPickerMsg:
		m.openPicker(msg.FieldKey)

	case picker.OptionPickerSelectMsg:
		m.applyPickerSelection(msg)

	case metadata.TopicSelectedMsg:
		m.status.SetMessage("Topic: " + msg.Topic)
	}

	m.layout()
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	key := msg.String()
	if key == "ctrl+c" {
		return tea.Quit
	}

	if m.picker.IsVisible() {
		return m.picker.Update(msg)
	}

	m.status.SetMessage("")

	switch key {
	case "tab":
		return m.cycleFocus(1)
	case "shift+tab":
		return m.cycleFocus(-1)
	case "ctrl+l":
		m.openPicker(settings.FieldExplainLevel)
		return nil
	case "ctrl+p":
		m.openPicker(settings.FieldModel)
		return nil
	case "ctrl+n":
		m.newConversation()
		return nil
	case "ctrl+y":
		return m.copyLastAnswer()
	case "pgup":
		m.chat.PageUp()
		return nil
	case "pgdown":
		m.chat.PageDown()
		return nil
	}

	switch m.focus {
	case focusSettings:
		return m.settings.Update(msg)
	case focusTopics:
		return m.meta.Update(msg)
	}

	if key == "enter" {
		return m.submit()
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

// submit starts a turn with the text in the input box.
func (m *Model) submit() tea.Cmd {
	if m.turn != nil {
		m.status.SetMessage("Still answering the previous question")
		return nil
	}
	question := strings.TrimSpace(m.input.Value())
	if question == "" {
		return nil
	}
	m.input.Reset()
	m.errLine = ""

	turn, err := m.service.Begin(m.ctx, m.session, question)
	m.syncHistory()
	if err != nil {
		m.showError(err)
		return nil
	}

	m.turn = turn
	m.events = chat.Events(turn)
	m.chat.StartStreaming()
	m.status.SetState("streaming")
	return waitForEvent(m.events)
}

func waitForEvent(events <-chan chat.StreamEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return streamEventMsg{event: chat.StreamEvent{Done: true}}
		}
		return streamEventMsg{event: ev}
	}
}

func (m *Model) handleStreamEvent(ev chat.StreamEvent) tea.Cmd {
	if m.turn == nil {
		return nil
	}
	if !ev.Done {
		m.chat.AppendFragment(ev.Delta)
		return waitForEvent(m.events)
	}

	result, err := m.turn.Finish()
	m.turn = nil
	m.events = nil
	m.chat.StopStreaming()
	m.syncHistory()
	m.status.SetState("ready")

	if err != nil {
		m.showError(err)
		return nil
	}
	m.meta.SetAnswer(result)
	return nil
}

func (m *Model) showError(err error) {
	if errors.Is(err, session.ErrSessionBusy) {
		m.status.SetMessage(err.Error())
		return
	}
	m.errLine = errorLinePrefix + err.Error()
}

func (m *Model) syncHistory() {
	m.chat.SetMessages(m.session.History())
	m.status.SetMessageCount(m.session.Len())
}

func (m *Model) newConversation() {
	if m.turn != nil {
		m.status.SetMessage("Wait for the current answer to finish")
		return
	}
	m.session.Reset()
	m.meta.Clear()
	m.errLine = ""
	m.syncHistory()
	if m.focus == focusTopics {
		m.setFocus(focusInput)
	}
	m.status.SetMessage("Started a new conversation")
}

func (m *Model) copyLastAnswer() tea.Cmd {
	last, ok := m.session.LastAnswer()
	if !ok {
		m.status.SetMessage("No answer to copy yet")
		return nil
	}
	m.status.SetMessage("Copied last answer")
	w := m.clipboard
	text := last.Answer
	return func() tea.Msg {
		_, _ = fmt.Fprint(w, osc52.New(text))
		return nil
	}
}

func (m *Model) openPicker(field string) {
	switch field {
	case settings.FieldExplainLevel:
		options := make([]picker.Option, 0, len(ai.ExplainLevels()))
		for _, level := range ai.ExplainLevels() {
			options = append(options, picker.Option{Value: string(level), Label: level.Audience()})
		}
		m.picker.Show("Explain it like I'm...", field, options, string(m.settings.Level()))

	case settings.FieldModel:
		current := m.settings.Model()
		seen := map[string]bool{}
		var options []picker.Option
		for _, name := range append(append([]string(nil), m.models...), current) {
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			options = append(options, picker.Option{Value: name})
		}
		m.picker.Show("Local models", field, options, current)
	}
}

func (m *Model) applyPickerSelection(msg picker.OptionPickerSelectMsg) {
	switch msg.FieldKey {
	case settings.FieldExplainLevel:
		level, err := ai.ParseExplainLevel(msg.Value)
		if err != nil {
			m.status.SetMessage(err.Error())
			return
		}
		m.session.SetExplainLevel(level)
		m.settings.SetLevel(level)
		m.status.SetLevel(string(level))

	case settings.FieldModel:
		m.settings.SetModel(msg.Value)
		m.session.SetModel(msg.Value)
		m.status.SetModel(msg.Value)
	}
}

func (m *Model) sidebarVisible() bool {
	return m.width >= minSidebarWidth
}

func (m *Model) cycleFocus(step int) tea.Cmd {
	order := []focusArea{focusInput}
	if m.sidebarVisible() {
		order = append(order, focusSettings)
	}
	if m.meta.HasTopics() {
		order = append(order, focusTopics)
	}

	index := 0
	for i, area := range order {
		if area == m.focus {
			index = i
			break
		}
	}
	index = (index + step + len(order)) % len(order)
	return m.setFocus(order[index])
}

func (m *Model) setFocus(area focusArea) tea.Cmd {
	m.focus = area
	m.input.Blur()
	m.settings.Blur()
	m.meta.Blur()

	switch area {
	case focusSettings:
		return m.settings.Focus()
	case focusTopics:
		m.meta.Focus()
		return nil
	default:
		return m.input.Focus()
	}
}

// layout sizes the components for the current window and panel contents.
func (m *Model) layout() {
	if !m.ready {
		return
	}

	mainW := m.width
	if m.sidebarVisible() {
		mainW = m.width - sidebarWidth - 1
		m.settings.SetSize(sidebarWidth, max(m.height-headerHeight-1, 1))
	}
	mainW = max(mainW, 20)

	m.meta.SetWidth(mainW)
	m.input.SetWidth(max(mainW-2, 10))
	m.status.SetWidth(m.width)

	chatH := m.height - headerHeight - 1 - (inputHeight + 2)
	if view := m.meta.View(); view != "" {
		chatH -= lipgloss.Height(view)
	}
	if m.errLine != "" {
		chatH--
	}
	chatH = max(chatH, minChatHeight)

	if mainW != m.chatW || chatH != m.chatH {
		m.chatW, m.chatH = mainW, chatH
		m.chat.SetSize(mainW, chatH)
	}
}

// View implements tea.Model.
func (m *Model) View() tea.View {
	if !m.ready {
		return tea.NewView("Loading...")
	}
	v := tea.NewView(m.render())
	v.AltScreen = true
	v.MouseMode = tea.MouseModeCellMotion
	v.WindowTitle = "BioAsk"
	return v
}

func (m *Model) render() string {
	mainW := m.chatW

	parts := []string{m.chat.View()}
	if meta := m.meta.View(); meta != "" {
		parts = append(parts, meta)
	}
	if m.errLine != "" {
		parts = append(parts, styles.ErrorStyle.Render(utils.TruncateToWidth(m.errLine, mainW)))
	}
	inputStyle := styles.PanelStyle
	if m.focus == focusInput {
		inputStyle = styles.PanelFocusedStyle
	}
	parts = append(parts, inputStyle.Width(mainW).Render(m.input.View()))
	main := lipgloss.JoinVertical(lipgloss.Left, parts...)

	body := main
	if m.sidebarVisible() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.settings.View(), " ", main)
	}

	screen := strings.Join([]string{
		welcome.Header(m.width),
		"",
		body,
	}, "\n")
	screen = fitHeight(screen, m.height-1) + "\n" + m.status.Render()

	if m.picker.IsVisible() {
		screen = render.OverlayCenter(screen, m.picker.View(), m.width, m.height)
	}
	return screen
}

// fitHeight pads or cuts s to exactly height lines.
func fitHeight(s string, height int) string {
	if height <= 0 {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
