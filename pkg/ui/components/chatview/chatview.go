package chatview

import (
	"strings"

	"bioask/pkg/ai"
	"bioask/pkg/ui/components/utils"
	"bioask/pkg/ui/render"
	"bioask/pkg/ui/styles"

	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
)

// StreamCursor is appended to the assistant bubble while fragments arrive.
const StreamCursor = "▌"

// ChatView renders the conversation as a scrollable list of bubbles.
type ChatView struct {
	Viewport viewport.Model

	messages    []ai.Message
	placeholder string
	streaming   bool
	pending     strings.Builder

	markdown *render.MarkdownRenderer
	rendered map[int]string
	width    int
	height   int
	follow   bool
}

// New creates an empty chat view.
func New(markdown *render.MarkdownRenderer) *ChatView {
	if markdown == nil {
		markdown = render.NewMarkdownRenderer("")
	}
	return &ChatView{
		Viewport: viewport.New(),
		markdown: markdown,
		rendered: make(map[int]string),
		follow:   true,
	}
}

// SetSize updates the visible area.
func (c *ChatView) SetSize(width, height int) {
	if width != c.width {
		clear(c.rendered)
	}
	c.width = width
	c.height = height
	c.Viewport.SetWidth(width)
	c.Viewport.SetHeight(height)
	c.refresh()
}

// SetPlaceholder sets the content shown while the conversation is empty.
func (c *ChatView) SetPlaceholder(content string) {
	c.placeholder = content
	c.refresh()
}

// SetMessages replaces the conversation, typically from session history.
func (c *ChatView) SetMessages(messages []ai.Message) {
	c.messages = append([]ai.Message(nil), messages...)
	clear(c.rendered)
	c.follow = true
	c.refresh()
}

// Messages returns the messages currently shown.
func (c *ChatView) Messages() []ai.Message {
	return c.messages
}

// StartStreaming opens an empty assistant bubble.
func (c *ChatView) StartStreaming() {
	c.streaming = true
	c.pending.Reset()
	c.follow = true
	c.refresh()
}

// AppendFragment adds streamed text to the open bubble.
func (c *ChatView) AppendFragment(delta string) {
	if !c.streaming {
		return
	}
	c.pending.WriteString(utils.Sanitize(delta))
	c.refresh()
}

// StopStreaming closes the open bubble. The final text arrives via SetMessages.
func (c *ChatView) StopStreaming() {
	c.streaming = false
	c.pending.Reset()
	c.refresh()
}

// IsStreaming reports whether a bubble is open.
func (c *ChatView) IsStreaming() bool {
	return c.streaming
}

// PendingText returns the text streamed into the open bubble so far.
func (c *ChatView) PendingText() string {
	return c.pending.String()
}

// Clear removes all messages.
func (c *ChatView) Clear() {
	c.SetMessages(nil)
}

// PageUp scrolls up one page
func (c *ChatView) PageUp() {
	c.Viewport.PageUp()
	c.follow = c.Viewport.AtBottom()
}

// PageDown scrolls down one page
func (c *ChatView) PageDown() {
	c.Viewport.PageDown()
	c.follow = c.Viewport.AtBottom()
}

// Update forwards scroll keys and mouse wheel events to the viewport.
func (c *ChatView) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	c.Viewport, cmd = c.Viewport.Update(msg)
	c.follow = c.Viewport.AtBottom()
	return cmd
}

// View renders the visible part of the conversation.
func (c *ChatView) View() string {
	return c.Viewport.View()
}

// Content returns the full rendered conversation.
func (c *ChatView) Content() string {
	return c.renderAll()
}

func (c *ChatView) refresh() {
	c.Viewport.SetContent(c.renderAll())
	if c.follow {
		c.Viewport.GotoBottom()
	}
}

func (c *ChatView) renderAll() string {
	if len(c.messages) == 0 && !c.streaming {
		if c.placeholder != "" {
			return c.placeholder
		}
		return styles.TextMutedStyle.Render("Ask a biology question to get started.")
	}

	blocks := make([]string, 0, len(c.messages)+1)
	for i, msg := range c.messages {
		if cached, ok := c.rendered[i]; ok {
			blocks = append(blocks, cached)
			continue
		}
		block := c.renderMessage(msg)
		c.rendered[i] = block
		blocks = append(blocks, block)
	}

	if c.streaming {
		text := utils.Wrap(c.pending.String()+StreamCursor, c.innerWidth())
		blocks = append(blocks, c.bubble("BioAsk", text, styles.AssistantBubbleStyle))
	}

	return strings.Join(blocks, "\n")
}

func (c *ChatView) renderMessage(msg ai.Message) string {
	inner := c.innerWidth()
	switch {
	case msg.Role == ai.RoleUser:
		return c.bubble("You", utils.Wrap(utils.Sanitize(msg.Content), inner), styles.UserBubbleStyle)
	case ai.IsErrorEntry(msg.Content):
		return c.bubble("BioAsk", utils.Wrap(utils.Sanitize(msg.Content), inner), styles.ErrorBubbleStyle)
	default:
		return c.bubble("BioAsk", c.markdown.Render(msg.Content, inner), styles.AssistantBubbleStyle)
	}
}

func (c *ChatView) bubble(role, body string, style lipgloss.Style) string {
	label := styles.RoleStyle.Render(role)
	return label + "\n" + style.Render(body)
}

// innerWidth is the text width inside a bubble: border and padding take 4 cells.
func (c *ChatView) innerWidth() int {
	return max(c.width-4, 10)
}
