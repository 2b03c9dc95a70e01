package render

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// MarkdownRenderer renders assistant answers for the terminal, caching one
// glamour renderer per wrap width.
type MarkdownRenderer struct {
	style string

	mu        sync.Mutex
	renderers map[int]*glamour.TermRenderer
}

// NewMarkdownRenderer creates a renderer using a glamour standard style
// ("dark", "light", "notty", ...). An empty style means "dark".
func NewMarkdownRenderer(style string) *MarkdownRenderer {
	if style == "" {
		style = "dark"
	}
	return &MarkdownRenderer{
		style:     style,
		renderers: make(map[int]*glamour.TermRenderer),
	}
}

// Render returns content rendered at width. On any renderer error the
// content is returned unchanged.
func (r *MarkdownRenderer) Render(content string, width int) string {
	if width < 10 {
		width = 10
	}
	tr, err := r.renderer(width)
	if err != nil {
		return content
	}
	out, err := tr.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}

func (r *MarkdownRenderer) renderer(width int) (*glamour.TermRenderer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tr, ok := r.renderers[width]; ok {
		return tr, nil
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(r.style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	r.renderers[width] = tr
	return tr, nil
}
