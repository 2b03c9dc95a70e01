package render

import (
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
)

// CenterRect returns a rectangle centered within the screen bounds.
// Width/height are clamped to the screen size before centering.
func CenterRect(panelW, panelH, screenW, screenH int) (x, y, w, h int) {
	w = max(panelW, 0)
	h = max(panelH, 0)
	screenW = max(screenW, 0)
	screenH = max(screenH, 0)
	w = min(w, screenW)
	h = min(h, screenH)
	if screenW > w {
		x = (screenW - w) / 2
	}
	if screenH > h {
		y = (screenH - h) / 2
	}
	return ClampRect(x, y, w, h, screenW, screenH)
}

// ClampRect clamps a rectangle to the screen bounds.
func ClampRect(x, y, w, h, screenW, screenH int) (int, int, int, int) {
	screenW = max(screenW, 0)
	screenH = max(screenH, 0)
	w = max(w, 0)
	h = max(h, 0)
	x = min(max(x, 0), screenW)
	y = min(max(y, 0), screenH)
	if x+w > screenW {
		w = screenW - x
	}
	if y+h > screenH {
		h = screenH - y
	}
	return x, y, max(w, 0), max(h, 0)
}

// OverlayCenter draws panel on top of base, centered in a screenW x screenH area.
// Lines of base outside the panel keep their styling.
func OverlayCenter(base, panel string, screenW, screenH int) string {
	if panel == "" {
		return base
	}
	panelLines := strings.Split(panel, "\n")
	x, y, w, h := CenterRect(lipgloss.Width(panel), len(panelLines), screenW, screenH)
	if w == 0 || h == 0 {
		return base
	}

	baseLines := strings.Split(base, "\n")
	for len(baseLines) < screenH {
		baseLines = append(baseLines, "")
	}

	for i := 0; i < h; i++ {
		row := y + i
		line := baseLines[row]
		left := ansi.Truncate(line, x, "")
		if gap := x - ansi.StringWidth(left); gap > 0 {
			left += strings.Repeat(" ", gap)
		}
		middle := ansi.Truncate(panelLines[i], w, "")
		right := ""
		if ansi.StringWidth(line) > x+w {
			right = ansi.TruncateLeft(line, x+w, "")
		}
		baseLines[row] = left + middle + right
	}

	return strings.Join(baseLines, "\n")
}
