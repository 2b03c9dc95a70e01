package welcome

import (
	"fmt"
	"strings"

	"bioask/pkg/ui/components/utils"
	"bioask/pkg/ui/styles"
	"bioask/pkg/version"

	"github.com/mattn/go-runewidth"
)

const (
	// Title is the application banner.
	Title = "🧬 BioAsk: Your Interactive Biology Q&A Assistant"
	// Intro is shown under the title.
	Intro = "Welcome to BioAsk! Ask any biology question, and I'll help you understand the concept."
)

// Header returns the title banner and intro line fitted to width.
func Header(width int) string {
	title := styles.AppTitleStyle.Render(utils.TruncateToWidth(Title, max(width-2, 1)))
	intro := styles.TextMutedStyle.Render(utils.TruncateToWidth(Intro, max(width, 1)))
	return title + "\n" + intro
}

// WelcomeMessage returns the shortcut box shown before the first question.
func WelcomeMessage() string {
	const boxWidth = 53 // Total inner width

	makeLine := func(content string, visualWidth int) string {
		pad := max(boxWidth-visualWidth, 0)
		return styles.WelcomeBorderStyle.Render("│") + content + strings.Repeat(" ", pad) + styles.WelcomeBorderStyle.Render("│")
	}

	top := styles.WelcomeBorderStyle.Render("╭" + strings.Repeat("─", boxWidth) + "╮")
	bottom := styles.WelcomeBorderStyle.Render("╰" + strings.Repeat("─", boxWidth) + "╯")
	empty := makeLine("", 0)

	var lines []string
	lines = append(lines, top)

	titleText := "Ask your biology question below"
	rawTitleWidth := runewidth.StringWidth(titleText)
	titleLeftPad := (boxWidth - rawTitleWidth) / 2
	titleLine := strings.Repeat(" ", titleLeftPad) + styles.WelcomeTitleStyle.Render(titleText)
	lines = append(lines, makeLine(titleLine, titleLeftPad+rawTitleWidth))

	lines = append(lines, empty)

	shortcutsHeader := "  Shortcuts:"
	lines = append(lines, makeLine(styles.WelcomeHeaderStyle.Render(shortcutsHeader), runewidth.StringWidth(shortcutsHeader)))

	for _, s := range Shortcuts() {
		keyFormatted := fmt.Sprintf("    %-10s", s.Key)
		line := styles.WelcomeKeyStyle.Render(keyFormatted) + styles.TextStyle.Render(s.Desc)
		lineWidth := runewidth.StringWidth(keyFormatted) + runewidth.StringWidth(s.Desc)
		lines = append(lines, makeLine(line, lineWidth))
	}

	lines = append(lines, empty)

	versionText := "bioask " + version.Summary()
	if runewidth.StringWidth(versionText) > boxWidth-4 {
		versionText = utils.TruncateToWidth(versionText, boxWidth-4)
	}
	versionLeftPad := (boxWidth - runewidth.StringWidth(versionText)) / 2
	versionLine := strings.Repeat(" ", versionLeftPad) + styles.WelcomeVersionStyle.Render(versionText)
	lines = append(lines, makeLine(versionLine, versionLeftPad+runewidth.StringWidth(versionText)))

	lines = append(lines, bottom)

	return strings.Join(lines, "\n")
}

// Shortcut is one key binding listed in the welcome box and footer.
type Shortcut struct {
	Key  string
	Desc string
}

// Shortcuts returns the key bindings of the chat screen.
func Shortcuts() []Shortcut {
	return []Shortcut{
		{"Enter", "Send question"},
		{"Tab", "Cycle focus (input, settings, topics)"},
		{"Ctrl+L", "Choose explanation level"},
		{"Ctrl+P", "Choose from installed models"},
		{"Ctrl+N", "Start a new conversation"},
		{"Ctrl+Y", "Copy last answer"},
		{"PgUp/PgDn", "Scroll conversation"},
		{"Ctrl+C", "Quit"},
	}
}
