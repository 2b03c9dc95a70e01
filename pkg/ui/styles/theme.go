// Package styles provides the shared theme for the bioask terminal UI.
// Components pull colors and styles from here instead of defining their own.
package styles

import (
	"charm.land/lipgloss/v2"
)

// Color palette - ANSI 256 colors used throughout the application
var (
	// Primary accent color (green, for biology)
	ColorAccent = lipgloss.Color("77")

	// Text colors
	ColorText       = lipgloss.Color("252") // Primary text
	ColorTextMuted  = lipgloss.Color("245") // Secondary/muted text
	ColorTextBright = lipgloss.Color("15")  // Bright/highlighted text

	// Semantic colors
	ColorError   = lipgloss.Color("196")
	ColorWarning = lipgloss.Color("214")
	ColorSuccess = lipgloss.Color("42")

	ColorUser      = lipgloss.Color("111") // User bubble border
	ColorAssistant = lipgloss.Color("77")  // Assistant bubble border
	ColorChip      = lipgloss.Color("236") // Topic chip background

	ColorPlaceholder = lipgloss.Color("240")

	// Border colors
	ColorBorder      = lipgloss.Color("77")
	ColorBorderMuted = lipgloss.Color("238")
)

// Panel/Box styles
var (
	// BoxStyle is the default rounded box for overlays and panels
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(1, 2)

	// PanelStyle frames the sidebar and metadata panels
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorderMuted).
			Padding(0, 1)

	// PanelFocusedStyle marks the panel that receives keys
	PanelFocusedStyle = PanelStyle.
				BorderForeground(ColorBorder)
)

// Text styles
var (
	// TitleStyle for panel/section titles
	TitleStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	// AppTitleStyle is the banner line at the top of the screen
	AppTitleStyle = lipgloss.NewStyle().
			Foreground(ColorTextBright).
			Background(lipgloss.Color("28")).
			Padding(0, 1).
			Bold(true)

	TextStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	// TextMutedStyle for secondary/helper text
	TextMutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Italic(true)

	TextBoldStyle = lipgloss.NewStyle().
			Foreground(ColorText).
			Bold(true)
)

// Selection and highlighting
var (
	// SelectedStyle for highlighted/selected items
	SelectedStyle = lipgloss.NewStyle().
			Foreground(ColorTextBright).
			Background(ColorAccent).
			Bold(true)
)

// Form styles
var (
	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	ValueStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	PlaceholderStyle = lipgloss.NewStyle().
				Foreground(ColorPlaceholder).
				Italic(true)
)

// Feedback styles
var (
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	// FooterStyle for footer/help text
	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Italic(true)
)

// Chat styles
var (
	UserBubbleStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorUser).
			Padding(0, 1)

	AssistantBubbleStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorAssistant).
				Padding(0, 1)

	ErrorBubbleStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorError).
				Foreground(ColorError).
				Padding(0, 1)

	// RoleStyle labels each bubble
	RoleStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Bold(true)
)

// Metadata styles
var (
	// MetricValueStyle renders the confidence score
	MetricValueStyle = lipgloss.NewStyle().
				Foreground(ColorSuccess).
				Bold(true)

	ChipStyle = lipgloss.NewStyle().
			Foreground(ColorText).
			Background(ColorChip).
			Padding(0, 1)

	ChipSelectedStyle = lipgloss.NewStyle().
				Foreground(ColorTextBright).
				Background(ColorAccent).
				Bold(true).
				Padding(0, 1)
)

// Welcome message styles
var (
	WelcomeBorderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("71"))

	WelcomeTitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("120")).
				Bold(true)

	WelcomeKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("222")).
			Bold(true)

	WelcomeHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("248"))

	// WelcomeVersionStyle for version info (dimmed)
	WelcomeVersionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("244"))
)

// Status bar styles
var (
	// StatusBarStyle is the footer bar at the bottom of the screen
	StatusBarStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color("#2E7D32")).
		Padding(0, 1).
		Bold(true)
)
