package utils

import (
	"strings"
	"testing"

	"charm.land/lipgloss/v2"
)

func TestTruncateToWidth(t *testing.T) {
	tests := []struct {
		text  string
		width int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"hello", 2, "he"},
		{"hello", 0, ""},
	}
	for _, tt := range tests {
		if got := TruncateToWidth(tt.text, tt.width); got != tt.want {
			t.Errorf("TruncateToWidth(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
		}
	}
}

func TestPadPlain(t *testing.T) {
	if got := PadPlain("ab", 5); got != "ab   " {
		t.Errorf("PadPlain() = %q", got)
	}
	if got := PadPlain("abcdef", 3); got != "abcdef" {
		t.Errorf("PadPlain() must not truncate, got %q", got)
	}
}

func TestPadStyled(t *testing.T) {
	styled := lipgloss.NewStyle().Bold(true).Render("ab")
	if got := lipgloss.Width(PadStyled(styled, 6)); got != 6 {
		t.Errorf("Expected padded width 6, got %d", got)
	}
}

func TestSanitize(t *testing.T) {
	input := "\x1b[31mred\x1b[0m text\x07\nnext\tline"
	if got := Sanitize(input); got != "red text\nnext\tline" {
		t.Errorf("Sanitize() = %q", got)
	}
	if Sanitize("") != "" {
		t.Error("Expected empty output for empty input")
	}
}

func TestWrap(t *testing.T) {
	wrapped := Wrap("the quick brown fox jumps", 10)
	for _, line := range strings.Split(wrapped, "\n") {
		if lipgloss.Width(line) > 10 {
			t.Errorf("line %q exceeds width", line)
		}
	}
	if Wrap("abc", 0) != "abc" {
		t.Error("Expected passthrough for zero width")
	}
}
