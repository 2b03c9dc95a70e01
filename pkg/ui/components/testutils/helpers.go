package testutils

import (
	tea "charm.land/bubbletea/v2"
)

// NewKeyPressMsg creates a KeyPressMsg from a key code (for special keys)
func NewKeyPressMsg(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg(tea.Key{Code: code})
}

// NewTextKeyPressMsg creates a KeyPressMsg for text input
func NewTextKeyPressMsg(text string) tea.KeyPressMsg {
	if len(text) == 0 {
		return tea.KeyPressMsg(tea.Key{})
	}
	r := []rune(text)[0]
	return tea.KeyPressMsg(tea.Key{
		Code: r,
		Text: text,
	})
}

// NewCtrlKeyPressMsg creates a Ctrl+<char> key press.
func NewCtrlKeyPressMsg(char rune) tea.KeyPressMsg {
	return tea.KeyPressMsg(tea.Key{
		Code: char,
		Mod:  tea.ModCtrl,
	})
}

// TypeText returns one key press per rune of text.
func TypeText(text string) []tea.KeyPressMsg {
	msgs := make([]tea.KeyPressMsg, 0, len(text))
	for _, r := range text {
		msgs = append(msgs, NewTextKeyPressMsg(string(r)))
	}
	return msgs
}

var (
	TestKeyUp        = NewKeyPressMsg(tea.KeyUp)
	TestKeyDown      = NewKeyPressMsg(tea.KeyDown)
	TestKeyLeft      = NewKeyPressMsg(tea.KeyLeft)
	TestKeyRight     = NewKeyPressMsg(tea.KeyRight)
	TestKeyEnter     = NewKeyPressMsg(tea.KeyEnter)
	TestKeyTab       = NewKeyPressMsg(tea.KeyTab)
	TestKeyEsc       = NewKeyPressMsg(tea.KeyEscape)
	TestKeyBackspace = NewKeyPressMsg(tea.KeyBackspace)
	TestKeyHome      = NewKeyPressMsg(tea.KeyHome)
	TestKeyEnd       = NewKeyPressMsg(tea.KeyEnd)
	TestKeyPgUp      = NewKeyPressMsg(tea.KeyPgUp)
	TestKeyPgDown    = NewKeyPressMsg(tea.KeyPgDown)
)

// Shortcut keys
var (
	TestKeyCtrlC = NewCtrlKeyPressMsg('c')
	TestKeyCtrlL = NewCtrlKeyPressMsg('l')
	TestKeyCtrlN = NewCtrlKeyPressMsg('n')
	TestKeyCtrlP = NewCtrlKeyPressMsg('p')
	TestKeyCtrlY = NewCtrlKeyPressMsg('y')
)
