// File: internal/browser/keys.go
package browser

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp/kb"
)

// KeyCombination is one key press with its held modifiers.
type KeyCombination struct {
	Key       string
	Modifiers []input.Modifier
}

var modifierNames = map[string]input.Modifier{
	"alt":     input.ModifierAlt,
	"control": input.ModifierCtrl,
	"ctrl":    input.ModifierCtrl,
	"meta":    input.ModifierMeta,
	"command": input.ModifierMeta,
	"cmd":     input.ModifierMeta,
	"shift":   input.ModifierShift,
}

// Single-letter prefixes as in "C-a" or "S-<Tab>".
var modifierPrefixes = map[byte]input.Modifier{
	'A': input.ModifierAlt,
	'C': input.ModifierCtrl,
	'M': input.ModifierMeta,
	'S': input.ModifierShift,
}

var namedKeys = map[string]string{
	"enter":      kb.Enter,
	"return":     kb.Enter,
	"tab":        kb.Tab,
	"backspace":  kb.Backspace,
	"delete":     kb.Delete,
	"escape":     kb.Escape,
	"esc":        kb.Escape,
	"space":      " ",
	"arrowup":    kb.ArrowUp,
	"arrowdown":  kb.ArrowDown,
	"arrowleft":  kb.ArrowLeft,
	"arrowright": kb.ArrowRight,
	"up":         kb.ArrowUp,
	"down":       kb.ArrowDown,
	"left":       kb.ArrowLeft,
	"right":      kb.ArrowRight,
	"home":       kb.Home,
	"end":        kb.End,
	"pageup":     kb.PageUp,
	"pagedown":   kb.PageDown,
}

// ParseKeyCombination reads "Control+Shift+a", "Enter", "C-c" or "<Enter>".
func ParseKeyCombination(s string) (KeyCombination, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return KeyCombination{}, fmt.Errorf("empty key combination")
	}

	var comb KeyCombination
	// "C-a" style: single-letter modifier prefixes.
	for len(s) > 2 && s[1] == '-' {
		mod, ok := modifierPrefixes[s[0]]
		if !ok {
			break
		}
		comb.Modifiers = append(comb.Modifiers, mod)
		s = s[2:]
	}

	parts := []string{s}
	if s != "+" && strings.Contains(s, "+") {
		parts = strings.Split(s, "+")
		// "Control++" names the plus key itself.
		if strings.HasSuffix(s, "++") {
			parts = append(parts[:len(parts)-2], "+")
		}
	}
	for _, name := range parts[:len(parts)-1] {
		mod, ok := modifierNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return KeyCombination{}, fmt.Errorf("unknown modifier %q in %q", name, s)
		}
		comb.Modifiers = append(comb.Modifiers, mod)
	}

	key, err := resolveKey(parts[len(parts)-1])
	if err != nil {
		return KeyCombination{}, err
	}
	comb.Key = key
	return comb, nil
}

func resolveKey(name string) (string, error) {
	if utf8.RuneCountInString(name) == 1 {
		return name, nil
	}
	trimmed := strings.TrimSuffix(strings.TrimPrefix(name, "<"), ">")
	if key, ok := namedKeys[strings.ToLower(trimmed)]; ok {
		return key, nil
	}
	if utf8.RuneCountInString(trimmed) == 1 {
		return trimmed, nil
	}
	return "", fmt.Errorf("unknown key %q", name)
}
