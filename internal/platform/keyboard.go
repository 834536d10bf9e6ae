package platform

import (
	"context"
	"strings"
)

// Keyboard injects synthetic key events into the focused window.
type Keyboard interface {
	Hotkey(ctx context.Context, keys ...string) error
	Type(ctx context.Context, text string) error
	Press(ctx context.Context, key string) error
}

// NewKeyboard returns the driver named by the profile, or nil when the host
// has none.
func NewKeyboard(driver string, runner Runner) Keyboard {
	switch driver {
	case "xdotool":
		return &xdotool{run: runner}
	case "powershell":
		return &sendKeys{run: runner}
	case "osascript":
		return &appleScript{run: runner}
	default:
		return nil
	}
}

// xdotool drives X11 sessions.
type xdotool struct{ run Runner }

var xdotoolKeys = map[string]string{
	"enter": "Return",
	"tab":   "Tab",
	"ctrl":  "ctrl",
	"esc":   "Escape",
}

func (x *xdotool) key(k string) string {
	if mapped, ok := xdotoolKeys[k]; ok {
		return mapped
	}
	return k
}

func (x *xdotool) Hotkey(ctx context.Context, keys ...string) error {
	mapped := make([]string, len(keys))
	for i, k := range keys {
		mapped[i] = x.key(k)
	}
	return x.run.Run(ctx, "xdotool", "key", "--clearmodifiers", strings.Join(mapped, "+"))
}

func (x *xdotool) Type(ctx context.Context, text string) error {
	return x.run.Run(ctx, "xdotool", "type", "--delay", "50", "--", text)
}

func (x *xdotool) Press(ctx context.Context, key string) error {
	return x.run.Run(ctx, "xdotool", "key", x.key(key))
}

// sendKeys drives Windows through System.Windows.Forms.SendKeys.
type sendKeys struct{ run Runner }

var sendKeysNames = map[string]string{
	"enter": "{ENTER}",
	"tab":   "{TAB}",
	"esc":   "{ESC}",
}

var sendKeysModifiers = map[string]string{
	"ctrl":  "^",
	"shift": "+",
	"alt":   "%",
}

func (s *sendKeys) send(ctx context.Context, keys string) error {
	script := "Add-Type -AssemblyName System.Windows.Forms; " +
		"[System.Windows.Forms.SendKeys]::SendWait('" + strings.ReplaceAll(keys, "'", "''") + "')"
	return s.run.Run(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", script)
}

func (s *sendKeys) Hotkey(ctx context.Context, keys ...string) error {
	var b strings.Builder
	for _, k := range keys {
		if mod, ok := sendKeysModifiers[k]; ok {
			b.WriteString(mod)
			continue
		}
		b.WriteString(sendKeysLiteral(k))
	}
	return s.send(ctx, b.String())
}

func (s *sendKeys) Type(ctx context.Context, text string) error {
	return s.send(ctx, sendKeysLiteral(text))
}

func (s *sendKeys) Press(ctx context.Context, key string) error {
	if name, ok := sendKeysNames[key]; ok {
		return s.send(ctx, name)
	}
	return s.send(ctx, sendKeysLiteral(key))
}

// sendKeysLiteral braces every character SendKeys treats as syntax.
func sendKeysLiteral(text string) string {
	var b strings.Builder
	for _, r := range text {
		switch r {
		case '+', '^', '%', '~', '(', ')', '{', '}', '[', ']':
			b.WriteByte('{')
			b.WriteRune(r)
			b.WriteByte('}')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// appleScript drives macOS through System Events.
type appleScript struct{ run Runner }

var appleKeyCodes = map[string]string{
	"enter": "36",
	"tab":   "48",
	"esc":   "53",
}

// ctrl maps to command so the same chords work as on other platforms.
var appleModifiers = map[string]string{
	"ctrl":  "command down",
	"shift": "shift down",
	"alt":   "option down",
}

func (a *appleScript) tell(ctx context.Context, stmt string) error {
	return a.run.Run(ctx, "osascript", "-e", `tell application "System Events" to `+stmt)
}

func (a *appleScript) Hotkey(ctx context.Context, keys ...string) error {
	var mods []string
	var key string
	for _, k := range keys {
		if m, ok := appleModifiers[k]; ok {
			mods = append(mods, m)
			continue
		}
		key = k
	}
	stmt := "keystroke " + appleQuote(key)
	if code, ok := appleKeyCodes[key]; ok {
		stmt = "key code " + code
	}
	if len(mods) > 0 {
		stmt += " using {" + strings.Join(mods, ", ") + "}"
	}
	return a.tell(ctx, stmt)
}

func (a *appleScript) Type(ctx context.Context, text string) error {
	return a.tell(ctx, "keystroke "+appleQuote(text))
}

func (a *appleScript) Press(ctx context.Context, key string) error {
	if code, ok := appleKeyCodes[key]; ok {
		return a.tell(ctx, "key code "+code)
	}
	return a.tell(ctx, "keystroke "+appleQuote(key))
}

func appleQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
