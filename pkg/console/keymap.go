package console

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gdamore/tcell/v2"
)

// Action is an editing command the controller knows how to perform.
type Action int

const (
	ActionNone Action = iota
	ActionSubmit
	ActionNewline
	ActionLeft
	ActionRight
	ActionHome
	ActionEnd
	ActionHistoryPrev
	ActionHistoryNext
	ActionTab
	ActionBackspace
	ActionDelete
	ActionClearInput
	ActionCancelInput
)

var actionNames = map[Action]string{
	ActionNone:        "none",
	ActionSubmit:      "submit",
	ActionNewline:     "newline",
	ActionLeft:        "left",
	ActionRight:       "right",
	ActionHome:        "home",
	ActionEnd:         "end",
	ActionHistoryPrev: "history-prev",
	ActionHistoryNext: "history-next",
	ActionTab:         "tab",
	ActionBackspace:   "backspace",
	ActionDelete:      "delete",
	ActionClearInput:  "clear-input",
	ActionCancelInput: "cancel-input",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// ParseAction resolves an action by name.
func ParseAction(name string) (Action, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for action, n := range actionNames {
		if n == name {
			return action, nil
		}
	}
	return ActionNone, fmt.Errorf("unknown action %q", name)
}

// KeyStroke identifies a physical key press. Rune is only set for
// tcell.KeyRune.
type KeyStroke struct {
	Key  tcell.Key
	Rune rune
	Mod  tcell.ModMask
}

// KeyStrokeOf normalizes a tcell key event. Control characters already
// encode Ctrl in the key code, so the modifier bit is dropped for them.
func KeyStrokeOf(ev *tcell.EventKey) KeyStroke {
	ks := KeyStroke{Key: ev.Key(), Mod: ev.Modifiers()}
	if ks.Key == tcell.KeyRune {
		ks.Rune = ev.Rune()
	} else if ks.Key < tcell.KeyRune {
		ks.Mod &^= tcell.ModCtrl
	}
	return ks
}

func (ks KeyStroke) String() string {
	var parts []string
	if ks.Mod&tcell.ModCtrl != 0 {
		parts = append(parts, "ctrl")
	}
	if ks.Mod&tcell.ModAlt != 0 {
		parts = append(parts, "alt")
	}
	if ks.Mod&tcell.ModMeta != 0 {
		parts = append(parts, "meta")
	}
	if ks.Mod&tcell.ModShift != 0 {
		parts = append(parts, "shift")
	}
	switch {
	case ks.Key == tcell.KeyRune:
		parts = append(parts, string(ks.Rune))
	case ks.Key >= tcell.KeyCtrlA && ks.Key <= tcell.KeyCtrlZ && ks.Key != tcell.KeyTab &&
		ks.Key != tcell.KeyEnter && ks.Key != tcell.KeyBackspace:
		parts = append(parts, "ctrl", string(rune('a'+int(ks.Key-tcell.KeyCtrlA))))
	default:
		if name, ok := tcell.KeyNames[ks.Key]; ok {
			parts = append(parts, strings.ToLower(name))
		} else {
			parts = append(parts, fmt.Sprintf("key%d", int(ks.Key)))
		}
	}
	return strings.Join(parts, "+")
}

// ParseKeyStroke parses strings such as "enter", "shift+enter", "ctrl+d"
// or "up".
func ParseKeyStroke(s string) (KeyStroke, error) {
	fields := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	if len(fields) == 0 || fields[len(fields)-1] == "" {
		return KeyStroke{}, fmt.Errorf("empty key stroke %q", s)
	}

	var mod tcell.ModMask
	for _, m := range fields[:len(fields)-1] {
		switch m {
		case "ctrl", "control":
			mod |= tcell.ModCtrl
		case "alt":
			mod |= tcell.ModAlt
		case "meta":
			mod |= tcell.ModMeta
		case "shift":
			mod |= tcell.ModShift
		default:
			return KeyStroke{}, fmt.Errorf("unknown modifier %q in %q", m, s)
		}
	}

	name := fields[len(fields)-1]
	if r := []rune(name); len(r) == 1 {
		if mod&tcell.ModCtrl != 0 && r[0] >= 'a' && r[0] <= 'z' {
			return KeyStroke{Key: tcell.KeyCtrlA + tcell.Key(r[0]-'a'), Mod: mod &^ tcell.ModCtrl}, nil
		}
		return KeyStroke{Key: tcell.KeyRune, Rune: r[0], Mod: mod}, nil
	}
	for key, keyName := range tcell.KeyNames {
		if strings.ToLower(keyName) == name {
			return KeyStroke{Key: key, Mod: mod}, nil
		}
	}
	return KeyStroke{}, fmt.Errorf("unknown key %q in %q", name, s)
}

// KeyBindingConfig maps key strokes to actions. The zero value has no
// bindings; copies made with Clone are independent.
type KeyBindingConfig struct {
	bindings map[KeyStroke]Action
}

// DefaultKeyBindings returns the standard console bindings.
func DefaultKeyBindings() KeyBindingConfig {
	k := KeyBindingConfig{bindings: make(map[KeyStroke]Action)}
	k.Bind(KeyStroke{Key: tcell.KeyEnter}, ActionSubmit)
	k.Bind(KeyStroke{Key: tcell.KeyEnter, Mod: tcell.ModShift}, ActionNewline)
	k.Bind(KeyStroke{Key: tcell.KeyLeft}, ActionLeft)
	k.Bind(KeyStroke{Key: tcell.KeyRight}, ActionRight)
	k.Bind(KeyStroke{Key: tcell.KeyHome}, ActionHome)
	k.Bind(KeyStroke{Key: tcell.KeyEnd}, ActionEnd)
	k.Bind(KeyStroke{Key: tcell.KeyUp}, ActionHistoryPrev)
	k.Bind(KeyStroke{Key: tcell.KeyDown}, ActionHistoryNext)
	k.Bind(KeyStroke{Key: tcell.KeyTab}, ActionTab)
	k.Bind(KeyStroke{Key: tcell.KeyBackspace}, ActionBackspace)
	k.Bind(KeyStroke{Key: tcell.KeyBackspace2}, ActionBackspace)
	k.Bind(KeyStroke{Key: tcell.KeyDelete}, ActionDelete)
	k.Bind(KeyStroke{Key: tcell.KeyEsc}, ActionClearInput)
	k.Bind(KeyStroke{Key: tcell.KeyCtrlD}, ActionCancelInput)
	return k
}

// Bind maps ks to action. Binding ActionNone removes the mapping.
func (k *KeyBindingConfig) Bind(ks KeyStroke, action Action) {
	if k.bindings == nil {
		k.bindings = make(map[KeyStroke]Action)
	}
	if action == ActionNone {
		delete(k.bindings, ks)
		return
	}
	k.bindings[ks] = action
}

// Lookup resolves a tcell key event.
func (k KeyBindingConfig) Lookup(ev *tcell.EventKey) (Action, bool) {
	return k.LookupStroke(KeyStrokeOf(ev))
}

// LookupStroke resolves a key stroke.
func (k KeyBindingConfig) LookupStroke(ks KeyStroke) (Action, bool) {
	action, ok := k.bindings[ks]
	return action, ok
}

// Clone returns an independent copy.
func (k KeyBindingConfig) Clone() KeyBindingConfig {
	c := KeyBindingConfig{bindings: make(map[KeyStroke]Action, len(k.bindings))}
	for ks, a := range k.bindings {
		c.bindings[ks] = a
	}
	return c
}

// Len returns the number of bindings.
func (k KeyBindingConfig) Len() int {
	return len(k.bindings)
}

// Binding pairs a key stroke with its action.
type Binding struct {
	Stroke KeyStroke
	Action Action
}

// Bindings lists the bindings ordered by action, then key name.
func (k KeyBindingConfig) Bindings() []Binding {
	list := make([]Binding, 0, len(k.bindings))
	for ks, a := range k.bindings {
		list = append(list, Binding{Stroke: ks, Action: a})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Action != list[j].Action {
			return list[i].Action < list[j].Action
		}
		return list[i].Stroke.String() < list[j].Stroke.String()
	})
	return list
}
