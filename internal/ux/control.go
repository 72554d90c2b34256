package ux

import "strings"

// ControlKind is a reserved word typed at the prompt.
type ControlKind int

const (
	// ControlNone means the text is an utterance to resolve.
	ControlNone ControlKind = iota
	ControlExit
	ControlHelp
	ControlSettings
	ControlClear
	ControlToggle
)

// Control is a parsed reserved command.
type Control struct {
	Kind    ControlKind
	Setting Setting // for ControlToggle
	On      bool    // for ControlToggle
}

var exitWords = map[string]bool{"exit": true, "quit": true, "bye": true}

// ParseControl recognizes the reserved words: exit/quit/bye, help,
// settings, clear and "<setting> on|off". Matching is exact and
// case-insensitive; anything else is ControlNone.
func ParseControl(text string) Control {
	words := strings.Fields(strings.ToLower(text))
	switch len(words) {
	case 0:
		return Control{}
	case 1:
		switch w := words[0]; {
		case exitWords[w]:
			return Control{Kind: ControlExit}
		case w == "help":
			return Control{Kind: ControlHelp}
		case w == "settings":
			return Control{Kind: ControlSettings}
		case w == "clear":
			return Control{Kind: ControlClear}
		}
		return Control{}
	}

	last := words[len(words)-1]
	if last != "on" && last != "off" {
		return Control{}
	}
	name := Setting(strings.Join(words[:len(words)-1], "-"))
	if _, err := (&Settings{}).field(name); err != nil {
		return Control{}
	}
	return Control{Kind: ControlToggle, Setting: name, On: last == "on"}
}
