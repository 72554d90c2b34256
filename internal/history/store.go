// Package history is the short-term memory of a session: the last few
// resolved commands and the entities they mentioned, used to resolve
// references such as "that file".
package history

import (
	"strings"
	"sync"

	"saysh/internal/actions"
	"saysh/internal/logging"
)

// Entity categories.
const (
	FilePaths      = "file_paths"
	DirectoryPaths = "directory_paths"
	Options        = "options"
	Quoted         = "quoted"
	Nouns          = "nouns"
	ProperNouns    = "proper_nouns"
)

// DefaultWindow is how many commands the store keeps.
const DefaultWindow = 10

// Entities maps a category to the values seen for it, in mention order.
type Entities map[string][]string

// Clone returns a deep copy.
func (e Entities) Clone() Entities {
	out := make(Entities, len(e))
	for k, v := range e {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// First returns the first value of a category.
func (e Entities) First(category string) (string, bool) {
	if v := e[category]; len(v) > 0 {
		return v[0], true
	}
	return "", false
}

// Command is one resolved utterance.
type Command struct {
	Action   actions.ID `json:"action"`
	Args     []string   `json:"args"`
	Entities Entities   `json:"entities"`
	Text     string     `json:"original_text"`
}

// String renders the command for previews.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return string(c.Action)
	}
	return string(c.Action) + " " + strings.Join(c.Args, " ")
}

// Store is a bounded, recency-ordered command window plus the most recent
// value set per entity category.
type Store struct {
	mu       sync.RWMutex
	window   int
	commands []Command
	last     Entities
}

// NewStore returns a store keeping at most window commands.
func NewStore(window int) *Store {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Store{window: window, last: make(Entities)}
}

// Add records cmd, evicting the oldest command past the window. Categories
// cmd mentions replace the stored values; categories it leaves empty keep
// their previous values.
func (s *Store) Add(cmd Command) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cmd.Args = append([]string(nil), cmd.Args...)
	cmd.Entities = cmd.Entities.Clone()

	s.commands = append(s.commands, cmd)
	if len(s.commands) > s.window {
		s.commands = append([]Command(nil), s.commands[len(s.commands)-s.window:]...)
	}

	for category, values := range cmd.Entities {
		if len(values) == 0 {
			continue
		}
		s.last[category] = append([]string(nil), values...)
	}
	logging.ContextDebug("Recorded %s (window %d/%d)", cmd.Action, len(s.commands), s.window)
}

// Entities returns a copy of the most recent values per category.
func (s *Store) Entities() Entities {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last.Clone()
}

// Recent returns up to n commands, newest first.
func (s *Store) Recent(n int) []Command {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > len(s.commands) {
		n = len(s.commands)
	}
	out := make([]Command, 0, n)
	for i := len(s.commands) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.commands[i])
	}
	return out
}

// Last returns the newest command.
func (s *Store) Last() (Command, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.commands) == 0 {
		return Command{}, false
	}
	return s.commands[len(s.commands)-1], true
}

// Len returns how many commands are held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.commands)
}
