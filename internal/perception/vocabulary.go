package perception

import (
	"sort"
	"strings"

	"saysh/internal/actions"
)

var builtinPhrases = map[actions.ID][]string{
	actions.ListFiles: {
		"list files", "show files", "ls", "list", "list directory", "list contents",
		"show directory contents", "what files are here", "dir",
	},
	actions.ShowPath: {
		"show current directory", "pwd", "where am i", "current directory",
		"print working directory", "show path",
	},
	actions.ChangeDirectory: {
		"change directory", "cd", "go to", "go into", "enter directory", "switch to directory",
	},
	actions.MakeDirectory: {
		"make directory", "create directory", "mkdir", "create folder", "make folder",
		"new folder", "new directory",
	},
	actions.DeleteDirectory: {
		"delete directory", "remove directory", "delete folder", "remove folder", "rmdir",
	},
	actions.CreateFile: {
		"create file", "make file", "touch", "new file", "create new file",
	},
	actions.DeleteFile: {
		"delete file", "remove file", "rm", "erase file",
	},
	actions.DisplayFile: {
		"display file", "show content of", "show contents of", "cat", "read file",
		"open file", "print file", "view file", "show file",
	},
	actions.MoveRename: {
		"move file", "rename file", "mv", "rename", "move",
	},
	actions.CopyFile: {
		"copy file", "cp", "duplicate file", "copy",
	},
	actions.WhoAmI: {
		"whoami", "who am i", "current user", "show user",
	},
	actions.ShowProcesses: {
		"show processes", "list processes", "running processes", "ps", "process list",
	},
	actions.DiskUsage: {
		"disk usage", "disk space", "check disk space", "df", "free space",
	},
	actions.MemoryUsage: {
		"memory usage", "check memory", "show memory", "ram usage", "free memory",
	},
	actions.GitStatus: {
		"git status", "check git status", "repository status", "repo status",
	},
	actions.GitInit: {
		"git init", "initialize repository", "init repo", "initialize git", "create repository",
	},
	actions.GitCommit: {
		"git commit", "commit changes", "commit", "save changes to git",
	},
	actions.CountLines: {
		"count lines", "line count", "wc", "how many lines", "count",
	},
	actions.SortLines: {
		"sort lines", "sort", "sort output", "sort alphabetically",
	},
	actions.FindText: {
		"find text", "search for", "search text", "find text in files", "look for",
	},
	actions.Grep: {
		"grep", "filter lines", "filter", "grep for",
	},
	actions.FindFiles: {
		"find files", "find file", "locate file", "search files",
	},
}

type phrase struct {
	text   string
	words  []string
	action actions.ID
}

// Vocabulary maps phrases to actions. It is immutable; Overlay returns a
// new vocabulary.
type Vocabulary struct {
	entries map[string]actions.ID
	phrases []phrase
}

// NewVocabulary builds a vocabulary from a phrase table.
func NewVocabulary(m map[string]actions.ID) *Vocabulary {
	v := &Vocabulary{entries: make(map[string]actions.ID, len(m))}
	for p, id := range m {
		key := strings.Join(strings.Fields(strings.ToLower(p)), " ")
		if key == "" || id == "" || id.IsTerminal() {
			continue
		}
		v.entries[key] = id
	}
	v.index()
	return v
}

// DefaultVocabulary returns the built-in phrase table.
func DefaultVocabulary() *Vocabulary {
	m := make(map[string]actions.ID)
	for id, phrases := range builtinPhrases {
		for _, p := range phrases {
			m[p] = id
		}
	}
	return NewVocabulary(m)
}

func (v *Vocabulary) index() {
	v.phrases = v.phrases[:0]
	for text, id := range v.entries {
		v.phrases = append(v.phrases, phrase{text: text, words: phraseWords(text), action: id})
	}
	sort.Slice(v.phrases, func(i, j int) bool { return v.phrases[i].text < v.phrases[j].text })
}

// Overlay returns a copy of v where user entries take precedence.
func (v *Vocabulary) Overlay(user map[string]actions.ID) *Vocabulary {
	m := make(map[string]actions.ID, len(v.entries)+len(user))
	for p, id := range v.entries {
		m[p] = id
	}
	for p, id := range user {
		m[p] = id
	}
	return NewVocabulary(m)
}

// Lookup returns the action for an exact phrase.
func (v *Vocabulary) Lookup(p string) (actions.ID, bool) {
	id, ok := v.entries[strings.Join(strings.Fields(strings.ToLower(p)), " ")]
	return id, ok
}

// Len returns the number of phrases.
func (v *Vocabulary) Len() int { return len(v.entries) }

// Actions returns the distinct actions the vocabulary can produce.
func (v *Vocabulary) Actions() []actions.ID {
	seen := make(map[actions.ID]bool)
	var out []actions.ID
	for _, p := range v.phrases {
		if !seen[p.action] {
			seen[p.action] = true
			out = append(out, p.action)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// exact finds multi-word phrases occurring as a contiguous word run in
// words. The longest phrase wins, then the earliest position.
func (v *Vocabulary) exact(words []string) (phrase, bool) {
	var (
		best    phrase
		bestPos = -1
	)
	for _, p := range v.phrases {
		if len(p.words) < 2 || len(p.words) > len(words) {
			continue
		}
		pos := indexWords(words, p.words)
		if pos < 0 {
			continue
		}
		if bestPos < 0 || len(p.words) > len(best.words) ||
			(len(p.words) == len(best.words) && pos < bestPos) {
			best, bestPos = p, pos
		}
	}
	return best, bestPos >= 0
}

func indexWords(haystack, needle []string) int {
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j, w := range needle {
			if haystack[i+j] != w {
				continue outer
			}
		}
		return i
	}
	return -1
}
