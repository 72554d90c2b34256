package perception

import (
	"strings"

	"saysh/internal/actions"
	"saysh/internal/history"
	"saysh/internal/logging"
)

var (
	directoryMarkers = map[string]bool{"directory": true, "folder": true, "dir": true, "cd": true}
	nameMarkers      = map[string]bool{"called": true, "named": true}
	deictics         = map[string]bool{"that": true, "this": true}
	stopNouns        = map[string]bool{
		"file": true, "files": true, "directory": true, "folder": true, "dir": true,
		"contents": true, "content": true, "lines": true, "line": true, "output": true,
		"result": true, "text": true,
	}
)

// goToVerbs precede a directory name: "go to src", "switch into build".
var goToVerbs = map[string]bool{"go": true, "switch": true, "move": true, "change": true}

// referenceCategory maps the noun after "that"/"this" to the category it
// refers back to.
func referenceCategory(noun string) string {
	switch noun {
	case "file":
		return history.FilePaths
	case "directory", "folder", "dir":
		return history.DirectoryPaths
	}
	return ""
}

// EntityResolver extracts arguments from an utterance and fills in
// references to earlier commands.
type EntityResolver struct {
	tagger Tagger
}

// NewEntityResolver returns a resolver; a nil tagger disables noun
// extraction.
func NewEntityResolver(tagger Tagger) *EntityResolver {
	if tagger == nil {
		tagger = NopTagger{}
	}
	return &EntityResolver{tagger: tagger}
}

// Extract finds entities in text. References like "that file" pull the most
// recent value of the category from prior, at the position they occur.
func (e *EntityResolver) Extract(text string, prior history.Entities) history.Entities {
	toks := Tokenize(text)
	ents := make(history.Entities)
	add := func(category, value string) {
		for _, v := range ents[category] {
			if v == value {
				return
			}
		}
		ents[category] = append(ents[category], value)
	}

	dirContext := false
	skip := -1
	for i, tok := range toks {
		if i == skip {
			continue
		}
		next := ""
		if i+1 < len(toks) {
			next = toks[i+1].Lower
		}
		prevDir := dirContext
		dirContext = false

		switch {
		case tok.Quoted:
			add(history.Quoted, tok.Text)
			continue
		case len(tok.Text) > 1 && tok.Text[0] == '-':
			add(history.Options, tok.Text)
			continue
		case deictics[tok.Lower] && referenceCategory(next) != "":
			category := referenceCategory(next)
			if v, ok := prior.First(category); ok {
				logging.PerceptionDebug("Reference %q %q -> %s", tok.Lower, next, v)
				add(category, v)
			}
			skip = i + 1
			continue
		}

		if directoryMarkers[tok.Lower] || (nameMarkers[tok.Lower] && prevDir) || (fillers[tok.Lower] && prevDir) {
			dirContext = true
			continue
		}
		if tok.Lower == "to" || tok.Lower == "into" {
			if prevDir || (i > 0 && goToVerbs[toks[i-1].Lower]) {
				dirContext = true
			}
			continue
		}

		switch {
		case prevDir && !stopNouns[tok.Lower]:
			add(history.DirectoryPaths, tok.Text)
		case isPathShaped(tok.Text):
			add(history.FilePaths, tok.Text)
			if tok.Text[len(tok.Text)-1] == '/' {
				add(history.DirectoryPaths, tok.Text)
			}
		case i > 0 && nameMarkers[toks[i-1].Lower] && !fillers[tok.Lower]:
			add(history.FilePaths, tok.Text)
		}
	}

	e.tagNouns(text, ents)
	return ents
}

func (e *EntityResolver) tagNouns(text string, ents history.Entities) {
	tagged, err := e.tagger.Tag(text)
	if err != nil {
		logging.PerceptionWarn("Noun tagging skipped: %v", err)
		return
	}
	seen := make(map[string]bool)
	for _, w := range tagged {
		if seen[w.Text] || stopNouns[strings.ToLower(w.Text)] || isPathShaped(w.Text) {
			continue
		}
		switch {
		case isNoun(w.Tag):
			ents[history.Nouns] = append(ents[history.Nouns], w.Text)
		case isProperNoun(w.Tag):
			ents[history.ProperNouns] = append(ents[history.ProperNouns], w.Text)
		default:
			continue
		}
		seen[w.Text] = true
	}
}

// Args turns entities into the argument list action expects, with option
// flags appended.
func Args(action actions.ID, ents history.Entities) []string {
	files := ents[history.FilePaths]
	dirs := ents[history.DirectoryPaths]
	quoted := ents[history.Quoted]

	var args []string
	switch action {
	case actions.ChangeDirectory, actions.MakeDirectory, actions.DeleteDirectory:
		if len(dirs) > 0 {
			args = append(args, dirs[0])
		} else if len(files) > 0 {
			args = append(args, files[0])
		}
	case actions.CreateFile, actions.DeleteFile, actions.DisplayFile, actions.CountLines, actions.SortLines:
		if len(files) > 0 {
			args = append(args, files[0])
		}
	case actions.MoveRename, actions.CopyFile:
		if len(files) >= 2 {
			args = append(args, files[0], files[1])
		}
	case actions.FindText, actions.Grep:
		if len(quoted) > 0 {
			args = append(args, quoted[0])
			args = append(args, files...)
		}
	case actions.FindFiles:
		if len(quoted) > 0 {
			args = append(args, quoted[0])
		} else if len(files) > 0 {
			args = append(args, files[0])
		}
	case actions.GitCommit:
		if len(quoted) > 0 {
			args = append(args, "-m", quoted[0])
		}
	}
	return append(args, ents[history.Options]...)
}
