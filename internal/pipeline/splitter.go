package pipeline

import (
	"regexp"
	"strings"
)

// sequenceMarkers are the connectives that always mean "and then". Longer
// markers come first so "after that" is not split as "after" + "that".
const sequenceMarkers = `after\s+that|(?:pipe|send|pass)\s+(?:to|into)|follow(?:ed)?\s+by|with\s+the\s+result|then|next`

// connectives are replaced by a stage break: the sequence markers plus a
// bare "and".
var connectives = regexp.MustCompile(`(?i)\b(?:` + sequenceMarkers + `|and)\b`)

// quotedSpan is a quoted argument. Like the tokenizer, a quote only opens at
// the start of a word, so apostrophes inside words do not count.
var quotedSpan = regexp.MustCompile(`(?:^|\s)(?:"[^"]*"|'[^']*')`)

const stageBreak = "\x00"

// Splitter breaks a pipeline utterance into ordered stage texts.
type Splitter struct{}

// NewSplitter returns a splitter.
func NewSplitter() *Splitter { return &Splitter{} }

// Split returns the stage texts of text in execution order. Text without a
// connective is a single stage.
func (s *Splitter) Split(text string) []string {
	marked := replaceUnquoted(text, connectives, stageBreak)

	var stages []string
	for _, part := range strings.Split(marked, stageBreak) {
		part = strings.Trim(strings.TrimSpace(part), ",; \t")
		if part != "" {
			stages = append(stages, part)
		}
	}
	return stages
}

// replaceUnquoted replaces matches of re with repl outside quoted spans.
func replaceUnquoted(text string, re *regexp.Regexp, repl string) string {
	var b strings.Builder
	last := 0
	for _, loc := range quotedSpan.FindAllStringIndex(text, -1) {
		b.WriteString(re.ReplaceAllString(text[last:loc[0]], repl))
		b.WriteString(text[loc[0]:loc[1]])
		last = loc[1]
	}
	b.WriteString(re.ReplaceAllString(text[last:], repl))
	return b.String()
}
