// Package pipeline detects utterances that describe a sequence of
// operations, splits them into stages and runs the stages with each stage's
// output feeding the next.
package pipeline

import (
	"regexp"
	"strings"
)

// sequenceConnective is any splitter connective other than a bare "and".
var sequenceConnective = regexp.MustCompile(`(?i)\b(?:` + sequenceMarkers + `)\b`)

// andCommand is "and" followed by a command word. A bare "and" joins nouns
// as often as it joins commands ("Sandy and Anderson"), so it only counts
// when the next word starts an operation.
var andCommand = regexp.MustCompile(`(?i)\band\s+(?:show|display|list|find|search|filter|grep|count|sort|get|print|check|create|make|delete|remove|open|read|git|cat|ls|wc|head|tail)\b`)

var complexActionWords = []string{
	"find", "search", "filter", "count", "sort",
	"analyze", "organize", "categorize", "group", "aggregate",
}

var actionShapedPart = regexp.MustCompile(`(?i)\b(?:list|show|find|get|display|count|sort)\b|\bfiles\b|\btext\b`)

// Detector classifies utterances as single commands or pipelines.
type Detector struct {
	words []*regexp.Regexp
}

// NewDetector compiles the detector's patterns.
func NewDetector() *Detector {
	d := &Detector{}
	for _, w := range complexActionWords {
		d.words = append(d.words, regexp.MustCompile(`(?i)\b`+w+`\b`))
	}
	return d
}

// IsPipeline reports whether text likely describes more than one operation:
// an explicit connective, two or more distinct complex action words, or a
// comma list of at least three parts where two look like commands.
func (d *Detector) IsPipeline(text string) bool {
	unquoted := quotedSpan.ReplaceAllString(text, " ")
	if sequenceConnective.MatchString(unquoted) || andCommand.MatchString(unquoted) {
		return true
	}

	if d.ActionWordCount(text) >= 2 {
		return true
	}

	parts := nonEmptyParts(strings.Split(text, ","))
	if len(parts) < 3 {
		return false
	}
	shaped := 0
	for _, p := range parts {
		if actionShapedPart.MatchString(p) {
			shaped++
		}
	}
	return shaped >= 2
}

// ActionWordCount is the number of distinct complex action words in text.
func (d *Detector) ActionWordCount(text string) int {
	n := 0
	for _, re := range d.words {
		if re.MatchString(text) {
			n++
		}
	}
	return n
}

func nonEmptyParts(parts []string) []string {
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
