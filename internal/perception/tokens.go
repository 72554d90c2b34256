package perception

import (
	"regexp"
	"strings"
	"unicode"
)

// Token is one word of an utterance. Quoted segments stay whole.
type Token struct {
	Text   string
	Lower  string
	Quoted bool
}

const trimPunct = ",;:!?\"'()"

// Tokenize splits text on whitespace, keeping "..." and '...' segments as a
// single token and trimming sentence punctuation from word edges.
func Tokenize(text string) []Token {
	var (
		out   []Token
		cur   strings.Builder
		quote rune
	)

	flush := func(quoted bool) {
		s := cur.String()
		cur.Reset()
		if !quoted {
			s = strings.Trim(s, trimPunct)
			// a trailing full stop ends the sentence, not the file name
			if strings.Trim(s, "./") != "" {
				s = strings.TrimRight(s, ".")
			}
			if s == "" {
				return
			}
		}
		out = append(out, Token{Text: s, Lower: strings.ToLower(s), Quoted: quoted})
	}

	for _, r := range text {
		switch {
		case quote != 0:
			if r == quote {
				flush(true)
				quote = 0
				continue
			}
			cur.WriteRune(r)
		case (r == '"' || r == '\'') && cur.Len() == 0:
			quote = r
		case unicode.IsSpace(r):
			if cur.Len() > 0 {
				flush(false)
			}
		default:
			cur.WriteRune(r)
		}
	}
	if quote != 0 {
		// unterminated quote: keep what we have as plain words
		for _, w := range strings.Fields(cur.String()) {
			cur.Reset()
			cur.WriteString(w)
			flush(false)
		}
	} else if cur.Len() > 0 {
		flush(false)
	}
	return out
}

var fillers = map[string]bool{
	"a": true, "an": true, "the": true, "me": true, "all": true, "my": true,
	"some": true, "that": true, "this": true, "these": true, "those": true,
	"please": true,
}

// phraseWords lowercases, tokenizes and drops filler words.
func phraseWords(text string) []string {
	var words []string
	for _, tok := range Tokenize(text) {
		if tok.Quoted || fillers[tok.Lower] {
			continue
		}
		words = append(words, tok.Lower)
	}
	return words
}

var (
	pathShape = regexp.MustCompile(`^(~|\.{1,2})?/?[\w.\-]+(/[\w.\-]*)*$|^~$|^\.{1,2}/?$`)
	extension = regexp.MustCompile(`\.[A-Za-z][A-Za-z0-9]{0,7}$`)
)

// isPathShaped reports whether a word looks like a file system path: it has
// a separator, a file extension or a home / relative prefix.
func isPathShaped(word string) bool {
	if word == "" || strings.HasPrefix(word, "-") || !pathShape.MatchString(word) {
		return false
	}
	return strings.Contains(word, "/") ||
		strings.HasPrefix(word, "~") ||
		strings.HasPrefix(word, ".") ||
		extension.MatchString(word)
}
