package perception

import (
	"fmt"

	"github.com/jdkato/prose/v2"
)

// TaggedWord is a word with its Penn Treebank part-of-speech tag.
type TaggedWord struct {
	Text string
	Tag  string
}

// Tagger assigns part-of-speech tags to an utterance.
type Tagger interface {
	Tag(text string) ([]TaggedWord, error)
}

// ProseTagger tags with the prose averaged-perceptron model.
type ProseTagger struct{}

// Tag implements Tagger.
func (ProseTagger) Tag(text string) ([]TaggedWord, error) {
	doc, err := prose.NewDocument(text,
		prose.WithSegmentation(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, fmt.Errorf("tagging failed: %w", err)
	}

	toks := doc.Tokens()
	out := make([]TaggedWord, 0, len(toks))
	for _, tok := range toks {
		out = append(out, TaggedWord{Text: tok.Text, Tag: tok.Tag})
	}
	return out, nil
}

// NopTagger tags nothing; noun categories stay empty.
type NopTagger struct{}

// Tag implements Tagger.
func (NopTagger) Tag(string) ([]TaggedWord, error) { return nil, nil }

func isNoun(tag string) bool       { return tag == "NN" || tag == "NNS" }
func isProperNoun(tag string) bool { return tag == "NNP" || tag == "NNPS" }
