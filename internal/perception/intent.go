package perception

import (
	"strings"
	"sync"

	"saysh/internal/actions"
	"saysh/internal/logging"
	"saysh/internal/similarity"
)

// Kind is the confidence tier of an intent.
type Kind int

const (
	// Unrecognized means nothing scored above the suggestion threshold.
	Unrecognized Kind = iota
	// Suggested means a candidate needs the user's confirmation.
	Suggested
	// Confirmed means the action can run without asking.
	Confirmed
)

func (k Kind) String() string {
	switch k {
	case Confirmed:
		return "confirmed"
	case Suggested:
		return "suggested"
	default:
		return "unrecognized"
	}
}

// Source says which step produced an intent.
type Source string

const (
	SourceExact   Source = "exact"
	SourceFuzzy   Source = "fuzzy"
	SourceLearned Source = "learned"
	SourceNone    Source = "none"
)

// Intent is the result of resolving one utterance.
type Intent struct {
	Kind Kind
	// Action is the confirmed or suggested action; Unrecognized otherwise.
	Action actions.ID
	// Phrase is the vocabulary phrase (or correction source) that matched.
	Phrase string
	Score  float64
	Source Source
}

// Disposition collapses the intent to a single ActionID: the action when
// confirmed, or one of the terminal IDs.
func (i Intent) Disposition() actions.ID {
	switch i.Kind {
	case Confirmed:
		return i.Action
	case Suggested:
		return actions.Suggest
	default:
		return actions.Unrecognized
	}
}

// Thresholds are on the scorer's 0-100 scale.
type Thresholds struct {
	Execute    float64
	Suggest    float64
	Correction float64
}

// DefaultThresholds are the stock confidence cut-offs.
func DefaultThresholds() Thresholds {
	return Thresholds{Execute: 90, Suggest: 65, Correction: 90}
}

// Corrections looks up learned corrections.
type Corrections interface {
	Correction(text string, similarity func(a, b string) float64, threshold float64) (actions.ID, string, bool)
}

// IntentResolver maps an utterance to an action with a confidence tier.
type IntentResolver struct {
	mu          sync.RWMutex
	vocab       *Vocabulary
	scorer      similarity.Scorer
	corrections Corrections
	thresholds  Thresholds
}

// NewIntentResolver builds a resolver. corrections may be nil.
func NewIntentResolver(vocab *Vocabulary, scorer similarity.Scorer, corrections Corrections, th Thresholds) *IntentResolver {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	if scorer == nil {
		scorer = similarity.New()
	}
	return &IntentResolver{vocab: vocab, scorer: scorer, corrections: corrections, thresholds: th}
}

// SetVocabulary swaps the vocabulary, e.g. after the user mapping file
// changes on disk.
func (r *IntentResolver) SetVocabulary(v *Vocabulary) {
	r.mu.Lock()
	r.vocab = v
	r.mu.Unlock()
}

// Vocabulary returns the active vocabulary.
func (r *IntentResolver) Vocabulary() *Vocabulary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.vocab
}

// Resolve classifies text. A learned correction close enough to text wins
// over everything else; then an exact phrase; then the best fuzzy score.
func (r *IntentResolver) Resolve(text string) Intent {
	vocab := r.Vocabulary()

	intent := r.match(vocab, text)

	if r.corrections != nil {
		if id, source, ok := r.corrections.Correction(text, r.scorer.Ratio, r.thresholds.Correction); ok {
			logging.Perception("Learned correction overrides %s match: %q -> %s", intent.Source, text, id)
			return Intent{Kind: Confirmed, Action: id, Phrase: source, Score: 100, Source: SourceLearned}
		}
	}

	logging.PerceptionDebug("Resolved %q -> %s %s (score %.1f, %s)", text, intent.Kind, intent.Action, intent.Score, intent.Source)
	return intent
}

func (r *IntentResolver) match(vocab *Vocabulary, text string) Intent {
	if p, ok := vocab.exact(phraseWords(text)); ok {
		return Intent{Kind: Confirmed, Action: p.action, Phrase: p.text, Score: 100, Source: SourceExact}
	}

	needle := strings.ToLower(strings.TrimSpace(text))
	var (
		best      phrase
		bestScore = -1.0
	)
	for _, p := range vocab.phrases {
		score := r.scorer.Weighted(needle, p.text)
		if score > bestScore || (score == bestScore && len(p.text) > len(best.text)) {
			best, bestScore = p, score
		}
	}

	switch {
	case bestScore >= r.thresholds.Execute:
		return Intent{Kind: Confirmed, Action: best.action, Phrase: best.text, Score: bestScore, Source: SourceFuzzy}
	case bestScore >= r.thresholds.Suggest:
		return Intent{Kind: Suggested, Action: best.action, Phrase: best.text, Score: bestScore, Source: SourceFuzzy}
	default:
		return Intent{Kind: Unrecognized, Action: actions.Unrecognized, Score: max(bestScore, 0), Source: SourceNone}
	}
}
