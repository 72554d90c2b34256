package perception

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saysh/internal/actions"
	"saysh/internal/similarity"
)

type countingScorer struct {
	similarity.Scorer
	weighted int
}

func (c *countingScorer) Weighted(a, b string) float64 {
	c.weighted++
	return c.Scorer.Weighted(a, b)
}

// stubScorer scores by vocabulary phrase.
type stubScorer map[string]float64

func (s stubScorer) Ratio(a, b string) float64    { return 0 }
func (s stubScorer) Weighted(_, b string) float64 { return s[b] }

type fixedCorrections struct {
	id     actions.ID
	source string
}

func (f fixedCorrections) Correction(text string, _ func(a, b string) float64, _ float64) (actions.ID, string, bool) {
	if f.id == "" {
		return "", "", false
	}
	return f.id, f.source, true
}

func TestResolve_ExactMatchSkipsFuzzyScoring(t *testing.T) {
	scorer := &countingScorer{Scorer: similarity.New()}
	r := NewIntentResolver(DefaultVocabulary(), scorer, nil, DefaultThresholds())

	cases := map[string]actions.ID{
		"list files":                    actions.ListFiles,
		"show me all files":             actions.ListFiles,
		"please check git status":       actions.GitStatus,
		"create a file called test.txt": actions.CreateFile,
		"display that file":             actions.DisplayFile,
	}
	for text, want := range cases {
		got := r.Resolve(text)
		assert.Equal(t, Confirmed, got.Kind, text)
		assert.Equal(t, want, got.Action, text)
		assert.Equal(t, SourceExact, got.Source, text)
	}
	assert.Zero(t, scorer.weighted)
}

func TestResolve_LongestThenEarliestPhrase(t *testing.T) {
	vocab := NewVocabulary(map[string]actions.ID{
		"list files":             actions.ListFiles,
		"list files recursively": actions.FindFiles,
		"count lines":            actions.CountLines,
		"sort lines":             actions.SortLines,
	})
	r := NewIntentResolver(vocab, nil, nil, DefaultThresholds())

	assert.Equal(t, actions.FindFiles, r.Resolve("list files recursively").Action)
	assert.Equal(t, actions.SortLines, r.Resolve("sort lines then count lines").Action)
	assert.Equal(t, actions.CountLines, r.Resolve("count lines then sort lines").Action)
}

func TestResolve_SingleWordPhrasesGoThroughScoring(t *testing.T) {
	scorer := &countingScorer{Scorer: similarity.New()}
	vocab := NewVocabulary(map[string]actions.ID{"ls": actions.ListFiles})
	r := NewIntentResolver(vocab, scorer, nil, DefaultThresholds())

	got := r.Resolve("ls")
	assert.Equal(t, Confirmed, got.Kind)
	assert.Equal(t, SourceFuzzy, got.Source)
	assert.Equal(t, 1, scorer.weighted)
}

func TestResolve_Tiers(t *testing.T) {
	vocab := NewVocabulary(map[string]actions.ID{
		"git status": actions.GitStatus,
		"list files": actions.ListFiles,
	})

	tests := []struct {
		name   string
		scores stubScorer
		kind   Kind
		action actions.ID
		disp   actions.ID
	}{
		{"confirmed at threshold", stubScorer{"git status": 90}, Confirmed, actions.GitStatus, actions.GitStatus},
		{"suggested", stubScorer{"git status": 70, "list files": 40}, Suggested, actions.GitStatus, actions.Suggest},
		{"suggest threshold inclusive", stubScorer{"list files": 65}, Suggested, actions.ListFiles, actions.Suggest},
		{"unrecognized", stubScorer{"git status": 64.9}, Unrecognized, actions.Unrecognized, actions.Unrecognized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewIntentResolver(vocab, tt.scores, nil, DefaultThresholds())
			got := r.Resolve("something vague")
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.action, got.Action)
			assert.Equal(t, tt.disp, got.Disposition())
		})
	}
}

func TestResolve_TieGoesToLongerPhrase(t *testing.T) {
	vocab := NewVocabulary(map[string]actions.ID{
		"ls":           actions.ListFiles,
		"show process": actions.ShowProcesses,
	})
	r := NewIntentResolver(vocab, stubScorer{"ls": 95, "show process": 95}, nil, DefaultThresholds())
	assert.Equal(t, actions.ShowProcesses, r.Resolve("zzz").Action)
}

func TestResolve_RealScorerHandlesTypos(t *testing.T) {
	r := NewIntentResolver(DefaultVocabulary(), similarity.New(), nil, DefaultThresholds())

	got := r.Resolve("lst files")
	assert.NotEqual(t, Unrecognized, got.Kind)
	assert.Equal(t, actions.ListFiles, got.Action)

	assert.Equal(t, Unrecognized, r.Resolve("xyzzy plugh").Kind)
}

func TestResolve_CorrectionOverridesEverything(t *testing.T) {
	corr := fixedCorrections{id: actions.GitStatus, source: "list files"}
	r := NewIntentResolver(DefaultVocabulary(), nil, corr, DefaultThresholds())

	got := r.Resolve("list files")
	assert.Equal(t, Confirmed, got.Kind)
	assert.Equal(t, actions.GitStatus, got.Action)
	assert.Equal(t, SourceLearned, got.Source)
}

func TestVocabulary_OverlayPrecedence(t *testing.T) {
	base := DefaultVocabulary()
	over := base.Overlay(map[string]actions.ID{
		"List  Files": actions.GitStatus,
		"ship it":     actions.GitCommit,
		"bogus":       actions.Suggest,
	})

	id, ok := over.Lookup("list files")
	require.True(t, ok)
	assert.Equal(t, actions.GitStatus, id)

	_, ok = over.Lookup("bogus")
	assert.False(t, ok)

	// the base is untouched
	id, _ = base.Lookup("list files")
	assert.Equal(t, actions.ListFiles, id)
	assert.Equal(t, base.Len()+1, over.Len())

	r := NewIntentResolver(over, nil, nil, DefaultThresholds())
	assert.Equal(t, actions.GitCommit, r.Resolve("ship it").Action)
}

func TestVocabulary_ActionsAreSortedAndDistinct(t *testing.T) {
	ids := DefaultVocabulary().Actions()
	assert.Contains(t, ids, actions.ListFiles)
	assert.True(t, sort.SliceIsSorted(ids, func(i, j int) bool { return ids[i] < ids[j] }))
}

func TestResolver_SetVocabulary(t *testing.T) {
	r := NewIntentResolver(nil, nil, nil, DefaultThresholds())
	assert.Equal(t, actions.ListFiles, r.Resolve("list files").Action)

	r.SetVocabulary(NewVocabulary(map[string]actions.ID{"list files": actions.DiskUsage}))
	assert.Equal(t, actions.DiskUsage, r.Resolve("list files").Action)
}
