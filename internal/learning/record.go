// Package learning keeps what saysh learns from its user across sessions:
// which parses were right, which were wrong, explicit corrections and how
// often each action runs.
package learning

import (
	"sort"
	"strings"

	"saysh/internal/actions"
)

// Record is the persisted learning state. It is only ever appended to or
// updated, never pruned.
type Record struct {
	SuccessfulParses map[string]bool       `json:"successful_parses"`
	Misinterpreted   []string              `json:"misinterpreted_commands"`
	Corrections      map[string]actions.ID `json:"user_corrections"`
	Frequencies      map[actions.ID]int    `json:"command_frequencies"`
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{
		SuccessfulParses: make(map[string]bool),
		Misinterpreted:   []string{},
		Corrections:      make(map[string]actions.ID),
		Frequencies:      make(map[actions.ID]int),
	}
}

// fill replaces nil members left by a partial file.
func (r *Record) fill() {
	if r.SuccessfulParses == nil {
		r.SuccessfulParses = make(map[string]bool)
	}
	if r.Misinterpreted == nil {
		r.Misinterpreted = []string{}
	}
	if r.Corrections == nil {
		r.Corrections = make(map[string]actions.ID)
	}
	if r.Frequencies == nil {
		r.Frequencies = make(map[actions.ID]int)
	}
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	out := NewRecord()
	for k, v := range r.SuccessfulParses {
		out.SuccessfulParses[k] = v
	}
	out.Misinterpreted = append(out.Misinterpreted, r.Misinterpreted...)
	for k, v := range r.Corrections {
		out.Corrections[k] = v
	}
	for k, v := range r.Frequencies {
		out.Frequencies[k] = v
	}
	return out
}

// Feedback applies one user verdict on a parse.
func (r *Record) Feedback(text string, correct bool, action actions.ID) {
	if correct {
		r.SuccessfulParses[text] = true
		return
	}
	r.Misinterpreted = append(r.Misinterpreted, text)
	if action != "" {
		r.Corrections[text] = action
	}
}

// Ranked pairs an action with its run count.
type Ranked struct {
	Action actions.ID
	Count  int
}

// TopActions returns action frequencies, most used first.
func (r *Record) TopActions() []Ranked {
	out := make([]Ranked, 0, len(r.Frequencies))
	for id, n := range r.Frequencies {
		out = append(out, Ranked{Action: id, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Action < out[j].Action
	})
	return out
}

// correctionKeys returns correction sources in stable order.
func (r *Record) correctionKeys() []string {
	keys := make([]string, 0, len(r.Corrections))
	for k := range r.Corrections {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func fold(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
