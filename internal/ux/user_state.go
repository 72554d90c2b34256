package ux

// UserJourneyState is how familiar the user is with saysh, derived from
// usage counters.
type UserJourneyState string

const (
	// StateNew indicates a first-time user.
	StateNew UserJourneyState = "new"

	// StateLearning indicates the user has run a few commands but still
	// leans on suggestions.
	StateLearning UserJourneyState = "learning"

	// StateProductive indicates most utterances resolve without help.
	StateProductive UserJourneyState = "productive"
)

// UserMetrics tracks interaction statistics for journey transitions.
type UserMetrics struct {
	SessionsCount       int    `json:"sessions_count"`
	CommandsExecuted    int    `json:"commands_executed"`
	SuggestionsOffered  int    `json:"suggestions_offered"`
	SuggestionsAccepted int    `json:"suggestions_accepted"`
	Unrecognized        int    `json:"unrecognized"`
	HelpRequests        int    `json:"help_requests"`
	ErrorsEncountered   int    `json:"errors_encountered"`
	LastSession         string `json:"last_session,omitempty"`
}

// ShouldTransition checks if user metrics warrant a state transition.
func (m *UserMetrics) ShouldTransition(currentState UserJourneyState) (UserJourneyState, bool) {
	switch currentState {
	case StateNew:
		// Transition to learning after the first command
		if m.CommandsExecuted >= 1 {
			return StateLearning, true
		}

	case StateLearning:
		// Productive once resolution rarely needs a second try
		if m.SessionsCount >= 5 && m.CommandsExecuted >= 25 {
			misses := m.SuggestionsOffered + m.Unrecognized
			if float64(misses)/float64(m.CommandsExecuted) < 0.2 {
				return StateProductive, true
			}
		}
	}

	return currentState, false
}

// ShowTips reports whether the REPL should print usage hints.
func (s UserJourneyState) ShowTips() bool {
	return s != StateProductive
}
