// Package ux holds the interactive session's toggles and the reserved
// control words typed at the prompt. Preferences carry the toggles and
// usage counters between sessions.
//
// Nothing here resolves or runs commands. The REPL asks ParseControl first
// and only hands text that is not a control word to the engine.
package ux
