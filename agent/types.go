package agent

import (
	"github.com/tbxark/convoform/envelope"
	"github.com/tbxark/convoform/types"
)

type Request struct {
	UserInput string `json:"userInput"`
	// Prefill seeds still empty fields by name before the turn runs.
	Prefill map[string]string `json:"prefill,omitempty"`
}

type Response struct {
	Envelope *envelope.Envelope
	State    *State
	// Verdict is nil when no extraction ran this turn.
	Verdict  *types.ExtractionVerdict
	Finished bool
}
