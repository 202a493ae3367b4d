package dialogue

import (
	"github.com/tbxark/convoform/types"
)

// DefaultEndMessage closes every finished conversation.
const DefaultEndMessage = "Thank you for filling out the form. Your response has been recorded."

type QuestionRequest struct {
	FormOverview string
	CurrentField types.Field
	// CollectedData is the form's field list; only filled fields reach the prompt.
	CollectedData []types.Field
	StreamData    types.StreamData
	Transcript    []types.TranscriptEntry

	// OnStreamFinish receives the full question once generation completes.
	OnStreamFinish func(question string)
}
