package main

import (
	"context"
	"log/slog"

	"github.com/tbxark/convoform/agent"
	"github.com/tbxark/convoform/types"
)

var _ agent.FormManager = (*JobApplicationManager)(nil)

type JobApplicationManager struct {
}

func (m *JobApplicationManager) Submit(ctx context.Context, state *agent.State) error {
	answers := make(map[string]string, len(state.Fields))
	for _, f := range types.FilledFields(state.Fields) {
		answers[f.FieldName] = f.Value()
	}
	slog.Info("Job application submitted", "name", state.Name, "answers", answers)
	return nil
}
