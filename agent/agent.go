package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"
)

var _ adk.Agent = (*Agent)(nil)

// Agent exposes a FormFlow as an adk agent. The last input message is the
// user's reply; the conversation id is taken from the context (WithStateKey).
type Agent struct {
	name        string
	description string
	flow        *FormFlow
}

func NewAgent(name, description string, flow *FormFlow) *Agent {
	return &Agent{
		name:        name,
		description: description,
		flow:        flow,
	}
}

func (a *Agent) Name(ctx context.Context) string {
	return a.name
}

func (a *Agent) Description(ctx context.Context) string {
	return a.description
}

func (a *Agent) Run(ctx context.Context, input *adk.AgentInput, options ...adk.AgentRunOption) *adk.AsyncIterator[*adk.AgentEvent] {
	iter, gen := adk.NewAsyncIteratorPair[*adk.AgentEvent]()
	go func() {
		defer func() {
			e := recover()
			if e != nil {
				gen.Send(&adk.AgentEvent{
					Err: fmt.Errorf("recover from panic: %v", e),
				})
			}
			gen.Close()
		}()
		if len(input.Messages) == 0 {
			gen.Send(&adk.AgentEvent{
				Err: errors.New("no messages in input"),
			})
			return
		}
		resp, err := a.flow.Invoke(ctx, &Request{
			UserInput: input.Messages[len(input.Messages)-1].Content,
		})
		if err != nil {
			gen.Send(&adk.AgentEvent{
				Err: fmt.Errorf("flow invoke failed: %w", err),
			})
			return
		}

		if input.EnableStreaming {
			stream := schema.StreamReaderWithConvert(resp.Envelope.Text(), func(chunk string) (*schema.Message, error) {
				return schema.AssistantMessage(chunk, nil), nil
			})
			gen.Send(&adk.AgentEvent{
				Output: &adk.AgentOutput{
					MessageOutput: &adk.MessageVariant{
						IsStreaming:   true,
						MessageStream: stream,
						Role:          schema.Assistant,
					},
				},
			})
			return
		}

		message, err := resp.Envelope.ReadAll()
		if err != nil {
			gen.Send(&adk.AgentEvent{
				Err: fmt.Errorf("read reply: %w", err),
			})
			return
		}
		gen.Send(&adk.AgentEvent{
			Output: &adk.AgentOutput{
				MessageOutput: &adk.MessageVariant{
					Message: schema.AssistantMessage(message, nil),
					Role:    schema.Assistant,
				},
			},
		})
	}()
	return iter
}
