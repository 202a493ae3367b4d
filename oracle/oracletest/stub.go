// Package oracletest provides a deterministic oracle for tests.
package oracletest

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/convoform/oracle"
)

// Stub answers structured calls with Replies in order (the last reply repeats)
// and streams Chunks. Errors take precedence over replies.
type Stub struct {
	Replies       []*string
	StructuredErr error
	Chunks        []string
	StreamErr     error

	mu               sync.Mutex
	structuredCalls  int
	streamCalls      int
	structuredInputs [][]*schema.Message
	streamInputs     [][]*schema.Message
}

var _ oracle.Gateway = (*Stub)(nil)

// NewStub returns a stub whose structured calls reply with the given texts.
func NewStub(replies ...string) *Stub {
	s := &Stub{}
	for _, r := range replies {
		s.Replies = append(s.Replies, &r)
	}
	return s
}

func (s *Stub) StructuredComplete(ctx context.Context, messages []*schema.Message) (*oracle.Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.structuredCalls
	s.structuredCalls++
	s.structuredInputs = append(s.structuredInputs, messages)
	if s.StructuredErr != nil {
		return nil, s.StructuredErr
	}
	if len(s.Replies) == 0 {
		return &oracle.Completion{}, nil
	}
	if idx >= len(s.Replies) {
		idx = len(s.Replies) - 1
	}
	return &oracle.Completion{
		Choices: []oracle.Choice{{Message: oracle.ChoiceMessage{Content: s.Replies[idx]}}},
	}, nil
}

func (s *Stub) StreamComplete(ctx context.Context, messages []*schema.Message, onFinal func(fullText string)) (*schema.StreamReader[string], error) {
	s.mu.Lock()
	s.streamCalls++
	s.streamInputs = append(s.streamInputs, messages)
	chunks := append([]string(nil), s.Chunks...)
	err := s.StreamErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return oracle.WithFinal(ctx, schema.StreamReaderFromArray(chunks), onFinal), nil
}

func (s *Stub) StructuredCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.structuredCalls
}

func (s *Stub) StreamCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamCalls
}

// LastStructuredInput returns the messages of the latest structured call.
func (s *Stub) LastStructuredInput() []*schema.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.structuredInputs) == 0 {
		return nil
	}
	return s.structuredInputs[len(s.structuredInputs)-1]
}

func (s *Stub) LastStreamInput() []*schema.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.streamInputs) == 0 {
		return nil
	}
	return s.streamInputs[len(s.streamInputs)-1]
}
