package oracle

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

type fakeChatModel struct {
	reply     *schema.Message
	chunks    []*schema.Message
	err       error
	lastInput []*schema.Message
}

func (m *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.lastInput = input
	if m.err != nil {
		return nil, m.err
	}
	return m.reply, nil
}

func (m *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	m.lastInput = input
	if m.err != nil {
		return nil, m.err
	}
	return schema.StreamReaderFromArray(m.chunks), nil
}

func drain(t *testing.T, sr *schema.StreamReader[string]) (string, error) {
	t.Helper()
	defer sr.Close()
	var sb strings.Builder
	for {
		chunk, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(chunk)
	}
}

func TestWithFinalCallsOnFinalBeforeEOF(t *testing.T) {
	t.Parallel()
	var final atomic.Value
	var calls atomic.Int32
	sr := WithFinal(context.Background(), schema.StreamReaderFromArray([]string{"What is ", "", "your name?"}), func(full string) {
		calls.Add(1)
		final.Store(full)
	})
	var sb strings.Builder
	for {
		chunk, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			if calls.Load() != 1 {
				t.Fatalf("onFinal must run before EOF, calls=%d", calls.Load())
			}
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if chunk == "" {
			t.Error("empty chunks should be dropped")
		}
		sb.WriteString(chunk)
	}
	if sb.String() != "What is your name?" || final.Load() != "What is your name?" {
		t.Errorf("stream %q and final %v differ", sb.String(), final.Load())
	}
}

func TestWithFinalZeroChunks(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	sr := WithFinal(context.Background(), schema.StreamReaderFromArray([]string{}), func(full string) {
		calls.Add(1)
		if full != "" {
			t.Errorf("expected empty text, got %q", full)
		}
	})
	if _, err := drain(t, sr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected one onFinal call, got %d", calls.Load())
	}
}

func TestWithFinalCancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	sr := WithFinal(ctx, schema.StreamReaderFromArray([]string{"a"}), func(string) { called = true })
	_, err := drain(t, sr)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if called {
		t.Error("onFinal must not run for a cancelled stream")
	}
}

func TestWithFinalRecoversPanic(t *testing.T) {
	t.Parallel()
	sr := WithFinal(context.Background(), schema.StreamReaderFromArray([]string{"a"}), func(string) { panic("boom") })
	_, err := drain(t, sr)
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected panic to surface as stream error, got %v", err)
	}
}

func TestChatModelGatewayStructuredComplete(t *testing.T) {
	t.Parallel()
	cm := &fakeChatModel{reply: schema.AssistantMessage(`{"ok":true}`, nil)}
	gw := NewChatModelGateway(cm)
	msgs := []*schema.Message{schema.SystemMessage("sys"), schema.UserMessage("Extract answer")}
	completion, err := gw.StructuredComplete(context.Background(), msgs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	content, ok := completion.FirstContent()
	if !ok || content != `{"ok":true}` {
		t.Errorf("unexpected content %q (%v)", content, ok)
	}
	if len(cm.lastInput) != 2 {
		t.Errorf("messages not forwarded: %v", cm.lastInput)
	}

	cm.reply = schema.AssistantMessage("", nil)
	completion, err = gw.StructuredComplete(context.Background(), msgs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := completion.FirstContent(); ok {
		t.Error("empty content must be reported as absent")
	}

	cm.err = errors.New("rate limited")
	if _, err := gw.StructuredComplete(context.Background(), msgs); err == nil {
		t.Error("transport errors must propagate")
	}
}

func TestChatModelGatewayStreamComplete(t *testing.T) {
	t.Parallel()
	cm := &fakeChatModel{chunks: []*schema.Message{
		schema.AssistantMessage("Hello", nil),
		nil,
		schema.AssistantMessage(", what is your name?", nil),
	}}
	gw := NewChatModelGateway(cm)
	var final string
	sr, err := gw.StreamComplete(context.Background(), []*schema.Message{schema.UserMessage("Hi")}, func(full string) {
		final = full
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text, err := drain(t, sr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Hello, what is your name?" || final != text {
		t.Errorf("text %q, final %q", text, final)
	}

	cm.err = errors.New("unavailable")
	if _, err := gw.StreamComplete(context.Background(), nil, nil); err == nil {
		t.Error("stream open errors must propagate")
	}
}

func TestCompletionFirstContent(t *testing.T) {
	t.Parallel()
	var nilCompletion *Completion
	if _, ok := nilCompletion.FirstContent(); ok {
		t.Error("nil completion has no content")
	}
	if _, ok := (&Completion{Choices: []Choice{{}}}).FirstContent(); ok {
		t.Error("nil content pointer is absent")
	}
	if c, ok := NewCompletion("x").FirstContent(); !ok || c != "x" {
		t.Error("NewCompletion content not readable")
	}
}
