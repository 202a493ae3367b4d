package envelope

import (
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/cloudwego/eino/schema"
)

// Opener starts the text stream. It must arrange for finalize to be called
// with the full text once the stream completes.
type Opener func(finalize func(fullText string)) (*schema.StreamReader[string], error)

// Envelope pairs a text stream with a side payload that is resolved before the
// stream starts. Done is closed exactly once: when generation finishes, when
// opening fails, or when the envelope is closed early.
type Envelope struct {
	data []byte
	text *schema.StreamReader[string]

	once    sync.Once
	done    chan struct{}
	message string

	closeOnce sync.Once
}

// Open resolves the side payload, then opens the text stream. onFinish, if set,
// runs after Done is closed with the full text of a completed stream.
func Open(data []byte, onFinish func(fullText string), open Opener) (*Envelope, error) {
	e := &Envelope{
		data: data,
		done: make(chan struct{}),
	}
	text, err := open(func(fullText string) {
		if e.finish(fullText) && onFinish != nil {
			onFinish(fullText)
		}
	})
	if err != nil {
		e.finish("")
		return nil, err
	}
	e.text = text
	return e, nil
}

func (e *Envelope) finish(fullText string) bool {
	finished := false
	e.once.Do(func() {
		e.message = fullText
		close(e.done)
		finished = true
	})
	return finished
}

// Data returns the serialised side payload.
func (e *Envelope) Data() []byte {
	return e.data
}

func (e *Envelope) Text() *schema.StreamReader[string] {
	return e.text
}

func (e *Envelope) Done() <-chan struct{} {
	return e.done
}

// Message returns the full text. It is only meaningful after Done is closed.
func (e *Envelope) Message() string {
	select {
	case <-e.done:
		return e.message
	default:
		return ""
	}
}

// Close abandons the stream. It is safe to call after the stream completed.
func (e *Envelope) Close() {
	e.finish(e.Message())
	e.closeText()
}

// closeText closes the text stream once; eino readers must not be closed twice.
func (e *Envelope) closeText() {
	e.closeOnce.Do(func() {
		if e.text != nil {
			e.text.Close()
		}
	})
}

// ReadAll drains the text stream and returns the concatenated text.
func (e *Envelope) ReadAll() (string, error) {
	defer e.closeText()
	var sb strings.Builder
	for {
		chunk, err := e.text.Recv()
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(chunk)
	}
}
