package envelope

import (
	"errors"
	"fmt"
	"io"

	"github.com/bytedance/sonic"
)

// Line prefixes of the AI data stream format understood by the web client.
const (
	prefixText  = "0:"
	prefixData  = "2:"
	prefixError = "3:"
)

const (
	ContentType       = "text/plain; charset=utf-8"
	StreamHeader      = "X-Vercel-AI-Data-Stream"
	StreamHeaderValue = "v1"
)

type flusher interface {
	Flush()
}

// WriteTo writes the side payload line first and then one line per text
// chunk, flushing after each line when w supports it. The stream is closed on
// return. A stream error is written as an error line and returned.
func (e *Envelope) WriteTo(w io.Writer) (int64, error) {
	defer e.closeText()
	var written int64
	write := func(prefix, payload string) error {
		n, err := io.WriteString(w, prefix+payload+"\n")
		written += int64(n)
		if err != nil {
			return err
		}
		if f, ok := w.(flusher); ok {
			f.Flush()
		}
		return nil
	}

	data := e.data
	if len(data) == 0 {
		data = []byte("{}")
	}
	if err := write(prefixData, "["+string(data)+"]"); err != nil {
		return written, fmt.Errorf("write stream data: %w", err)
	}
	for {
		chunk, err := e.text.Recv()
		if errors.Is(err, io.EOF) {
			return written, nil
		}
		if err != nil {
			msg, _ := sonic.MarshalString(err.Error())
			if wErr := write(prefixError, msg); wErr != nil {
				return written, fmt.Errorf("write stream error: %w", wErr)
			}
			return written, err
		}
		encoded, mErr := sonic.MarshalString(chunk)
		if mErr != nil {
			return written, fmt.Errorf("encode text chunk: %w", mErr)
		}
		if err := write(prefixText, encoded); err != nil {
			return written, fmt.Errorf("write text chunk: %w", err)
		}
	}
}
