package oracle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/schema"
)

// WithFinal forwards src through a new stream, collecting the text. onFinal
// runs with the full text once src is exhausted, before the returned reader
// reports io.EOF. A stream that fails, is cancelled through ctx, or is closed
// by its consumer never calls onFinal. src is always closed.
func WithFinal(ctx context.Context, src *schema.StreamReader[string], onFinal func(fullText string)) *schema.StreamReader[string] {
	sr, sw := schema.Pipe[string](1)
	go func() {
		defer src.Close()
		defer sw.Close()
		defer func() {
			if e := recover(); e != nil {
				sw.Send("", fmt.Errorf("recover from panic: %v", e))
			}
		}()
		var sb strings.Builder
		for {
			if err := ctx.Err(); err != nil {
				sw.Send("", err)
				return
			}
			chunk, err := src.Recv()
			if errors.Is(err, io.EOF) {
				if onFinal != nil {
					onFinal(sb.String())
				}
				return
			}
			if err != nil {
				sw.Send("", err)
				return
			}
			if chunk == "" {
				continue
			}
			sb.WriteString(chunk)
			if closed := sw.Send(chunk, nil); closed {
				return
			}
		}
	}()
	return sr
}
