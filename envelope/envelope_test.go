package envelope

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/convoform/oracle"
	"github.com/tbxark/convoform/types"
)

func arrayOpener(chunks ...string) Opener {
	return func(finalize func(string)) (*schema.StreamReader[string], error) {
		return oracle.WithFinal(context.Background(), schema.StreamReaderFromArray(chunks), finalize), nil
	}
}

func TestMarshalSanitizesTimes(t *testing.T) {
	t.Parallel()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	out, err := Marshal(types.StreamData{
		"updatedAt": at,
		"createdAt": &at,
		"nested":    map[string]any{"when": at, "list": []any{at, math.NaN()}},
		"score":     math.Inf(1),
		"missing":   (*time.Time)(nil),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded map[string]any
	if err := sonic.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded["updatedAt"] != "2026-01-02T03:04:05Z" || decoded["createdAt"] != "2026-01-02T03:04:05Z" {
		t.Errorf("times not converted: %v", decoded)
	}
	nested := decoded["nested"].(map[string]any)
	list := nested["list"].([]any)
	if nested["when"] != "2026-01-02T03:04:05Z" || list[0] != "2026-01-02T03:04:05Z" || list[1] != nil {
		t.Errorf("nested values not sanitized: %v", nested)
	}
	if decoded["score"] != nil || decoded["missing"] != nil {
		t.Errorf("non-finite and nil values should be null: %v", decoded)
	}
}

func TestMarshalKeepsStructs(t *testing.T) {
	t.Parallel()
	out, err := Marshal(types.StreamData{
		"collectedData": []types.Field{{FieldName: "Email", FieldValue: types.StringPtr("a@b.c")}},
		"raw":           []byte("hi"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Contains(out, []byte(`"fieldName":"Email"`)) {
		t.Errorf("struct field not encoded with json tags: %s", out)
	}
}

func TestMarshalRejectsUnrepresentableValues(t *testing.T) {
	t.Parallel()
	cases := []types.StreamData{
		{"fn": func() {}},
		{"ch": make(chan int)},
		{"nested": map[string]any{"c": complex(1, 2)}},
		{"keys": map[int]string{1: "a"}},
	}
	for _, data := range cases {
		if _, err := Marshal(data); err == nil {
			t.Errorf("expected error for %v", data)
		}
	}
}

func TestMarshalWalksStructFields(t *testing.T) {
	t.Parallel()
	type score struct {
		Label   string  `json:"label"`
		Value   float64 `json:"value"`
		Note    string  `json:"note,omitempty"`
		Skipped string  `json:"-"`
		hidden  string
	}
	out, err := Marshal(types.StreamData{
		"score": score{Label: "fit", Value: math.NaN(), Skipped: "x", hidden: "y"},
		"field": types.Field{FieldName: "Email"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded map[string]map[string]any
	if err := sonic.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	got := decoded["score"]
	if v, ok := got["value"]; !ok || v != nil {
		t.Errorf("NaN inside a struct should be null: %v", got)
	}
	if got["label"] != "fit" {
		t.Errorf("unexpected label: %v", got)
	}
	for _, key := range []string{"note", "Skipped", "hidden"} {
		if _, ok := got[key]; ok {
			t.Errorf("%s should be omitted: %v", key, got)
		}
	}
	cfg, ok := decoded["field"]["fieldConfiguration"].(map[string]any)
	if !ok {
		t.Fatalf("nested struct not encoded: %v", decoded["field"])
	}
	if _, ok := cfg["options"]; ok {
		t.Errorf("empty options should be omitted: %v", cfg)
	}
}

func TestMarshalRejectsStructsWithUnrepresentableFields(t *testing.T) {
	t.Parallel()
	type hook struct {
		Name     string `json:"name"`
		Callback func() `json:"callback"`
	}
	_, err := Marshal(types.StreamData{"hook": hook{Name: "x", Callback: func() {}}})
	if err == nil || !strings.Contains(err.Error(), "callback") {
		t.Fatalf("expected error naming the field, got %v", err)
	}
}

func TestMarshalRejectsCyclicValues(t *testing.T) {
	t.Parallel()
	loop := map[string]any{}
	loop["self"] = loop
	if _, err := Marshal(types.StreamData{"loop": loop}); err == nil {
		t.Fatal("expected error for a self-referencing map")
	}
}

func TestOpenFinalizesBeforeEOF(t *testing.T) {
	t.Parallel()
	var finished string
	env, err := Open([]byte(`{"currentFieldIndex":0}`), func(full string) { finished = full }, arrayOpener("Hi, ", "what is your name?"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text, err := env.ReadAll()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case <-env.Done():
	default:
		t.Fatal("side channel must be closed by the time the text stream ends")
	}
	if text != "Hi, what is your name?" || env.Message() != text || finished != text {
		t.Errorf("text %q, message %q, finished %q", text, env.Message(), finished)
	}
	if string(env.Data()) != `{"currentFieldIndex":0}` {
		t.Errorf("unexpected data %s", env.Data())
	}
}

func TestOpenZeroChunks(t *testing.T) {
	t.Parallel()
	calls := 0
	env, err := Open([]byte(`{}`), func(string) { calls++ }, arrayOpener())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var buf bytes.Buffer
	if _, err := env.WriteTo(&buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case <-env.Done():
	default:
		t.Fatal("done must be closed for an empty stream")
	}
	if buf.String() != "2:[{}]\n" {
		t.Errorf("unexpected wire output %q", buf.String())
	}
	if calls != 1 {
		t.Errorf("expected onFinish once, got %d", calls)
	}
}

func TestOpenFailureClosesDone(t *testing.T) {
	t.Parallel()
	boom := errors.New("unavailable")
	env, err := Open([]byte(`{}`), nil, func(func(string)) (*schema.StreamReader[string], error) {
		return nil, boom
	})
	if !errors.Is(err, boom) || env != nil {
		t.Fatalf("expected open error, got %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()
	calls := 0
	env, err := Open(nil, func(string) { calls++ }, arrayOpener("a", "b"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	env.Close()
	env.Close()
	<-env.Done()
	if calls > 1 {
		t.Errorf("onFinish ran %d times", calls)
	}
}

type flushRecorder struct {
	bytes.Buffer
	flushes int
}

func (f *flushRecorder) Flush() {
	f.flushes++
}

func TestWriteToDataLineComesFirst(t *testing.T) {
	t.Parallel()
	env, err := Open([]byte(`{"totalFields":3}`), nil, arrayOpener("Hello \"there\"", "\nnext"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	w := &flushRecorder{}
	n, err := env.WriteTo(w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "2:[{\"totalFields\":3}]\n0:\"Hello \\\"there\\\"\"\n0:\"\\nnext\"\n"
	if w.String() != want {
		t.Errorf("wire output:\n%q\nwant:\n%q", w.String(), want)
	}
	if n != int64(len(want)) {
		t.Errorf("written %d, want %d", n, len(want))
	}
	if w.flushes != 3 {
		t.Errorf("expected a flush per line, got %d", w.flushes)
	}
}

func TestWriteToStreamError(t *testing.T) {
	t.Parallel()
	boom := errors.New("upstream reset")
	env, err := Open([]byte(`{}`), nil, func(finalize func(string)) (*schema.StreamReader[string], error) {
		sr, sw := schema.Pipe[string](2)
		go func() {
			defer sw.Close()
			sw.Send("partial", nil)
			sw.Send("", boom)
		}()
		return sr, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var buf bytes.Buffer
	if _, err := env.WriteTo(&buf); !errors.Is(err, boom) {
		t.Fatalf("expected stream error, got %v", err)
	}
	if !strings.HasSuffix(buf.String(), "3:\"upstream reset\"\n") {
		t.Errorf("missing error line: %q", buf.String())
	}
}
