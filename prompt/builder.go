package prompt

import (
	"fmt"
	"strings"
	"time"
)

const defaultLang = "English"

type Builder struct {
	lang                   string
	now                    func() time.Time
	questionSystemPrompt   string
	extractionSystemPrompt string
	namingSystemPrompt     string
}

type Option func(*Builder)

// WithLang sets the reply language used by the question template.
func WithLang(lang string) Option {
	return func(b *Builder) {
		b.lang = lang
	}
}

// WithClock overrides the clock used for the current date section.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		b.now = now
	}
}

// WithQuestionSystemPrompt overrides DefaultQuestionSystemPrompt.
// If the template contains "%s", it will be formatted with the language.
func WithQuestionSystemPrompt(template string) Option {
	return func(b *Builder) {
		b.questionSystemPrompt = template
	}
}

func WithExtractionSystemPrompt(template string) Option {
	return func(b *Builder) {
		b.extractionSystemPrompt = template
	}
}

func WithNamingSystemPrompt(template string) Option {
	return func(b *Builder) {
		b.namingSystemPrompt = template
	}
}

func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		lang:                   defaultLang,
		now:                    time.Now,
		questionSystemPrompt:   DefaultQuestionSystemPrompt,
		extractionSystemPrompt: DefaultExtractionSystemPrompt,
		namingSystemPrompt:     DefaultNamingSystemPrompt,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	if b.lang == "" {
		b.lang = defaultLang
	}
	if b.now == nil {
		b.now = time.Now
	}
	return b
}

func (b *Builder) Lang() string {
	return b.lang
}

func (b *Builder) currentDateSection() string {
	return fmt.Sprintf("# Current Date:\n%s", b.now().Format(time.RFC3339))
}

func withLang(template, lang string) string {
	if strings.Contains(template, "%s") {
		return fmt.Sprintf(template, lang)
	}
	return template
}

func joinSections(sections ...string) string {
	out := make([]string, 0, len(sections))
	for _, s := range sections {
		if s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "\n\n")
}
