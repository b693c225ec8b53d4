package optimizer

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Summarizer compresses free text with a single model call on backend C.
// Callers decide whether the text is long enough to be worth summarizing.
type Summarizer struct {
	invoker    *Invoker
	template   Template
	maxRetries int
	logger     *zap.Logger
}

func NewSummarizer(invoker *Invoker, templates *TemplateRegistry, maxRetries int, logger *zap.Logger) *Summarizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Summarizer{
		invoker:    invoker,
		template:   templates.Summary(),
		maxRetries: maxRetries,
		logger:     logger,
	}
}

func (s *Summarizer) Summarize(ctx context.Context, content string) (string, error) {
	original := utf8.RuneCountInString(content)
	s.logger.Info("summarizing text", zap.Int("length", original))

	summary, err := s.invoker.Invoke(ctx, s.template, map[string]string{"content": content}, BackendC, s.maxRetries)
	if err != nil {
		return "", err
	}

	s.logger.Info("summary completed",
		zap.Int("original_length", original),
		zap.Int("summary_length", utf8.RuneCountInString(summary)),
	)
	return summary, nil
}

// TitleMaxLength bounds generated session titles, in characters.
const TitleMaxLength = 15

// Titler names sessions with a single, unretried call on backend A.
type Titler struct {
	invoker  *Invoker
	template Template
}

func NewTitler(invoker *Invoker, templates *TemplateRegistry) *Titler {
	return &Titler{invoker: invoker, template: templates.Title()}
}

// Title returns a trimmed title of at most TitleMaxLength characters.
func (t *Titler) Title(ctx context.Context, content string) (string, error) {
	out, err := t.invoker.Invoke(ctx, t.template, map[string]string{"content": content}, BackendA, 1)
	if err != nil {
		return "", err
	}
	title := strings.Trim(strings.TrimSpace(out), `"'`)
	if r := []rune(title); len(r) > TitleMaxLength {
		title = string(r[:TitleMaxLength])
	}
	return title, nil
}
