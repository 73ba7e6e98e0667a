package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrUnsupportedProvider = errors.New("unsupported llm provider")
	ErrEmptyResponse       = errors.New("llm returned an empty response")
)

// Model is the text-completion capability every pipeline step depends on.
type Model interface {
	Invoke(ctx context.Context, system, user string) (string, error)
}

// ModelFunc adapts a function to Model.
type ModelFunc func(ctx context.Context, system, user string) (string, error)

func (f ModelFunc) Invoke(ctx context.Context, system, user string) (string, error) {
	return f(ctx, system, user)
}

type Options struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

const (
	defaultGeminiModel = "gemini-2.5-flash"
	defaultOpenAIModel = "gpt-4o-mini"
	defaultGroqModel   = "llama-3.3-70b-versatile"
	defaultOllamaModel = "llama3.1"
	groqBaseURL        = "https://api.groq.com/openai/v1"
)

// New constructs the configured provider. It is called once at startup
// and the result is shared by every step of every run.
func New(ctx context.Context, opts Options) (Model, error) {
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	if provider == "" {
		provider = "gemini"
	}

	var m Model
	var err error
	switch provider {
	case "gemini":
		m, err = NewGemini(ctx, opts.APIKey, orDefault(opts.Model, defaultGeminiModel), opts)
	case "openai":
		m, err = NewOpenAI(opts.APIKey, orDefault(opts.Model, defaultOpenAIModel), opts.BaseURL, opts)
	case "groq":
		m, err = NewOpenAI(opts.APIKey, orDefault(opts.Model, defaultGroqModel), orDefault(opts.BaseURL, groqBaseURL), opts)
	case "ollama":
		m = NewOllama(orDefault(opts.Model, defaultOllamaModel), opts.BaseURL, opts)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, opts.Provider)
	}
	if err != nil {
		return nil, err
	}
	if opts.Timeout > 0 {
		m = WithTimeout(m, opts.Timeout)
	}
	return m, nil
}

// WithTimeout bounds every call to m by d.
func WithTimeout(m Model, d time.Duration) Model {
	return ModelFunc(func(ctx context.Context, system, user string) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return m.Invoke(ctx, system, user)
	})
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}
