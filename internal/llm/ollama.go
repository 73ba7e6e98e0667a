package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultOllamaURL = "http://127.0.0.1:11434"

// Ollama calls a local Ollama server's chat endpoint.
type Ollama struct {
	client      *http.Client
	model       string
	endpoint    string
	temperature float64
	maxTokens   int
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string                 `json:"model"`
	Messages []ollamaMessage        `json:"messages"`
	Stream   bool                   `json:"stream"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Error   string        `json:"error,omitempty"`
}

func NewOllama(modelName, baseURL string, opts Options) *Ollama {
	url := strings.TrimSpace(baseURL)
	if url == "" {
		url = defaultOllamaURL
	}
	url = strings.TrimRight(url, "/")
	if !strings.HasSuffix(url, "/api/chat") {
		url += "/api/chat"
	}
	return &Ollama{
		client:      &http.Client{Timeout: 5 * time.Minute},
		model:       modelName,
		endpoint:    url,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
	}
}

func (o *Ollama) Invoke(ctx context.Context, system, user string) (string, error) {
	req := ollamaChatRequest{Model: o.model, Stream: false}
	if strings.TrimSpace(system) != "" {
		req.Messages = append(req.Messages, ollamaMessage{Role: "system", Content: system})
	}
	req.Messages = append(req.Messages, ollamaMessage{Role: "user", Content: user})
	options := map[string]interface{}{}
	if o.temperature > 0 {
		options["temperature"] = o.temperature
	}
	if o.maxTokens > 0 {
		options["num_predict"] = o.maxTokens
	}
	if len(options) > 0 {
		req.Options = options
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read ollama response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama chat: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out ollamaChatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama chat: %s", out.Error)
	}
	if strings.TrimSpace(out.Message.Content) == "" {
		return "", ErrEmptyResponse
	}
	return out.Message.Content, nil
}
