package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"fenced", "Here you go:\n```json\n{\"a\": 1}\n```\nthanks", `{"a": 1}`},
		{"bare", `result {"a": 1} done`, `{"a": 1}`},
		{"trailing comma", "```\n{\"a\": [1, 2,],}\n```", `{"a": [1, 2]}`},
		{"comma inside string", "{\"issues\": [\"x, ]\", \"y,}\",]}", "{\"issues\": [\"x, ]\", \"y,}\"]}"},
		{"escaped quote in string", "{\"a\": \"say \\\"hi\\\", ]\",}", "{\"a\": \"say \\\"hi\\\", ]\"}"},
		{"comment", "{\"url\": \"http://x\", // note\n\"b\": 2}", "{\"url\": \"http://x\",\n\"b\": 2}"},
		{"none", "no json here", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.in))
		})
	}
}

func TestDecodeJSONArray(t *testing.T) {
	var out []map[string]string
	require.NoError(t, DecodeJSONArray("```json\n[{\"q\": \"x\"}]\n```", &out))
	assert.Equal(t, []map[string]string{{"q": "x"}}, out)

	err := DecodeJSONArray("nothing", &out)
	assert.ErrorIs(t, err, ErrNoJSON)

	err = DecodeJSONArray("[not json]", &out)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoJSON)
}

func TestDecodeJSON_KeepsCommasInsideStrings(t *testing.T) {
	var out struct {
		Issues []string `json:"issues"`
	}
	require.NoError(t, DecodeJSON("```json\n{\"issues\": [\"Add owners, ]\", \"Trim {a, }\",],}\n```", &out))
	assert.Equal(t, []string{"Add owners, ]", "Trim {a, }"}, out.Issues)
}

func TestCleanMarkdown(t *testing.T) {
	assert.Equal(t, "# Title", CleanMarkdown("```markdown\n# Title\n```"))
}

func TestNew_UnsupportedProvider(t *testing.T) {
	_, err := New(context.Background(), Options{Provider: "carrier-pigeon"})
	assert.ErrorIs(t, err, ErrUnsupportedProvider)
}

func TestNew_OpenAIRequiresKey(t *testing.T) {
	_, err := New(context.Background(), Options{Provider: "groq"})
	require.Error(t, err)
}

func TestOllama_Invoke(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(ollamaChatResponse{Message: ollamaMessage{Role: "assistant", Content: "# Doc"}})
	}))
	defer srv.Close()

	m, err := New(context.Background(), Options{Provider: "ollama", BaseURL: srv.URL, Model: "llama3.1", Temperature: 0.2})
	require.NoError(t, err)

	out, err := m.Invoke(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "# Doc", out)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Content)
	assert.False(t, got.Stream)
	assert.Equal(t, 0.2, got.Options["temperature"])
}

func TestOllama_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllama("missing", srv.URL, Options{}).Invoke(context.Background(), "", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestWithTimeout(t *testing.T) {
	slow := ModelFunc(func(ctx context.Context, _, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	_, err := WithTimeout(slow, 10*time.Millisecond).Invoke(context.Background(), "", "")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestNormalizeBaseURL(t *testing.T) {
	assert.Equal(t, "https://api.example.com/v1", normalizeBaseURL(" https://api.example.com/v1/chat/completions/ "))
	assert.Equal(t, "", normalizeBaseURL(""))
}
