package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewService_UnknownProviderWithoutBaseURL(t *testing.T) {
	_, err := NewService(&Config{Provider: "unsupported", Model: "m"})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestNewService_KnownProviders(t *testing.T) {
	for provider := range ProviderDefaults {
		t.Run(provider, func(t *testing.T) {
			svc, err := NewService(&Config{Provider: provider, APIKey: "test-key"})
			require.NoError(t, err)
			require.NotNil(t, svc)
		})
	}
}

func TestNewService_GenericProviderWithBaseURL(t *testing.T) {
	svc, err := NewService(&Config{Provider: "custom", BaseURL: "http://localhost:9999/v1", Model: "m"})
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestService_Chat(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Hello!"}}],"usage":{"prompt_tokens":5,"completion_tokens":2,"total_tokens":7}}`))
	}))
	defer srv.Close()

	svc, err := NewService(&Config{Provider: "openai", BaseURL: srv.URL + "/v1", Model: "tutor-model", APIKey: "k"})
	require.NoError(t, err)

	content, stats, err := svc.Chat(context.Background(), FormatMessages("be kind", "hi", []Message{AssistantMessage("earlier")}))
	require.NoError(t, err)
	assert.Equal(t, "Hello!", content)
	assert.Equal(t, 7, stats.TotalTokens)

	assert.Equal(t, "tutor-model", got.Model)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "assistant", got.Messages[1].Role)
	assert.Equal(t, "user", got.Messages[2].Role)
}

func TestService_Chat_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[]}`))
	}))
	defer srv.Close()

	svc, err := NewService(&Config{Provider: "openai", BaseURL: srv.URL + "/v1", APIKey: "k"})
	require.NoError(t, err)

	_, _, err = svc.Chat(context.Background(), []Message{UserMessage("hi")})
	assert.Error(t, err)
}

func TestService_Warmup_NoPanic(t *testing.T) {
	svc, err := NewService(&Config{Provider: "openai", BaseURL: "http://127.0.0.1:1/v1", APIKey: "k"})
	require.NoError(t, err)
	svc.Warmup(context.Background())
}
