package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeCompletionServer(t *testing.T, status int, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)

		if status != http.StatusOK {
			w.WriteHeader(status)
			fmt.Fprint(w, `{"error":{"message":"induced failure","type":"test"}}`)
			return
		}

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Messages)

		resp := chatResponse{Model: req.Model}
		resp.Choices = []struct {
			Message chatMessage `json:"message"`
		}{{Message: chatMessage{Role: "assistant", Content: reply}}}
		resp.Usage.PromptTokens = 10
		resp.Usage.CompletionTokens = 5
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestOpenAIClientGenerate(t *testing.T) {
	server := fakeCompletionServer(t, http.StatusOK, "generated answer")
	defer server.Close()

	client, err := NewOpenAIClient(WithAPIKey("k"), WithBaseURL(server.URL))
	require.NoError(t, err)

	t.Run("returns completion", func(t *testing.T) {
		resp, err := client.Generate(context.Background(), "hello")
		require.NoError(t, err)
		assert.Equal(t, "generated answer", resp.Text)
		assert.Equal(t, 10, resp.PromptTokens)
		assert.Equal(t, 5, resp.OutputTokens)
	})

	t.Run("empty prompt rejected", func(t *testing.T) {
		_, err := client.Generate(context.Background(), "")
		assert.ErrorIs(t, err, ErrEmptyPrompt)
	})
}

func TestOpenAIClientFailureKinds(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited},
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"server error", http.StatusInternalServerError, ErrTransport},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := fakeCompletionServer(t, tc.status, "")
			defer server.Close()

			client, err := NewOpenAIClient(WithAPIKey("k"), WithBaseURL(server.URL))
			require.NoError(t, err)

			_, err = client.Generate(context.Background(), "hello")
			assert.ErrorIs(t, err, tc.want)
		})
	}

	t.Run("timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		client, err := NewOpenAIClient(
			WithAPIKey("k"),
			WithBaseURL(server.URL),
			WithTimeout(20*time.Millisecond))
		require.NoError(t, err)

		_, err = client.Generate(context.Background(), "hello")
		assert.ErrorIs(t, err, ErrTimeout)
	})

	t.Run("missing api key", func(t *testing.T) {
		_, err := NewOpenAIClient()
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}
