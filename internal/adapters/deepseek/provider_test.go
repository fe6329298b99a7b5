package deepseek

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewProvider("sk-test", ChatDefault, WithEndpoint(server.URL))
}

func TestProviderChat(t *testing.T) {
	var got map[string]any
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"y","model":"deepseek-chat","choices":[{"index":0,"message":{"role":"assistant","content":"hi"},"finish_reason":"stop"}]}`)
	})

	resp, err := p.Chat(context.Background(), []Message{UserMessage("ping")})
	require.NoError(t, err)

	assert.Equal(t, "y", resp.ID)
	assert.Equal(t, "hi", resp.Content())
	assert.Equal(t, FinishStop, resp.Choices[0].FinishReason)

	assert.Len(t, got, 3)
	assert.Equal(t, "deepseek-chat", got["model"])
	assert.Equal(t, false, got["stream"])
	assert.Equal(t, []any{map[string]any{"role": "user", "content": "ping"}}, got["messages"])
}

func TestProviderStreamChat(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		_, _ = io.WriteString(w, chunkA)
		flusher.Flush()
		_, _ = io.WriteString(w, chunkB)
		flusher.Flush()
	})

	stream, err := p.StreamChat(context.Background(), []Message{SystemMessage("s"), UserMessage("u")})
	require.NoError(t, err)
	defer stream.Close()

	var text string
	var finished bool
	for {
		d, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		text += d.Delta.Content
		finished = finished || d.Finished()
	}
	assert.Equal(t, "Hello!", text)
	assert.True(t, finished)
}

func TestProviderErrorStatus(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"nested error", http.StatusUnauthorized, `{"error":{"message":"Authentication Fails","type":"authentication_error"}}`, "Authentication Fails"},
		{"flat message", http.StatusPaymentRequired, `{"message":"Insufficient Balance"}`, "Insufficient Balance"},
		{"not json", http.StatusBadGateway, `<html>bad gateway</html>`, "Bad Gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := p.StreamChat(context.Background(), []Message{UserMessage("u")})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrTransport)

			var te *TransportError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, tt.status, te.StatusCode)
			assert.Equal(t, tt.wantMsg, te.Message)
		})
	}
}

func TestProviderNoMessages(t *testing.T) {
	called := false
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := p.Chat(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoMessages)
	assert.False(t, called, "no request should be sent")
}

func TestProviderUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	p := NewProvider("sk-test", ChatDefault, WithEndpoint(url))
	_, err := p.Chat(context.Background(), []Message{UserMessage("u")})
	assert.ErrorIs(t, err, ErrTransport)
}

func TestProviderChatMalformedBody(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":"y","choices":[{"message":{"role":"wizard"}}]}`)
	})

	_, err := p.Chat(context.Background(), []Message{UserMessage("u")})
	assert.True(t, IsDecodeKind(err, KindJSON))
}

func TestProviderResponseTimeout(t *testing.T) {
	release := make(chan struct{})
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	})
	defer close(release)
	WithResponseTimeout(50 * time.Millisecond)(p)

	_, err := p.StreamChat(context.Background(), []Message{UserMessage("u")})
	assert.ErrorIs(t, err, ErrTransport)
}

func TestProviderDefaults(t *testing.T) {
	p := NewProvider("k", ReasoningDefault)
	assert.Equal(t, DefaultEndpoint, p.Endpoint())
	assert.Equal(t, ReasoningDefault, p.GetModel())
}
