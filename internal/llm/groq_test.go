package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solchat/colloquium/internal/models"
	"github.com/solchat/colloquium/pkg/logger"
)

func newTestClient(url string) *GroqClient {
	return NewGroqClient(url, "test-key", "test-model", 2*time.Second, logger.NewNop())
}

func replyWith(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": content}},
			},
		})
	}
}

func TestComplete_Success(t *testing.T) {
	var got chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		replyWith("hello there")(w, r)
	}))
	defer srv.Close()

	reply, err := newTestClient(srv.URL).Complete(context.Background(), "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "hello there", reply)

	// System prompt first, user message last.
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, models.RoleUser, got.Messages[1].Role)
	assert.Equal(t, "hi", got.Messages[1].Content)
	assert.Equal(t, "test-model", got.Model)
}

func TestComplete_HistoryTrimming(t *testing.T) {
	var got chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		replyWith("ok")(w, r)
	}))
	defer srv.Close()

	history := []models.ChatTurn{
		{Role: models.RoleUser, Content: "first question"},
		{Role: models.RoleAssistant, Content: "Error: something went wrong locally"},
		{Role: models.RoleAssistant, Content: "a real answer"},
		{Role: "tool", Content: "should be dropped"},
	}

	_, err := newTestClient(srv.URL).Complete(context.Background(), "next", history)
	require.NoError(t, err)

	// system + 2 surviving history turns + the new user message.
	require.Len(t, got.Messages, 4)
	assert.Equal(t, "first question", got.Messages[1].Content)
	assert.Equal(t, "a real answer", got.Messages[2].Content)
}

func TestComplete_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, wantErr: ErrAuthFailed},
		{name: "forbidden", status: http.StatusForbidden, wantErr: ErrAuthFailed},
		{name: "rate limited", status: http.StatusTooManyRequests, wantErr: ErrRateLimited},
		{name: "server error", status: http.StatusInternalServerError, wantErr: ErrOverloaded},
		{name: "bad gateway", status: http.StatusBadGateway, wantErr: ErrOverloaded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL).Complete(context.Background(), "hi", nil)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestComplete_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server notices the client hanging up; the
		// sleep bounds the handler either way so Close cannot wedge.
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	client := NewGroqClient(srv.URL, "test-key", "test-model", 50*time.Millisecond, logger.NewNop())
	_, err := client.Complete(context.Background(), "hi", nil)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestComplete_EmptyReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Complete(context.Background(), "hi", nil)
	assert.Error(t, err)
}
