package chatstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// streamServer writes each chunk separately and flushes between them so the
// client sees fragmented reads.
func streamServer(t *testing.T, chunks ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		for _, c := range chunks {
			_, _ = w.Write([]byte(c))
			if flusher != nil {
				flusher.Flush()
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testRequest() Request {
	return Request{
		Content:          "What does acme do?",
		MessageID:        "msg-1",
		ChatID:           "chat-1",
		FocusMode:        "webSearch",
		OptimizationMode: "balanced",
		ChatModel:        ModelRef{Name: "gpt-4o-mini", Provider: "openai"},
		EmbeddingModel:   ModelRef{Name: "text-embedding-3-small", Provider: "openai"},
	}
}

func TestSend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		chunks  []string
		want    string
		wantErr string
	}{
		{
			name:   "assembles message fragments",
			chunks: []string{"{\"type\":\"message\",\"data\":\"Hel\"}\n{\"type\":\"message\",\"data\":\"lo\"}\n{\"type\":\"messageEnd\"}\n"},
			want:   "Hello",
		},
		{
			name:   "records split across chunks",
			chunks: []string{`{"type":"mess`, "age\",\"data\":\"  Hel\"}\n{\"ty", "pe\":\"message\",\"data\":\"lo  \"}\n", `{"type":"messageEnd"}` + "\n"},
			want:   "Hello",
		},
		{
			name:   "returns partial text without messageEnd",
			chunks: []string{"{\"type\":\"message\",\"data\":\"partial \"}\n", "{\"type\":\"message\",\"data\":\"answer\"}\n"},
			want:   "partial answer",
		},
		{
			name:   "ignores everything after messageEnd",
			chunks: []string{"{\"type\":\"message\",\"data\":\"done\"}\n{\"type\":\"messageEnd\"}\n{\"type\":\"error\",\"data\":\"late\"}\n"},
			want:   "done",
		},
		{
			name:   "ignores unknown record types",
			chunks: []string{"{\"type\":\"sources\",\"data\":[{\"url\":\"https://acme.com\"}]}\n{\"type\":\"message\",\"data\":\"ok\"}\n{\"type\":\"messageEnd\"}\n"},
			want:   "ok",
		},
		{
			name:    "error record fails the call",
			chunks:  []string{"{\"type\":\"message\",\"data\":\"x\"}\n{\"type\":\"error\",\"data\":\"boom\"}\n"},
			wantErr: "boom",
		},
		{
			name:   "empty stream yields empty answer",
			chunks: nil,
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := streamServer(t, tt.chunks...)
			client := NewClient(WithBaseURL(srv.URL))

			got, err := client.Send(context.Background(), testRequest())
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				var bse *BackendStreamError
				assert.ErrorAs(t, err, &bse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSendRequestBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "What does acme do?", body["content"])
		assert.Equal(t, "chat-1", body["chatId"])
		assert.Equal(t, "webSearch", body["focusMode"])
		assert.Equal(t, "balanced", body["optimizationMode"])
		assert.Equal(t, []any{}, body["files"])
		assert.Equal(t, map[string]any{"messageId": "msg-1", "chatId": "chat-1", "content": "What does acme do?"}, body["message"])
		assert.Equal(t, map[string]any{"name": "gpt-4o-mini", "provider": "openai"}, body["chatModel"])
		assert.Equal(t, []any{[]any{"human", "q1"}, []any{"assistant", "a1"}}, body["history"])
		assert.Equal(t, "be terse", body["systemInstructions"])

		_, _ = w.Write([]byte("{\"type\":\"messageEnd\"}\n"))
	}))
	defer srv.Close()

	req := testRequest()
	req.History = []Turn{{Role: RoleHuman, Text: "q1"}, {Role: RoleAssistant, Text: "a1"}}
	req.SystemInstructions = "be terse"

	_, err := NewClient(WithBaseURL(srv.URL)).Send(context.Background(), req)
	require.NoError(t, err)
}

func TestSendEmptyHistoryEncodesAsArray(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "[]", string(body["history"]))
		_, hasSys := body["systemInstructions"]
		assert.False(t, hasSys)
		_, _ = w.Write([]byte("{\"type\":\"messageEnd\"}\n"))
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).Send(context.Background(), testRequest())
	require.NoError(t, err)
}

func TestSendGeneratesMessageID(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body wireRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotEmpty(t, body.Message.MessageID)
		_, _ = w.Write([]byte("{\"type\":\"messageEnd\"}\n"))
	}))
	defer srv.Close()

	req := testRequest()
	req.MessageID = ""
	_, err := NewClient(WithBaseURL(srv.URL)).Send(context.Background(), req)
	require.NoError(t, err)
}

func TestSendStatusErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		status        int
		body          string
		wantRetryable bool
	}{
		{name: "bad request", status: http.StatusBadRequest, body: `{"message":"invalid model"}`},
		{name: "rate limited", status: http.StatusTooManyRequests, body: "slow down", wantRetryable: true},
		{name: "server error", status: http.StatusInternalServerError, body: strings.Repeat("e", 1000), wantRetryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(WithBaseURL(srv.URL)).Send(context.Background(), testRequest())
			require.Error(t, err)

			var se *StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.status, se.StatusCode)
			assert.LessOrEqual(t, len(se.Snippet), snippetLimit+3)
			assert.Contains(t, err.Error(), "unexpected status")
			assert.Equal(t, tt.wantRetryable, IsRetryable(err))
		})
	}
}

func TestSendRecordTooLarge(t *testing.T) {
	t.Parallel()

	srv := streamServer(t, strings.Repeat("x", 64))
	_, err := NewClient(WithBaseURL(srv.URL), WithMaxRecordBytes(32)).Send(context.Background(), testRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRecordTooLarge)
}

func TestSendTransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).Send(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send request")
}

func TestSendContextCanceled(t *testing.T) {
	t.Parallel()

	srv := streamServer(t, "{\"type\":\"messageEnd\"}\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(WithBaseURL(srv.URL), WithRateLimit(1)).Send(ctx, testRequest())
	require.Error(t, err)
}
