package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flynn-ai/unichat/internal/errors"
	"github.com/flynn-ai/unichat/internal/history"
	"github.com/flynn-ai/unichat/internal/provider"
	"github.com/flynn-ai/unichat/internal/stats"
	"github.com/flynn-ai/unichat/pkg/protocol"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(&Config{APIKey: "sk-test", BaseURL: srv.URL + "/", HTTPClient: srv.Client()})
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(&Config{APIKey: "  "})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindUnsupported))
	assert.Contains(t, errors.FormatUserMessage(err), "ANTHROPIC_API_KEY")
}

func TestClientCreateMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, messagesPath, r.URL.Path)
		assert.Equal(t, "sk-test", r.Header.Get("X-API-Key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("Anthropic-Version"))

		var req MessageRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		assert.Equal(t, "You are terse.", req.System)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4-5",
			"content":[{"type":"text","text":"Hi!"}],"stop_reason":"end_turn","usage":{"input_tokens":3,"output_tokens":2}}`)
	}))
	defer srv.Close()

	collector := stats.NewCollector()
	h := NewHandler(newTestClient(t, srv), nil, collector)
	conv := []protocol.Message{
		protocol.Text(protocol.RoleSystem, "You are terse."),
		protocol.Text(protocol.RoleUser, "Hello"),
	}

	resp, err := h.Complete(context.Background(), conv, nil, claude, provider.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "Hi!", resp.Message().Content.String())
	assert.Equal(t, 5, resp.Usage.TotalTokens)
	assert.Equal(t, int64(1), collector.Collect().RequestCount)
}

func TestClientStreamMessage(t *testing.T) {
	body := strings.Join([]string{
		"event: message_start",
		"data: " + evMessageStart,
		"",
		": keep-alive comment",
		"event: content_block_start",
		"data: " + evTextStart,
		"",
		"event: content_block_delta",
		"data: " + evText("Hi"),
		"",
		"event: content_block_stop",
		"data: " + evBlockStop,
		"",
		"event: message_delta",
		"data: " + evStopReason("end_turn"),
		"",
		"event: message_stop",
		"data: " + evMessageStop,
		"",
	}, "\n")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, body)
	}))
	defer srv.Close()

	h := history.New()
	handler := NewHandler(newTestClient(t, srv), h, nil)

	stream, err := handler.Stream(context.Background(), []protocol.Message{protocol.Text(protocol.RoleUser, "Hello")}, nil, claude, provider.DefaultOptions())
	require.NoError(t, err)

	chunks, err := provider.Drain(stream)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "Hi", joinedContent(chunks))
	assert.Equal(t, protocol.FinishStop, chunks[2].FinishReason())
	assert.Equal(t, "Hi", h.Messages()[0].Content.String())
}

func TestClientErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   errors.Kind
	}{
		{"rate limited", 429, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`, errors.KindRateLimited},
		{"invalid request", 400, `{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`, errors.KindBadRequest},
		{"overloaded", 529, `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`, errors.KindAPIError},
		{"plain 400", 400, `nope`, errors.KindBadRequest},
		{"server error", 500, ``, errors.KindAPIError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			collector := stats.NewCollector()
			h := NewHandler(newTestClient(t, srv), nil, collector)
			_, err := h.Complete(context.Background(), []protocol.Message{protocol.Text(protocol.RoleUser, "hi")}, nil, claude, provider.DefaultOptions())

			require.Error(t, err)
			assert.Equal(t, tt.want, errors.KindOf(err))
			assert.Equal(t, tt.status, errors.StatusOf(err))
			assert.Equal(t, int64(1), collector.Collect().ErrorCount)
		})
	}
}

func TestClientConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := newTestClient(t, srv)
	srv.Close()

	_, err := NewHandler(c, nil, nil).Stream(context.Background(), []protocol.Message{protocol.Text(protocol.RoleUser, "hi")}, nil, claude, provider.DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindConnectionFailed))
}

func TestSSEReader(t *testing.T) {
	body := "event: ping\ndata: {\"type\":\"ping\"}\n\n" +
		": comment\n\n" +
		"data: {\"a\":\n" +
		"data: 1}\n\n" +
		"event: message_stop\ndata: {\"type\":\"message_stop\"}"
	r := newSSEReader(io.NopCloser(strings.NewReader(body)))

	ev, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "ping", ev.Name)
	assert.JSONEq(t, `{"type":"ping"}`, string(ev.Data))

	ev, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, "", ev.Name)
	assert.JSONEq(t, `{"a":1}`, string(ev.Data))

	ev, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, "message_stop", ev.Name)

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
	require.NoError(t, r.Close())
}

func TestNormalizeErrorPassesThroughAppErrors(t *testing.T) {
	in := errors.New(errors.KindUnsupported, "no such model")
	out := NormalizeError(in)
	assert.Equal(t, errors.KindUnsupported, errors.KindOf(out))

	assert.Equal(t, errors.KindUnknown, errors.KindOf(NormalizeError(io.ErrUnexpectedEOF)))
	assert.Nil(t, NormalizeError(nil))
}
