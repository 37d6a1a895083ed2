package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/madchat/backend/internal/model/chat"
	"github.com/zhouzirui/madchat/backend/internal/service/ai"
	chatservice "github.com/zhouzirui/madchat/backend/internal/service/chat"
	"github.com/zhouzirui/madchat/backend/internal/service/conversation"
)

type slowGenerator struct {
	delay time.Duration
	reply string
	err   error
}

func (g *slowGenerator) GenerateReply(ctx context.Context, _ []chat.Turn, _ ai.GenerateOptions) (string, error) {
	select {
	case <-time.After(g.delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	if g.err != nil {
		return "Error: " + g.err.Error(), g.err
	}
	return g.reply, nil
}

func (g *slowGenerator) BackendName() string { return "slow" }

func setupRouter(gen conversation.Generator, heartbeat time.Duration) *chi.Mux {
	engine := conversation.NewService(conversation.Dependencies{
		Sessions:  chatservice.NewService(),
		Generator: gen,
	})

	r := chi.NewRouter()
	New(engine).WithHeartbeat(heartbeat).RegisterRoutes(r)
	return r
}

func readEvents(t *testing.T, body *bytes.Buffer) []StreamResponse {
	t.Helper()

	var events []StreamResponse
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := scanner.Text()
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		var event StreamResponse
		require.NoError(t, json.Unmarshal([]byte(data), &event))
		events = append(events, event)
	}
	return events
}

func eventNames(events []StreamResponse) []string {
	names := make([]string, 0, len(events))
	for _, e := range events {
		names = append(names, e.Event)
	}
	return names
}

func TestStreamDeliversReply(t *testing.T) {
	r := setupRouter(&slowGenerator{reply: "leave me alone"}, time.Hour)

	req := httptest.NewRequest(http.MethodPost, "/chat/stream", strings.NewReader(`{"message_content":"hi","conversation_id":"s1"}`))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, "text/event-stream", resp.Header().Get("Content-Type"))

	events := readEvents(t, resp.Body)
	require.Equal(t, []string{"start", "message", "end"}, eventNames(events))
	assert.Equal(t, "s1", events[0].SessionID)
	assert.Equal(t, "leave me alone", events[1].Content)
	assert.Equal(t, "s1", events[1].SessionID)
	assert.True(t, events[2].Finished)
}

func TestStreamSendsHeartbeats(t *testing.T) {
	r := setupRouter(&slowGenerator{delay: 60 * time.Millisecond, reply: "finally"}, 5*time.Millisecond)

	req := httptest.NewRequest(http.MethodPost, "/chat/stream", strings.NewReader(`{"message_content":"hi"}`))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	names := eventNames(readEvents(t, resp.Body))
	require.GreaterOrEqual(t, len(names), 4)
	assert.Equal(t, "start", names[0])
	assert.Contains(t, names, "heartbeat")
	assert.Equal(t, []string{"message", "end"}, names[len(names)-2:])
}

func TestStreamNewConversationCarriesIDFromStart(t *testing.T) {
	r := setupRouter(&slowGenerator{delay: 40 * time.Millisecond, reply: "what"}, 5*time.Millisecond)

	req := httptest.NewRequest(http.MethodPost, "/chat/stream", strings.NewReader(`{"message_content":"hi"}`))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	events := readEvents(t, resp.Body)
	require.NotEmpty(t, events)
	require.Equal(t, "start", events[0].Event)

	id := events[0].SessionID
	require.NotEmpty(t, id)
	for _, event := range events {
		assert.Equal(t, id, event.SessionID, "event %s", event.Event)
	}
}

func TestStreamReportsUpstreamError(t *testing.T) {
	r := setupRouter(&slowGenerator{err: &ai.UpstreamError{Backend: "slow", Err: errors.New("model offline")}}, time.Hour)

	req := httptest.NewRequest(http.MethodPost, "/chat/stream", strings.NewReader(`{"message_content":"hi"}`))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	events := readEvents(t, resp.Body)
	require.Equal(t, []string{"start", "error"}, eventNames(events))
	assert.Contains(t, events[1].Error, "model offline")
	assert.Equal(t, conversation.FallbackReply, events[1].Content)
	assert.NotEmpty(t, events[1].SessionID)
}

func TestStreamInvalidBody(t *testing.T) {
	r := setupRouter(&slowGenerator{reply: "k"}, time.Hour)

	req := httptest.NewRequest(http.MethodPost, "/chat/stream", strings.NewReader(`not json`))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

type plainWriter struct {
	header http.Header
	code   int
	body   bytes.Buffer
}

func (w *plainWriter) Header() http.Header         { return w.header }
func (w *plainWriter) Write(b []byte) (int, error) { return w.body.Write(b) }
func (w *plainWriter) WriteHeader(code int)        { w.code = code }

func TestHandleStreamRequestNeedsFlusher(t *testing.T) {
	h := New(nil)
	err := h.HandleStreamRequest(context.Background(), &plainWriter{header: http.Header{}}, conversation.Request{})
	assert.ErrorIs(t, err, ErrStreamingUnsupported)
}
