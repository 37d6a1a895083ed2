package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/madchat/backend/internal/model/chat"
	"github.com/zhouzirui/madchat/backend/internal/model/persona"
	"github.com/zhouzirui/madchat/backend/internal/service/ai"
	chatservice "github.com/zhouzirui/madchat/backend/internal/service/chat"
	"github.com/zhouzirui/madchat/backend/internal/service/conversation"
	"github.com/zhouzirui/madchat/backend/internal/service/obfuscate"
)

type stubGenerator struct{}

func (stubGenerator) GenerateReply(context.Context, []chat.Turn, ai.GenerateOptions) (string, error) {
	return "meh", nil
}

func (stubGenerator) BackendName() string { return "stub" }

func newTestRouter(generation persona.Generation) http.Handler {
	engine := conversation.NewService(conversation.Dependencies{
		Sessions:  chatservice.NewService(),
		Generator: stubGenerator{},
		Prompts:   ai.NewPromptBuilder(generation, nil),
	})
	return NewRouter(engine)
}

func TestHealth(t *testing.T) {
	r := newTestRouter(persona.GenerationUncensored)

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message_content":"hi"}`))
	r.ServeHTTP(httptest.NewRecorder(), req)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	var body Health
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, Health{
		Status:     "ok",
		Backend:    "stub",
		Generation: string(persona.GenerationUncensored),
		Policy:     string(obfuscate.PolicyGlitchOnly),
		Sessions:   1,
	}, body)
}

func TestRouterMountsRoutes(t *testing.T) {
	r := newTestRouter(persona.GenerationCensored)

	for _, path := range []string{"/conversations", "/system-prompts", "/health"} {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, resp.Code, path)
		assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"), path)
	}
}

func TestRouterAnswersPreflight(t *testing.T) {
	r := newTestRouter(persona.GenerationCensored)

	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusNoContent, resp.Code)
	assert.Equal(t, "content-type", resp.Header().Get("Access-Control-Allow-Headers"))
}
