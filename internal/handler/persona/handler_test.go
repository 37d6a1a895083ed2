package persona

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/madchat/backend/internal/model/persona"
)

func TestListPresets(t *testing.T) {
	store := persona.NewMemoryStore(append(persona.Seed(), persona.Preset{ID: 4, Prompt: "You are a pirate."})).WithDefault(4)

	r := chi.NewRouter()
	New(store).RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/system-prompts", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)

	var body PresetList
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, 4, body.Default)
	assert.Equal(t, map[string]string{
		"1": persona.Seed()[0].Prompt,
		"4": "You are a pirate.",
	}, body.Prompts)
}
