package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/madchat/backend/internal/handler/chat"
	"github.com/zhouzirui/madchat/backend/internal/handler/persona"
	"github.com/zhouzirui/madchat/backend/internal/handler/stream"
	"github.com/zhouzirui/madchat/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/madchat/backend/internal/middleware"
	personaModel "github.com/zhouzirui/madchat/backend/internal/model/persona"
	"github.com/zhouzirui/madchat/backend/internal/service/obfuscate"
	"github.com/zhouzirui/madchat/backend/pkg/utils"
)

// Engine is everything the HTTP layer needs from the conversation service.
type Engine interface {
	chat.ChatService
	OpenSession(ctx context.Context, sessionID string) string
	Presets() personaModel.Store
	BackendName() string
	Generation() personaModel.Generation
	SessionCount() int
}

// Health is the /health body.
type Health struct {
	Status     string `json:"status"`
	Backend    string `json:"backend"`
	Generation string `json:"generation"`
	Policy     string `json:"policy"`
	Sessions   int    `json:"sessions"`
}

// NewRouter wires HTTP routes to core services.
func NewRouter(engine Engine) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	chat.New(engine).RegisterRoutes(r)
	stream.New(engine).RegisterRoutes(r)
	persona.New(engine.Presets()).RegisterRoutes(r)
	ws.NewWebSocketHandler(engine).RegisterWebSocketRoutes(r)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		generation := engine.Generation()
		utils.RespondJSON(w, http.StatusOK, Health{
			Status:     "ok",
			Backend:    engine.BackendName(),
			Generation: string(generation),
			Policy:     string(obfuscate.PolicyFor(generation)),
			Sessions:   engine.SessionCount(),
		})
	})

	return r
}
