package chat

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/madchat/backend/internal/service/conversation"
	"github.com/zhouzirui/madchat/backend/pkg/utils"
)

// ChatService 抽象对话业务，便于测试与替换实现
type ChatService interface {
	Chat(ctx context.Context, req conversation.Request) (conversation.Response, error)
	ListSessions(ctx context.Context) conversation.SessionList
	Cleanup(ctx context.Context, maxAgeHours int) conversation.CleanupResult
}

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc ChatService
}

// New 创建聊天处理器
func New(chatSvc ChatService) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Get("/conversations", h.handleListConversations)
	r.Post("/cleanup", h.handleCleanup)
}

// handleChat 处理一轮对话
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload Payload
	if err := utils.DecodeJSONBody(w, r, &payload); err != nil {
		utils.RespondJSON(w, http.StatusBadRequest, NewErrorEnvelope(err, conversation.Response{}))
		return
	}

	resp, err := h.chatSvc.Chat(r.Context(), payload.ToRequest())
	if err != nil {
		utils.RespondJSON(w, StatusFor(err), NewErrorEnvelope(err, resp))
		return
	}

	utils.RespondJSON(w, http.StatusOK, resp)
}

// handleListConversations 列出所有会话
func (h *Handler) handleListConversations(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.chatSvc.ListSessions(r.Context()))
}

// handleCleanup 清理长时间未活跃的会话
func (h *Handler) handleCleanup(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		MaxAgeHours *int `json:"max_age_hours"`
	}

	if err := utils.DecodeJSONBody(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	maxAge := conversation.DefaultCleanupHours
	if payload.MaxAgeHours != nil {
		maxAge = *payload.MaxAgeHours
	}

	utils.RespondJSON(w, http.StatusOK, h.chatSvc.Cleanup(r.Context(), maxAge))
}
