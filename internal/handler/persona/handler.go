package persona

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/madchat/backend/internal/model/persona"
	"github.com/zhouzirui/madchat/backend/pkg/utils"
)

// Handler 系统提示词预设的HTTP处理器
type Handler struct {
	presets persona.Store
}

// New 创建预设处理器
func New(presets persona.Store) *Handler {
	return &Handler{
		presets: presets,
	}
}

// PresetList is keyed by the decimal preset id, the shape the web client reads.
type PresetList struct {
	Prompts map[string]string `json:"prompts"`
	Default int               `json:"default"`
}

// RegisterRoutes 注册预设相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/system-prompts", h.handleListPresets)
}

// handleListPresets 列出所有系统提示词
func (h *Handler) handleListPresets(w http.ResponseWriter, r *http.Request) {
	presets := h.presets.List()
	list := PresetList{
		Prompts: make(map[string]string, len(presets)),
		Default: h.presets.Default().ID,
	}
	for _, p := range presets {
		list.Prompts[strconv.Itoa(p.ID)] = p.Prompt
	}
	utils.RespondJSON(w, http.StatusOK, list)
}
