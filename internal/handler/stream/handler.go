package stream

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	chathandler "github.com/zhouzirui/madchat/backend/internal/handler/chat"
	"github.com/zhouzirui/madchat/backend/internal/service/conversation"
	"github.com/zhouzirui/madchat/backend/pkg/utils"
)

// DefaultHeartbeat is the interval between heartbeat events while the model runs.
const DefaultHeartbeat = 8 * time.Second

// ErrStreamingUnsupported is returned when the response writer cannot flush.
var ErrStreamingUnsupported = errors.New("streaming unsupported")

// ChatService runs one chat turn. OpenSession resolves the session id up front so
// every event of a stream carries it.
type ChatService interface {
	OpenSession(ctx context.Context, sessionID string) string
	Chat(ctx context.Context, req conversation.Request) (conversation.Response, error)
}

// Handler manages chat replies delivered via Server-Sent Events
type Handler struct {
	chatSvc   ChatService
	heartbeat time.Duration
}

// New creates a new stream handler
func New(chatSvc ChatService) *Handler {
	return &Handler{
		chatSvc:   chatSvc,
		heartbeat: DefaultHeartbeat,
	}
}

// WithHeartbeat overrides the heartbeat interval. Non-positive values keep the default.
func (h *Handler) WithHeartbeat(interval time.Duration) *Handler {
	if interval > 0 {
		h.heartbeat = interval
	}
	return h
}

// StreamResponse represents a streaming response chunk
type StreamResponse struct {
	Event     string `json:"event"`
	Content   string `json:"content,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
	Time      string `json:"time,omitempty"`
}

// RegisterRoutes registers the streaming chat route
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat/stream", h.handleStream)
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	var payload chathandler.Payload
	if err := utils.DecodeJSONBody(w, r, &payload); err != nil {
		utils.RespondJSON(w, http.StatusBadRequest, chathandler.NewErrorEnvelope(err, conversation.Response{}))
		return
	}

	if err := h.HandleStreamRequest(r.Context(), w, payload.ToRequest()); err != nil {
		if errors.Is(err, ErrStreamingUnsupported) {
			utils.RespondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		log.Printf("[sse] error handling request: %v", err)
	}
}

type outcome struct {
	resp conversation.Response
	err  error
}

// HandleStreamRequest runs one chat turn and reports its progress as SSE events:
// start, a heartbeat per interval while the model runs, then message and end, or
// error.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, req conversation.Request) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return ErrStreamingUnsupported
	}

	req.SessionID = h.chatSvc.OpenSession(ctx, req.SessionID)

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	utils.SendSSEChunk(w, flusher, StreamResponse{
		Event:     "start",
		SessionID: req.SessionID,
	})

	done := make(chan outcome, 1)
	go func() {
		resp, err := h.chatSvc.Chat(ctx, req)
		done <- outcome{resp: resp, err: err}
	}()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[sse] client went away for session=%s", req.SessionID)
			return ctx.Err()
		case t := <-ticker.C:
			utils.SendSSEChunk(w, flusher, StreamResponse{
				Event:     "heartbeat",
				SessionID: req.SessionID,
				Content:   "awaiting llm response",
				Time:      t.UTC().Format(time.RFC3339),
			})
		case out := <-done:
			if out.err != nil {
				utils.SendSSEChunk(w, flusher, StreamResponse{
					Event:     "error",
					SessionID: out.resp.SessionID,
					Content:   conversation.FallbackReply,
					Error:     out.err.Error(),
				})
				return out.err
			}

			utils.SendSSEChunk(w, flusher, StreamResponse{
				Event:     "message",
				SessionID: out.resp.SessionID,
				Content:   out.resp.Reply,
			})
			utils.SendSSEChunk(w, flusher, StreamResponse{
				Event:     "end",
				SessionID: out.resp.SessionID,
				Finished:  true,
			})

			log.Printf("[sse] completed response for session=%s", out.resp.SessionID)
			return nil
		}
	}
}
