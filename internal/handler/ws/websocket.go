package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	chathandler "github.com/zhouzirui/madchat/backend/internal/handler/chat"
	"github.com/zhouzirui/madchat/backend/internal/service/conversation"
)

const (
	readTimeout  = 90 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// ChatService runs one chat turn.
type ChatService interface {
	Chat(ctx context.Context, req conversation.Request) (conversation.Response, error)
}

// WebSocketHandler WebSocket聊天处理器
type WebSocketHandler struct {
	chatSvc     ChatService
	upgrader    websocket.Upgrader
	readTimeout time.Duration
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(chatSvc ChatService) *WebSocketHandler {
	return &WebSocketHandler{
		chatSvc:     chatSvc,
		readTimeout: readTimeout,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterWebSocketRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// connectionState 记录连接最近一次使用的会话
type connectionState struct {
	sessionID string
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	state := &connectionState{sessionID: r.URL.Query().Get("sessionId")}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[websocket] new connection, session=%q", state.sessionID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(h.readTimeout))
		return nil
	})

	go h.pingLoop(ctx, conn)

	h.send(conn, "connected", state.sessionID, nil)

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			return
		}

		h.handleMessage(ctx, conn, state, &msg)

		// 模型调用期间读循环阻塞，pong 不会被处理，处理完再续期读超时
		conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	}
}

// handleMessage 根据消息类型分发。所有数据帧都在读循环里写出，只有 ping 控制帧走单独的协程
func (h *WebSocketHandler) handleMessage(ctx context.Context, conn *websocket.Conn, state *connectionState, msg *inboundMessage) {
	switch msg.Type {
	case "chat":
		h.handleChatMessage(ctx, conn, state, msg)
	case "ping":
		h.send(conn, "pong", state.sessionID, nil)
	default:
		h.sendError(conn, state.sessionID, map[string]string{"message": "unsupported message type: " + msg.Type})
	}
}

func (h *WebSocketHandler) handleChatMessage(ctx context.Context, conn *websocket.Conn, state *connectionState, msg *inboundMessage) {
	var payload chathandler.Payload
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			h.sendError(conn, state.sessionID, map[string]string{"message": "invalid chat payload"})
			return
		}
	}

	if payload.ConversationID == "" {
		payload.ConversationID = msg.SessionID
	}
	if payload.ConversationID == "" {
		payload.ConversationID = state.sessionID
	}

	resp, err := h.chatSvc.Chat(ctx, payload.ToRequest())
	if resp.SessionID != "" {
		state.sessionID = resp.SessionID
	}
	if err != nil {
		log.Printf("[websocket] chat failed for session=%s: %v", resp.SessionID, err)
		h.sendError(conn, state.sessionID, chathandler.NewErrorEnvelope(err, resp))
		return
	}

	h.send(conn, "reply", state.sessionID, resp)
}

func (h *WebSocketHandler) send(conn *websocket.Conn, msgType, sessionID string, data interface{}) {
	msg := outgoingMessage{
		Type:      msgType,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("[websocket] write %s failed: %v", msgType, err)
	}
}

func (h *WebSocketHandler) sendError(conn *websocket.Conn, sessionID string, data interface{}) {
	h.send(conn, "error", sessionID, data)
}

func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
