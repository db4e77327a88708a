package chat

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/daybook/internal/logging"
	"github.com/zhouzirui/daybook/internal/service/session"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

// WebSocketHandler 通过WebSocket进行对话
type WebSocketHandler struct {
	coord    *session.Coordinator
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(coord *session.Coordinator, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		coord: coord,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logging.OrNop(logger).Named("websocket"),
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/chat/{sessionID}/ws", h.handleWebSocket)
}

// Inbound message types.
const (
	typeMessage = "message"
	typeClose   = "close"
	typeEnd     = "end"
)

// Outbound message types.
const (
	typeConnected = "connected"
	typeReply     = "reply"
	typeEmotions  = "emotions"
	typeResult    = "result"
	typeError     = "error"
)

type inboundMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type outgoingMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	status, err := h.coord.Status(sessionID)
	if err != nil {
		http.Error(w, err.Error(), StatusFor(err))
		return
	}
	if !status.Active {
		http.Error(w, session.ErrNoActiveSession.Error(), http.StatusConflict)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	logger := h.logger.With(zap.String("sessionID", sessionID))
	logger.Info("connection opened")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go pingLoop(ctx, conn)

	c := &wsConn{conn: conn, sessionID: sessionID, logger: logger}
	c.send(typeConnected, status)

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("read failed", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		if done := h.dispatch(ctx, c, msg); done {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"),
				time.Now().Add(writeWait))
			logger.Info("connection closed after session end")
			return
		}
	}
}

// dispatch handles one inbound message and reports whether the session ended.
func (h *WebSocketHandler) dispatch(ctx context.Context, c *wsConn, msg inboundMessage) bool {
	switch msg.Type {
	case typeMessage:
		result, err := h.coord.HandleMessage(ctx, c.sessionID, msg.Text, session.WithReplyHook(func(reply string) {
			c.send(typeReply, map[string]string{"text": reply})
		}))
		if err != nil {
			c.sendError(err.Error())
			return false
		}
		if result.Emotions != nil {
			c.send(typeEmotions, map[string]any{
				"emotions": result.Emotions,
				"degraded": result.EmotionsDegraded,
			})
			return false
		}
		c.send(typeResult, result)
		return result.ShouldEnd

	case typeClose:
		result, err := h.coord.Close(ctx, c.sessionID)
		if err != nil {
			c.sendError(err.Error())
			return false
		}
		c.send(typeResult, result)
		return true

	case typeEnd:
		if err := h.coord.ForceEnd(c.sessionID); err != nil {
			c.sendError(err.Error())
			return false
		}
		c.send(typeResult, map[string]bool{"success": true, "shouldEnd": true})
		return true

	default:
		c.sendError("unknown message type: " + msg.Type)
		return false
	}
}

type wsConn struct {
	conn      *websocket.Conn
	sessionID string
	logger    *zap.Logger
}

func (c *wsConn) send(kind string, data any) {
	msg := outgoingMessage{
		Type:      kind,
		SessionID: c.sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(msg); err != nil {
		c.logger.Warn("write failed", zap.String("type", kind), zap.Error(err))
	}
}

func (c *wsConn) sendError(message string) {
	c.send(typeError, map[string]string{"message": message})
}

// pingLoop 定期发送ping消息
func pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
