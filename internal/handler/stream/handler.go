// Package stream delivers conversation turns as Server-Sent Events.
package stream

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	chathandler "github.com/zhouzirui/daybook/internal/handler/chat"
	"github.com/zhouzirui/daybook/internal/logging"
	"github.com/zhouzirui/daybook/internal/service/session"
	"github.com/zhouzirui/daybook/pkg/utils"
)

// SSE event names.
const (
	EventReply    = "reply"
	EventEmotions = "emotions"
	EventResult   = "result"
	EventError    = "error"
	EventEnd      = "end"
)

// Handler streams one turn per request.
type Handler struct {
	coord  *session.Coordinator
	logger *zap.Logger
}

// New creates a stream handler.
func New(coord *session.Coordinator, logger *zap.Logger) *Handler {
	return &Handler{
		coord:  coord,
		logger: logging.OrNop(logger).Named("stream"),
	}
}

// RegisterRoutes 注册SSE路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chat/{sessionID}/stream", h.handleStream)
}

// EndPayload closes every stream.
type EndPayload struct {
	SessionID string `json:"sessionId"`
	Finished  bool   `json:"finished"`
	ShouldEnd bool   `json:"shouldEnd"`
}

// handleStream sends the reply as soon as it exists, then the emotion scores
// of the same turn, then an end marker.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	message := r.URL.Query().Get("message")
	if message == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}
	if _, err := h.coord.Status(sessionID); err != nil {
		utils.RespondError(w, chathandler.StatusFor(err), err.Error())
		return
	}

	sse, err := utils.NewSSEWriter(w)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	logger := h.logger.With(zap.String("sessionID", sessionID))

	send := func(event string, data any) {
		if err := sse.Event(event, data); err != nil {
			logger.Warn("failed to send event", zap.String("event", event), zap.Error(err))
		}
	}

	result, err := h.coord.HandleMessage(r.Context(), sessionID, message, session.WithReplyHook(func(reply string) {
		send(EventReply, map[string]string{"text": reply})
	}))
	if err != nil {
		send(EventError, map[string]string{"error": err.Error()})
		send(EventEnd, EndPayload{SessionID: sessionID, Finished: true})
		return
	}

	if result.Emotions != nil {
		send(EventEmotions, map[string]any{
			"emotions": result.Emotions,
			"degraded": result.EmotionsDegraded,
		})
	} else {
		send(EventResult, result)
	}
	send(EventEnd, EndPayload{SessionID: sessionID, Finished: true, ShouldEnd: result.ShouldEnd})
	logger.Debug("stream completed", zap.Bool("shouldEnd", result.ShouldEnd))
}
