package chat

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/daybook/internal/logging"
	"github.com/zhouzirui/daybook/internal/service/session"
	"github.com/zhouzirui/daybook/pkg/utils"
)

// Handler 日记对话的HTTP处理器
type Handler struct {
	coord  *session.Coordinator
	logger *zap.Logger
}

// New 创建对话处理器
func New(coord *session.Coordinator, logger *zap.Logger) *Handler {
	return &Handler{
		coord:  coord,
		logger: logging.OrNop(logger).Named("chat"),
	}
}

// RegisterRoutes 注册对话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat/start", h.handleStart)
	r.Get("/chat/{sessionID}", h.handleStatus)
	r.Post("/chat/{sessionID}/message", h.handleMessage)
	r.Post("/chat/{sessionID}/close", h.handleClose)
	r.Post("/chat/{sessionID}/end", h.handleEnd)
}

// StatusFor maps coordinator usage errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNoActiveSession):
		return http.StatusConflict
	case errors.Is(err, session.ErrEmptyMessage), errors.Is(err, session.ErrEmptyEntry):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// handleStart 开始新的对话
func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserName string `json:"userName"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := h.coord.StartSession(r.Context(), payload.UserName)
	utils.RespondJSON(w, http.StatusCreated, result)
}

// handleMessage 处理一条用户消息
func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message string `json:"message"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.coord.HandleMessage(r.Context(), chi.URLParam(r, "sessionID"), payload.Message)
	if err != nil {
		utils.RespondError(w, StatusFor(err), err.Error())
		return
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadGateway
	}
	utils.RespondJSON(w, status, result)
}

// handleClose 保存并结束对话
func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	result, err := h.coord.Close(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		utils.RespondError(w, StatusFor(err), err.Error())
		return
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusInternalServerError
	}
	utils.RespondJSON(w, status, result)
}

// handleEnd 放弃对话, 不保存
func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request) {
	if err := h.coord.ForceEnd(chi.URLParam(r, "sessionID")); err != nil {
		utils.RespondError(w, StatusFor(err), err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleStatus 查询对话状态
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.coord.Status(chi.URLParam(r, "sessionID"))
	if err != nil {
		utils.RespondError(w, StatusFor(err), err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, status)
}
