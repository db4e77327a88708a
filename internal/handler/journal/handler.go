// Package journal serves entries and insights over HTTP.
package journal

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/daybook/internal/logging"
	"github.com/zhouzirui/daybook/internal/service/insights"
	"github.com/zhouzirui/daybook/internal/service/session"
	"github.com/zhouzirui/daybook/pkg/utils"
)

// Handler 日记与统计的HTTP处理器
type Handler struct {
	coord    *session.Coordinator
	insights *insights.Service
	logger   *zap.Logger
}

// New 创建日记处理器
func New(coord *session.Coordinator, svc *insights.Service, logger *zap.Logger) *Handler {
	return &Handler{
		coord:    coord,
		insights: svc,
		logger:   logging.OrNop(logger).Named("journal"),
	}
}

// RegisterRoutes 注册日记相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/entries", h.handleSaveEntry)
	r.Get("/entries/recent", h.handleRecent)
	r.Get("/stats", h.handleStats)
	r.Get("/calendar", h.handleCalendar)
	r.Get("/sentiment", h.handleSentiment)
}

// handleSaveEntry 保存编辑器内容
func (h *Handler) handleSaveEntry(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Content string `json:"content"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.coord.SaveEditorEntry(r.Context(), payload.Content)
	if errors.Is(err, session.ErrEmptyEntry) {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("failed to save entry", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to save entry")
		return
	}

	utils.RespondJSON(w, http.StatusCreated, map[string]any{
		"success":      true,
		"date":         result.Date,
		"streak":       result.Streak.CurrentStreak,
		"newMilestone": result.Streak.NewMilestone,
	})
}

// handleRecent 最近的日记
func (h *Handler) handleRecent(w http.ResponseWriter, r *http.Request) {
	days, ok := intParam(w, r, "days", 7)
	if !ok {
		return
	}

	entries, err := h.insights.Recent(r.Context(), days)
	if err != nil {
		h.logger.Error("failed to list entries", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to list entries")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"success": true, "entries": entries})
}

// handleStats 用户统计
func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.insights.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to read stats", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to read stats")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"success": true, "stats": stats})
}

// handleCalendar 月历
func (h *Handler) handleCalendar(w http.ResponseWriter, r *http.Request) {
	cal, err := h.insights.Calendar(r.Context(), r.URL.Query().Get("month"))
	if errors.Is(err, insights.ErrInvalidMonth) {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("failed to build calendar", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to build calendar")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"success": true, "calendar": cal})
}

// handleSentiment 情绪图表数据
func (h *Handler) handleSentiment(w http.ResponseWriter, r *http.Request) {
	days, ok := intParam(w, r, "days", 30)
	if !ok {
		return
	}

	data, err := h.insights.Sentiment(r.Context(), days)
	if err != nil {
		h.logger.Error("failed to build sentiment data", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to build sentiment data")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"success": true, "sentiment": data})
}

func intParam(w http.ResponseWriter, r *http.Request, name string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		utils.RespondError(w, http.StatusBadRequest, name+" must be a positive integer")
		return 0, false
	}
	return v, true
}
