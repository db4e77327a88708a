package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/daybook/internal/handler/chat"
	"github.com/zhouzirui/daybook/internal/handler/journal"
	"github.com/zhouzirui/daybook/internal/handler/stream"
	middlewarePkg "github.com/zhouzirui/daybook/internal/middleware"
	"github.com/zhouzirui/daybook/internal/service/insights"
	"github.com/zhouzirui/daybook/internal/service/session"
	"github.com/zhouzirui/daybook/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(coord *session.Coordinator, insightsSvc *insights.Service, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		chat.New(coord, logger).RegisterRoutes(api)
		chat.NewWebSocketHandler(coord, logger).RegisterRoutes(api)
		stream.New(coord, logger).RegisterRoutes(api)
		journal.New(coord, insightsSvc, logger).RegisterRoutes(api)
	})

	return r
}
