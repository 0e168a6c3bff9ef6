package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhaojunwei/campus-companion/backend/internal/auth"
	authHandler "github.com/zhaojunwei/campus-companion/backend/internal/handler/auth"
	chatHandler "github.com/zhaojunwei/campus-companion/backend/internal/handler/chat"
	emotionHandler "github.com/zhaojunwei/campus-companion/backend/internal/handler/emotion"
	middlewarePkg "github.com/zhaojunwei/campus-companion/backend/internal/middleware"
	usermodel "github.com/zhaojunwei/campus-companion/backend/internal/model/user"
	"github.com/zhaojunwei/campus-companion/backend/internal/service/agent"
	chatservice "github.com/zhaojunwei/campus-companion/backend/internal/service/chat"
	emotionservice "github.com/zhaojunwei/campus-companion/backend/internal/service/emotion"
	"github.com/zhaojunwei/campus-companion/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(
	users usermodel.Store,
	sessions *auth.Manager,
	chatSvc *chatservice.Service,
	emotionSvc *emotionservice.Service,
	agentSvc *agent.Service,
	allowOrigin string,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(allowOrigin))

	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "pong"})
	})

	r.Route("/api", func(api chi.Router) {
		authHandler.New(users, sessions).RegisterRoutes(api)

		api.Group(func(pr chi.Router) {
			pr.Use(sessions.Middleware)
			chatHandler.New(chatSvc, emotionSvc, agentSvc).RegisterRoutes(pr)
			emotionHandler.New(emotionSvc).RegisterRoutes(pr)
		})
	})

	return r
}
