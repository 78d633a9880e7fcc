package api

import (
	"net/http"

	"lockbox/internal/config"
	"lockbox/internal/store"
	"lockbox/internal/vault"
	"lockbox/internal/websocket"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

type Server struct {
	config  *config.Config
	service *vault.Service
	store   store.Store
	wsHub   *websocket.Hub
	logger  *zap.Logger
}

func NewServer(cfg *config.Config, service *vault.Service, st store.Store, wsHub *websocket.Hub, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		config:  cfg,
		service: service,
		store:   st,
		wsHub:   wsHub,
		logger:  logger,
	}
}

// Routes builds the full HTTP surface.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.Server.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", LockSecretHeader},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(s.config.AppHost+"/swagger/doc.json"),
	))
	r.Get("/ws", s.ServeWsHandler)
	r.Get("/health", s.HealthCheckHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/api/v1/auth/login", s.LoginHandler)
	r.Post("/api/v1/auth/signup", s.SignupHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.AuthMiddleware)
		r.Get("/me", s.GetCurrentUserHandler)
		r.Patch("/me/password", s.ChangePasswordHandler)
		r.Get("/events", s.GetEventsHandler)

		r.Get("/nodes", s.ListNodesHandler)
		r.Post("/nodes/folder", s.CreateFolderHandler)
		r.Post("/nodes/note", s.CreateNoteHandler)
		r.Post("/nodes/file", s.UploadFileHandler)
		r.Get("/nodes/{nodeId}", s.GetNodeHandler)
		r.Get("/nodes/{nodeId}/download", s.DownloadFileHandler)
		r.Get("/nodes/{nodeId}/archive", s.DownloadArchiveHandler)
		r.Get("/nodes/{nodeId}/render", s.RenderNoteHandler)
		r.Patch("/nodes/{nodeId}", s.UpdateNodeHandler)
		r.Put("/nodes/{nodeId}/content", s.UpdateNoteContentHandler)
		r.Post("/nodes/{nodeId}/duplicate", s.DuplicateNodeHandler)
		r.Delete("/nodes/{nodeId}", s.DeleteNodeHandler)
		r.Post("/nodes/{nodeId}/favorite", s.ToggleFavoriteHandler)
		r.Post("/nodes/{nodeId}/lock", s.LockNodeHandler)
		r.Post("/nodes/{nodeId}/unlock", s.UnlockNodeHandler)
		r.Post("/nodes/{nodeId}/share", s.ShareNodeHandler)

		r.Get("/folders", s.ListFoldersHandler)
		r.Get("/files", s.ListByCategoryHandler)
		r.Get("/files/organized", s.ListOrganizedHandler)

		r.Get("/shares/incoming", s.ListSharedWithMeHandler)
		r.Get("/shares/outgoing", s.ListOutgoingSharesHandler)
		r.Delete("/shares/{shareId}", s.DeleteShareHandler)
	})

	return r
}
