package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"lipsync/internal/adapters/mediahost/localfs"
	"lipsync/internal/httpapi/handlers"
	"lipsync/internal/httpkit"
	"lipsync/internal/pkg/logger"
	"lipsync/internal/pkg/middleware"
	"lipsync/internal/syncflow"
)

type Deps struct {
	Flow                *syncflow.Service
	Store               handlers.StoreState
	RDB                 *redis.Client
	InferenceProvider   string
	UploadcarePublicKey string
	AllowedOrigins      []string
	// Media serves locally hosted files; nil unless MEDIA_HOST=localfs.
	Media http.Handler
	Log   *logger.Logger
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(d.Log))
	r.Use(middleware.Recovery(d.Log))
	r.Use(httpkit.CORS(httpkit.CORSOptions{
		AllowedOrigins: d.AllowedOrigins,
		ExtraHeaders:   []string{middleware.RequestIDHeader},
	}))

	h := handlers.New(handlers.Deps{
		Flow:                d.Flow,
		Store:               d.Store,
		RDB:                 d.RDB,
		InferenceProvider:   d.InferenceProvider,
		UploadcarePublicKey: d.UploadcarePublicKey,
		Log:                 d.Log,
	})

	// ---- HEALTH ----
	r.Get("/health", h.Health)

	// ---- PAGE ----
	r.Get("/", middleware.WrapHandler(d.Log, h.Page))

	// ---- API ----
	r.Route("/api", func(r chi.Router) {
		r.Post("/upload-and-sync", h.UploadAndSync)
		r.Get("/history", middleware.WrapHandler(d.Log, h.History))
		r.Post("/fal-ai-webhook", middleware.WrapHandler(d.Log, h.FalWebhook))
	})

	// ---- MEDIA ----
	if d.Media != nil {
		r.Handle(localfs.MediaPrefix+"*", d.Media)
	}

	return r
}
