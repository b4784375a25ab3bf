package http

import (
	"net/http"
	"time"

	"github.com/cwrk-planet/live-room-service/internal/transport/http/httputil"
	httpmw "github.com/cwrk-planet/live-room-service/internal/transport/http/middleware"
	"github.com/cwrk-planet/live-room-service/internal/transport/ws"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterConfig struct {
	AuthEnabled    bool
	Verifier       *httpmw.Verifier // nil: dev-режим, токен не проверяется
	AllowedOrigins []string
	RequestTimeout time.Duration
}

func NewRouter(h *Handler, wsServer *ws.Server, cfg RouterConfig) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 45 * time.Second
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(httputil.MiddlewareRequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)
	r.Use(httputil.MiddlewareLogging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-User-ID", httputil.HeaderRequestID},
		ExposedHeaders:   []string{httputil.HeaderRequestID},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	auth := func(next http.Handler) http.Handler { return next }
	if cfg.AuthEnabled {
		auth = httpmw.AuthMiddleware(cfg.Verifier)
	}

	// websocket без таймаута запроса
	r.With(auth).Get("/ws/streaming-room/{id}", wsServer.HandleWS)

	r.Group(func(pr chi.Router) {
		pr.Use(auth)
		pr.Use(middlewareChi.Timeout(cfg.RequestTimeout))

		pr.Route("/streaming-room", func(rm chi.Router) {
			rm.Get("/live", h.ListLive)

			rm.Route("/{id}", func(rr chi.Router) {
				rr.Post("/start", h.StartRoom)
				rr.Post("/offline", h.StopRoom)
				rr.Post("/next-product", h.NextProduct)
				rr.Post("/chat", h.PostChat)
				rr.Post("/asr", h.SubmitAudio)
				rr.Get("/live-info", h.LiveInfo)
				rr.Get("/history", h.History)
			})
		})
	})

	// health
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
