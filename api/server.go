/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address from proxy headers
  3. Logging:    One structured line per request
  4. Metrics:    Latency histogram per route pattern
  5. Recoverer:  Panic recovery (500 instead of crash)
  6. CORS:       Cross-origin requests for frontends

ROUTE GROUPS:
  /api/collectors                Collector listing
  /api/collectors/{id}/*         Collection, trades, value, milestones
  /healthz                       Liveness probe
  /metrics                       Prometheus exposition

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/warp/card-ledger/logger"
	"github.com/warp/card-ledger/metrics"
)

// RouterOptions configures the ambient middleware.
type RouterOptions struct {
	AllowedOrigins []string
	Metrics        *metrics.Manager
	Logger         logger.Logger
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(observe(opts.Metrics))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())

	r.Route("/api/collectors", func(r chi.Router) {
		r.Get("/", h.ListCollectors)

		r.Route("/{id}", func(r chi.Router) {
			// Collection routes
			r.Route("/cards", func(r chi.Router) {
				r.Get("/", h.GetCollection)
				r.Post("/", h.AddCard)
				r.Put("/{cardID}", h.UpdateQuantity)
				r.Delete("/{cardID}", h.RemoveCard)
				r.Post("/{cardID}/increment", h.Increment)
				r.Post("/{cardID}/decrement", h.Decrement)
				r.Get("/{cardID}/ownership", h.GetOwnership)
			})
			r.Get("/stats", h.GetStats)
			r.Get("/groups", h.GetGroups)
			r.Get("/sets", h.GetSets)
			r.Get("/compare/{otherID}", h.Compare)

			// Trade routes
			r.Route("/trades", func(r chi.Router) {
				r.Get("/", h.ListTrades)
				r.Post("/", h.ExecuteTrade)
				r.Post("/validate", h.ValidateTrade)
			})

			// Value routes
			r.Route("/value", func(r chi.Router) {
				r.Get("/", h.GetValue)
				r.Get("/top", h.GetTopCards)
				r.Get("/sets", h.GetSetValues)
				r.Get("/statistics", h.GetStatistics)
				r.Get("/tiers", h.GetTiers)
				r.Get("/history", h.GetValueHistory)
				r.Post("/snapshots", h.TakeSnapshot)
			})

			r.Get("/milestones", h.GetMilestones)
			r.Get("/activity", h.GetActivity)
		})
	})

	return r
}

// requestLogger writes one line per request through the structured logger.
func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug(r.Context(), "http request",
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.Int("status", ww.Status()),
				logger.Int("bytes", ww.BytesWritten()),
				logger.Duration("duration", time.Since(start)),
				logger.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

// observe records request latency labelled by the matched route pattern so
// that collector ids do not explode label cardinality.
func observe(m *metrics.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.ObserveHTTP(route, r.Method, status, time.Since(start))
		})
	}
}
