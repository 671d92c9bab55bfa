package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/shoplist/internal/config"
	"github.com/dukerupert/shoplist/internal/draft"
	"github.com/dukerupert/shoplist/internal/handler"
	"github.com/dukerupert/shoplist/internal/middleware"
	"github.com/dukerupert/shoplist/internal/shopping"
	ws "github.com/dukerupert/shoplist/internal/websocket"
)

type Server struct {
	store       *shopping.Store
	drafts      *draft.Manager
	hub         *ws.Hub
	listH       *handler.ListHandler
	draftH      *handler.DraftHandler
	categoryH   *handler.CategoryHandler
	rateLimiter *middleware.RateLimiter
	requireKey  func(http.Handler) http.Handler
	clientIP    func(*http.Request) string
	wsOrigins   []string
	logger      *slog.Logger
}

// New wires the HTTP surface around a started store. The hub is subscribed
// to the store so every applied transition reaches websocket clients.
func New(store *shopping.Store, drafts *draft.Manager, cfg *config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))
	store.Subscribe(hub.Listener())

	return &Server{
		store:       store,
		drafts:      drafts,
		hub:         hub,
		listH:       handler.NewListHandler(store, logger.With("component", "list")),
		draftH:      handler.NewDraftHandler(drafts, store, logger.With("component", "draft")),
		categoryH:   handler.NewCategoryHandler(),
		rateLimiter: middleware.NewRateLimiter(cfg.WriteLimit, time.Minute),
		requireKey:  middleware.RequireAPIKey(cfg.APIKeyHash),
		clientIP:    middleware.ClientIP(cfg.TrustedProxies),
		wsOrigins:   cfg.WSOrigins,
		logger:      logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.wsOrigins, s.logger.With("component", "websocket")))

	// Categories
	mux.HandleFunc("GET /api/categories", s.categoryH.List)
	mux.HandleFunc("GET /api/categories/suggest", s.categoryH.Suggest)

	// Shopping lists
	mux.HandleFunc("GET /api/lists", s.listH.List)
	mux.HandleFunc("GET /api/lists/{id}", s.listH.Get)
	mux.HandleFunc("POST /api/lists", s.write(s.listH.Create))
	mux.HandleFunc("DELETE /api/lists/{id}", s.write(s.listH.Delete))
	mux.HandleFunc("POST /api/lists/{id}/items/{item_id}/toggle", s.write(s.listH.ToggleItem))
	mux.HandleFunc("PUT /api/lists/{id}/items/{item_id}", s.write(s.listH.UpdateItem))
	mux.HandleFunc("DELETE /api/lists/{id}/items/{item_id}", s.write(s.listH.DeleteItem))

	// Add-list drafts
	mux.HandleFunc("POST /api/drafts", s.write(s.draftH.Create))
	mux.HandleFunc("GET /api/drafts/{id}", s.draftH.Get)
	mux.HandleFunc("PUT /api/drafts/{id}", s.write(s.draftH.Update))
	mux.HandleFunc("DELETE /api/drafts/{id}", s.write(s.draftH.Discard))
	mux.HandleFunc("POST /api/drafts/{id}/items", s.write(s.draftH.AddItem))
	mux.HandleFunc("PUT /api/drafts/{id}/items/{item_id}", s.write(s.draftH.UpdateItem))
	mux.HandleFunc("DELETE /api/drafts/{id}/items/{item_id}", s.write(s.draftH.RemoveItem))
	mux.HandleFunc("POST /api/drafts/{id}/items/{item_id}/toggle", s.write(s.draftH.ToggleItem))
	mux.HandleFunc("POST /api/drafts/{id}/submit", s.write(s.draftH.Submit))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"lists":      len(s.store.Snapshot().Lists),
		"drafts":     s.drafts.Count(),
		"ws_clients": s.hub.ClientCount(),
	})
}

// write guards a mutating route: rate limiting by client IP first, so
// rejected floods never reach the api key check.
func (s *Server) write(h http.HandlerFunc) http.HandlerFunc {
	guarded := middleware.RateLimit(s.rateLimiter, s.clientIP)(
		s.requireKey(h),
	)
	return guarded.ServeHTTP
}
