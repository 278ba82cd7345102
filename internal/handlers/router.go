package handlers

import (
	"net/http"

	"bankcards/internal/config"
	"bankcards/internal/middleware"
	"bankcards/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	gorillaws "github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Handler struct {
	cfg          config.Config
	cards        CardService
	users        UserService
	roles        RoleStore
	transactions TransactionStore
	audit        AuditStore
	hub          *websocket.Hub
	upgrader     *gorillaws.Upgrader
	logger       *zap.Logger
}

func New(cfg config.Config, cards CardService, users UserService, roles RoleStore, transactions TransactionStore, audit AuditStore, hub *websocket.Hub, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		cfg:          cfg,
		cards:        cards,
		users:        users,
		roles:        roles,
		transactions: transactions,
		audit:        audit,
		hub:          hub,
		upgrader:     websocket.NewUpgrader(cfg.AllowedOrigins),
		logger:       logger,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.RequestLogger(h.logger))
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticate := middleware.Auth(h.cfg.JWTSecret)
	requireAdmin := middleware.RequireAdmin(h.roles)

	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/refresh", h.Refresh)
			r.Post("/logout", h.Logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Get("/users/me", h.Me)
			r.Get("/cards", h.ListMyCards)
			r.Post("/cards/transfer", h.Transfer)
			r.Get("/cards/{id}", h.GetCard)
			r.Get("/cards/{id}/balance", h.GetBalance)
			r.Post("/cards/{id}/block-request", h.RequestBlock)

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)
				r.Post("/cards", h.CreateCard)
				r.Get("/cards/all", h.ListAllCards)
				r.Patch("/cards/{id}/block", h.BlockCard)
				r.Patch("/cards/{id}/activate", h.ActivateCard)
				r.Delete("/cards/{id}", h.DeleteCard)
				r.Get("/users", h.ListUsers)
				r.Get("/users/{id}", h.GetUser)
				r.Delete("/users/{id}", h.DeleteUser)
				r.Get("/admin/transactions", h.AdminListTransactions)
				r.Get("/admin/audit", h.ListAuditLogs)
			})
		})
	})

	router.Get("/ws/balances", h.WSBalances)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}
