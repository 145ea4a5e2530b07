package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/suqify/grocerynet/internal/auth"
	"github.com/suqify/grocerynet/internal/backup"
	"github.com/suqify/grocerynet/internal/events"
	"github.com/suqify/grocerynet/internal/handler"
	"github.com/suqify/grocerynet/internal/middleware"
	"github.com/suqify/grocerynet/internal/mirror"
	"github.com/suqify/grocerynet/internal/store"
	ws "github.com/suqify/grocerynet/internal/websocket"
)

type Server struct {
	db  *sql.DB
	bus *events.Bus
	hub *ws.Hub

	userStore *store.UserStore

	authH    *handler.AuthHandler
	userH    *handler.UserHandler
	groceryH *handler.GroceryHandler
	itemH    *handler.ItemHandler
	incomeH  *handler.IncomeHandler

	tokens        *auth.Tokens
	rateLimiter   *middleware.RateLimiter
	syncer        *mirror.Syncer
	backupManager *backup.Manager
	logger        *slog.Logger
}

func New(db *sql.DB, mirrorStore *mirror.Store, jwtSecret string, backupCfg backup.Config, logger *slog.Logger) *Server {
	bus := events.NewBus(logger)
	hub := ws.NewHub(logger)

	userStore := store.NewUserStore(db)
	groceryStore := store.NewGroceryStore(db)
	itemStore := store.NewItemStore(db)
	incomeStore := store.NewIncomeStore(db)

	tokens := auth.NewTokens(jwtSecret)

	backupMgr := backup.NewManager(backupCfg, db, logger, func(s backup.Status) {
		hub.Broadcast(ws.Message{
			Type:   "backup_status",
			Entity: "backup",
			Action: string(s.State),
		})
	})

	return &Server{
		db:            db,
		bus:           bus,
		hub:           hub,
		userStore:     userStore,
		authH:         handler.NewAuthHandler(userStore, tokens, logger),
		userH:         handler.NewUserHandler(userStore, logger),
		groceryH:      handler.NewGroceryHandler(groceryStore, bus, logger),
		itemH:         handler.NewItemHandler(itemStore, groceryStore, bus, logger),
		incomeH:       handler.NewIncomeHandler(incomeStore, groceryStore, bus, logger),
		tokens:        tokens,
		rateLimiter:   middleware.NewRateLimiter(),
		syncer:        mirror.NewSyncer(mirrorStore, groceryStore, userStore, bus.Subscribe(), logger),
		backupManager: backupMgr,
		logger:        logger,
	}
}

// Start launches the background workers: the mirror syncer, the websocket
// feed, and the backup schedule.
func (s *Server) Start(ctx context.Context) {
	s.syncer.Start(ctx)
	go s.hub.Feed(ctx, s.bus.Subscribe())
	s.backupManager.Start(ctx)
}

// Stop closes the event bus and waits for the workers to drain.
func (s *Server) Stop() {
	s.bus.Close()
	s.syncer.Wait()
	s.backupManager.Stop()
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("POST /login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.tokens, s.userStore)
	outerMux.Handle("/api/", authMiddleware(protectedMux))
	outerMux.Handle("GET /ws", authMiddleware(ws.HandleWebSocket(s.hub, s.logger)))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(h).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Account provisioning, admin only
	mux.Handle("POST /api/create-supplier", middleware.RequireAdmin(http.HandlerFunc(s.userH.CreateSupplier)))
	mux.Handle("POST /api/create-admin", middleware.RequireAdmin(http.HandlerFunc(s.userH.CreateAdmin)))

	// Groceries
	mux.HandleFunc("GET /api/groceries", s.groceryH.List)
	mux.HandleFunc("POST /api/groceries", s.groceryH.Create)
	mux.HandleFunc("GET /api/groceries/{id}", s.groceryH.Get)
	mux.HandleFunc("PUT /api/groceries/{id}", s.groceryH.Update)
	mux.HandleFunc("PATCH /api/groceries/{id}", s.groceryH.Update)
	mux.HandleFunc("DELETE /api/groceries/{id}", s.groceryH.Delete)

	// Items
	mux.HandleFunc("GET /api/items", s.itemH.List)
	mux.HandleFunc("POST /api/items", s.itemH.Create)
	mux.HandleFunc("GET /api/items/{id}", s.itemH.Get)
	mux.HandleFunc("PUT /api/items/{id}", s.itemH.Update)
	mux.HandleFunc("PATCH /api/items/{id}", s.itemH.Update)
	mux.HandleFunc("DELETE /api/items/{id}", s.itemH.Delete)

	// Daily incomes
	mux.HandleFunc("GET /api/daily-incomes", s.incomeH.List)
	mux.HandleFunc("POST /api/daily-incomes", s.incomeH.Create)
	mux.HandleFunc("GET /api/daily-incomes/{id}", s.incomeH.Get)
	mux.HandleFunc("PUT /api/daily-incomes/{id}", s.incomeH.Update)
	mux.HandleFunc("PATCH /api/daily-incomes/{id}", s.incomeH.Update)
	mux.HandleFunc("DELETE /api/daily-incomes/{id}", s.incomeH.Delete)
}
