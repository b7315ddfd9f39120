package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dukerupert/shoplist/internal/auth"
	"github.com/dukerupert/shoplist/internal/events"
	"github.com/dukerupert/shoplist/internal/handler"
	"github.com/dukerupert/shoplist/internal/middleware"
	"github.com/dukerupert/shoplist/internal/model"
	"github.com/dukerupert/shoplist/internal/reconcile"
	ws "github.com/dukerupert/shoplist/internal/websocket"
)

// Server is the local shell a UI process drives over HTTP.
type Server struct {
	machine  *auth.Machine
	bus      *events.Bus
	screens  *handler.Screens
	authH    *handler.AuthHandler
	listH    *handler.ListHandler
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

func New(machine *auth.Machine, backend reconcile.Backend, bus *events.Bus, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	listLogger := logger.With("component", "list")
	screens := handler.NewScreens(func() *reconcile.List {
		return reconcile.New(backend, bus, listLogger)
	})

	return &Server{
		machine:  machine,
		bus:      bus,
		screens:  screens,
		authH:    handler.NewAuthHandler(machine, logger.With("component", "auth_handler")),
		listH:    handler.NewListHandler(screens, listLogger),
		gatherer: gatherer,
		logger:   logger,
	}
}

// Screens returns the open list views.
func (s *Server) Screens() *handler.Screens {
	return s.screens
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /api/session", s.authH.Session)
	mux.HandleFunc("POST /api/login", s.authH.Login)
	mux.HandleFunc("POST /api/totp", s.authH.SecondFactor)
	mux.HandleFunc("POST /api/totp/cancel", s.authH.CancelSecondFactor)
	mux.HandleFunc("POST /api/logout", s.logout)
	mux.HandleFunc("POST /api/session/check", s.authH.Check)
	mux.Handle("GET /events", ws.HandleEvents(s.bus, s.logger.With("component", "websocket")))
	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	// List screens require a live session.
	protected := http.NewServeMux()
	s.registerListRoutes(protected)
	mux.Handle("/api/lists/", middleware.RequireSession(s.machine)(protected))

	return middleware.RequestLogger(s.logger.With("component", "http"))(s.resetOnAnonymous(mux))
}

// resetOnAnonymous dismisses every list screen once a request leaves the
// session anonymous, whichever route got it there.
func (s *Server) resetOnAnonymous(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		if s.machine.Status() == model.StatusAnonymous && s.screens.Count() > 0 {
			s.logger.Info("session ended, closing list screens", "count", s.screens.Count())
			s.screens.CloseAll()
		}
	})
}

func (s *Server) registerListRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/lists/{id}", s.listH.Open)
	mux.HandleFunc("DELETE /api/lists/{id}", s.listH.Close)
	mux.HandleFunc("POST /api/lists/{id}/move", s.listH.Move)
	mux.HandleFunc("POST /api/lists/{id}/items", s.listH.CreateItem)
	mux.HandleFunc("PUT /api/lists/{id}/items/{itemId}", s.listH.RenameItem)
	mux.HandleFunc("POST /api/lists/{id}/items/{itemId}/toggle", s.listH.ToggleItem)
	mux.HandleFunc("DELETE /api/lists/{id}/items/{itemId}", s.listH.DeleteItem)
}

// logout also dismisses every open list screen.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.screens.CloseAll()
	s.authH.Logout(w, r)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"session": string(s.machine.Status()),
	})
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	// No read or write timeout: /events connections are long-lived.
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("shell server listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	s.screens.CloseAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
