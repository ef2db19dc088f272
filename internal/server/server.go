// Package server exposes the participant-facing HTTP surface: the WebSocket
// upgrade endpoint and a health probe. Everything after the upgrade is owned
// by the lifecycle manager.
package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/openquiz/quizgate/internal/auth"
	"github.com/openquiz/quizgate/internal/lifecycle"
	"github.com/openquiz/quizgate/pkg/ws"
)

const (
	readTimeout     = 15 * time.Second
	writeTimeout    = 15 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Server accepts participant connections and hands them to the lifecycle
// manager once authenticated.
type Server struct {
	addr           string
	allowedOrigins string
	authenticator  auth.Authenticator
	manager        *lifecycle.Manager
	log            *zap.Logger
}

// New creates a gateway server listening on addr.
func New(addr, allowedOrigins string, authenticator auth.Authenticator, manager *lifecycle.Manager, log *zap.Logger) *Server {
	return &Server{
		addr:           addr,
		allowedOrigins: allowedOrigins,
		authenticator:  authenticator,
		manager:        manager,
		log:            log.With(zap.String("module", "server")),
	}
}

// Handler returns the HTTP mux for the gateway endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("Gateway server listening", zap.String("addr", s.addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// handleWS upgrades the connection, authenticates it, and admits it to the
// lobby. An authentication failure closes the already-upgraded connection
// with the auth-rejected code so the client sees a deliberate refusal rather
// than a transport error.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id, authErr := s.authenticator.Authenticate(r)

	conn, err := ws.Upgrade(w, r, s.allowedOrigins, s.log)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	if authErr != nil {
		conn.ForceClose(ws.CloseAuthRejected, "authentication rejected")
		return
	}

	s.manager.AdmitToLobby(conn, id)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		s.log.Debug("Health write failed", zap.Error(err))
	}
}
