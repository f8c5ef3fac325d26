package web

import (
	"context"
	"fmt"
	"net/http"

	"teraBridgeBot/internal/config"
	"teraBridgeBot/internal/logger"
	"teraBridgeBot/internal/token"

	"github.com/gorilla/mux"
)

// Server serves the token-gated web player and its WebSocket channel.
type Server struct {
	config    *config.Configuration
	logger    *logger.Logger
	issuer    *token.Issuer
	wsManager *WebSocketManager
	httpSrv   *http.Server
}

// NewServer creates a new web server instance.
func NewServer(cfg *config.Configuration, issuer *token.Issuer, log *logger.Logger) *Server {
	return &Server{
		config:    cfg,
		logger:    log,
		issuer:    issuer,
		wsManager: NewWebSocketManager(log),
	}
}

// Start runs the web server until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/watch", s.handleWatch).Methods(http.MethodGet)
	router.HandleFunc("/ws/{chatID}", s.handleWebSocket)

	s.httpSrv = &http.Server{
		Addr:    fmt.Sprintf(":%s", s.config.Port),
		Handler: router,
	}

	s.logger.Infof("Web server started on port %s", s.config.Port)
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the web server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// GetWSManager returns the WebSocket manager for publishing messages.
func (s *Server) GetWSManager() *WebSocketManager {
	return s.wsManager
}
