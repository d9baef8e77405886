package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/websocket"
	"github.com/npezzotti/go-chatrelay/internal/config"
	"github.com/npezzotti/go-chatrelay/internal/database"
	"github.com/npezzotti/go-chatrelay/internal/server"
	"github.com/npezzotti/go-chatrelay/internal/users"
	"go.uber.org/zap"
)

type ChatApp struct {
	log        *zap.SugaredLogger
	db         database.ChatRepository
	srv        *http.Server
	relay      *server.Relay
	users      *users.Directory
	upgrader   websocket.Upgrader
	signingKey []byte
}

func NewChatApp(mux *http.ServeMux, logger *zap.SugaredLogger, db database.ChatRepository, relay *server.Relay, dir *users.Directory, cfg *config.Config) *ChatApp {
	s := &ChatApp{
		log:        logger,
		db:         db,
		relay:      relay,
		users:      dir,
		signingKey: cfg.SigningKey,
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: originChecker(cfg)}

	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.HandleFunc("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.HandleFunc("GET /api/users/{userId}", s.getUser)
	mux.HandleFunc("GET /api/rooms", s.listRooms)
	mux.HandleFunc("POST /api/rooms", s.authMiddleware(s.createRoom))
	mux.HandleFunc("GET /api/rooms/{roomId}/messages", s.getMessages)
	mux.HandleFunc("GET /ws", s.serveWs)

	origins := cfg.AllowedOrigins
	if cfg.AllowAll {
		origins = []string{"*"}
	}

	var h http.Handler = handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)
	h = handlers.LoggingHandler(zap.NewStdLog(logger.Desugar()).Writer(), h)

	s.srv = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	return s
}

func (s *ChatApp) Handler() http.Handler {
	return s.srv.Handler
}

func (s *ChatApp) Start() error {
	s.log.Infow("starting server", "addr", s.srv.Addr)
	return s.srv.ListenAndServe()
}

func (s *ChatApp) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}

// originChecker accepts requests without an Origin header, and otherwise only
// configured origins.
func originChecker(cfg *config.Config) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		allowed[o] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || cfg.AllowAll {
			return true
		}

		normalized, ok := config.NormalizeOrigin(origin)
		if !ok {
			return false
		}

		_, ok = allowed[normalized]
		return ok
	}
}
