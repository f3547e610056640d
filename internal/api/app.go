package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"

	"dmchat/internal/config"
	"dmchat/internal/database"
	"dmchat/internal/server"
)

type App struct {
	log            *log.Logger
	db             database.Repository
	cs             *server.ChatServer
	srv            *http.Server
	signingKey     []byte
	allowedOrigins []string
	uploadDir      string
}

func NewApp(logger *log.Logger, cs *server.ChatServer, db database.Repository, cfg *config.Config, metrics http.Handler) *App {
	a := &App{
		log:            logger,
		db:             db,
		cs:             cs,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
		uploadDir:      cfg.UploadDir,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", a.register)
	mux.HandleFunc("POST /api/auth/login", a.login)
	mux.Handle("GET /api/auth/session", a.authMiddleware(a.session))
	mux.Handle("GET /api/auth/logout", a.authMiddleware(a.logout))
	mux.Handle("GET /api/users", a.authMiddleware(a.listUsers))
	mux.Handle("GET /api/messages", a.authMiddleware(a.getMessages))
	mux.Handle("POST /api/messages/audio", a.authMiddleware(a.uploadAudio))
	mux.Handle("/api/account", a.authMiddleware(a.account))
	mux.Handle("POST /api/account/password", a.authMiddleware(a.changePassword))
	mux.Handle("GET /uploads/", a.authMiddleware(a.serveUpload))
	mux.Handle("GET /ws", a.authMiddleware(a.serveWs))

	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = a.errorHandler(h)

	a.srv = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	return a
}

func (a *App) Start() error {
	a.log.Printf("starting server on %s\n", a.srv.Addr)
	return a.srv.ListenAndServe()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.log.Println("shutting down HTTP server...")
	if err := a.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}

func (a *App) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Printf("json encode: %v", err)
	}
}
