package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cfg "github.com/example/inkwell/internal/config"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type App struct {
	DB            DB
	tokens        TokenStore
	issuer        *TokenIssuer
	sessions      *SessionManager
	uploadDir     string
	allowedOrigin string
	rateLimiter   *RateLimiter
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write json: %v", err)
	}
}

func newRouter(app *App) *mux.Router {
	r := mux.NewRouter()

	// Apply global middleware
	r.Use(SecurityHeaders)
	r.Use(app.Logging)
	r.Use(Metrics)
	r.Use(app.CORS)
	r.Use(app.RateLimit)

	// Routes are method-restricted, so CORS preflight requests land on the
	// method-not-allowed path. Route them through the CORS middleware.
	r.MethodNotAllowedHandler = app.CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))

	// Health check endpoints (no auth required)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(200)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")
	r.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if p, ok := app.DB.(interface{ ping() bool }); ok {
			if !p.ping() {
				w.WriteHeader(503)
				w.Write([]byte(`{"ready":false}`))
				return
			}
		}
		w.WriteHeader(200)
		w.Write([]byte(`{"ready":true}`))
	}).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Session endpoints
	r.HandleFunc("/signup", app.HandleSignup).Methods("POST")
	r.HandleFunc("/login", app.HandleLogin).Methods("POST")
	r.HandleFunc("/logout", app.HandleLogout).Methods("POST")
	r.HandleFunc("/token", app.HandleRefresh).Methods("POST")

	// File endpoints
	r.HandleFunc("/file/upload", app.HandleUploadFile).Methods("POST")
	r.HandleFunc("/file/{filename}", app.HandleGetFile).Methods("GET")

	// Everything below requires an authenticated caller
	auth := r.NewRoute().Subrouter()
	auth.Use(app.RequireAuth)

	auth.HandleFunc("/create", app.HandleCreatePost).Methods("POST")
	auth.HandleFunc("/update/{id}", app.HandleUpdatePost).Methods("PUT")
	auth.HandleFunc("/delete/{id}", app.HandleDeletePost).Methods("DELETE")
	auth.HandleFunc("/post/{id}", app.HandleGetPost).Methods("GET")
	auth.HandleFunc("/posts", app.HandleListPosts).Methods("GET")

	auth.HandleFunc("/posts/export/excel", app.HandleExportExcel).Methods("GET")
	auth.HandleFunc("/posts/{id}/export/word", app.HandleExportWord).Methods("GET")

	auth.HandleFunc("/comment/new", app.HandleCreateComment).Methods("POST")
	auth.HandleFunc("/comments/{id}", app.HandleListComments).Methods("GET")
	auth.HandleFunc("/comment/delete/{id}", app.HandleDeleteComment).Methods("DELETE")

	return r
}

func main() {
	c, err := cfg.New()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var db DB
	switch c.DBAdapter {
	case "sqlite":
		s, err := NewSQLiteDB(c.SQLiteFile)
		if err != nil {
			log.Fatalf("sqlite init: %v", err)
		}
		db = s
	case "postgres":
		dsn, err := c.BuildPostgresDSN()
		if err != nil {
			log.Fatalf("postgres config error: %v", err)
		}

		// Apply migrations before connecting
		log.Println("Applying database migrations...")
		if err := ApplyMigrations("./migrations", dsn); err != nil {
			log.Printf("migrations warning: %v", err)
		}

		p, err := NewPostgresDB(dsn)
		if err != nil {
			log.Fatalf("postgres init: %v", err)
		}
		db = p
		log.Println("Connected to PostgreSQL database")
	case "memory":
		log.Println("Using in-memory database (not recommended for production)")
		db = NewMemoryDB()
	default:
		log.Fatalf("unsupported DB_ADAPTER: %s (supported: postgres, sqlite, memory)", c.DBAdapter)
	}

	var tokens TokenStore = db
	if c.TokenStore == "redis" {
		rs, err := NewRedisTokenStore(c.RedisURL)
		if err != nil {
			log.Fatalf("redis init: %v", err)
		}
		defer rs.Close()
		tokens = rs
		log.Println("Using Redis refresh-token store")
	}

	issuer := NewTokenIssuer(c.AccessSecret, c.RefreshSecret)
	app := &App{
		DB:            db,
		tokens:        tokens,
		issuer:        issuer,
		sessions:      NewSessionManager(db, tokens, issuer),
		uploadDir:     c.UploadDir,
		allowedOrigin: c.AllowedOrigin,
		rateLimiter:   NewRateLimiter(120),
	}

	srv := &http.Server{Handler: newRouter(app), Addr: ":" + c.Port, ReadTimeout: 5 * time.Second, WriteTimeout: 10 * time.Second}

	go func() {
		log.Println("Starting server on", c.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if closer, ok := app.DB.(interface{ close() error }); ok {
		_ = closer.close()
	}
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown failed:%+v", err)
	}
	log.Println("Server exited properly")
}
