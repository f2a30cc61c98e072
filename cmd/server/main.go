package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/NuZard84/go-socket-typeflow/internal/auth"
	"github.com/NuZard84/go-socket-typeflow/internal/config"
	"github.com/NuZard84/go-socket-typeflow/internal/db"
	"github.com/NuZard84/go-socket-typeflow/internal/handlers"
	"github.com/NuZard84/go-socket-typeflow/internal/registry"
)

func init() {
	godotenv.Load()
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
}

// enableCORS wraps the plain HTTP endpoints for browser clients.
func enableCORS(origin string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		handler(w, r)
	}
}

func main() {
	configPath := flag.String("config", "config.toml", "configuration file path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	// The persistence collaborator is optional: without MONGO_URI the
	// tracker runs, final results are simply not stored.
	var store *db.Store
	if uri := os.Getenv("MONGO_URI"); uri != "" {
		store, err = db.Connect(uri)
		if err != nil {
			log.Printf("WARNING: MongoDB unavailable, running without persistence: %v", err)
			store = nil
		}
	} else {
		log.Printf("MONGO_URI not set, running without persistence")
	}

	verifier := auth.NewVerifier(os.Getenv("TYPEFLOW_JWT_SECRET"))
	if verifier == nil {
		log.Printf("TYPEFLOW_JWT_SECRET not set, all sessions are anonymous")
	}

	reg := registry.New(cfg.BroadcastInterval.Duration, cfg.KeystrokeLogCap)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reg.StartReaper(ctx, cfg.IdleTimeout.Duration)

	var results handlers.ResultStore
	var texts handlers.SentenceStore
	if store != nil {
		results = store
		texts = store
	}
	gateway := handlers.NewGateway(reg, verifier, results, texts, cfg.AllowedOrigin)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/session", gateway.HandleWebSocket)
	mux.HandleFunc("/api/practice-text", enableCORS(cfg.AllowedOrigin, gateway.HandlePracticeText))
	mux.HandleFunc("/api/check-session", enableCORS(cfg.AllowedOrigin, gateway.HandleCheckSession))
	mux.HandleFunc("/health", gateway.HandleHealth)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: mux,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-stop
		log.Println("Shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
		if store != nil {
			if err := store.Close(shutdownCtx); err != nil {
				log.Printf("closing store: %v", err)
			}
		}
	}()

	log.Printf("Server starting on http://localhost%s", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
