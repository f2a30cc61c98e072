package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/NuZard84/go-socket-typeflow/internal/db"
)

// SentenceStore provides practice texts. Nil is allowed; the endpoint
// falls back to a built-in sample.
type SentenceStore interface {
	RandomSentence(ctx context.Context) (*db.TypingSentence, error)
}

// fallbackSentence keeps the endpoint useful when no store is configured.
var fallbackSentence = db.TypingSentence{
	Story:           "The quick brown fox jumps over the lazy dog.",
	TotalCharacters: 44,
	TotalWords:      9,
}

// HandlePracticeText serves a random typing sentence.
func (g *Gateway) HandlePracticeText(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sentence := &fallbackSentence
	if g.texts != nil {
		got, err := g.texts.RandomSentence(r.Context())
		if err != nil {
			log.Printf("fetching practice text: %v", err)
		} else {
			sentence = got
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(sentence); err != nil {
		log.Printf("encoding practice text response: %v", err)
	}
}

// HandleCheckSession reports whether a session id is currently live.
func (g *Gateway) HandleCheckSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "Missing session_id", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]bool{
		"active": g.registry.Has(sessionID),
	}); err != nil {
		log.Printf("encoding check-session response: %v", err)
	}
}

// HandleHealth is the liveness probe.
func (g *Gateway) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "ok",
		"sessions":  g.registry.Count(),
		"timestamp": time.Now().UTC(),
	}); err != nil {
		log.Printf("encoding health response: %v", err)
	}
}
