package models

import (
	"encoding/json"
	"time"

	"github.com/NuZard84/go-socket-typeflow/internal/metrics"
)

// ClientMessage is the envelope peers send over the websocket. Type
// discriminates; the remaining fields are only meaningful for some types.
type ClientMessage struct {
	Type       string          `json:"type"`
	Char       string          `json:"char"`
	Correct    bool            `json:"correct"`
	Position   int             `json:"position"`
	Timestamp  string          `json:"timestamp"`
	Text       string          `json:"text"`
	Keystrokes json.RawMessage `json:"keystrokes"`
}

// ServerMessage is the envelope the tracker sends back. Time is stamped in
// UTC at send time on every outbound message. Correct and Position are
// pointers so a false/zero echo still serializes.
type ServerMessage struct {
	Type         string            `json:"type"`
	SessionID    string            `json:"session_id,omitempty"`
	Char         string            `json:"char,omitempty"`
	Correct      *bool             `json:"correct,omitempty"`
	Position     *int              `json:"position,omitempty"`
	Metrics      *metrics.Snapshot `json:"metrics,omitempty"`
	FinalResults *metrics.Snapshot `json:"final_results,omitempty"`
	Message      string            `json:"message,omitempty"`
	Time         time.Time         `json:"timestamp"`
}

// SessionResult is the payload handed to the persistence collaborator when
// a session finishes: the final snapshot plus the raw submission.
type SessionResult struct {
	SessionID  string
	OwnerID    string
	StartedAt  time.Time
	EndedAt    time.Time
	Final      metrics.Snapshot
	Text       string
	Keystrokes json.RawMessage
}
