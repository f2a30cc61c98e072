package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/NuZard84/go-socket-typeflow/internal/auth"
	"github.com/NuZard84/go-socket-typeflow/internal/constants"
	"github.com/NuZard84/go-socket-typeflow/internal/models"
	"github.com/NuZard84/go-socket-typeflow/internal/registry"
)

// writeWait bounds a single outbound frame write.
const writeWait = 10 * time.Second

// persistTimeout bounds the fire-and-forget handoff to the result store.
const persistTimeout = 5 * time.Second

// ResultStore receives the final snapshot plus the raw submission when a
// session finishes. Durable delivery and retries are the collaborator's
// responsibility, not the tracker's.
type ResultStore interface {
	SaveResult(ctx context.Context, res models.SessionResult) error
}

// Gateway owns the websocket endpoint: it upgrades connections, resolves
// an identity and session id, registers with the session registry and runs
// the receive loop.
type Gateway struct {
	registry *registry.Registry
	verifier *auth.Verifier
	results  ResultStore // nil when running without persistence
	texts    SentenceStore
	upgrader websocket.Upgrader
}

// NewGateway wires the gateway. allowedOrigin restricts websocket origins;
// empty allows any (development).
func NewGateway(reg *registry.Registry, verifier *auth.Verifier, results ResultStore, texts SentenceStore, allowedOrigin string) *Gateway {
	return &Gateway{
		registry: reg,
		verifier: verifier,
		results:  results,
		texts:    texts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
	}
}

// wsConn serializes writes to one websocket connection. The read loop and
// the periodic broadcaster both send through it.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) Send(msg models.ServerMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(msg)
}

// HandleWebSocket accepts a typing-session connection. An optional token
// resolves to an identity (never a hard failure); an optional session_id
// attaches to an existing live session instead of creating a new one.
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	ownerID := g.verifier.Verify(r.URL.Query().Get("token"))

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	c := &wsConn{conn: conn}
	g.registry.CreateOrGet(sessionID, ownerID, c)
	log.Printf("websocket connected: session=%s user=%s", sessionID, orAnonymous(ownerID))

	go g.readLoop(c, sessionID, ownerID)
}

// readLoop processes inbound messages in strict arrival order. Every exit,
// clean or not, goes through registry.Remove so the broadcaster is
// cancelled and state is reclaimed.
func (g *Gateway) readLoop(c *wsConn, sessionID, ownerID string) {
	defer func() {
		g.registry.Remove(sessionID)
		c.conn.Close()
		log.Printf("websocket closed: session=%s", sessionID)
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("websocket error for session %s: %v", sessionID, err)
			}
			return
		}

		var msg models.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			// Malformed payloads never kill the connection.
			log.Printf("undecodable message on session %s: %v", sessionID, err)
			continue
		}

		switch msg.Type {
		case constants.MsgStartSession:
			g.handleStart(c, sessionID, ownerID)
		case constants.MsgKeystroke:
			g.handleKeystroke(c, sessionID, msg)
		case constants.MsgHeartbeat:
			g.handleHeartbeat(c, sessionID)
		case constants.MsgFinishSession:
			g.handleFinish(c, sessionID, msg)
		default:
			log.Printf("unknown message type %q on session %s", msg.Type, sessionID)
		}
	}
}

// handleStart creates (or resets) the session state and starts its
// broadcaster. Re-registering covers a start after an earlier finish
// already removed the entry.
func (g *Gateway) handleStart(c *wsConn, sessionID, ownerID string) {
	now := time.Now().UTC()

	sess := g.registry.CreateOrGet(sessionID, ownerID, c)
	sess.Start(now)
	g.registry.StartBroadcaster(sessionID)

	g.send(c, sessionID, models.ServerMessage{
		Type:      constants.MsgSessionStarted,
		SessionID: sessionID,
		Time:      now,
	})
	log.Printf("session started: %s user=%s", sessionID, orAnonymous(ownerID))
}

func (g *Gateway) handleKeystroke(c *wsConn, sessionID string, msg models.ClientMessage) {
	now := time.Now().UTC()

	sess, ok := g.registry.Get(sessionID)
	if !ok {
		g.sendError(c, sessionID, "session is not active")
		return
	}

	ts := now
	if msg.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, msg.Timestamp); err == nil {
			ts = parsed
		}
	}

	if err := sess.RecordKeystroke(msg.Char, msg.Correct, ts, now); err != nil {
		g.sendError(c, sessionID, err.Error())
		return
	}

	correct := msg.Correct
	position := msg.Position
	g.send(c, sessionID, models.ServerMessage{
		Type:     constants.MsgKeystrokeProcessed,
		Char:     msg.Char,
		Correct:  &correct,
		Position: &position,
		Time:     now,
	})
}

// handleHeartbeat acks liveness. The session may already be gone, in which
// case the ack alone keeps the peer's keepalive logic happy.
func (g *Gateway) handleHeartbeat(c *wsConn, sessionID string) {
	now := time.Now().UTC()

	if sess, ok := g.registry.Get(sessionID); ok {
		sess.Touch(now)
	}

	g.send(c, sessionID, models.ServerMessage{
		Type: constants.MsgHeartbeatAck,
		Time: now,
	})
}

// handleFinish computes the final snapshot, hands the result to the
// persistence collaborator, replies, and tears the session down.
func (g *Gateway) handleFinish(c *wsConn, sessionID string, msg models.ClientMessage) {
	now := time.Now().UTC()

	sess, ok := g.registry.Get(sessionID)
	if !ok {
		g.sendError(c, sessionID, "session is not active")
		return
	}

	final, err := sess.Finish(now)
	if err != nil {
		g.sendError(c, sessionID, err.Error())
		return
	}

	if g.results != nil {
		g.persist(models.SessionResult{
			SessionID:  sessionID,
			OwnerID:    sess.OwnerID,
			StartedAt:  sess.StartTime(),
			EndedAt:    now,
			Final:      final,
			Text:       msg.Text,
			Keystrokes: msg.Keystrokes,
		})
	}

	g.send(c, sessionID, models.ServerMessage{
		Type:         constants.MsgSessionEnded,
		SessionID:    sessionID,
		FinalResults: &final,
		Time:         now,
	})
	log.Printf("session finished: %s net=%.1f gross=%.1f accuracy=%.1f", sessionID, final.NetWPM, final.GrossWPM, final.Accuracy)

	g.registry.Remove(sessionID)
}

// persist hands the result off without blocking the receive loop. One
// attempt only; the store owns durability.
func (g *Gateway) persist(res models.SessionResult) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		if err := g.results.SaveResult(ctx, res); err != nil {
			log.Printf("saving result for session %s: %v", res.SessionID, err)
		}
	}()
}

func (g *Gateway) send(c *wsConn, sessionID string, msg models.ServerMessage) {
	if err := c.Send(msg); err != nil {
		// The read loop will observe the dead connection and tear down.
		log.Printf("send %s to session %s failed: %v", msg.Type, sessionID, err)
	}
}

func (g *Gateway) sendError(c *wsConn, sessionID, message string) {
	g.send(c, sessionID, models.ServerMessage{
		Type:    constants.MsgError,
		Message: message,
		Time:    time.Now().UTC(),
	})
}

func orAnonymous(ownerID string) string {
	if ownerID == "" {
		return "anonymous"
	}
	return ownerID
}

var _ registry.Conn = (*wsConn)(nil)
