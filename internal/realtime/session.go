package realtime

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/worktrail/worktrail/internal/models"
)

const (
	writeTimeout            = 10 * time.Second
	wsReadLimit             = 4096
	sessionControlBuffer    = 8
	maxConnLifetime         = 4 * time.Hour
	principalRefresh        = 15 * time.Minute
	principalRefreshTimeout = 10 * time.Second
	pingInterval            = 30 * time.Second
	pingTimeout             = 10 * time.Second
	maxMissedPongs          = int32(2)
)

// PrincipalValidator re-checks that a session's API key is still valid.
type PrincipalValidator interface {
	LookupPrincipal(ctx context.Context, apiKey string) (*models.Principal, error)
}

// Session bridges one WebSocket connection to a Subscription. It owns the
// connection's TimelineBuffer so each client sees its own recent history.
type Session struct {
	conn        *websocket.Conn
	sub         *Subscription
	timeline    *TimelineBuffer
	control     chan []byte
	log         *logrus.Logger
	apiKey      string
	validator   PrincipalValidator
	connectedAt time.Time
	lifetime    time.Duration
}

// NewSession creates a Session. The caller must have already subscribed.
func NewSession(
	conn *websocket.Conn,
	sub *Subscription,
	timelineLen int,
	log *logrus.Logger,
	validator PrincipalValidator,
	apiKey string,
) *Session {
	return &Session{
		conn:        conn,
		sub:         sub,
		timeline:    NewTimelineBuffer(timelineLen),
		control:     make(chan []byte, sessionControlBuffer),
		log:         log,
		apiKey:      apiKey,
		validator:   validator,
		connectedAt: time.Now(),
		lifetime:    maxConnLifetime,
	}
}

// Timeline returns the session's event buffer.
func (s *Session) Timeline() *TimelineBuffer {
	return s.timeline
}

// Serve runs the session until the client disconnects, the subscription
// ends or ctx is cancelled. It always unsubscribes before returning.
func (s *Session) Serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.sub.Unsubscribe()

	go func() {
		s.readPump(ctx)
		cancel()
	}()

	s.writePump(ctx)
}

// readPump handles client requests until the connection closes.
func (s *Session) readPump(ctx context.Context) {
	s.conn.SetReadLimit(wsReadLimit)

	for {
		_, msgBytes, err := s.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				s.log.WithField("status", websocket.CloseStatus(err)).Debug("realtime.client_disconnected")
			}

			return
		}

		s.handleMessage(msgBytes)
	}
}

func (s *Session) handleMessage(msgBytes []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(msgBytes, &msg); err != nil {
		return
	}

	if msg.Type != "snapshot" {
		return
	}

	out, err := json.Marshal(ServerMessage{Type: "snapshot", Events: s.timeline.Snapshot()})
	if err != nil {
		return
	}

	select {
	case s.control <- out:
	default:
	}
}

// writePump forwards subscription events and control replies to the client.
func (s *Session) writePump(ctx context.Context) {
	defer s.conn.CloseNow() //nolint:errcheck // best-effort close on teardown

	lifetimeTimer := time.NewTimer(time.Until(s.connectedAt.Add(s.lifetime)))
	defer lifetimeTimer.Stop()

	refreshTicker := time.NewTicker(principalRefresh)
	defer refreshTicker.Stop()

	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	var missedPongs atomic.Int32

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.sub.Events():
			if !ok {
				s.write(ctx, encodeMessage(ServerMessage{Type: "shutdown", Reason: "subscription closed"}))
				s.conn.Close(websocket.StatusGoingAway, "subscription closed") //nolint:errcheck // best-effort

				return
			}

			s.timeline.Push(ev)

			if !s.write(ctx, encodeMessage(ServerMessage{Type: "event", Event: &ev})) {
				return
			}
		case msg := <-s.control:
			if !s.write(ctx, msg) {
				return
			}
		case <-pingTicker.C:
			if s.sendPing(ctx, &missedPongs) {
				return
			}
		case <-refreshTicker.C:
			if !s.refreshPrincipal(ctx) {
				return
			}
		case <-lifetimeTimer.C:
			s.log.Info("realtime.max_lifetime")
			s.conn.Close(websocket.StatusNormalClosure, "max connection lifetime exceeded") //nolint:errcheck // best-effort

			return
		}
	}
}

func (s *Session) write(ctx context.Context, msg []byte) bool {
	if msg == nil {
		return true
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := s.conn.Write(writeCtx, websocket.MessageText, msg); err != nil {
		s.log.WithError(err).Debug("realtime.write_failed")

		return false
	}

	return true
}

// sendPing sends a WebSocket ping and tracks missed pongs.
// Returns true if the connection should be closed.
func (s *Session) sendPing(ctx context.Context, missedPongs *atomic.Int32) bool {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	err := s.conn.Ping(pingCtx)
	cancel()

	if err != nil {
		if missedPongs.Add(1) >= maxMissedPongs {
			s.log.Debug("realtime.missed_pongs")

			return true
		}

		return false
	}

	missedPongs.Store(0)

	return false
}

// refreshPrincipal re-validates the API key. False means close the session.
func (s *Session) refreshPrincipal(ctx context.Context) bool {
	if s.validator == nil {
		return true
	}

	refreshCtx, cancel := context.WithTimeout(ctx, principalRefreshTimeout)
	_, err := s.validator.LookupPrincipal(refreshCtx, s.apiKey)
	cancel()

	if err != nil {
		s.log.Info("realtime.principal_expired")
		s.conn.Close(websocket.StatusPolicyViolation, "authentication expired") //nolint:errcheck // best-effort

		return false
	}

	return true
}

func encodeMessage(v ServerMessage) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}

	return b
}
