package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"regexp"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/worktrail/worktrail/internal/dbpool"
	"github.com/worktrail/worktrail/internal/realtime"
)

// validChannel matches safe PostgreSQL LISTEN channel names.
var validChannel = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ListenChannel carries row changes from the notify triggers and from
// post-commit store notifications.
const ListenChannel = "worktrail_changes"

const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
)

// Publisher receives decoded change events.
type Publisher interface {
	Publish(ev realtime.Event)
}

// changePayload is the JSON body sent on ListenChannel.
type changePayload struct {
	Table     string          `json:"table"`
	Op        string          `json:"op"`
	ProjectID *uuid.UUID      `json:"project_id"`
	ActorID   *uuid.UUID      `json:"actor_id"`
	Record    json.RawMessage `json:"record"`
}

// NotifyBridge subscribes to PostgreSQL LISTEN/NOTIFY on ListenChannel and
// publishes each change into the realtime dispatcher.
type NotifyBridge struct {
	log  *logrus.Logger
	pool *dbpool.Pool
	pub  Publisher
}

// NewNotifyBridge creates a NotifyBridge wired to the given pool and publisher.
func NewNotifyBridge(log *logrus.Logger, pool *dbpool.Pool, pub Publisher) *NotifyBridge {
	return &NotifyBridge{
		log:  log,
		pool: pool,
		pub:  pub,
	}
}

// Start launches the LISTEN loop in a background goroutine. It verifies the
// database is reachable before returning; later failures reconnect with
// jittered exponential backoff.
func (b *NotifyBridge) Start(ctx context.Context) error {
	if !validChannel.MatchString(ListenChannel) {
		return fmt.Errorf("notify bridge: invalid channel name %q", ListenChannel)
	}

	if err := b.pool.Ping(ctx); err != nil {
		return fmt.Errorf("notify bridge: database not reachable: %w", err)
	}

	go b.listen(ctx)

	return nil
}

func newReconnectBackoff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialBackoff
	bo.MaxInterval = maxBackoff
	bo.RandomizationFactor = 0.25
	bo.MaxElapsedTime = 0
	bo.Reset()

	return bo
}

// listen acquires a connection, subscribes and forwards notifications until
// the context is cancelled.
func (b *NotifyBridge) listen(ctx context.Context) {
	bo := newReconnectBackoff()

	for {
		if ctx.Err() != nil {
			return
		}

		err := b.subscribeAndForward(ctx, bo.Reset)
		if err == nil || ctx.Err() != nil {
			return
		}

		wait := bo.NextBackOff()

		b.log.WithError(err).WithField("retry_in", wait).Warn("notify.reconnecting")

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// subscribeAndForward issues LISTEN and blocks on notifications until the
// connection fails or the context is cancelled.
func (b *NotifyBridge) subscribeAndForward(ctx context.Context, onListening func()) error {
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	// LISTEN takes the channel inline, not as a parameter.
	channel := pgx.Identifier{ListenChannel}.Sanitize()
	if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
		return fmt.Errorf("executing LISTEN: %w", err)
	}

	onListening()
	b.log.WithField("channel", ListenChannel).Info("notify.listening")

	for {
		// Periodic read deadline so cancellation is observed.
		if err := conn.Conn().PgConn().Conn().SetReadDeadline(time.Now().Add(2 * time.Minute)); err != nil {
			return fmt.Errorf("setting read deadline: %w", err)
		}

		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}

			return fmt.Errorf("waiting for notification: %w", err)
		}

		b.handleNotification(notification)
	}
}

// handleNotification decodes one payload and publishes it.
func (b *NotifyBridge) handleNotification(n *pgconn.Notification) {
	ev, ok := decodeChange(n.Payload, time.Now())
	if !ok {
		b.log.WithField("channel", n.Channel).Warn("notify.dropped_unscoped")
		return
	}

	b.pub.Publish(ev)
}

// decodeChange turns a notification payload into an event. Payloads with no
// project or actor cannot match any scope and are rejected.
func decodeChange(payload string, now time.Time) (realtime.Event, bool) {
	var p changePayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return realtime.Event{}, false
	}

	if p.Table == "" || (p.ProjectID == nil && p.ActorID == nil) {
		return realtime.Event{}, false
	}

	kind := realtime.EventInsert
	switch p.Op {
	case "insert":
	case "update", "delete":
		kind = realtime.EventUpdate
	default:
		return realtime.Event{}, false
	}

	return realtime.Event{
		Kind:      kind,
		Table:     p.Table,
		ProjectID: p.ProjectID,
		ActorID:   p.ActorID,
		Record:    p.Record,
		Time:      now,
	}, true
}
