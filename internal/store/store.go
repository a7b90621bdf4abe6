// Package store provides focused, single-concern data access stores for
// work items, the audit log, the activity timeline and principals.
//
// Each store owns one table family and embeds shared helpers (pool, logger,
// retry policy) via the Base struct. Stores never import each other; shared
// logic lives in this file or in filter.go and scan.go.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/worktrail/worktrail/internal/dbpool"
	"github.com/worktrail/worktrail/internal/models"
)

const defaultQueryTimeout = 30 * time.Second

// ChangeChannel is the LISTEN/NOTIFY channel carrying row changes.
const ChangeChannel = "worktrail_changes"

// maxNotifyPayload keeps pg_notify payloads under the 8000 byte server limit.
const maxNotifyPayload = 7900

// Base contains shared dependencies for all stores.
// Embed this in each store struct.
type Base struct {
	Pool *dbpool.Pool
	Log  *logrus.Logger

	// RetryMaxElapsed bounds retries of transient read failures. Zero
	// disables retry. Writes are never retried.
	RetryMaxElapsed time.Duration
}

// withTimeout creates a context with the default query timeout.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, defaultQueryTimeout)
}

// beginTx starts a read-write transaction.
func (b *Base) beginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := b.Pool.Begin(ctx)
	if err != nil {
		return nil, classify(fmt.Errorf("beginning transaction: %w", err))
	}

	return tx, nil
}

// beginReadTx starts a read-only transaction.
func (b *Base) beginReadTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := b.Pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, classify(fmt.Errorf("beginning read transaction: %w", err))
	}

	return tx, nil
}

// withRetry runs a read operation, retrying transient failures with
// exponential backoff until RetryMaxElapsed has passed.
func (b *Base) withRetry(ctx context.Context, op func() error) error {
	if b.RetryMaxElapsed <= 0 {
		return classify(op())
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxElapsedTime = b.RetryMaxElapsed

	attempt := 0

	err := backoff.Retry(func() error {
		attempt++

		err := classify(op())
		if err == nil {
			return nil
		}

		if !errors.Is(err, models.ErrTransientIO) {
			return backoff.Permanent(err)
		}

		if b.Log != nil {
			b.Log.WithError(err).WithField("attempt", attempt).Debug("store.retry")
		}

		return err
	}, backoff.WithContext(bo, ctx))

	return err
}

// classify maps driver errors onto the model error taxonomy. Errors that are
// already classified pass through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}

	if errors.Is(err, models.ErrTransientIO) || errors.Is(err, models.ErrNotFound) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505":
			return fmt.Errorf("%w: %s", models.ErrDuplicateKey, pgErr.ConstraintName)
		case strings.HasPrefix(pgErr.Code, "08"),
			pgErr.Code == "40001", pgErr.Code == "40P01",
			pgErr.Code == "57P01", pgErr.Code == "57014":
			return fmt.Errorf("%w: %w", models.ErrTransientIO, err)
		}

		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) || pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", models.ErrTransientIO, err)
	}

	return err
}

// notify sends a pg_notify on the change channel (best-effort, post-commit).
// The record is dropped from the payload when it would exceed the limit.
func (b *Base) notify(table, op string, projectID uuid.UUID, actorID *uuid.UUID, record any) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msg := map[string]any{
		"table":      table,
		"op":         op,
		"project_id": projectID,
		"actor_id":   actorID,
		"record":     record,
	}

	payload, err := json.Marshal(msg)
	if err != nil || len(payload) > maxNotifyPayload {
		delete(msg, "record")
		payload, _ = json.Marshal(msg) //nolint:errcheck // uuid and string values only.
	}

	if _, err := b.Pool.Exec(ctx, "SELECT pg_notify($1, $2)", ChangeChannel, string(payload)); err != nil {
		b.Log.WithError(err).WithField("table", table).Warn("store.notify_failed")
	}
}
