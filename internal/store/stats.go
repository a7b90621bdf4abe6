package store

import (
	"context"
	"fmt"
	"time"

	"github.com/worktrail/worktrail/internal/models"
)

// statsRows reads rowCap+1 rows so the caller learns whether the window was
// cut off, then returns at most rowCap of them.
func statsRows(ctx context.Context, b *Base, query string, args []any, rowCap int) ([]models.StatRecord, bool, error) {
	var out []models.StatRecord

	err := b.withRetry(ctx, func() error {
		rows, err := b.Pool.Query(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("querying stats window: %w", err)
		}
		defer rows.Close()

		out = out[:0]

		for rows.Next() {
			var r models.StatRecord
			if err := rows.Scan(&r.Action, &r.EntityType, &r.Severity, &r.ActorID, &r.ActorName, &r.CreatedAt); err != nil {
				return fmt.Errorf("scanning stats row: %w", err)
			}

			out = append(out, r)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, false, err
	}

	if len(out) > rowCap {
		return out[:rowCap], true, nil
	}

	return out, false, nil
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}

	return &t
}
