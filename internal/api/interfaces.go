package api

import "context"

// HealthChecker verifies database connectivity.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// SchemaVersioner reports the highest applied migration.
type SchemaVersioner func(ctx context.Context) (int64, error)

// SubscriberCounter reports live realtime subscriptions.
type SubscriberCounter interface {
	SubscriberCount() int
}
