package client

import "context"

// StatsService reads aggregations over the audit and activity logs.
type StatsService struct {
	c *Client
}

// Audit aggregates the audit log.
func (s *StatsService) Audit(ctx context.Context, opts *StatsOptions) (*Stats, error) {
	return s.aggregate(ctx, "/api/v1/stats/audit", opts)
}

// Activity aggregates the activity log.
func (s *StatsService) Activity(ctx context.Context, opts *StatsOptions) (*Stats, error) {
	return s.aggregate(ctx, "/api/v1/stats/activity", opts)
}

func (s *StatsService) aggregate(ctx context.Context, path string, opts *StatsOptions) (*Stats, error) {
	var st Stats
	if err := s.c.get(ctx, path, opts.values(), &st); err != nil {
		return nil, err
	}
	return &st, nil
}
