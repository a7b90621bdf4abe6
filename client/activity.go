package client

import (
	"context"
	"net/url"
	"strconv"

	"github.com/google/uuid"
)

// ActivityService handles activity timeline operations.
type ActivityService struct {
	c *Client
}

// Log appends one activity event and returns its id.
func (s *ActivityService) Log(ctx context.Context, req *ActivityLogRequest) (int64, error) {
	var resp struct {
		ID int64 `json:"id"`
	}
	if err := s.c.post(ctx, "/api/v1/activity", req, &resp); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

// Query returns one page of activity events.
func (s *ActivityService) Query(ctx context.Context, opts *ActivityQueryOptions) (*Page[ActivityEvent], error) {
	var page Page[ActivityEvent]
	if err := s.c.get(ctx, "/api/v1/activity", opts.values(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Timeline returns matching events grouped by UTC day, newest day first.
func (s *ActivityService) Timeline(ctx context.Context, opts *ActivityQueryOptions) ([]TimelineGroup, error) {
	var resp struct {
		Groups []TimelineGroup `json:"groups"`
	}
	if err := s.c.get(ctx, "/api/v1/activity/timeline", opts.values(), &resp); err != nil {
		return nil, err
	}
	return resp.Groups, nil
}

// EntityHistory returns the events recorded against one entity.
func (s *ActivityService) EntityHistory(ctx context.Context, entityType, entityID string, limit, offset int) (*Page[ActivityEvent], error) {
	var page Page[ActivityEvent]
	path := "/api/v1/activity/entity/" + url.PathEscape(entityType) + "/" + url.PathEscape(entityID)
	if err := s.c.get(ctx, path, pageParams(limit, offset), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ActorHistory returns the events performed by one principal.
func (s *ActivityService) ActorHistory(ctx context.Context, actorID uuid.UUID, limit, offset int) (*Page[ActivityEvent], error) {
	var page Page[ActivityEvent]
	if err := s.c.get(ctx, "/api/v1/activity/actor/"+actorID.String(), pageParams(limit, offset), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func pageParams(limit, offset int) url.Values {
	v := url.Values{}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		v.Set("offset", strconv.Itoa(offset))
	}
	return v
}
