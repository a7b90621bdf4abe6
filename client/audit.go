package client

import "context"

// AuditService handles audit log operations.
type AuditService struct {
	c *Client
}

// Append writes one audit entry and returns its id.
func (s *AuditService) Append(ctx context.Context, req *AuditAppendRequest) (int64, error) {
	var resp struct {
		ID int64 `json:"id"`
	}
	if err := s.c.post(ctx, "/api/v1/audit", req, &resp); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

// AppendBatch writes up to 500 entries. Each entry succeeds or fails on its
// own; failed counts the failures.
func (s *AuditService) AppendBatch(ctx context.Context, reqs []AuditAppendRequest) ([]AppendResult, int, error) {
	var resp struct {
		Results []AppendResult `json:"results"`
		Failed  int            `json:"failed"`
	}
	body := map[string]any{"entries": reqs}
	if err := s.c.post(ctx, "/api/v1/audit/batch", body, &resp); err != nil {
		return nil, 0, err
	}
	return resp.Results, resp.Failed, nil
}

// Query returns one page of audit entries, newest first by default.
func (s *AuditService) Query(ctx context.Context, opts *AuditQueryOptions) (*Page[AuditEntry], error) {
	var page Page[AuditEntry]
	if err := s.c.get(ctx, "/api/v1/audit", opts.values(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}
