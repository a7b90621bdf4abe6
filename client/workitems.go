package client

import (
	"context"

	"github.com/google/uuid"
)

type dataList[T any] struct {
	Data []T `json:"data"`
}

// ProblemService handles problem operations.
type ProblemService struct {
	c *Client
}

// Create opens a problem.
func (s *ProblemService) Create(ctx context.Context, req *CreateProblemRequest) (*Problem, error) {
	var p Problem
	if err := s.c.post(ctx, "/api/v1/problems", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Get returns a problem by id.
func (s *ProblemService) Get(ctx context.Context, id uuid.UUID) (*Problem, error) {
	var p Problem
	if err := s.c.get(ctx, "/api/v1/problems/"+id.String(), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns one page of problems.
func (s *ProblemService) List(ctx context.Context, opts *WorkItemListOptions) (*Page[Problem], error) {
	var page Page[Problem]
	if err := s.c.get(ctx, "/api/v1/problems", opts.values(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ChangeStatus moves a problem to req.To.
func (s *ProblemService) ChangeStatus(ctx context.Context, id uuid.UUID, req *ProblemStatusRequest) (*Problem, error) {
	var p Problem
	if err := s.c.post(ctx, "/api/v1/problems/"+id.String()+"/status", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Actions lists the problem's recorded status changes.
func (s *ProblemService) Actions(ctx context.Context, id uuid.UUID) ([]StatusAction, error) {
	return actions(ctx, s.c, "/api/v1/problems/"+id.String())
}

// Delete soft-deletes a problem.
func (s *ProblemService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.c.del(ctx, "/api/v1/problems/"+id.String(), nil)
}

// DiaryService handles site diary operations.
type DiaryService struct {
	c *Client
}

// Create drafts a diary entry.
func (s *DiaryService) Create(ctx context.Context, req *CreateDiaryRequest) (*Diary, error) {
	var d Diary
	if err := s.c.post(ctx, "/api/v1/diaries", req, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Get returns a diary entry by id.
func (s *DiaryService) Get(ctx context.Context, id uuid.UUID) (*Diary, error) {
	var d Diary
	if err := s.c.get(ctx, "/api/v1/diaries/"+id.String(), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// List returns one page of diary entries.
func (s *DiaryService) List(ctx context.Context, opts *WorkItemListOptions) (*Page[Diary], error) {
	var page Page[Diary]
	if err := s.c.get(ctx, "/api/v1/diaries", opts.values(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ChangeStatus submits, approves, rejects or reopens a diary entry.
func (s *DiaryService) ChangeStatus(ctx context.Context, id uuid.UUID, req *DiaryStatusRequest) (*Diary, error) {
	var d Diary
	if err := s.c.post(ctx, "/api/v1/diaries/"+id.String()+"/status", req, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Actions lists the diary entry's recorded status changes.
func (s *DiaryService) Actions(ctx context.Context, id uuid.UUID) ([]StatusAction, error) {
	return actions(ctx, s.c, "/api/v1/diaries/"+id.String())
}

// Delete soft-deletes a diary entry.
func (s *DiaryService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.c.del(ctx, "/api/v1/diaries/"+id.String(), nil)
}

// AcceptanceService handles acceptance inspection operations.
type AcceptanceService struct {
	c *Client
}

// Create schedules an acceptance inspection.
func (s *AcceptanceService) Create(ctx context.Context, req *CreateAcceptanceRequest) (*Acceptance, error) {
	var a Acceptance
	if err := s.c.post(ctx, "/api/v1/acceptances", req, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Get returns an acceptance by id.
func (s *AcceptanceService) Get(ctx context.Context, id uuid.UUID) (*Acceptance, error) {
	var a Acceptance
	if err := s.c.get(ctx, "/api/v1/acceptances/"+id.String(), nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// List returns one page of acceptances.
func (s *AcceptanceService) List(ctx context.Context, opts *WorkItemListOptions) (*Page[Acceptance], error) {
	var page Page[Acceptance]
	if err := s.c.get(ctx, "/api/v1/acceptances", opts.values(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Start moves a pending acceptance into inspection.
func (s *AcceptanceService) Start(ctx context.Context, id uuid.UUID, comment *string, expectedVersion *int) (*Acceptance, error) {
	body := struct {
		Comment         *string `json:"comment,omitempty"`
		ExpectedVersion *int    `json:"expected_version,omitempty"`
	}{comment, expectedVersion}

	var a Acceptance
	if err := s.c.post(ctx, "/api/v1/acceptances/"+id.String()+"/start", body, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Decide records an approver's decision and returns the acceptance with
// the stored approval.
func (s *AcceptanceService) Decide(ctx context.Context, id uuid.UUID, req *DecisionRequest) (*Acceptance, *ApprovalRecord, error) {
	var resp struct {
		Acceptance *Acceptance     `json:"acceptance"`
		Approval   *ApprovalRecord `json:"approval"`
	}
	if err := s.c.post(ctx, "/api/v1/acceptances/"+id.String()+"/decision", req, &resp); err != nil {
		return nil, nil, err
	}
	return resp.Acceptance, resp.Approval, nil
}

// Approvals lists the recorded decisions in approval order.
func (s *AcceptanceService) Approvals(ctx context.Context, id uuid.UUID) ([]ApprovalRecord, error) {
	var resp dataList[ApprovalRecord]
	if err := s.c.get(ctx, "/api/v1/acceptances/"+id.String()+"/approvals", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Actions lists the acceptance's recorded status changes.
func (s *AcceptanceService) Actions(ctx context.Context, id uuid.UUID) ([]StatusAction, error) {
	return actions(ctx, s.c, "/api/v1/acceptances/"+id.String())
}

// Delete soft-deletes an acceptance.
func (s *AcceptanceService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.c.del(ctx, "/api/v1/acceptances/"+id.String(), nil)
}

func actions(ctx context.Context, c *Client, itemPath string) ([]StatusAction, error) {
	var resp dataList[StatusAction]
	if err := c.get(ctx, itemPath+"/actions", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
