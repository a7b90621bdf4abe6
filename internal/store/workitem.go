package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/worktrail/worktrail/internal/models"
)

// WorkItemStore persists problems, diaries and acceptances together with
// their per-transition action and approval records.
type WorkItemStore struct {
	Base
}

// NewWorkItemStore creates a WorkItemStore.
func NewWorkItemStore(base Base) *WorkItemStore {
	return &WorkItemStore{Base: base}
}

// itemSpec describes how one kind is stored and listed.
type itemSpec[T any] struct {
	kind       models.Kind
	columns    string
	scan       func(func(dest ...any) error) (*T, error)
	searchCols []string
	dateCol    string
	order      map[string]string
}

var problemSpec = itemSpec[models.Problem]{
	kind:       models.KindProblem,
	columns:    problemColumns,
	scan:       scanProblem,
	searchCols: []string{"title", "description", "location"},
	dateCol:    "created_at",
	order: map[string]string{
		"created_at": "created_at", "updated_at": "updated_at",
		"status": "status", "priority": "priority", "title": "title",
	},
}

var diarySpec = itemSpec[models.Diary]{
	kind:       models.KindDiary,
	columns:    diaryColumns,
	scan:       scanDiary,
	searchCols: []string{"notes", "weather"},
	dateCol:    "entry_date",
	order: map[string]string{
		"created_at": "created_at", "updated_at": "updated_at",
		"entry_date": "entry_date", "status": "status",
	},
}

var acceptanceSpec = itemSpec[models.Acceptance]{
	kind:       models.KindAcceptance,
	columns:    acceptanceColumns,
	scan:       scanAcceptance,
	searchCols: []string{"title", "scope"},
	dateCol:    "created_at",
	order: map[string]string{
		"created_at": "created_at", "updated_at": "updated_at",
		"status": "status", "title": "title",
	},
}

// CreateProblem inserts a new open problem.
func (s *WorkItemStore) CreateProblem(ctx context.Context, req models.CreateProblemRequest, createdBy uuid.UUID) (*models.Problem, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	priority := req.Priority
	if priority == "" {
		priority = "medium"
	}

	row := s.Pool.QueryRow(ctx, `INSERT INTO problems
		(project_id, title, description, location, priority, status, assignee_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+problemColumns,
		req.ProjectID, req.Title, req.Description, req.Location, priority,
		models.ProblemOpen, req.AssigneeID, createdBy,
	)

	p, err := scanProblem(row.Scan)
	if err != nil {
		return nil, classify(fmt.Errorf("inserting problem: %w", err))
	}

	s.notify("problems", "insert", p.ProjectID, &createdBy, p)

	return p, nil
}

// CreateDiary inserts a new draft diary entry.
func (s *WorkItemStore) CreateDiary(ctx context.Context, req models.CreateDiaryRequest, createdBy uuid.UUID) (*models.Diary, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	row := s.Pool.QueryRow(ctx, `INSERT INTO diaries
		(project_id, entry_date, weather, workforce, notes, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+diaryColumns,
		req.ProjectID, req.EntryDate, req.Weather, req.Workforce, req.Notes,
		models.DiaryDraft, createdBy,
	)

	d, err := scanDiary(row.Scan)
	if err != nil {
		return nil, classify(fmt.Errorf("inserting diary: %w", err))
	}

	s.notify("diaries", "insert", d.ProjectID, &createdBy, d)

	return d, nil
}

// CreateAcceptance inserts a new pending acceptance inspection.
func (s *WorkItemStore) CreateAcceptance(ctx context.Context, req models.CreateAcceptanceRequest, createdBy uuid.UUID) (*models.Acceptance, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	row := s.Pool.QueryRow(ctx, `INSERT INTO acceptances
		(project_id, title, scope, status, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+acceptanceColumns,
		req.ProjectID, req.Title, req.Scope, models.AcceptancePending, createdBy,
	)

	a, err := scanAcceptance(row.Scan)
	if err != nil {
		return nil, classify(fmt.Errorf("inserting acceptance: %w", err))
	}

	s.notify("acceptances", "insert", a.ProjectID, &createdBy, a)

	return a, nil
}

// GetProblem returns a live problem or ErrNotFound.
func (s *WorkItemStore) GetProblem(ctx context.Context, id uuid.UUID) (*models.Problem, error) {
	return getItem(ctx, &s.Base, problemSpec, id)
}

// GetDiary returns a live diary or ErrNotFound.
func (s *WorkItemStore) GetDiary(ctx context.Context, id uuid.UUID) (*models.Diary, error) {
	return getItem(ctx, &s.Base, diarySpec, id)
}

// GetAcceptance returns a live acceptance or ErrNotFound.
func (s *WorkItemStore) GetAcceptance(ctx context.Context, id uuid.UUID) (*models.Acceptance, error) {
	return getItem(ctx, &s.Base, acceptanceSpec, id)
}

// ListProblems returns a filtered page of problems.
func (s *WorkItemStore) ListProblems(ctx context.Context, q models.WorkItemQuery) (models.Page[models.Problem], error) {
	return listItems(ctx, &s.Base, problemSpec, q)
}

// ListDiaries returns a filtered page of diary entries.
func (s *WorkItemStore) ListDiaries(ctx context.Context, q models.WorkItemQuery) (models.Page[models.Diary], error) {
	return listItems(ctx, &s.Base, diarySpec, q)
}

// ListAcceptances returns a filtered page of acceptances.
func (s *WorkItemStore) ListAcceptances(ctx context.Context, q models.WorkItemQuery) (models.Page[models.Acceptance], error) {
	return listItems(ctx, &s.Base, acceptanceSpec, q)
}

// SoftDelete marks a work item deleted and returns its project. Deleted
// items stay in place for history but are hidden from reads.
func (s *WorkItemStore) SoftDelete(ctx context.Context, kind models.Kind, id uuid.UUID) (uuid.UUID, error) {
	table := kind.Table()
	if table == "" {
		return uuid.Nil, models.ErrInvalidValue("kind", string(kind))
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var projectID uuid.UUID

	err := s.Pool.QueryRow(ctx,
		`UPDATE `+table+` SET deleted_at = NOW(), updated_at = NOW(), version = version + 1
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING project_id`, id,
	).Scan(&projectID)
	if err != nil {
		return uuid.Nil, classify(fmt.Errorf("deleting %s: %w", kind, err))
	}

	s.notify(table, "delete", projectID, nil, map[string]any{"id": id})

	return projectID, nil
}

func getItem[T any](ctx context.Context, b *Base, spec itemSpec[T], id uuid.UUID) (*T, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var item *T

	err := b.withRetry(ctx, func() error {
		row := b.Pool.QueryRow(ctx,
			"SELECT "+spec.columns+" FROM "+spec.kind.Table()+" WHERE id = $1 AND deleted_at IS NULL", id)

		v, err := spec.scan(row.Scan)
		if err != nil {
			return fmt.Errorf("getting %s: %w", spec.kind, err)
		}

		item = v

		return nil
	})
	if err != nil {
		return nil, err
	}

	return item, nil
}

func buildWorkItemFilter(q models.WorkItemQuery, searchCols []string, dateCol string) *filter {
	f := &filter{}

	if !q.IncludeDeleted {
		f.raw("deleted_at IS NULL")
	}

	if q.ProjectID != nil {
		f.eq("project_id", *q.ProjectID)
	}

	f.anyOf("status", q.Statuses)

	if q.CreatedBy != nil {
		f.eq("created_by", *q.CreatedBy)
	}

	f.between(dateCol, q.StartDate, q.EndDate)
	f.search(q.Search, searchCols...)

	return f
}

func listItems[T any](ctx context.Context, b *Base, spec itemSpec[T], q models.WorkItemQuery) (models.Page[T], error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	limit, offset := clampLimit(q.Limit, q.Offset)
	f := buildWorkItemFilter(q, spec.searchCols, spec.dateCol)
	order := orderClause(q.OrderBy, q.OrderDirection, spec.order, "created_at", "id")
	table := spec.kind.Table()

	var page models.Page[T]

	err := b.withRetry(ctx, func() error {
		tx, err := b.beginReadTx(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx) //nolint:errcheck // read-only.

		var total int
		if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM "+table+" "+f.where(), f.args...).Scan(&total); err != nil {
			return fmt.Errorf("counting %s: %w", table, err)
		}

		query := fmt.Sprintf("SELECT %s FROM %s %s %s LIMIT $%d OFFSET $%d",
			spec.columns, table, f.where(), order, f.next(), f.next()+1)

		rows, err := tx.Query(ctx, query, append(f.args, limit, offset)...)
		if err != nil {
			return fmt.Errorf("listing %s: %w", table, err)
		}

		items, err := collect(rows, spec.scan, string(spec.kind))
		if err != nil {
			return err
		}

		page = models.NewPage(items, total, limit, offset)

		return nil
	})
	if err != nil {
		return models.EmptyPage[T](limit, offset), err
	}

	return page, nil
}
