package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/worktrail/worktrail/internal/models"
)

// SaveProblem writes a transitioned problem and its action record in one
// transaction. With expectedVersion set the update only applies if the row
// is still at that version; otherwise the last writer wins.
func (s *WorkItemStore) SaveProblem(
	ctx context.Context, p *models.Problem, action *models.StatusAction, expectedVersion *int,
) (*models.Problem, *models.StatusAction, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	args := []any{
		p.ID, p.Status, p.RootCause, p.Resolution, p.Prevention,
		p.ResolvedAt, p.ClosedAt, p.VerifiedAt, p.VerifiedBy, p.UpdatedAt,
	}

	query := `UPDATE problems SET status = $2, root_cause = $3, resolution = $4,
		prevention = $5, resolved_at = $6, closed_at = $7, verified_at = $8,
		verified_by = $9, updated_at = $10, version = version + 1
		WHERE id = $1 AND deleted_at IS NULL` + versionGuard(&args, expectedVersion) +
		` RETURNING ` + problemColumns

	saved, err := scanProblem(tx.QueryRow(ctx, query, args...).Scan)
	if err != nil {
		return nil, nil, updateMiss(ctx, tx, "problems", p.ID, expectedVersion != nil, err)
	}

	rec, err := insertAction(ctx, tx, action)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, classify(fmt.Errorf("committing problem transition: %w", err))
	}

	s.notify("problems", "update", saved.ProjectID, &rec.ActorID, saved)

	return saved, rec, nil
}

// SaveDiary writes a transitioned diary and its action record in one
// transaction.
func (s *WorkItemStore) SaveDiary(
	ctx context.Context, d *models.Diary, action *models.StatusAction, expectedVersion *int,
) (*models.Diary, *models.StatusAction, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	args := []any{
		d.ID, d.Status, d.Notes, d.SubmittedAt, d.ApprovedBy, d.ApprovedAt,
		d.RejectedBy, d.RejectedAt, d.UpdatedAt,
	}

	query := `UPDATE diaries SET status = $2, notes = $3, submitted_at = $4,
		approved_by = $5, approved_at = $6, rejected_by = $7, rejected_at = $8,
		updated_at = $9, version = version + 1
		WHERE id = $1 AND deleted_at IS NULL` + versionGuard(&args, expectedVersion) +
		` RETURNING ` + diaryColumns

	saved, err := scanDiary(tx.QueryRow(ctx, query, args...).Scan)
	if err != nil {
		return nil, nil, updateMiss(ctx, tx, "diaries", d.ID, expectedVersion != nil, err)
	}

	rec, err := insertAction(ctx, tx, action)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, classify(fmt.Errorf("committing diary transition: %w", err))
	}

	s.notify("diaries", "update", saved.ProjectID, &rec.ActorID, saved)

	return saved, rec, nil
}

// SaveAcceptanceStart writes a started acceptance and its action record.
func (s *WorkItemStore) SaveAcceptanceStart(
	ctx context.Context, a *models.Acceptance, action *models.StatusAction, expectedVersion *int,
) (*models.Acceptance, *models.StatusAction, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	saved, err := updateAcceptance(ctx, tx, a, models.AcceptancePending, expectedVersion)
	if err != nil {
		return nil, nil, updateMiss(ctx, tx, "acceptances", a.ID, true, err)
	}

	rec, err := insertAction(ctx, tx, action)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, classify(fmt.Errorf("committing acceptance start: %w", err))
	}

	s.notify("acceptances", "update", saved.ProjectID, &rec.ActorID, saved)

	return saved, rec, nil
}

// SaveAcceptanceDecision writes a decided acceptance and appends the
// approval record with the next approval order, all in one transaction.
// The update only matches a row that is still in_progress: of two
// concurrent decisions the second blocks on the row lock, then matches
// nothing and gets ErrVersionConflict.
func (s *WorkItemStore) SaveAcceptanceDecision(
	ctx context.Context, a *models.Acceptance, approval *models.ApprovalRecord, expectedVersion *int,
) (*models.Acceptance, *models.ApprovalRecord, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	saved, err := updateAcceptance(ctx, tx, a, models.AcceptanceInProgress, expectedVersion)
	if err != nil {
		return nil, nil, updateMiss(ctx, tx, "acceptances", a.ID, true, err)
	}

	var order int
	if err := tx.QueryRow(ctx,
		"SELECT COALESCE(MAX(approval_order), 0) + 1 FROM acceptance_approvals WHERE acceptance_id = $1",
		a.ID,
	).Scan(&order); err != nil {
		return nil, nil, classify(fmt.Errorf("reading approval order: %w", err))
	}

	rec, err := scanApproval(tx.QueryRow(ctx, `INSERT INTO acceptance_approvals
		(acceptance_id, approver_id, decision, comments, approval_order)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+approvalColumns,
		a.ID, approval.ApproverID, approval.Decision, approval.Comments, order,
	).Scan)
	if err != nil {
		err = classify(fmt.Errorf("inserting approval: %w", err))
		if errors.Is(err, models.ErrDuplicateKey) {
			return nil, nil, models.ErrVersionConflict
		}

		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, classify(fmt.Errorf("committing acceptance decision: %w", err))
	}

	s.notify("acceptances", "update", saved.ProjectID, &rec.ApproverID, saved)

	return saved, rec, nil
}

// ListActions returns the transition history of one item, oldest first.
func (s *WorkItemStore) ListActions(ctx context.Context, kind models.Kind, itemID uuid.UUID) ([]models.StatusAction, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var out []models.StatusAction

	err := s.withRetry(ctx, func() error {
		rows, err := s.Pool.Query(ctx,
			"SELECT "+actionColumns+" FROM work_item_actions WHERE kind = $1 AND item_id = $2 ORDER BY created_at, id",
			kind, itemID)
		if err != nil {
			return fmt.Errorf("listing actions: %w", err)
		}

		out, err = collect(rows, scanAction, "action")

		return err
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// ListApprovals returns an acceptance's approval chain in approval order.
func (s *WorkItemStore) ListApprovals(ctx context.Context, acceptanceID uuid.UUID) ([]models.ApprovalRecord, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var out []models.ApprovalRecord

	err := s.withRetry(ctx, func() error {
		rows, err := s.Pool.Query(ctx,
			"SELECT "+approvalColumns+" FROM acceptance_approvals WHERE acceptance_id = $1 ORDER BY approval_order",
			acceptanceID)
		if err != nil {
			return fmt.Errorf("listing approvals: %w", err)
		}

		out, err = collect(rows, scanApproval, "approval")

		return err
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// updateAcceptance writes a only if the stored row is still in from.
func updateAcceptance(
	ctx context.Context, tx pgx.Tx, a *models.Acceptance, from models.AcceptanceStatus, expectedVersion *int,
) (*models.Acceptance, error) {
	args := []any{a.ID, a.Status, a.Conditions, a.StartedAt, a.DecidedAt, a.DecidedBy, a.UpdatedAt, from}

	query := `UPDATE acceptances SET status = $2, conditions = $3, started_at = $4,
		decided_at = $5, decided_by = $6, updated_at = $7, version = version + 1
		WHERE id = $1 AND deleted_at IS NULL AND status = $8` + versionGuard(&args, expectedVersion) +
		` RETURNING ` + acceptanceColumns

	return scanAcceptance(tx.QueryRow(ctx, query, args...).Scan)
}

func insertAction(ctx context.Context, tx pgx.Tx, a *models.StatusAction) (*models.StatusAction, error) {
	if a == nil {
		return nil, errors.New("transition has no action record")
	}

	rec, err := scanAction(tx.QueryRow(ctx, `INSERT INTO work_item_actions
		(kind, item_id, project_id, from_status, to_status, actor_id, comment)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+actionColumns,
		a.Kind, a.ItemID, a.ProjectID, a.FromStatus, a.ToStatus, a.ActorID, a.Comment,
	).Scan)
	if err != nil {
		return nil, classify(fmt.Errorf("inserting action: %w", err))
	}

	return rec, nil
}

// versionGuard appends a compare-and-swap predicate when a version is given.
func versionGuard(args *[]any, expected *int) string {
	if expected == nil {
		return ""
	}

	*args = append(*args, *expected)

	return fmt.Sprintf(" AND version = $%d", len(*args))
}

// updateMiss explains an UPDATE that matched no row: a guarded update on a
// live row is a version conflict, anything else is not found.
func updateMiss(ctx context.Context, tx pgx.Tx, table string, id uuid.UUID, guarded bool, err error) error {
	if !errors.Is(err, pgx.ErrNoRows) {
		return classify(fmt.Errorf("updating %s: %w", table, err))
	}

	if !guarded {
		return models.ErrNotFound
	}

	var exists bool
	if qerr := tx.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM "+table+" WHERE id = $1 AND deleted_at IS NULL)", id,
	).Scan(&exists); qerr != nil {
		return classify(fmt.Errorf("checking %s: %w", table, qerr))
	}

	if exists {
		return models.ErrVersionConflict
	}

	return models.ErrNotFound
}
