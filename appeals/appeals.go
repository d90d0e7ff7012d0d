// Package appeals implements the workflow for challenging enforcement
// decisions: ownership-based authorization, appeal creation, and
// exactly-once resolution by moderators.
package appeals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/porchlight-social/guardrail/models"
)

var (
	// ErrForbidden indicates the user may not appeal this action.
	ErrForbidden = errors.New("not authorized to appeal this action")
	// ErrInvalidOutcome indicates a decision value other than
	// approved or rejected.
	ErrInvalidOutcome = errors.New("invalid appeal outcome")
)

// Workflow is the appeal state machine over moderation actions.
// Transitions are pending -> approved or pending -> rejected, each at
// most once; deciding an already-terminal appeal is a no-op.
type Workflow struct {
	DB     *gorm.DB
	Logger *slog.Logger
	Owners *OwnershipRegistry
}

func NewWorkflow(db *gorm.DB, owners *OwnershipRegistry, logger *slog.Logger) *Workflow {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{DB: db, Logger: logger, Owners: owners}
}

// CanAppeal reports whether the user is the action's subject actor or
// the owner of the moderated content.
func (w *Workflow) CanAppeal(ctx context.Context, action *models.ModerationAction, userID uint64) (bool, error) {
	if action.ActorID != nil && *action.ActorID == userID {
		return true, nil
	}
	ref := action.Ref()
	if ref == nil {
		return false, nil
	}
	owner, err := w.Owners.Resolve(ctx, *ref)
	if err != nil {
		return false, err
	}
	return owner == userID, nil
}

// Create opens a pending appeal against an action, or fails with
// ErrForbidden when the user has no standing.
func (w *Workflow) Create(ctx context.Context, action *models.ModerationAction, userID uint64, reason string) (*models.Appeal, error) {
	ok, err := w.CanAppeal(ctx, action, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("user %d, action %d: %w", userID, action.ID, ErrForbidden)
	}
	appeal := &models.Appeal{
		ActionID: action.ID,
		UserID:   userID,
		Reason:   reason,
		Status:   models.AppealPending,
	}
	if err := w.DB.WithContext(ctx).Create(appeal).Error; err != nil {
		return nil, err
	}
	w.Logger.Info("appeal created", "appeal", appeal.ID, "action", action.ID, "user", userID)
	return appeal, nil
}

// Decide resolves a pending appeal. Admin-only; the caller is
// responsible for having checked moderator privileges. Deciding an
// appeal already in a terminal state changes nothing.
func (w *Workflow) Decide(ctx context.Context, appealID uint64, outcome models.AppealStatus, decidedBy uint64) error {
	if outcome != models.AppealApproved && outcome != models.AppealRejected {
		return fmt.Errorf("%q: %w", outcome, ErrInvalidOutcome)
	}
	now := time.Now()
	// the status guard makes repeated decisions no-ops even under
	// concurrent resolution of the same appeal
	res := w.DB.WithContext(ctx).Model(&models.Appeal{}).
		Where("id = ? AND status = ?", appealID, models.AppealPending).
		Updates(map[string]any{
			"status":     outcome,
			"decided_by": decidedBy,
			"decided_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		w.Logger.Info("appeal decided", "appeal", appealID, "outcome", outcome, "by", decidedBy)
	}
	return nil
}

// BulkDecide resolves every listed appeal still pending and returns
// the number actually updated. Terminal appeals in the list are
// skipped, matching per-appeal Decide semantics.
func (w *Workflow) BulkDecide(ctx context.Context, ids []uint64, outcome models.AppealStatus, decidedBy uint64) (int64, error) {
	if outcome != models.AppealApproved && outcome != models.AppealRejected {
		return 0, fmt.Errorf("%q: %w", outcome, ErrInvalidOutcome)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := w.DB.WithContext(ctx).Model(&models.Appeal{}).
		Where("id IN ? AND status = ?", ids, models.AppealPending).
		Updates(map[string]any{
			"status":     outcome,
			"decided_by": decidedBy,
			"decided_at": time.Now(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	w.Logger.Info("bulk appeal decision", "requested", len(ids), "updated", res.RowsAffected, "outcome", outcome, "by", decidedBy)
	return res.RowsAffected, nil
}

// ListByStatus returns appeals in a given state, oldest first, for the
// moderation queue.
func (w *Workflow) ListByStatus(ctx context.Context, status models.AppealStatus, limit int) ([]models.Appeal, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []models.Appeal
	err := w.DB.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get loads one appeal by id.
func (w *Workflow) Get(ctx context.Context, appealID uint64) (*models.Appeal, error) {
	var appeal models.Appeal
	if err := w.DB.WithContext(ctx).First(&appeal, appealID).Error; err != nil {
		return nil, err
	}
	return &appeal, nil
}
