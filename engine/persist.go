package engine

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/porchlight-social/guardrail/models"
)

// RecordModerationAction appends one row to the audit trail. Also
// satisfies throttle.ActionRecorder, so L3 rejections flow through the
// same writer as L1/L2 actions.
func (eng *Engine) RecordModerationAction(ctx context.Context, act *models.ModerationAction) error {
	return eng.DB.WithContext(ctx).Create(act).Error
}

// AuditQuery narrows admin reads over the audit tables. Zero-valued
// fields are ignored.
type AuditQuery struct {
	ContentKind string
	ContentID   uint64
	Layer       string
	Action      string
	Category    string // reason code / compliance category
	ActorID     *uint64
	Since       time.Time
	Until       time.Time
	Limit       int
}

func (q *AuditQuery) apply(tx *gorm.DB) *gorm.DB {
	if q.ContentKind != "" {
		tx = tx.Where("content_kind = ?", q.ContentKind)
	}
	if q.ContentID != 0 {
		tx = tx.Where("content_id = ?", q.ContentID)
	}
	if q.ActorID != nil {
		tx = tx.Where("actor_id = ?", *q.ActorID)
	}
	if !q.Since.IsZero() {
		tx = tx.Where("created_at >= ?", q.Since)
	}
	if !q.Until.IsZero() {
		tx = tx.Where("created_at < ?", q.Until)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	return tx.Order("created_at DESC").Limit(limit)
}

func (eng *Engine) ListActions(ctx context.Context, q AuditQuery) ([]models.ModerationAction, error) {
	tx := eng.DB.WithContext(ctx).Model(&models.ModerationAction{})
	if q.Layer != "" {
		tx = tx.Where("layer = ?", q.Layer)
	}
	if q.Action != "" {
		tx = tx.Where("action = ?", q.Action)
	}
	if q.Category != "" {
		tx = tx.Where("reason_code = ?", q.Category)
	}
	var out []models.ModerationAction
	if err := q.apply(tx).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (eng *Engine) ListClassifications(ctx context.Context, q AuditQuery) ([]models.ContentClassification, error) {
	tx := eng.DB.WithContext(ctx).Model(&models.ContentClassification{})
	var out []models.ContentClassification
	if err := q.apply(tx).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (eng *Engine) ListComplianceLogs(ctx context.Context, q AuditQuery) ([]models.ComplianceLog, error) {
	tx := eng.DB.WithContext(ctx).Model(&models.ComplianceLog{})
	if q.Layer != "" {
		tx = tx.Where("layer = ?", q.Layer)
	}
	if q.Category != "" {
		tx = tx.Where("category = ?", q.Category)
	}
	var out []models.ComplianceLog
	if err := q.apply(tx).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
