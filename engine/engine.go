// Package engine implements the moderation pipeline: pre-submission
// blocking, post-submission label recording, and all audit persistence.
//
// Moderation is two-phase by design. Precheck runs before the caller
// stores the content, so L1-prohibited text never reaches the content
// store. RecordClassification runs after the caller has durably stored
// the content, because the classification row needs the content's
// assigned id.
package engine

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	sha256 "github.com/minio/sha256-simd"
	"gorm.io/gorm"

	"github.com/porchlight-social/guardrail/models"
	"github.com/porchlight-social/guardrail/rules"
)

// ErrContentProhibited indicates an L1 rule match. Terminal for the
// attempted submission; not retryable with the same text. Callers must
// surface only a generic policy-violation message, never the matched
// rule.
var ErrContentProhibited = errors.New("content violates platform policy")

const snippetMaxChars = 500

// Engine orchestrates classification and owns every write to the
// moderation audit tables.
type Engine struct {
	Logger *slog.Logger
	DB     *gorm.DB
	Rules  *rules.Catalog
}

func NewEngine(db *gorm.DB, catalog *rules.Catalog, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		Logger: logger,
		DB:     db,
		Rules:  catalog,
	}
}

// Precheck classifies text before the content is persisted. If an L1
// rule matches it writes one ComplianceLog and one
// ModerationAction(L1, block) — both committed before the error is
// returned — and fails with ErrContentProhibited. Otherwise it returns
// the decision; any L2 labels on it are not persisted yet.
func (eng *Engine) Precheck(ctx context.Context, text string, actorID *uint64, contextTag string, meta map[string]any) (rules.Decision, error) {
	dec := eng.Rules.Classify(text)
	if !dec.Blocked {
		precheckCount.WithLabelValues("pass").Inc()
		return dec, nil
	}
	precheckCount.WithLabelValues("blocked").Inc()
	blockedCount.WithLabelValues(dec.ReasonCode).Inc()

	md := map[string]any{"context": contextTag}
	for k, v := range meta {
		md[k] = v
	}
	err := eng.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		clog := &models.ComplianceLog{
			Layer:       models.LayerOne,
			Category:    dec.ReasonCode,
			Snippet:     snippet(text),
			ContentHash: contentHash(text),
			Metadata:    md,
		}
		if err := tx.Create(clog).Error; err != nil {
			return err
		}
		act := &models.ModerationAction{
			Layer:      models.LayerOne,
			Action:     models.ActionBlock,
			ReasonCode: dec.ReasonCode,
			RuleRef:    dec.RuleRef,
			ActorID:    actorID,
			Metadata:   md,
		}
		return tx.Create(act).Error
	})
	if err != nil {
		// never raise the policy failure before the audit rows exist
		return rules.Decision{}, fmt.Errorf("recording block audit: %w", err)
	}

	eng.Logger.Info("submission blocked", "context", contextTag, "reason", dec.ReasonCode, "rule", dec.RuleRef)
	return rules.Decision{}, fmt.Errorf("context %s: %w", contextTag, ErrContentProhibited)
}

// RecordClassification persists the L2 outcome for content that has
// already been stored. The classification row and (when labels are
// present) the ModerationAction(L2, label) row commit atomically: one
// is never observable without the other.
//
// A failure here must not roll back the content itself; callers treat
// it as a missed-labeling event to retry or alert on, never surfaced
// to the submitting user.
func (eng *Engine) RecordClassification(ctx context.Context, ref models.ContentRef, actorID *uint64, dec rules.Decision, modelVersion string, meta map[string]any) error {
	confidences := make(map[string]float64, len(dec.Labels))
	for _, label := range dec.Labels {
		confidences[label] = 0.9
	}
	features := map[string]any{"matchedRules": dec.MatchedRules}
	for k, v := range meta {
		features[k] = v
	}

	err := eng.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cls := &models.ContentClassification{
			ContentKind:  ref.Kind,
			ContentID:    ref.ID,
			ModelVersion: modelVersion,
			Labels:       dec.Labels,
			Confidences:  confidences,
			Features:     features,
			ActorID:      actorID,
		}
		if err := tx.Create(cls).Error; err != nil {
			return err
		}
		if len(dec.Labels) == 0 {
			return nil
		}
		act := &models.ModerationAction{
			ContentKind: &ref.Kind,
			ContentID:   &ref.ID,
			Layer:       models.LayerTwo,
			Action:      models.ActionLabel,
			ReasonCode:  dec.ReasonCode,
			RuleRef:     dec.RuleRef,
			ActorID:     actorID,
			Metadata:    meta,
		}
		return tx.Create(act).Error
	})
	if err != nil {
		return fmt.Errorf("recording classification for %s: %w", ref, err)
	}

	classificationCount.Inc()
	for _, label := range dec.Labels {
		labelAppliedCount.WithLabelValues(label).Inc()
	}
	return nil
}

func snippet(text string) string {
	runes := []rune(text)
	if len(runes) > snippetMaxChars {
		runes = runes[:snippetMaxChars]
	}
	return string(runes)
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
