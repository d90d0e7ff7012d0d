// Package filter applies a user's filter profile to content at read
// time: muted accounts, muted keywords, and label-based hiding driven
// by persisted classifications.
//
// Filtering is recomputed on every call. There is deliberately no
// caching layer: a toggled preference takes effect on the very next
// read.
package filter

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"github.com/porchlight-social/guardrail/models"
	"github.com/porchlight-social/guardrail/rules"
)

// Content is the read-time view of a filterable item. Implemented by
// the host application's content types.
type Content interface {
	ContentID() uint64
	AuthorID() uint64
	ContentText() string
}

type Engine struct {
	DB     *gorm.DB
	Logger *slog.Logger
}

func NewEngine(db *gorm.DB, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{DB: db, Logger: logger}
}

// ActiveProfile resolves the profile governing a user's reads: the one
// their preference points at, else their most-recently-updated default
// profile, else nil (no filtering).
func (eng *Engine) ActiveProfile(ctx context.Context, userID uint64) (*models.UserFilterProfile, error) {
	var pref models.UserFilterPreference
	err := eng.DB.WithContext(ctx).First(&pref, "user_id = ?", userID).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err == nil && pref.ActiveProfileID != nil {
		var prof models.UserFilterProfile
		err := eng.DB.WithContext(ctx).First(&prof, "id = ? AND user_id = ?", *pref.ActiveProfileID, userID).Error
		if err == nil {
			return &prof, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		// stale pointer: fall through to the default profile
	}

	var prof models.UserFilterProfile
	err = eng.DB.WithContext(ctx).
		Where("user_id = ? AND is_default = ?", userID, true).
		Order("updated_at DESC").
		First(&prof).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &prof, nil
}

// Apply filters items of one content kind through the user's active
// profile. With no active profile the input is returned unchanged.
// Cheap id and substring exclusions run first; the label-based
// classification join runs last, over the survivors only.
func Apply[T Content](ctx context.Context, eng *Engine, userID uint64, kind string, items []T) ([]T, error) {
	prof, err := eng.ActiveProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if prof == nil {
		return items, nil
	}

	mutedAccounts := make(map[uint64]bool, len(prof.AccountMutes))
	for _, id := range prof.AccountMutes {
		mutedAccounts[id] = true
	}
	mutedKeywords := make([]string, 0, len(prof.KeywordMutes))
	for _, kw := range prof.KeywordMutes {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			mutedKeywords = append(mutedKeywords, kw)
		}
	}

	kept := make([]T, 0, len(items))
	for _, item := range items {
		if mutedAccounts[item.AuthorID()] {
			continue
		}
		if matchesKeyword(item.ContentText(), mutedKeywords) {
			continue
		}
		kept = append(kept, item)
	}

	hidden := hiddenLabels(prof)
	if len(hidden) == 0 || len(kept) == 0 {
		return kept, nil
	}

	ids := make([]uint64, 0, len(kept))
	for _, item := range kept {
		ids = append(ids, item.ContentID())
	}
	excluded, err := eng.labeledContentIDs(ctx, kind, ids, hidden)
	if err != nil {
		return nil, err
	}
	if len(excluded) == 0 {
		return kept, nil
	}

	out := kept[:0]
	for _, item := range kept {
		if !excluded[item.ContentID()] {
			out = append(out, item)
		}
	}
	return out, nil
}

func matchesKeyword(text string, keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// hiddenLabels collects labels the profile toggles off, minus the
// explicit-content label when the profile allows explicit content.
func hiddenLabels(prof *models.UserFilterProfile) map[string]bool {
	hidden := make(map[string]bool)
	for label, enabled := range prof.CategoryToggles {
		if !enabled {
			hidden[label] = true
		}
	}
	if prof.AllowExplicitContent {
		delete(hidden, rules.LabelExplicitAdult)
	}
	return hidden
}

// labeledContentIDs returns the ids among candidates that any
// historical classification row of this kind ever tagged with a hidden
// label. History is append-only and every row counts, so a flag is
// effectively permanent.
func (eng *Engine) labeledContentIDs(ctx context.Context, kind string, candidates []uint64, hidden map[string]bool) (map[uint64]bool, error) {
	var cls []models.ContentClassification
	err := eng.DB.WithContext(ctx).
		Where("content_kind = ? AND content_id IN ?", kind, candidates).
		Find(&cls).Error
	if err != nil {
		return nil, err
	}
	excluded := make(map[uint64]bool)
	for _, c := range cls {
		for _, label := range c.Labels {
			if hidden[label] {
				excluded[c.ContentID] = true
				break
			}
		}
	}
	return excluded, nil
}
