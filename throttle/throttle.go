// Package throttle enforces behavioral (L3) limits on content
// submissions: per-actor rate limits and near-duplicate detection,
// both backed by expiring counters in a countstore.CountStore.
//
// Both checks are advisory best-effort limits: a counter-store failure
// is logged and the submission allowed through, and truly concurrent
// first-increments may briefly undercount depending on the store.
package throttle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/porchlight-social/guardrail/countstore"
	"github.com/porchlight-social/guardrail/models"
)

var (
	// ErrRateLimited indicates the actor exceeded the submission rate
	// for this context. Retryable after the window elapses.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrDuplicateContent indicates the actor resubmitted
	// near-identical text too many times. Retryable with different text.
	ErrDuplicateContent = errors.New("duplicate content submitted repeatedly")
)

// Throttle contexts, one per submission surface.
const (
	ContextPostCreate          = "post_create"
	ContextCommentCreate       = "comment_create"
	ContextMessageCreate       = "message_create"
	ContextMarketplaceCreate   = "marketplace_create"
	ContextAnimalListingCreate = "animal_listing_create"
	ContextYardSaleCreate      = "yard_sale_create"
	ContextPageCreate          = "page_create"
)

// Limit is a (max, window) pair: at most Max submissions per Window.
type Limit struct {
	Max    int
	Window time.Duration
}

var defaultRateLimits = map[string]Limit{
	ContextPostCreate:          {Max: 6, Window: time.Minute},
	ContextCommentCreate:       {Max: 20, Window: time.Minute},
	ContextMessageCreate:       {Max: 30, Window: time.Minute},
	ContextMarketplaceCreate:   {Max: 5, Window: time.Hour},
	ContextAnimalListingCreate: {Max: 5, Window: time.Hour},
	ContextYardSaleCreate:      {Max: 3, Window: 24 * time.Hour},
	ContextPageCreate:          {Max: 2, Window: 24 * time.Hour},
}

var fallbackRateLimit = Limit{Max: 10, Window: time.Minute}

var defaultDupeLimits = map[string]Limit{
	ContextPostCreate:    {Max: 3, Window: 5 * time.Minute},
	ContextCommentCreate: {Max: 5, Window: 5 * time.Minute},
	ContextMessageCreate: {Max: 5, Window: 5 * time.Minute},
}

var fallbackDupeLimit = Limit{Max: 4, Window: 5 * time.Minute}

// ActionRecorder persists L3 audit records for throttle rejections.
// Implemented by engine.Engine, which owns all audit writes.
type ActionRecorder interface {
	RecordModerationAction(ctx context.Context, act *models.ModerationAction) error
}

// Guard rate-limits and duplicate-detects submissions per
// (actor, context). Shared-state lives entirely in the counter store.
type Guard struct {
	Counters countstore.CountStore
	Actions  ActionRecorder
	Logger   *slog.Logger

	rates map[string]Limit
	dupes map[string]Limit
}

// NewGuard builds a Guard with the default limit tables, merged with
// any per-context overrides from the host application.
func NewGuard(counters countstore.CountStore, actions ActionRecorder, logger *slog.Logger, rateOverrides, dupeOverrides map[string]Limit) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Guard{
		Counters: counters,
		Actions:  actions,
		Logger:   logger,
		rates:    make(map[string]Limit, len(defaultRateLimits)),
		dupes:    make(map[string]Limit, len(defaultDupeLimits)),
	}
	for k, v := range defaultRateLimits {
		g.rates[k] = v
	}
	for k, v := range rateOverrides {
		g.rates[k] = v
	}
	for k, v := range defaultDupeLimits {
		g.dupes[k] = v
	}
	for k, v := range dupeOverrides {
		g.dupes[k] = v
	}
	return g
}

func (g *Guard) rateLimit(contextTag string) Limit {
	if lim, ok := g.rates[contextTag]; ok {
		return lim
	}
	return fallbackRateLimit
}

func (g *Guard) dupeLimit(contextTag string) Limit {
	if lim, ok := g.dupes[contextTag]; ok {
		return lim
	}
	return fallbackDupeLimit
}

// Enforce checks the actor's submission against the rate table and,
// for long enough text, the duplicate table. On a rejection it records
// a ModerationAction(L3, throttle) and returns ErrRateLimited or
// ErrDuplicateContent. Actor-less submissions (system and batch jobs)
// pass through untouched.
func (g *Guard) Enforce(ctx context.Context, actorID *uint64, contextTag, text string) error {
	if actorID == nil {
		return nil
	}
	enforceCount.WithLabelValues(contextTag).Inc()

	lim := g.rateLimit(contextTag)
	key := fmt.Sprintf("rate/%s/%d", contextTag, *actorID)
	count, err := g.Counters.IncrementWithTTL(ctx, key, lim.Window)
	if err != nil {
		// advisory limit: fail open
		counterErrorCount.WithLabelValues(contextTag).Inc()
		g.Logger.Warn("counter store failure, skipping rate check", "context", contextTag, "err", err)
	} else if count > lim.Max {
		g.reject(ctx, actorID, contextTag, "rate_limit")
		return fmt.Errorf("submission rate for %s: %w", contextTag, ErrRateLimited)
	}

	norm := Normalize(text)
	if utf8.RuneCountInString(norm) < minDupeLength {
		return nil
	}
	lim = g.dupeLimit(contextTag)
	key = fmt.Sprintf("dupe/%s/%d/%s", contextTag, *actorID, Fingerprint(norm))
	count, err = g.Counters.IncrementWithTTL(ctx, key, lim.Window)
	if err != nil {
		counterErrorCount.WithLabelValues(contextTag).Inc()
		g.Logger.Warn("counter store failure, skipping duplicate check", "context", contextTag, "err", err)
	} else if count > lim.Max {
		g.reject(ctx, actorID, contextTag, "duplicate_content")
		return fmt.Errorf("repeated submission for %s: %w", contextTag, ErrDuplicateContent)
	}
	return nil
}

func (g *Guard) reject(ctx context.Context, actorID *uint64, contextTag, reason string) {
	rejectedCount.WithLabelValues(contextTag, reason).Inc()
	act := &models.ModerationAction{
		Layer:      models.LayerThree,
		Action:     models.ActionThrottle,
		ReasonCode: reason,
		ActorID:    actorID,
		Metadata:   map[string]any{"context": contextTag},
	}
	if err := g.Actions.RecordModerationAction(ctx, act); err != nil {
		// the rejection stands even if the audit row is lost
		g.Logger.Error("failed to record throttle action", "context", contextTag, "reason", reason, "err", err)
	}
}
