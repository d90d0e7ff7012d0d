package throttle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/porchlight-social/guardrail/countstore"
	"github.com/porchlight-social/guardrail/models"
)

type recorderStub struct {
	actions []*models.ModerationAction
}

type failingCountStore struct{}

func (failingCountStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int, error) {
	return 0, errors.New("connection refused")
}

func (r *recorderStub) RecordModerationAction(ctx context.Context, act *models.ModerationAction) error {
	r.actions = append(r.actions, act)
	return nil
}

func guardFixture() (*Guard, *recorderStub, *countstore.MemCountStore) {
	rec := &recorderStub{}
	cs := countstore.NewMemCountStore()
	return NewGuard(cs, rec, nil, nil, nil), rec, cs
}

func TestEnforceNoActor(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	g, rec, _ := guardFixture()

	for i := 0; i < 50; i++ {
		assert.NoError(g.Enforce(ctx, nil, ContextPostCreate, "system generated notice"))
	}
	assert.Empty(rec.actions)
}

func TestEnforceRateLimit(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	g, rec, cs := guardFixture()

	actor := uint64(42)
	// stay under the duplicate threshold by varying short texts
	for i := 0; i < 6; i++ {
		assert.NoError(g.Enforce(ctx, &actor, ContextPostCreate, "hi"))
	}
	err := g.Enforce(ctx, &actor, ContextPostCreate, "hi")
	assert.ErrorIs(err, ErrRateLimited)

	assert.Len(rec.actions, 1)
	act := rec.actions[0]
	assert.Equal(models.LayerThree, act.Layer)
	assert.Equal(models.ActionThrottle, act.Action)
	assert.Equal("rate_limit", act.ReasonCode)
	assert.Equal(actor, *act.ActorID)
	assert.Equal(ContextPostCreate, act.Metadata["context"])

	// a different actor is unaffected
	other := uint64(43)
	assert.NoError(g.Enforce(ctx, &other, ContextPostCreate, "hi"))

	// once the window elapses, counting restarts
	now := time.Now()
	cs.Now = func() time.Time { return now.Add(61 * time.Second) }
	assert.NoError(g.Enforce(ctx, &actor, ContextPostCreate, "hi"))
}

func TestEnforceDuplicateContent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	g, rec, _ := guardFixture()

	actor := uint64(7)
	text := "anyone interested in free firewood this weekend?"
	// comment_create duplicate limit is 5 per 5 minutes; the rate
	// limit (20/min) won't trip first
	for i := 0; i < 5; i++ {
		assert.NoError(g.Enforce(ctx, &actor, ContextCommentCreate, text))
	}
	err := g.Enforce(ctx, &actor, ContextCommentCreate, text)
	assert.ErrorIs(err, ErrDuplicateContent)

	assert.Len(rec.actions, 1)
	assert.Equal("duplicate_content", rec.actions[0].ReasonCode)
}

func TestEnforceShortTextExemptFromDuplicates(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	g, rec, _ := guardFixture()

	actor := uint64(7)
	// under 20 normalized chars: repeats freely within the rate limit
	for i := 0; i < 15; i++ {
		assert.NoError(g.Enforce(ctx, &actor, ContextCommentCreate, "thanks so much!"))
	}
	assert.Empty(rec.actions)
}

func TestEnforceShortMultibyteTextExempt(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	g, rec, _ := guardFixture()

	actor := uint64(7)
	// 10 characters but 30 bytes: still under the 20-character
	// duplicate threshold
	text := "谢谢大家帮忙找到猫了"
	for i := 0; i < 15; i++ {
		assert.NoError(g.Enforce(ctx, &actor, ContextCommentCreate, text))
	}
	assert.Empty(rec.actions)
}

func TestEnforceCounterStoreFailureFailsOpen(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	rec := &recorderStub{}
	g := NewGuard(failingCountStore{}, rec, nil, nil, nil)

	actor := uint64(42)
	// limits are advisory: a broken counter store never rejects
	for i := 0; i < 20; i++ {
		assert.NoError(g.Enforce(ctx, &actor, ContextPostCreate,
			"anyone interested in free firewood this weekend?"))
	}
	assert.Empty(rec.actions)
}

func TestNormalizeAndFingerprint(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("hello world", Normalize("  Hello \n\t  WORLD  "))
	assert.Equal(Normalize("Hello   world"), Normalize("hello world"))

	fp := Fingerprint(Normalize("Hello   world"))
	assert.Len(fp, 16)
	assert.Equal(fp, Fingerprint(Normalize("hello world")))
	assert.NotEqual(fp, Fingerprint(Normalize("hello there world")))
}

func TestGuardOverrides(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	rec := &recorderStub{}
	g := NewGuard(countstore.NewMemCountStore(), rec, nil,
		map[string]Limit{ContextPostCreate: {Max: 1, Window: time.Minute}}, nil)

	actor := uint64(1)
	assert.NoError(g.Enforce(ctx, &actor, ContextPostCreate, "x"))
	assert.ErrorIs(g.Enforce(ctx, &actor, ContextPostCreate, "x"), ErrRateLimited)

	// unknown context falls back to the default limit
	for i := 0; i < 10; i++ {
		assert.NoError(g.Enforce(ctx, &actor, "unknown_context", "x"))
	}
	assert.ErrorIs(g.Enforce(ctx, &actor, "unknown_context", "x"), ErrRateLimited)
}
