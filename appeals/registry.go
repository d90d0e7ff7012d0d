package appeals

import (
	"context"
	"fmt"

	"github.com/porchlight-social/guardrail/models"
)

// OwnerResolver returns the user id owning one content item. Each
// content kind registers its own resolver (author for posts and
// comments, seller for marketplace listings, and so on).
type OwnerResolver func(ctx context.Context, ref models.ContentRef) (uint64, error)

// OwnershipRegistry maps content kinds to resolvers. Registration
// happens at startup; an unregistered kind fails fast at resolve time
// rather than silently denying appeals.
type OwnershipRegistry struct {
	resolvers map[string]OwnerResolver
}

func NewOwnershipRegistry() *OwnershipRegistry {
	return &OwnershipRegistry{resolvers: make(map[string]OwnerResolver)}
}

func (r *OwnershipRegistry) Register(kind string, fn OwnerResolver) {
	r.resolvers[kind] = fn
}

func (r *OwnershipRegistry) Resolve(ctx context.Context, ref models.ContentRef) (uint64, error) {
	fn, ok := r.resolvers[ref.Kind]
	if !ok {
		return 0, fmt.Errorf("no ownership resolver registered for content kind %q", ref.Kind)
	}
	return fn(ctx, ref)
}
