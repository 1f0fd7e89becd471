package handles

import (
	"context"
	"fmt"

	"portfolio-site-go/internal/analytics"
	"portfolio-site-go/internal/store"
)

// Builder assembles a Set. Analytics is only built in production and only
// when Supported says so.
type Builder struct {
	Identity   Identity
	Store      func(ctx context.Context) (store.Store, error)
	Messaging  func(ctx context.Context) (Messaging, error)
	Analytics  func(ctx context.Context) (analytics.Logger, error)
	Production bool
	Supported  func() bool
}

func (b Builder) Init(ctx context.Context) (*Set, error) {
	set := &Set{Identity: b.Identity}

	st, err := b.Store(ctx)
	if err != nil {
		return nil, fmt.Errorf("store handle: %w", err)
	}
	set.Store = st

	if b.Messaging != nil {
		m, err := b.Messaging(ctx)
		if err != nil {
			return nil, fmt.Errorf("messaging handle: %w", err)
		}
		set.Messaging = m
	}

	if b.Production && b.Analytics != nil && (b.Supported == nil || b.Supported()) {
		a, err := b.Analytics(ctx)
		if err != nil {
			return nil, fmt.Errorf("analytics handle: %w", err)
		}
		set.Analytics = a
	}
	return set, nil
}
