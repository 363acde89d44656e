package cache

import (
	"context"
	"time"

	"onestoppos/backend/internal/domain"
)

// SummaryCache holds the daily kasa summary keyed by sheet date. Entries are
// invalidated whenever the day is resubmitted or deleted.
type SummaryCache interface {
	Get(ctx context.Context, key string) (*domain.KasaSummary, bool, error)
	Set(ctx context.Context, key string, value *domain.KasaSummary, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type NoopSummaryCache struct{}

func (NoopSummaryCache) Get(_ context.Context, _ string) (*domain.KasaSummary, bool, error) {
	return nil, false, nil
}

func (NoopSummaryCache) Set(_ context.Context, _ string, _ *domain.KasaSummary, _ time.Duration) error {
	return nil
}

func (NoopSummaryCache) Delete(_ context.Context, _ string) error {
	return nil
}
