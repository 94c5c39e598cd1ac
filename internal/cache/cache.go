package cache

import (
	"context"
	"time"

	"salesdesk/backend/internal/domain"
)

type SaleCache interface {
	Get(ctx context.Context, saleID string) (*domain.SaleResponse, bool, error)
	Set(ctx context.Context, value *domain.SaleResponse, ttl time.Duration) error
	Delete(ctx context.Context, saleID string) error
}

type NoopSaleCache struct{}

func (NoopSaleCache) Get(_ context.Context, _ string) (*domain.SaleResponse, bool, error) {
	return nil, false, nil
}

func (NoopSaleCache) Set(_ context.Context, _ *domain.SaleResponse, _ time.Duration) error {
	return nil
}

func (NoopSaleCache) Delete(_ context.Context, _ string) error {
	return nil
}
