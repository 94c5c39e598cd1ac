package events

import (
	"context"

	"salesdesk/backend/internal/domain"
)

// Publisher emits sale lifecycle events to interested consumers. Publishing
// is best-effort from the caller's point of view: the service logs failures
// and carries on.
type Publisher interface {
	Publish(ctx context.Context, event domain.SaleEvent) error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(_ context.Context, _ domain.SaleEvent) error {
	return nil
}
