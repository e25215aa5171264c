package events

import (
	"context"

	"chucheritas/internal/domain"
)

type Publisher interface {
	domain.OrderEvents
	Close() error
}

// Noop drops every event. Used when no brokers are configured.
type Noop struct{}

func (Noop) OrderPlaced(context.Context, *domain.Order) {}

func (Noop) OrderStatusChanged(context.Context, *domain.Order, domain.OrderStatus) {}

func (Noop) Close() error { return nil }
