package dispatcher

import (
	"context"

	"github.com/gsblab/gsb-frais/internal/domain/event"
)

// Handler reacts to a committed lifecycle event
type Handler func(ctx context.Context, evt *event.Event) error

// Subscription is a named handler bound to one event type
type Subscription struct {
	Name      string
	EventType event.Type
	Handler   Handler
}
