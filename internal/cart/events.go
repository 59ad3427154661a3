package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shopkit-labs/shopkit-backend/pkg/logger"
)

// Event types published on the cart lifecycle topic.
const (
	EventCartMerged    = "cart.merged"
	EventCartConverted = "cart.converted"
)

// Event is the payload handed to downstream consumers (analytics,
// notifications) when a cart crosses a lifecycle boundary.
type Event struct {
	Type       string    `json:"type"`
	CartID     uuid.UUID `json:"cart_id"`
	Owner      string    `json:"owner"`
	OccurredAt time.Time `json:"occurred_at"`
}

type publisher interface {
	Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) error
}

// PubSubDispatcher publishes events asynchronously. Failures are logged and
// swallowed; a dropped event never fails the cart operation that produced it.
type PubSubDispatcher struct {
	pub     publisher
	topic   string
	logg    *logger.Logger
	timeout time.Duration
}

// NewPubSubDispatcher builds a dispatcher targeting the given topic.
func NewPubSubDispatcher(pub publisher, topic string, logg *logger.Logger) (*PubSubDispatcher, error) {
	if pub == nil {
		return nil, fmt.Errorf("publisher required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &PubSubDispatcher{
		pub:     pub,
		topic:   topic,
		logg:    logg,
		timeout: 10 * time.Second,
	}, nil
}

// Dispatch publishes the event in the background and returns immediately.
func (d *PubSubDispatcher) Dispatch(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		d.logg.Error(ctx, "marshal cart event", err)
		return
	}

	// Detach from the request lifetime so an early client disconnect does
	// not drop the event, but keep the logger fields.
	detached := context.WithoutCancel(ctx)
	detached = d.logg.WithCartID(detached, event.CartID.String())
	go func() {
		pubCtx, cancel := context.WithTimeout(detached, d.timeout)
		defer cancel()
		attrs := map[string]string{"event_type": event.Type}
		if err := d.pub.Publish(pubCtx, d.topic, payload, attrs); err != nil {
			d.logg.Error(pubCtx, "publish cart event", err)
		}
	}()
}

// NoopDispatcher drops every event. Used when event publishing is disabled.
type NoopDispatcher struct{}

// Dispatch implements EventDispatcher.
func (NoopDispatcher) Dispatch(context.Context, Event) {}
