package webhook

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careone/pharmacy/internal/domain/prescription"
)

// Publisher feeds workflow engine events into the webhook manager.
// Delivery happens on a background goroutine so a slow endpoint never
// blocks the request that triggered the event.
type Publisher struct {
	manager *Manager
	logger  zerolog.Logger
	timeout time.Duration
}

func NewPublisher(manager *Manager, logger zerolog.Logger) *Publisher {
	return &Publisher{manager: manager, logger: logger, timeout: 30 * time.Second}
}

func (pub *Publisher) PrescriptionEvent(_ context.Context, eventType string, p *prescription.Prescription) {
	payload, err := json.Marshal(p)
	if err != nil {
		pub.logger.Error().Err(err).Str("event", eventType).Msg("webhook payload marshal failed")
		return
	}
	event := Event{
		ID:        uuid.New(),
		Type:      eventType,
		Reference: p.Reference,
		BranchID:  p.BranchID,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), pub.timeout)
		defer cancel()
		pub.manager.Deliver(ctx, event)
	}()
}

var _ prescription.EventSink = (*Publisher)(nil)
