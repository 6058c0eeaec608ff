package event

import (
	"context"

	"go.uber.org/zap"

	"github.com/openbooks/backend/internal/domain/shared"
)

// LoggingHandler subscribes to every domain event and writes an audit
// line for it. It never fails.
type LoggingHandler struct {
	logger *zap.Logger
}

// NewLoggingHandler creates a new LoggingHandler
func NewLoggingHandler(logger *zap.Logger) *LoggingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingHandler{logger: logger.Named("events")}
}

// Handle logs the event
func (h *LoggingHandler) Handle(_ context.Context, evt shared.DomainEvent) error {
	h.logger.Info("domain event",
		zap.String("event_type", evt.EventType()),
		zap.String("aggregate_type", evt.AggregateType()),
		zap.String("aggregate_id", evt.AggregateID().String()),
		zap.Time("occurred_at", evt.OccurredAt()),
	)
	return nil
}

// EventTypes returns nil, subscribing the handler to all events
func (h *LoggingHandler) EventTypes() []string {
	return nil
}

var _ shared.EventHandler = (*LoggingHandler)(nil)
