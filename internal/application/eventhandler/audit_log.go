package eventhandler

import (
	"log/slog"

	"github.com/mentorlink/mentorship-core/internal/domain/shared"
)

// AuditLogHandler пишет каждое доменное событие в структурированный лог.
type AuditLogHandler struct {
	logger *slog.Logger
}

// NewAuditLogHandler создаёт обработчик аудита.
func NewAuditLogHandler(logger *slog.Logger) *AuditLogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogHandler{logger: logger.With("handler", "audit")}
}

// Handle реализует shared.EventHandler.
func (h *AuditLogHandler) Handle(event shared.Event) error {
	attrs := []any{
		"event_type", string(event.EventType()),
		"aggregate_id", event.AggregateID(),
		"occurred_at", event.OccurredAt(),
	}
	for k, v := range event.Payload() {
		attrs = append(attrs, slog.Any(k, v))
	}
	h.logger.Info("domain event", attrs...)
	return nil
}

// Register подписывает обработчики на шину.
func Register(bus shared.EventSubscriber, cache *CacheInvalidationHandler, audit *AuditLogHandler) error {
	if audit != nil {
		if err := bus.SubscribeAll(audit.Handle); err != nil {
			return err
		}
	}
	if cache != nil {
		for _, t := range cache.EventTypes() {
			if err := bus.Subscribe(t, cache.Handle); err != nil {
				return err
			}
		}
	}
	return nil
}
