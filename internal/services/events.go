package services

import (
	"log"
	"time"

	"pasar/internal/models"
)

// EventPublisher is the engine's outbound edge to the notification relay.
// pkg/rabbitmq implements it; tests substitute a mock.
type EventPublisher interface {
	PublishStatusEvent(event models.StatusEvent) error
}

// emitEvent publishes a status event best-effort. A nil publisher or a
// publish failure is logged and otherwise ignored: the state transition has
// already committed and must never be rolled back or blocked by the relay.
func emitEvent(publisher EventPublisher, entity, id, fromStatus, toStatus, actor string) {
	if publisher == nil {
		log.Printf("Event publisher is not initialized. Skipping %s event for %s", entity, id)
		return
	}
	event := models.StatusEvent{
		Entity:     entity,
		ID:         id,
		FromStatus: fromStatus,
		ToStatus:   toStatus,
		Actor:      actor,
		At:         time.Now(),
	}
	if err := publisher.PublishStatusEvent(event); err != nil {
		log.Printf("Warning: Failed to publish %s event for %s (%s -> %s): %v", entity, id, fromStatus, toStatus, err)
	}
}
