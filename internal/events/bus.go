// Package events re-exports the platform event bus so modules depend on a
// single events import for both the bus and the domain events.
package events

import (
	platformevents "salesbot_backend/platform/events"
	"salesbot_backend/platform/logger"
)

// InMemoryBus is the platform in-process bus.
type InMemoryBus = platformevents.InMemoryBus

// NewInMemoryBus creates an in-process bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}
