// Package worker wires event subscribers at startup.
package worker

import (
	"github.com/spec-kit/devlab/internal/events"
	"github.com/spec-kit/devlab/internal/service"
)

// StartNotificationWorker registers notification handlers and, when a
// forwarder is configured, relays every event to NATS.
func StartNotificationWorker(dispatcher events.Dispatcher, notificationService *service.NotificationService, forwarder *events.NATSForwarder) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if forwarder != nil && dispatcher != nil {
		forwarder.Attach(dispatcher)
	}
}
