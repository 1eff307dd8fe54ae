package worker

import (
	"github.com/plantops/escalation-service/internal/events"
	"github.com/plantops/escalation-service/internal/service"
)

// StartNotificationWorker registers notification fanout handlers on the dispatcher.
func StartNotificationWorker(dispatcher events.Dispatcher, notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers(dispatcher)
}
