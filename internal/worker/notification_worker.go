package worker

import (
	"github.com/spec-kit/matchmaking-service/internal/service"
)

// StartNotificationWorker subscribes the notification channels to domain
// events. Handlers run after the publishing transaction has committed.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
