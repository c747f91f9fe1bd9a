package notification

import (
	"scheduling-engine/modules/notification/controller"
	"scheduling-engine/modules/notification/repository"
	"scheduling-engine/modules/notification/router"
	"scheduling-engine/modules/notification/service"

	"github.com/labstack/echo/v4"
)

// Init registers the host notification routes and returns the dispatcher
// the booking flow sends through.
func Init(private *echo.Group, repo repository.NotificationRepository) *service.NotificationService {
	svc := service.NewNotificationService(repo)
	ctrl := controller.NewNotificationController(svc)

	router.NewNotificationRouter(ctrl).Register(private)

	return svc
}
