package router

import (
	"scheduling-engine/modules/notification/controller"

	"github.com/labstack/echo/v4"
)

type NotificationRouter struct {
	controller *controller.NotificationController
}

func NewNotificationRouter(controller *controller.NotificationController) *NotificationRouter {
	return &NotificationRouter{controller: controller}
}

func (r *NotificationRouter) Register(private *echo.Group) {
	group := private.Group("/notifications")
	group.GET("", r.controller.GetMyNotifications)
	group.GET("/unread-count", r.controller.CountUnread)
	group.PUT("/mark-read", r.controller.MarkAsRead)
	group.PUT("/mark-all-read", r.controller.MarkAllAsRead)

	private.GET("/notification-preferences", r.controller.GetPreferences)
	private.PUT("/notification-preferences", r.controller.UpdatePreferences)
}
