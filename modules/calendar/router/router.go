package router

import (
	"scheduling-engine/modules/calendar/controller"

	"github.com/labstack/echo/v4"
)

type CalendarRouter struct {
	controller *controller.CalendarController
}

func NewCalendarRouter(ctrl *controller.CalendarController) *CalendarRouter {
	return &CalendarRouter{controller: ctrl}
}

func (r *CalendarRouter) Register(private *echo.Group) {
	cal := private.Group("/calendar")
	cal.GET("/connections", r.controller.GetConnections)
	cal.DELETE("/connections/:provider", r.controller.DisconnectCalendar)
	cal.GET("/google/auth-url", r.controller.GetGoogleAuthURL)
	cal.POST("/google/connect", r.controller.ConnectGoogle)
}
