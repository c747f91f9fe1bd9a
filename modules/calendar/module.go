package calendar

import (
	"scheduling-engine/modules/calendar/controller"
	"scheduling-engine/modules/calendar/router"
	"scheduling-engine/modules/calendar/service"

	"github.com/labstack/echo/v4"
)

func Init(private *echo.Group, svc *service.ConnectionService) {
	ctrl := controller.NewCalendarController(svc)
	router.NewCalendarRouter(ctrl).Register(private)
}
