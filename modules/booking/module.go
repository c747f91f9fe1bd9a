package booking

import (
	"scheduling-engine/modules/booking/controller"
	"scheduling-engine/modules/booking/router"
	"scheduling-engine/modules/booking/service"

	"github.com/labstack/echo/v4"
)

func Init(public, private *echo.Group, svc *service.SchedulingService) {
	ctrl := controller.NewBookingController(svc)
	router.NewBookingRouter(ctrl).Register(public, private)
}
