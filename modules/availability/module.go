package availability

import (
	"scheduling-engine/modules/availability/controller"
	"scheduling-engine/modules/availability/repository"
	"scheduling-engine/modules/availability/router"
	"scheduling-engine/modules/availability/service"

	"github.com/labstack/echo/v4"
)

func Init(private *echo.Group, repo repository.AvailabilityRepository) *service.AvailabilityService {
	svc := service.NewAvailabilityService(repo)
	ctrl := controller.NewAvailabilityController(svc)
	router.NewAvailabilityRouter(ctrl).Register(private)
	return svc
}
