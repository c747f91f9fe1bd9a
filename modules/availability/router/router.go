package router

import (
	"scheduling-engine/modules/availability/controller"

	"github.com/labstack/echo/v4"
)

type AvailabilityRouter struct {
	controller *controller.AvailabilityController
}

func NewAvailabilityRouter(ctrl *controller.AvailabilityController) *AvailabilityRouter {
	return &AvailabilityRouter{controller: ctrl}
}

func (r *AvailabilityRouter) Register(private *echo.Group) {
	private.GET("/availability", r.controller.GetRules)
	private.PUT("/availability", r.controller.SaveRules)

	eventTypes := private.Group("/event-types")
	eventTypes.GET("", r.controller.ListEventTypes)
	eventTypes.POST("", r.controller.CreateEventType)
	eventTypes.GET("/:id", r.controller.GetEventType)
	eventTypes.PUT("/:id", r.controller.UpdateEventType)
	eventTypes.POST("/:id/deactivate", r.controller.DeactivateEventType)
}
