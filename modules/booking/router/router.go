package router

import (
	"scheduling-engine/modules/booking/controller"

	"github.com/labstack/echo/v4"
)

type BookingRouter struct {
	controller *controller.BookingController
}

func NewBookingRouter(ctrl *controller.BookingController) *BookingRouter {
	return &BookingRouter{controller: ctrl}
}

func (r *BookingRouter) Register(public, private *echo.Group) {
	public.GET("/event-types/:slug/slots", r.controller.PublicSlots)
	public.POST("/event-types/:slug/bookings", r.controller.PublicCreateBooking)

	manage := public.Group("/bookings")
	manage.GET("/cancel/:token", r.controller.PublicCancelView)
	manage.POST("/cancel/:token", r.controller.PublicCancel)
	manage.GET("/reschedule/:token", r.controller.PublicRescheduleView)
	manage.POST("/reschedule/:token", r.controller.PublicReschedule)

	bookings := private.Group("/bookings")
	bookings.GET("", r.controller.PrivateList)
	bookings.POST("/:id/cancel", r.controller.PrivateCancel)
	bookings.POST("/:id/outcome", r.controller.PrivateMarkOutcome)
	bookings.GET("/:id/brief", r.controller.PrivateBrief)
}
