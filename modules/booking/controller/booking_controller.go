package controller

import (
	"scheduling-engine/core/constants"
	"scheduling-engine/core/controller"
	"scheduling-engine/core/errors"
	"scheduling-engine/core/utils"
	"scheduling-engine/modules/booking/dto"
	"scheduling-engine/modules/booking/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type BookingController struct {
	controller.BaseController
	service *service.SchedulingService
}

func NewBookingController(svc *service.SchedulingService) *BookingController {
	return &BookingController{
		BaseController: controller.NewBaseController(),
		service:        svc,
	}
}

// PublicSlots handles GET /public/event-types/:slug/slots?date=&timezone=
func (c *BookingController) PublicSlots(ctx echo.Context) error {
	date := ctx.QueryParam("date")
	if date == "" {
		return c.BadRequest(errors.ErrInvalidInput, "date is required")
	}
	res, err := c.service.ListSlots(ctx.Request().Context(), ctx.Param("slug"), date, ctx.QueryParam("timezone"))
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return c.SuccessResponse(ctx, res, "Slots retrieved successfully")
}

// PublicCreateBooking handles POST /public/event-types/:slug/bookings
func (c *BookingController) PublicCreateBooking(ctx echo.Context) error {
	var req dto.CreateBookingRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body")
	}
	res, err := c.service.CreateBooking(ctx.Request().Context(), ctx.Param("slug"), &req)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return c.CreatedResponse(ctx, res, "Booking confirmed")
}

// PublicCancelView handles GET /public/bookings/cancel/:token
func (c *BookingController) PublicCancelView(ctx echo.Context) error {
	view, err := c.service.GetCancelView(ctx.Request().Context(), ctx.Param("token"))
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return c.SuccessResponse(ctx, view, "Booking retrieved successfully")
}

// PublicCancel handles POST /public/bookings/cancel/:token
func (c *BookingController) PublicCancel(ctx echo.Context) error {
	var req dto.CancelBookingRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body")
	}
	res, err := c.service.CancelBooking(ctx.Request().Context(), ctx.Param("token"), req.Reason)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return c.SuccessResponse(ctx, res, "Booking cancelled")
}

// PublicRescheduleView handles GET /public/bookings/reschedule/:token
func (c *BookingController) PublicRescheduleView(ctx echo.Context) error {
	view, err := c.service.GetRescheduleView(ctx.Request().Context(), ctx.Param("token"))
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return c.SuccessResponse(ctx, view, "Booking retrieved successfully")
}

// PublicReschedule handles POST /public/bookings/reschedule/:token
func (c *BookingController) PublicReschedule(ctx echo.Context) error {
	var req dto.RescheduleBookingRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body")
	}
	b, err := c.service.RescheduleBooking(ctx.Request().Context(), ctx.Param("token"), &req)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return c.SuccessResponse(ctx, b, "Booking rescheduled")
}

func (c *BookingController) hostID(ctx echo.Context) (uuid.UUID, error) {
	claims, ok := ctx.Get(constants.ContextTokenData).(*utils.TokenClaims)
	if !ok || claims == nil {
		return uuid.Nil, errors.NewAppError(errors.ErrUnauthorized, "User not authenticated", nil)
	}
	return claims.UserID, nil
}

// PrivateList handles GET /private/bookings?from=&to=
func (c *BookingController) PrivateList(ctx echo.Context) error {
	hostID, err := c.hostID(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	res, err := c.service.ListHostBookings(ctx.Request().Context(), hostID, ctx.QueryParam("from"), ctx.QueryParam("to"))
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return c.SuccessResponse(ctx, res, "Bookings retrieved successfully")
}

// PrivateCancel handles POST /private/bookings/:id/cancel
func (c *BookingController) PrivateCancel(ctx echo.Context) error {
	hostID, err := c.hostID(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.NotFound(errors.ErrNotFound, "booking not found")
	}
	var req dto.CancelBookingRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body")
	}
	res, err := c.service.HostCancelBooking(ctx.Request().Context(), hostID, id, req.Reason)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return c.SuccessResponse(ctx, res, "Booking cancelled")
}

// PrivateMarkOutcome handles POST /private/bookings/:id/outcome
func (c *BookingController) PrivateMarkOutcome(ctx echo.Context) error {
	hostID, err := c.hostID(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.NotFound(errors.ErrNotFound, "booking not found")
	}
	var req dto.MarkOutcomeRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body")
	}
	b, err := c.service.MarkOutcome(ctx.Request().Context(), hostID, id, req.Status)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return c.SuccessResponse(ctx, b, "Booking updated")
}

// PrivateBrief handles GET /private/bookings/:id/brief
func (c *BookingController) PrivateBrief(ctx echo.Context) error {
	hostID, err := c.hostID(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.NotFound(errors.ErrNotFound, "booking not found")
	}
	brief, err := c.service.GetBrief(ctx.Request().Context(), hostID, id)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return c.SuccessResponse(ctx, brief, "Brief retrieved successfully")
}
