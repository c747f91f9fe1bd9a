package controller

import (
	"scheduling-engine/core/constants"
	"scheduling-engine/core/controller"
	"scheduling-engine/core/errors"
	"scheduling-engine/core/utils"
	"scheduling-engine/modules/calendar/dto"
	"scheduling-engine/modules/calendar/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type CalendarController struct {
	controller.BaseController
	service *service.ConnectionService
}

func NewCalendarController(svc *service.ConnectionService) *CalendarController {
	return &CalendarController{
		BaseController: controller.NewBaseController(),
		service:        svc,
	}
}

func (c *CalendarController) userID(ctx echo.Context) (uuid.UUID, error) {
	claims, ok := ctx.Get(constants.ContextTokenData).(*utils.TokenClaims)
	if !ok || claims == nil {
		return uuid.Nil, errors.NewAppError(errors.ErrUnauthorized, "User not authenticated", nil)
	}
	return claims.UserID, nil
}

// GetConnections returns the current user's active calendar connections
// GET /api/v1/private/calendar/connections
func (c *CalendarController) GetConnections(ctx echo.Context) error {
	userID, err := c.userID(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	conns, err := c.service.ListConnections(ctx.Request().Context(), userID)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return c.SuccessResponse(ctx, conns, "Connections retrieved successfully")
}

// GetGoogleAuthURL returns the Google consent URL
// GET /api/v1/private/calendar/google/auth-url
func (c *CalendarController) GetGoogleAuthURL(ctx echo.Context) error {
	userID, err := c.userID(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	res, err := c.service.AuthURL(ctx.Request().Context(), userID)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return c.SuccessResponse(ctx, res, "Auth URL generated")
}

// ConnectGoogle finishes the OAuth flow with the code Google returned
// POST /api/v1/private/calendar/google/connect
func (c *CalendarController) ConnectGoogle(ctx echo.Context) error {
	userID, err := c.userID(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	var req dto.ConnectGoogleRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body")
	}
	res, err := c.service.ConnectGoogle(ctx.Request().Context(), userID, &req)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return c.CreatedResponse(ctx, res, "Calendar connected")
}

// DisconnectCalendar disconnects a calendar provider
// DELETE /api/v1/private/calendar/connections/:provider
func (c *CalendarController) DisconnectCalendar(ctx echo.Context) error {
	userID, err := c.userID(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	if err := c.service.Disconnect(ctx.Request().Context(), userID, ctx.Param("provider")); err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return c.SuccessResponse(ctx, nil, "Disconnected successfully")
}
