package controller

import (
	"scheduling-engine/core/constants"
	"scheduling-engine/core/controller"
	"scheduling-engine/core/errors"
	"scheduling-engine/core/params"
	"scheduling-engine/core/utils"
	"scheduling-engine/modules/notification/dto"
	"scheduling-engine/modules/notification/service"

	"github.com/labstack/echo/v4"
)

type NotificationController struct {
	service *service.NotificationService
	controller.BaseController
}

func NewNotificationController(service *service.NotificationService) *NotificationController {
	return &NotificationController{
		service:        service,
		BaseController: controller.NewBaseController(),
	}
}

func claims(ctx echo.Context) (*utils.TokenClaims, bool) {
	c, ok := ctx.Get(constants.ContextTokenData).(*utils.TokenClaims)
	return c, ok && c != nil
}

// GetMyNotifications retrieves the host's notifications
// GET /private/notifications?page=&limit=
func (c *NotificationController) GetMyNotifications(ctx echo.Context) error {
	tokenData, ok := claims(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "Unauthorized")
	}
	result, err := c.service.GetMyNotifications(ctx.Request().Context(), tokenData.UserID, *params.NewQueryParams(ctx))
	if err != nil {
		return c.InternalServerError(errors.ErrInternalServer, "Failed to get notifications")
	}
	return c.SuccessResponse(ctx, result, "Notifications retrieved successfully")
}

// MarkAsRead marks specific notifications as read
// PUT /private/notifications/mark-read
func (c *NotificationController) MarkAsRead(ctx echo.Context) error {
	tokenData, ok := claims(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "Unauthorized")
	}
	req := new(dto.MarkAsReadRequest)
	if err := ctx.Bind(req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body")
	}
	if err := c.service.MarkAsRead(ctx.Request().Context(), tokenData.UserID, req.IDs); err != nil {
		return c.InternalServerError(errors.ErrInternalServer, "Failed to mark as read")
	}
	return c.SuccessResponse(ctx, nil, "Marked as read successfully")
}

// MarkAllAsRead marks all notifications as read
// PUT /private/notifications/mark-all-read
func (c *NotificationController) MarkAllAsRead(ctx echo.Context) error {
	tokenData, ok := claims(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "Unauthorized")
	}
	if err := c.service.MarkAllAsRead(ctx.Request().Context(), tokenData.UserID); err != nil {
		return c.InternalServerError(errors.ErrInternalServer, "Failed to mark all as read")
	}
	return c.SuccessResponse(ctx, nil, "Marked all as read successfully")
}

// CountUnread counts unread notifications
// GET /private/notifications/unread-count
func (c *NotificationController) CountUnread(ctx echo.Context) error {
	tokenData, ok := claims(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "Unauthorized")
	}
	count, err := c.service.CountUnread(ctx.Request().Context(), tokenData.UserID)
	if err != nil {
		return c.InternalServerError(errors.ErrInternalServer, "Failed to count unread")
	}
	return c.SuccessResponse(ctx, count, "Unread count retrieved")
}

// GetPreferences returns the host's notification preferences
// GET /private/notification-preferences
func (c *NotificationController) GetPreferences(ctx echo.Context) error {
	tokenData, ok := claims(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "Unauthorized")
	}
	prefs, err := c.service.GetPreferences(ctx.Request().Context(), tokenData.Email)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return c.SuccessResponse(ctx, prefs, "Preferences retrieved successfully")
}

// UpdatePreferences changes the categories present in the body
// PUT /private/notification-preferences
func (c *NotificationController) UpdatePreferences(ctx echo.Context) error {
	tokenData, ok := claims(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "Unauthorized")
	}
	req := new(dto.UpdatePreferencesRequest)
	if err := ctx.Bind(req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body")
	}
	prefs, err := c.service.UpdatePreferences(ctx.Request().Context(), tokenData.Email, req)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return c.SuccessResponse(ctx, prefs, "Preferences updated successfully")
}
