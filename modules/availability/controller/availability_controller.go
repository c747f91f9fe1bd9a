package controller

import (
	"scheduling-engine/core/constants"
	"scheduling-engine/core/controller"
	"scheduling-engine/core/errors"
	"scheduling-engine/core/utils"
	"scheduling-engine/modules/availability/dto"
	"scheduling-engine/modules/availability/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type AvailabilityController struct {
	controller.BaseController
	service *service.AvailabilityService
}

func NewAvailabilityController(svc *service.AvailabilityService) *AvailabilityController {
	return &AvailabilityController{
		BaseController: controller.NewBaseController(),
		service:        svc,
	}
}

func (c *AvailabilityController) claims(ctx echo.Context) (*utils.TokenClaims, error) {
	claims, ok := ctx.Get(constants.ContextTokenData).(*utils.TokenClaims)
	if !ok || claims == nil {
		return nil, errors.NewAppError(errors.ErrUnauthorized, "User not authenticated", nil)
	}
	return claims, nil
}

// GetRules handles GET /private/availability
func (c *AvailabilityController) GetRules(ctx echo.Context) error {
	claims, err := c.claims(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	rules, err := c.service.GetRules(ctx.Request().Context(), claims.UserID)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return c.SuccessResponse(ctx, rules, "Availability retrieved successfully")
}

// SaveRules handles PUT /private/availability
func (c *AvailabilityController) SaveRules(ctx echo.Context) error {
	claims, err := c.claims(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	var req dto.SaveRulesRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body")
	}
	if req.HostName == "" {
		req.HostName = claims.Name
	}
	rules, err := c.service.SaveRules(ctx.Request().Context(), claims.UserID, claims.Email, &req)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return c.SuccessResponse(ctx, rules, "Availability saved successfully")
}

// ListEventTypes handles GET /private/event-types
func (c *AvailabilityController) ListEventTypes(ctx echo.Context) error {
	claims, err := c.claims(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	ets, err := c.service.ListEventTypes(ctx.Request().Context(), claims.UserID)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return c.SuccessResponse(ctx, ets, "Event types retrieved successfully")
}

// CreateEventType handles POST /private/event-types
func (c *AvailabilityController) CreateEventType(ctx echo.Context) error {
	claims, err := c.claims(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	var req dto.CreateEventTypeRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body")
	}
	et, err := c.service.CreateEventType(ctx.Request().Context(), claims.UserID, &req)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return c.CreatedResponse(ctx, et, "Event type created successfully")
}

// GetEventType handles GET /private/event-types/:id
func (c *AvailabilityController) GetEventType(ctx echo.Context) error {
	claims, err := c.claims(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.NotFound(errors.ErrNotFound, "event type not found")
	}
	et, err := c.service.GetEventType(ctx.Request().Context(), claims.UserID, id)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return c.SuccessResponse(ctx, et, "Event type retrieved successfully")
}

// UpdateEventType handles PUT /private/event-types/:id
func (c *AvailabilityController) UpdateEventType(ctx echo.Context) error {
	claims, err := c.claims(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.NotFound(errors.ErrNotFound, "event type not found")
	}
	var req dto.UpdateEventTypeRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body")
	}
	et, err := c.service.UpdateEventType(ctx.Request().Context(), claims.UserID, id, &req)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return c.SuccessResponse(ctx, et, "Event type updated successfully")
}

// DeactivateEventType handles POST /private/event-types/:id/deactivate
func (c *AvailabilityController) DeactivateEventType(ctx echo.Context) error {
	claims, err := c.claims(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.NotFound(errors.ErrNotFound, "event type not found")
	}
	et, err := c.service.DeactivateEventType(ctx.Request().Context(), claims.UserID, id)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return c.SuccessResponse(ctx, et, "Event type deactivated")
}
