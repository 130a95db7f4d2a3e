package handlers

import (
	"net/http"

	"pgdesk/internal/common"
	"pgdesk/internal/services"

	"github.com/labstack/echo/v4"
)

// RentHandlers exposes the billing calculator over the tenancy store.
type RentHandlers struct {
	billingService services.BillingService
}

func NewRentHandlers(billingService services.BillingService) *RentHandlers {
	return &RentHandlers{
		billingService: billingService,
	}
}

// ApplyRent records a rent payment against the tenant's current cycle
func (h *RentHandlers) ApplyRent(c echo.Context) error {
	tenantCode := c.Param("code")
	if tenantCode == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Tenant code is required")
	}

	var payment services.RentPayment
	if err := c.Bind(&payment); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	tenant, err := h.billingService.ApplyRent(c.Request().Context(), tenantCode, payment)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	return c.JSON(http.StatusOK, tenant)
}

// PreviewNextCycle projects the next cycle's due without persisting anything
func (h *RentHandlers) PreviewNextCycle(c echo.Context) error {
	tenantCode := c.Param("code")
	if tenantCode == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Tenant code is required")
	}

	preview, err := h.billingService.PreviewNextCycle(c.Request().Context(), tenantCode)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	return c.JSON(http.StatusOK, preview)
}
