package common

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type contextKey string

const IdentityKey contextKey = "identity"

// Actor roles carried by the upstream gateway's token.
const (
	RoleOwner  = "owner"
	RoleTenant = "tenant"
)

// Identity is the opaque pre-authenticated caller attached by the auth
// middleware. Session issuance happens upstream; the core only reads it.
type Identity struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
	Phone  string    `json:"phone,omitempty"`
}

// GetIdentityFromContext extracts the caller identity from the request context.
func GetIdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(IdentityKey).(Identity)
	return id, ok
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error"`
}

// CreateErrorResponse creates a standardized error response
func CreateErrorResponse(code string, message string, details map[string]string) *ErrorResponse {
	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Details = details
	return &resp
}

// SendValidationError sends a validation error response
func SendValidationError(c echo.Context, field, message string) error {
	details := map[string]string{
		field: message,
	}
	return c.JSON(http.StatusBadRequest, CreateErrorResponse("VALIDATION_ERROR", "Validation failed", details))
}

// SendClientError sends a client error response
func SendClientError(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, CreateErrorResponse("CLIENT_ERROR", message, nil))
}

// SendServerError sends a server error response
func SendServerError(c echo.Context, message string) error {
	return c.JSON(http.StatusInternalServerError, CreateErrorResponse("SERVER_ERROR", message, nil))
}

// SendNotFoundError sends a not found error response
func SendNotFoundError(c echo.Context, resource string) error {
	return c.JSON(http.StatusNotFound, CreateErrorResponse("NOT_FOUND", fmt.Sprintf("%s not found", resource), nil))
}

// SendUnauthorizedError sends an unauthorized error response
func SendUnauthorizedError(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, CreateErrorResponse("UNAUTHORIZED", "Unauthorized access", nil))
}

// SendForbiddenError sends a forbidden error response
func SendForbiddenError(c echo.Context, message string) error {
	return c.JSON(http.StatusForbidden, CreateErrorResponse("FORBIDDEN", message, nil))
}

var phonePattern = regexp.MustCompile(`^[0-9]{10}$`)

// ValidatePhone validates a 10-digit phone number
func ValidatePhone(phone, fieldName string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	if !phonePattern.MatchString(phone) {
		return fmt.Errorf("%s must be a 10-digit number", fieldName)
	}
	return nil
}

// ValidateNationalID validates the national-id field
func ValidateNationalID(id, fieldName string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	if len(id) < 6 || len(id) > 20 {
		return fmt.Errorf("%s must be between 6 and 20 characters", fieldName)
	}
	return nil
}

// ValidateRequiredString validates required string fields
func ValidateRequiredString(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidatePositiveAmount validates money fields
func ValidatePositiveAmount(value decimal.Decimal, fieldName string) error {
	if value.Sign() <= 0 {
		return fmt.Errorf("%s must be positive", fieldName)
	}
	return nil
}

// ValidateNonNegativeAmount validates money fields that may be zero
func ValidateNonNegativeAmount(value decimal.Decimal, fieldName string) error {
	if value.Sign() < 0 {
		return fmt.Errorf("%s cannot be negative", fieldName)
	}
	return nil
}

// ValidateTenantStatus validates tenant status values
func ValidateTenantStatus(status string) error {
	if status != "active" && status != "inactive" {
		return fmt.Errorf("tenant status must be either 'active' or 'inactive'")
	}
	return nil
}

// ValidatePaginationParams validates pagination parameters
func ValidatePaginationParams(limit, offset int) (int, int, error) {
	if limit <= 0 {
		limit = 50 // Default
	}
	if limit > 1000 {
		limit = 1000 // Maximum
	}

	if offset < 0 {
		offset = 0
	}
	if offset > 1000000 {
		return 0, 0, fmt.Errorf("offset cannot exceed 1,000,000")
	}

	return limit, offset, nil
}

// SafeString safely handles string pointer operations
func SafeString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
