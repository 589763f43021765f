package handler

import "github.com/vivulocal/marketplace-api/internal/pkg/validation"

// echoValidator lets Echo call c.Validate(req). Failures are
// *domain.ValidationError, rendered as 422 by the error handler.
type echoValidator struct{}

// NewValidator returns a validator ready to be assigned to echo.Echo.Validator.
func NewValidator() *echoValidator {
	return &echoValidator{}
}

// Validate satisfies the echo.Validator interface.
func (echoValidator) Validate(i any) error {
	return validation.Struct(i)
}
