package handler

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// SetupValidator installs custom binding validations on gin's validator
// engine. Must run before the first request is bound.
func SetupValidator() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("decimalgt0", decimalGreaterThanZero)
}

// decimalGreaterThanZero validates that a decimal.Decimal field is
// strictly positive. binding:"required" alone cannot express this:
// an explicit zero passes it.
func decimalGreaterThanZero(fl validator.FieldLevel) bool {
	value, ok := fl.Field().Interface().(decimal.Decimal)
	if !ok {
		return false
	}
	return value.GreaterThan(decimal.Zero)
}
