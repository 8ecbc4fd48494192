package utils

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// gstinPattern is state code, PAN, entity number, a fixed Z and a check character
var gstinPattern = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)

// IsGSTIN reports whether s is a structurally valid GSTIN
func IsGSTIN(s string) bool {
	return gstinPattern.MatchString(strings.ToUpper(strings.TrimSpace(s)))
}

// RegisterValidations adds the domain tags ("gstin") to v
func RegisterValidations(v *validator.Validate) error {
	return v.RegisterValidation("gstin", func(fl validator.FieldLevel) bool {
		return IsGSTIN(fl.Field().String())
	})
}

// NewValidator returns a validator with the domain tags registered
func NewValidator() *validator.Validate {
	v := validator.New()
	if err := RegisterValidations(v); err != nil {
		panic(err)
	}
	return v
}
