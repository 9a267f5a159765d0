package dto

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/hms-gateway/internal/domain"
	apperrors "github.com/spec-kit/hms-gateway/pkg/util/errorutil"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	if err := v.RegisterValidation("staffrole", validateStaffRole); err != nil {
		panic(err)
	}
	return v
}

// validateStaffRole accepts only members of the role enumeration.
func validateStaffRole(fl validator.FieldLevel) bool {
	_, ok := domain.ParseRole(fl.Field().String())
	return ok
}

// Validate checks a request payload. Field failures are reported as
// details keyed by the JSON field name.
func Validate(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError(err.Error(), nil)
	}
	details := make(map[string]any, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = fe.Tag()
	}
	return apperrors.NewValidationError("invalid request", details)
}
