package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	// Report JSON field names rather than Go ones.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// validateRequest runs struct validation and converts failures to APIError.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return newValidationErrors(verrs)
	}
	return NewBadRequestError("invalid request", err)
}

func newValidationErrors(verrs validator.ValidationErrors) *APIError {
	fields := make([]string, 0, len(verrs))
	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
		if fe.Param() != "" {
			details = append(details, fmt.Sprintf("%s: rule '%s' expected '%s'", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			details = append(details, fmt.Sprintf("%s: rule '%s'", fe.Field(), fe.Tag()))
		}
	}
	apiErr := NewValidationError(strings.Join(fields, ", "))
	apiErr.Details = strings.Join(details, "; ")
	return apiErr
}
