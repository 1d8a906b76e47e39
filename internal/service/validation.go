package service

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

var messages = map[string]string{
	"required":         "is required",
	"oneof":            "must be one of {param}",
	"max":              "must be at most {param}",
	"min":              "must be at least {param}",
	"datetime":         "must be a date in {param} format",
	"required_without": "is required when {param} is empty",
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json names so errors match what the client sent
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// validateStruct returns a *ValidationError for the first failing field.
func validateStruct(data interface{}) error {
	err := validate.Struct(data)
	if err == nil {
		return nil
	}

	var valErrors validator.ValidationErrors
	if !errors.As(err, &valErrors) || len(valErrors) == 0 {
		return &ValidationError{Field: "request", Message: err.Error()}
	}

	first := valErrors[0]
	msg, ok := messages[first.Tag()]
	if !ok {
		msg = "is invalid"
	}
	return &ValidationError{
		Field:   first.Field(),
		Message: strings.ReplaceAll(msg, "{param}", first.Param()),
	}
}
