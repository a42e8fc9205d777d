package config

import (
	"errors"
	"fmt"
	"strings"

	"beltsensor/internal/model"

	"github.com/go-playground/validator/v10"
)

// ValidationError reports a configuration problem detected at startup.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("colorlist", validColorList)
	return v
}

// validColorList accepts an empty string or comma-separated color names.
func validColorList(fl validator.FieldLevel) bool {
	list := strings.TrimSpace(fl.Field().String())
	if list == "" {
		return true
	}
	for _, name := range strings.Split(list, ",") {
		if model.ParseColor(name) == model.Unknown {
			return false
		}
	}
	return true
}

// Validate checks struct constraints and returns the first violation as a *ValidationError.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return &ValidationError{Field: "config", Reason: err.Error()}
	}

	fe := fieldErrors[0]
	reason := fe.Tag()
	if fe.Param() != "" {
		reason += "=" + fe.Param()
	}
	return &ValidationError{
		Field:  strings.TrimPrefix(fe.Namespace(), "Config."),
		Reason: fmt.Sprintf("failed %q (value %v)", reason, fe.Value()),
	}
}
