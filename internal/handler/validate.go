package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/goevery/notifier/internal/ierr"
)

type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (v *RequestValidator) Validate(req any) error {
	err := v.validate.Struct(req)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		first := validationErrors[0]

		return ierr.New(ierr.ErrorCodeInvalidArgument,
			errors.New("invalid field "+first.Field()+": failed on "+first.Tag()))
	}

	return ierr.New(ierr.ErrorCodeInvalidArgument, err)
}
