package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/Lixing-Zhang/farmstand/internal/apperrors"
	"github.com/Lixing-Zhang/farmstand/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validator checks form input against the document schema rules.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator reporting fields by their json names.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return models.ParseCategory(fl.Field().String()).Valid()
	})

	return &Validator{validate: v}
}

// Struct validates input and returns a *apperrors.ValidationError naming model
// when any field fails.
func (v *Validator) Struct(model string, input interface{}) error {
	err := v.validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("failed to validate %s: %w", model, err)
	}

	verr := &apperrors.ValidationError{Model: model}
	for _, fe := range fieldErrs {
		verr.Add(fe.Field(), fieldMessage(fe))
	}
	return verr
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Path `%s` is required.", fe.Field())
	case "gte":
		return fmt.Sprintf("Path `%s` (%v) is less than minimum allowed value (%s).", fe.Field(), fe.Value(), fe.Param())
	case "category":
		names := make([]string, len(models.Categories))
		for i, c := range models.Categories {
			names[i] = string(c)
		}
		return fmt.Sprintf("`%v` is not a valid enum value for path `%s` (%s).", fe.Value(), fe.Field(), strings.Join(names, ", "))
	default:
		return fmt.Sprintf("Path `%s` failed the %s rule.", fe.Field(), fe.Tag())
	}
}
