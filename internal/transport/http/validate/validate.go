package validate

import (
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/baechuer/eventhub/internal/domain"
)

const maxJSONBody = 1 << 20

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	// report json names, not Go field names
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = val.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		_, ok := domain.ParseCategory(fl.Field().String())
		return ok
	})
	return val
}

// DecodeJSON reads one JSON value from the body into dst.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return domain.ErrInvalidJSON(errors.New("empty body"))
	}
	if err := render.DecodeJSON(io.LimitReader(r.Body, maxJSONBody), dst); err != nil {
		return domain.ErrInvalidJSON(err)
	}
	return nil
}

// Struct runs the validate tags of s and turns the first failure into a domain error.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return domain.ErrInternal(err)
	}
	return fieldError(ves[0])
}

func fieldError(fe validator.FieldError) error {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return domain.ErrMissingField(field)
	case "email":
		return domain.ErrInvalidField(field, "invalid format")
	case "min":
		return domain.ErrInvalidField(field, "must be at least "+fe.Param())
	case "max":
		return domain.ErrInvalidField(field, "must be at most "+fe.Param())
	case "category":
		return domain.ErrInvalidField(field, "unknown category")
	case "uuid":
		return domain.ErrInvalidField(field, "must be uuid")
	default:
		return domain.ErrInvalidField(field, "is invalid")
	}
}
