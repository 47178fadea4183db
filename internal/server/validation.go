package server

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/grade-explorer/internal/types"
)

// newValidator returns a validator that reports JSON field names and knows
// the term_label tag.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("term_label", func(fl validator.FieldLevel) bool {
		_, err := types.ParseTermLabel(fl.Field().String())
		return err == nil
	})
	return v
}

// validateRequest checks req and returns the first failure as *ErrValidation.
func (s *Server) validateRequest(req any) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &ErrValidation{Field: verrs[0].Field(), Message: validationMessage(verrs[0])}
	}
	return &ErrValidation{Field: "request", Message: err.Error()}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "term_label":
		return `must look like "Fall 2023"`
	default:
		return "failed " + fe.Tag()
	}
}
