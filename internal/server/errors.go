package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/grade-explorer/internal/engine"
	"github.com/jonathan/grade-explorer/internal/parsing"
	"github.com/jonathan/grade-explorer/internal/ranking"
	"github.com/jonathan/grade-explorer/internal/session"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validation   *ErrValidation
		filter       *parsing.ValidationError
		insufficient *ranking.InsufficientSectionsError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &filter):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrPageOutOfRange), errors.Is(err, engine.ErrInvalidView):
		return http.StatusBadRequest
	case errors.As(err, &insufficient):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrSuperseded):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
