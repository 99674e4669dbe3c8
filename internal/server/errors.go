package server

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/simonjohansson/gemtracker/internal/service"
)

// toHumaError renders service failures as problem+json. Engine and store errors
// reach here already wrapped by the service.
func toHumaError(err error) error {
	return huma.NewError(statusForError(err), service.MessageOf(err))
}

func statusForError(err error) int {
	switch service.CodeOf(err) {
	case service.CodeConflict, service.CodePrecondition:
		return http.StatusConflict
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeValidation:
		return http.StatusBadRequest
	case service.CodeUnprocessable:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
