package http

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/roomlist/internal/domain"
)

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(err error) error {
	if errors.Is(err, domain.ErrRoomNotFound) {
		return huma.Error404NotFound("room not found")
	}

	var valErr *domain.ValidationError
	if errors.As(err, &valErr) {
		return huma.Error422UnprocessableEntity(valErr.Error(), &huma.ErrorDetail{
			Location: "body." + valErr.Field,
			Message:  valErr.Message,
		})
	}

	var authErr *domain.AuthorizationError
	if errors.As(err, &authErr) {
		return huma.Error403Forbidden(authErr.Error())
	}

	var conflict *domain.StateConflictError
	if errors.As(err, &conflict) {
		return huma.Error409Conflict(conflict.Error())
	}

	var trErr *domain.TransitionError
	if errors.As(err, &trErr) {
		return huma.Error409Conflict(trErr.Error())
	}

	var upErr *domain.UpstreamError
	if errors.As(err, &upErr) {
		return huma.Error502BadGateway(upErr.Service + " unavailable")
	}

	return huma.Error500InternalServerError("internal server error")
}
