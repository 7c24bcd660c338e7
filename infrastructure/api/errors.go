package api

import (
	"chat-relay/errors"
	"net/http"

	stderrors "errors"
)

// MapToStatus translates domain errors into HTTP status codes, unknown errors are a 500.
func MapToStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case stderrors.Is(err, errors.ErrInvalidCredentials),
		stderrors.Is(err, errors.ErrAuthentication):
		return http.StatusUnauthorized
	case stderrors.Is(err, errors.ErrInvalidPassword),
		stderrors.Is(err, errors.ErrInvalidUsername),
		stderrors.Is(err, errors.ErrInvalidRoomName):
		return http.StatusBadRequest
	case stderrors.Is(err, errors.ErrUserAlreadyExists):
		return http.StatusConflict
	case stderrors.Is(err, errors.ErrRoomNotFound),
		stderrors.Is(err, errors.ErrUserNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, errors.ErrCoordinatorStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
