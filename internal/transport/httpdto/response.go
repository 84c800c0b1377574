package httpdto

import (
	"errors"
	"net/http"

	watchparty_errors "watchparty/pkg/errors"
)

type Response[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func NewSuccessResponse[T any](data T) Response[T] {
	return Response[T]{
		Success: true,
		Data:    data,
	}
}

func NewErrorResponse(err string, code string) Response[any] {
	return Response[any]{
		Success: false,
		Error:   err,
		Code:    code,
	}
}

// ErrorStatus maps a service error to an HTTP status and a stable error code.
func ErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, watchparty_errors.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_REQUEST"
	case errors.Is(err, watchparty_errors.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, watchparty_errors.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, watchparty_errors.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, watchparty_errors.ErrRoomFull):
		return http.StatusConflict, "ROOM_FULL"
	case errors.Is(err, watchparty_errors.ErrAlreadyExists), errors.Is(err, watchparty_errors.ErrConflict):
		return http.StatusConflict, "CONFLICT"
	case errors.Is(err, watchparty_errors.ErrInvalidTransition):
		return http.StatusConflict, "INVALID_TRANSITION"
	case errors.Is(err, watchparty_errors.ErrRateLimited):
		return http.StatusTooManyRequests, "RATE_LIMITED"
	case errors.Is(err, watchparty_errors.ErrServiceUnavailable):
		return http.StatusBadGateway, "UPSTREAM_UNAVAILABLE"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}
