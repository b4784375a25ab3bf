package httputil

import (
	"errors"
	"net/http"

	"github.com/cwrk-planet/live-room-service/internal/domain"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
)

// StatusFor переводит доменную ошибку в HTTP-статус.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyLive),
		errors.Is(err, domain.ErrNotLive),
		errors.Is(err, domain.ErrOutOfRange):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidConfig),
		errors.Is(err, domain.ErrEmptyMessage),
		errors.Is(err, domain.ErrMessageTooLong),
		errors.Is(err, domain.ErrEmptyAudio):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrDownstreamUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Code — машинный код ошибки для клиента.
func Code(err error) string {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, domain.ErrAlreadyLive):
		return "already_live"
	case errors.Is(err, domain.ErrNotLive):
		return "not_live"
	case errors.Is(err, domain.ErrOutOfRange):
		return "out_of_range"
	case errors.Is(err, domain.ErrInvalidConfig):
		return "invalid_room_config"
	case errors.Is(err, domain.ErrEmptyMessage):
		return "empty_message"
	case errors.Is(err, domain.ErrMessageTooLong):
		return "message_too_long"
	case errors.Is(err, domain.ErrEmptyAudio):
		return "empty_audio"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrDownstreamUnavailable):
		return "downstream_unavailable"
	default:
		return "internal"
	}
}
