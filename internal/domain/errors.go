package domain

import "errors"

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrAlreadyLive   = errors.New("room is already live")
	ErrNotLive       = errors.New("room is not live")
	ErrOutOfRange    = errors.New("no more products in rotation")
	ErrInvalidConfig = errors.New("invalid room config")

	ErrEmptyMessage   = errors.New("empty message")
	ErrMessageTooLong = errors.New("message too long")
	ErrEmptyAudio     = errors.New("empty audio")

	// ErrDownstreamUnavailable оборачивает отказы ASR/LLM/рендера.
	ErrDownstreamUnavailable = errors.New("downstream unavailable")
)
