package config

import "errors"

var (
	ErrInvalidBackend = errors.New("invalid backend")
	ErrInvalidValue   = errors.New("invalid value")
)
