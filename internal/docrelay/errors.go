package docrelay

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidState      = errors.New("invalid state")
	ErrNotImplemented    = errors.New("not implemented")
	ErrSourceUnavailable = errors.New("document source unavailable")
	ErrSinkUnavailable   = errors.New("document sink unavailable")
)
