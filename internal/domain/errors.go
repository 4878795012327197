package domain

import "errors"

var (
	ErrNotFound        = errors.New("resource not found")
	ErrUnauthenticated = errors.New("not authenticated")
	ErrInvalidUpdate   = errors.New("invalid video update")
	ErrInvalidInput    = errors.New("invalid input")
	ErrViewClosed      = errors.New("view is closed")
)
