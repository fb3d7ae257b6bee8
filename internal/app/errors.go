package app

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrEmailTaken      = errors.New("email already registered")
	ErrBadCredentials  = errors.New("invalid email or password")
	ErrAccountDisabled = errors.New("account disabled")
	ErrValidation      = errors.New("invalid request")
)
