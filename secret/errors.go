package secret

import "errors"

var (
	ErrNotFound         = errors.New("secret: not found")
	ErrUnknownProvider  = errors.New("secret: provider not registered")
	ErrEmptySecret      = errors.New("secret: provider returned empty value")
	ErrMissingEnv       = errors.New("secret: missing required environment variables")
	ErrInvalidProvider  = errors.New("secret: invalid provider registration")
	ErrDuplicateFactory = errors.New("secret: provider already registered")
)
