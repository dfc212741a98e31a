package users

import "errors"

var (
	ErrNotFound           = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already registered")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrInactive           = errors.New("user account is inactive")
	ErrInvalidRefresh     = errors.New("invalid refresh token")
)
