package auth

import "errors"

var (
	ErrInvalidPassword    = errors.New("password must be valid utf-8 text")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenMalformed     = errors.New("token malformed")
	ErrBadSignature       = errors.New("token signature invalid")
	ErrTokenNotYetValid   = errors.New("token not yet valid")
	ErrWrongTokenType     = errors.New("token type not accepted")
	ErrMissingCredentials = errors.New("missing bearer credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrPrincipalNotFound  = errors.New("principal not found")
	ErrInactivePrincipal  = errors.New("principal is inactive")
)
