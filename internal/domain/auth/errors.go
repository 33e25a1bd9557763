package auth

import "errors"

var (
	ErrInvalidToken         = errors.New("invalid or expired token")
	ErrEmployeeClaimMissing = errors.New("token is not bound to an employee")
)
