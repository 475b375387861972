package app

import "errors"

var (
	// ErrInvalidCredentials is intentionally identical for unknown email
	// and wrong password.
	ErrInvalidCredentials = errors.New("Incorrect email address or password")

	ErrEmailAndPasswordRequired = errors.New("email and password required")
	ErrEmailAlreadyExists       = errors.New("email already exists")

	// ErrAccessDenied covers both missing records and records owned by
	// another user, so probing cannot distinguish the two.
	ErrAccessDenied = errors.New("access denied")

	ErrNotFound = errors.New("record not found")

	ErrInspectionLimitReached = errors.New("inspection limit reached")

	ErrWrongPassword = errors.New("current password is incorrect")
)
