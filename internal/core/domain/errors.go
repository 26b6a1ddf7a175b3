package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidToken       = errors.New("invalid token")
	ErrSessionNotFound    = errors.New("session not found")
	ErrNotSignedIn        = errors.New("not signed in")
	ErrRateLimited        = errors.New("too many attempts, try again later")
	ErrForbidden          = errors.New("access forbidden")

	ErrProfileNotFound      = errors.New("profile not found")
	ErrProfileExists        = errors.New("profile already exists")
	ErrProfileIncomplete    = errors.New("profile is missing required fields")
	ErrInvalidRole          = errors.New("invalid role")
	ErrRoleNotHeld          = errors.New("role not held")
	ErrRoleAlreadyHeld      = errors.New("role already held")
	ErrBusinessNameRequired = errors.New("business name is required for provider role")
	ErrBusinessNotFound     = errors.New("business details not found")
)
