package store

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrUserExists is returned when a registration reuses a taken email or name.
	ErrUserExists = errors.New("user already exists")

	// ErrInvalidCredentials is returned when a name/password pair does not verify.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrDuplicateWork is returned when a task already has a work entry for the date.
	ErrDuplicateWork = errors.New("work already logged for that date")

	// ErrAlreadyMember is returned when inviting a user who is already a project member.
	ErrAlreadyMember = errors.New("user is already a member")

	// ErrInvitationExists is returned when a pending invitation for the same
	// user and project already exists.
	ErrInvitationExists = errors.New("invitation already exists")
)
