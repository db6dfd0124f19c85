package services

import "errors"

// Sentinel errors for the join/session flows. Handlers translate these to
// stable wire codes so clients can branch on them.
var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrSessionLocked      = errors.New("session locked")
	ErrDuplicateNickname  = errors.New("duplicate nickname")
	ErrRoomFull           = errors.New("room full")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrStaleSubmission    = errors.New("stale submission")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ErrorCode returns the wire code for a sentinel error, or "" for errors
// that have no stable code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, ErrSessionLocked):
		return "session_locked"
	case errors.Is(err, ErrDuplicateNickname):
		return "duplicate_nickname"
	case errors.Is(err, ErrRoomFull):
		return "room_full"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrUsernameTaken):
		return "username_taken"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	}
	return ""
}
