package biz

import "errors"

// Sentinel errors returned by the storage pipeline. The service layer
// maps these to business error codes; everything else is internal.
var (
	// ErrFileTooLarge is returned when a stream crosses the configured
	// size cap. The partial file has already been removed.
	ErrFileTooLarge = errors.New("file size exceeds maximum limit")

	// ErrDuplicateFile is returned when the source platform file id is
	// already registered.
	ErrDuplicateFile = errors.New("source file id already registered")

	// ErrFileNotFound is returned when no servable record exists for the
	// requested id, including records whose bytes are gone from disk.
	ErrFileNotFound = errors.New("file not found")

	// ErrFileExpired is returned when the record exists but its
	// retention period has passed.
	ErrFileExpired = errors.New("file expired")

	// ErrRateLimited is returned when the per-user intake ceiling is
	// reached.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrUserNotFound is returned by user-data operations for unknown
	// platform user ids.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidTransition is returned when a status change would leave
	// a terminal state or skip the allowed transitions.
	ErrInvalidTransition = errors.New("invalid file status transition")
)
