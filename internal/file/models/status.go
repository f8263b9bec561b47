package models

// FileStatus is the lifecycle state of a stored file.
type FileStatus string

const (
	StatusActive   FileStatus = "active"
	StatusArchived FileStatus = "archived"
	StatusDeleted  FileStatus = "deleted"
	StatusExpired  FileStatus = "expired"
)

// Valid reports whether s is a known status value.
func (s FileStatus) Valid() bool {
	switch s {
	case StatusActive, StatusArchived, StatusDeleted, StatusExpired:
		return true
	}
	return false
}

// Terminal reports whether no further transitions may leave s.
func (s FileStatus) Terminal() bool {
	return s == StatusDeleted || s == StatusExpired
}

// CanTransitionTo reports whether the transition s -> next is allowed.
// Deleted and expired are terminal; there is no resurrection.
func (s FileStatus) CanTransitionTo(next FileStatus) bool {
	if !s.Valid() || !next.Valid() || s == next {
		return false
	}
	switch s {
	case StatusActive:
		return next == StatusArchived || next == StatusExpired || next == StatusDeleted
	case StatusArchived:
		return next == StatusExpired || next == StatusDeleted
	}
	return false
}

func (s FileStatus) String() string {
	return string(s)
}
