package storage

import "errors"

// Common client storage errors
var (
	// ErrAuthNotFound indicates that no session exists for the server
	ErrAuthNotFound = errors.New("authentication data not found")

	// ErrNoServerURL indicates a session without the server it belongs to
	ErrNoServerURL = errors.New("session has no server URL")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
