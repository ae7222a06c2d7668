package rag

import "errors"

var (
	// ErrNotReady means the session has no indexed documents yet.
	ErrNotReady = errors.New("session has no indexed documents")

	// ErrSessionNotFound means the manager knows no such session.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExists means a session with that ID already exists.
	ErrSessionExists = errors.New("session already exists")
)
