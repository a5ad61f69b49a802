package httpserver

import "errors"

var (
	// ErrStart wraps listen and serve failures returned by Run.
	ErrStart = errors.New("httpserver: start")
	// ErrAlreadyRunning is joined with ErrStart when Run is called twice.
	ErrAlreadyRunning = errors.New("httpserver: already running")
	ErrShutdown       = errors.New("httpserver: graceful shutdown")
)
