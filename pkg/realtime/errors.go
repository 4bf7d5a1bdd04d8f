package realtime

import "errors"

var (
	ErrUnauthenticated = errors.New("realtime: authentication required")
	ErrHubBusy         = errors.New("realtime: hub queue is full")
	ErrHubClosed       = errors.New("realtime: hub is closed")
)
