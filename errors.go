package catalogsync

import "errors"

var (
	// ErrStateDisabled is returned when local state is requested but STATE_DIR is not set.
	ErrStateDisabled = errors.New("local state disabled: set STATE_DIR")

	// ErrServiceRunning is returned when another process, normally the sync
	// service, holds STATE_DIR.
	ErrServiceRunning = errors.New("sync service is running")
)
