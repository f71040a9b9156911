package errors

import "context"

// Tracker defines the interface for error tracking services
type Tracker interface {
	// CaptureError sends an error to the tracking service
	CaptureError(ctx context.Context, err error, tags map[string]string) error

	// Flush waits for all pending events to be sent
	Flush(ctx context.Context) error
}
