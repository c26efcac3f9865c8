// Package async runs inbox files through the analyzer on a bounded worker pool.
package async

import (
	"context"
	"time"
)

// Job is one inbox file waiting for analysis.
type Job struct {
	Path        string
	SubmittedAt time.Time
	RequestID   string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
