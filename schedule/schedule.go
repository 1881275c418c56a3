// Package schedule runs recurring bot jobs, such as daily broadcast
// messages, on cron expressions.
package schedule

import "context"

// Job defines a periodic task.
type Job interface {
	// Name returns a unique identifier for this job (used for logging and dedup).
	Name() string

	// Schedule returns a 5-field cron expression (e.g., "*/5 * * * *").
	Schedule() string

	// Run executes the job. Implementations should check ctx.Done() for
	// graceful cancellation.
	Run(ctx context.Context) error
}

// JobFunc is a Job built from a bare function.
type JobFunc struct {
	name string
	expr string
	fn   func(context.Context) error
}

// NewJobFunc wraps fn as a Job with the given name and cron expression.
func NewJobFunc(name, expr string, fn func(context.Context) error) JobFunc {
	return JobFunc{name: name, expr: expr, fn: fn}
}

// Name implements Job.
func (j JobFunc) Name() string { return j.name }

// Schedule implements Job.
func (j JobFunc) Schedule() string { return j.expr }

// Run implements Job.
func (j JobFunc) Run(ctx context.Context) error { return j.fn(ctx) }
