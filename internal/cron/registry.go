package cron

import "context"

// Job is one unit of scheduled work; the worker runs every registered job
// once per tick.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds the jobs the worker loops over. Nil jobs are dropped at
// registration so the run loop never has to check.
type Registry struct {
	jobs []Job
}

// NewRegistry builds a registry from the given jobs.
func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{jobs: make([]Job, 0, len(jobs))}
	for _, job := range jobs {
		r.Register(job)
	}
	return r
}

// Register appends a job; nil is ignored.
func (r *Registry) Register(job Job) {
	if job == nil {
		return
	}
	r.jobs = append(r.jobs, job)
}

// Jobs returns a copy of the registered jobs in registration order.
func (r *Registry) Jobs() []Job {
	out := make([]Job, len(r.jobs))
	copy(out, r.jobs)
	return out
}
