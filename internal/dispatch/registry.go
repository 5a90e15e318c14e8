package dispatch

import (
	"slices"

	"github.com/fabriqd/fabriq/internal/config"
)

// QueueOptions are the per-queue defaults applied when an enqueue call does
// not override them.
type QueueOptions struct {
	MaxAttempts int
	BackoffBase int64 // seconds; doubled per attempt
}

// Registry is the closed set of queues wired once at process start and
// passed by handle into the dispatcher and the health aggregator. There is
// no ambient global map.
type Registry struct {
	queues map[config.QueueName]QueueOptions
	order  []config.QueueName
}

func NewRegistry() *Registry {
	return &Registry{queues: make(map[config.QueueName]QueueOptions)}
}

// DefaultRegistry wires every queue in config.RegisteredQueues with the
// standard retry policy.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, q := range config.RegisteredQueues {
		r.Register(q, QueueOptions{
			MaxAttempts: config.DefaultMaxAttempts,
			BackoffBase: int64(config.BackoffBase.Seconds()),
		})
	}
	return r
}

func (r *Registry) Register(name config.QueueName, opts QueueOptions) {
	if _, ok := r.queues[name]; !ok {
		r.order = append(r.order, name)
	}
	r.queues[name] = opts
}

func (r *Registry) Options(name config.QueueName) (QueueOptions, bool) {
	opts, ok := r.queues[name]
	return opts, ok
}

func (r *Registry) Contains(name config.QueueName) bool {
	_, ok := r.queues[name]
	return ok
}

// Names returns the registered queues in registration order.
func (r *Registry) Names() []config.QueueName {
	return slices.Clone(r.order)
}

// AllowsJob reports whether a job name belongs to a queue's family.
func (r *Registry) AllowsJob(queue config.QueueName, job config.JobName) bool {
	return slices.Contains(config.JobsByQueue[queue], job)
}
