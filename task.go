package skorche

import "github.com/sirupsen/logrus"

// TaskDefaultName is the display name given to a Task when no name option is
// supplied.
const TaskDefaultName = "Task"

// TaskFunc is a user function promoted into a Task. It receives exactly one
// item and returns exactly one item; returning a non-nil error (or
// panicking) is caught by the owning stage, logged, and the item is
// dropped - the stage itself keeps running.
type TaskFunc func(any) (any, error)

// Task is a named, user-supplied function plus its worker-pool size. A Task
// value can also be invoked directly like a plain function via Call, the Go
// equivalent of the Python source's Task.__call__ delegation.
type Task struct {
	baseNode

	fn         TaskFunc
	maxWorkers int
	logger     *logrus.Entry
}

// TaskOption configures a Task at construction time, standing in for the
// Python decorator's keyword arguments (name=..., max_workers=..., logger=...).
type TaskOption func(*Task)

// WithTaskName sets the task's display name.
func WithTaskName(name string) TaskOption {
	return func(t *Task) { t.name = name }
}

// WithMaxWorkers sets the number of concurrent worker activities the stage
// spawns for this task. Non-positive values are ignored, leaving the
// default of 1.
func WithMaxWorkers(n int) TaskOption {
	return func(t *Task) {
		if n > 0 {
			t.maxWorkers = n
		}
	}
}

// WithTaskLogger attaches a structured logger that receives TaskError
// events raised while this task's stage is running.
func WithTaskLogger(logger *logrus.Entry) TaskOption {
	return func(t *Task) { t.logger = logger }
}

// NewTask promotes fn into a Task, applying the given options. This is the
// Go equivalent of the Python `@task(name=..., max_workers=...)` decorator
// form.
func NewTask(fn TaskFunc, opts ...TaskOption) *Task {
	t := &Task{
		baseNode:   newBaseNode(NodeTask, TaskDefaultName),
		fn:         fn,
		maxWorkers: 1,
		logger:     logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Promote wraps a plain one-argument, one-return-value function into a Task
// with default options, the Go equivalent of the Python bare `@task` form.
func Promote(fn func(any) any) *Task {
	return NewTask(func(x any) (any, error) { return fn(x), nil })
}

// Call invokes the task's function directly, without going through a
// pipeline, mirroring Task.__call__ in the Python source.
func (t *Task) Call(x any) (any, error) {
	return t.fn(x)
}

// String implements fmt.Stringer.
func (t *Task) String() string { return t.name }

// Stats overrides baseNode.Stats to add the task's configured worker count.
func (t *Task) Stats() map[string]any {
	stats := t.baseNode.Stats()
	stats["max_workers"] = t.maxWorkers
	return stats
}

var _ Node = (*Task)(nil)
