package pool

// Task is a unit of work submitted to a Pool. Every submitted task is either executed
// or, if the pool shuts down without waiting before a worker picks it up, discarded.
// Exactly one of the two methods is called, exactly once.
type Task interface {
	// Execute runs the task on a pool worker
	Execute()
	// Discard releases the resources held by a task that will never execute
	Discard()
}

// TaskFunc adapts a plain function to the Task interface. Discarding it is a no-op.
type TaskFunc func()

func (f TaskFunc) Execute() { f() }

func (f TaskFunc) Discard() {}
