package event

// Reporter is the helper operations use to describe their progress.
type Reporter struct {
	emitter Emitter
}

// NewReporter wraps an Emitter.
func NewReporter(e Emitter) *Reporter {
	return &Reporter{emitter: e}
}

// Task registers a task, or updates its message if it exists.
func (r *Reporter) Task(name string, note ...string) {
	r.emit(NewTaskCreated(name, note...))
}

// TaskStatus sets a task's status.
func (r *Reporter) TaskStatus(name string, status Status, note ...string) {
	r.emit(NewTaskStatusChanged(name, status, note...))
}

// Step registers a step, or updates its message if it exists.
func (r *Reporter) Step(task, name string, note ...string) {
	r.emit(NewStepCreated(task, name, note...))
}

// StepStatus moves a step to status.
func (r *Reporter) StepStatus(task, name string, status Status, note ...string) {
	r.emit(NewStepStatusChanged(task, name, status, note...))
}

// Out buffers values for the primary output stream.
func (r *Reporter) Out(values ...any) {
	r.emit(NewLogLine(values...))
}

// Error reports a non-fatal error.
func (r *Reporter) Error(err error, context ...any) {
	if err == nil {
		return
	}
	r.emit(NewErrorRaised(err, context...))
}

func (r *Reporter) emit(m Message) {
	if r == nil || r.emitter == nil {
		return
	}
	r.emitter.Emit(m)
}
