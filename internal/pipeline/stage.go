package pipeline

import "context"

// Stage is one unit of pipeline work. Prepare validates inputs and is
// cheap; Execute does the work. A stage must be safe to re-run from
// scratch because a crash before its completion marker replays it.
type Stage interface {
	Name() string
	Prepare(context.Context, *Run) error
	Execute(context.Context, *Run) error
	HealthCheck(context.Context) Health
}

// Health summarizes the readiness of a pipeline stage.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// Run carries per-invocation state between stages.
type Run struct {
	// Source is the recording being processed.
	Source string
	// AudioPath is the extracted mono audio, set by the transcribe stage.
	AudioPath string
	// Force reruns every stage even when markers exist.
	Force bool
	// Rerender reruns only the render stage on otherwise completed state.
	Rerender bool
}
