package render

import "context"

// Status is the three-valued outcome contract the pipeline depends on.
// It never inspects renderer internals beyond this.
type Status string

const (
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusUnavailable Status = "unavailable"
)

// Request carries everything a renderer needs for one image.
type Request struct {
	Prompt         string
	NegativePrompt string
	AspectRatio    string
	Seed           int64
	RequestID      string
}

// Result reports the render outcome. Failures are data, not errors: a
// failed render must never block copy, compliance or ranking.
type Result struct {
	URI    string
	Status Status
	Err    string
}

// Renderer turns an image prompt into an asset URI or a failure status.
type Renderer interface {
	Render(ctx context.Context, req Request) Result
	Name() string
}
