package ports

import (
	"context"
	"io"
)

// ModelBackend runs one completion against one model. Quota exhaustion must
// be reported as an error matching domain.ErrQuotaExceeded.
type ModelBackend interface {
	Generate(ctx context.Context, model, prompt, systemContext string) (string, error)
}

// AssistantService answers travel questions, falling back across models.
type AssistantService interface {
	Complete(ctx context.Context, prompt string) (*Completion, error)
}

// Completion is an assistant answer and the model that produced it.
type Completion struct {
	Text  string
	Model string
}

// UploadInput describes one file to store.
type UploadInput struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Uploader stores binary objects and returns a public URL. Failures are
// *domain.UploadError.
type Uploader interface {
	Upload(ctx context.Context, in UploadInput) (string, error)
}
