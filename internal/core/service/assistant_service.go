package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vivulocal/marketplace-api/internal/core/domain"
	"github.com/vivulocal/marketplace-api/internal/core/ports"
)

// AssistantService answers prompts with the first model in preference order
// that has quota left.
type AssistantService struct {
	backend       ports.ModelBackend
	models        []string
	systemContext string
	log           zerolog.Logger
	onFallback    func(model string)
}

func NewAssistantService(backend ports.ModelBackend, models []string, systemContext string, log zerolog.Logger) *AssistantService {
	return &AssistantService{
		backend:       backend,
		models:        models,
		systemContext: systemContext,
		log:           log,
		onFallback:    func(string) {},
	}
}

// OnFallback registers a hook called each time a model is skipped for quota.
func (s *AssistantService) OnFallback(fn func(model string)) {
	s.onFallback = fn
}

// Complete tries each model in order. Quota errors move on to the next
// model silently; any other error is returned immediately. Only when every
// model is out of quota does the caller see domain.ErrQuotaExceeded.
func (s *AssistantService) Complete(ctx context.Context, prompt string) (*ports.Completion, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, domain.NewValidationError(domain.FieldViolation{Field: "prompt", Rule: "required", Message: "prompt is required"})
	}
	if len(s.models) == 0 {
		return nil, errors.New("assistant: no models configured")
	}

	tried := make([]string, 0, len(s.models))
	for _, model := range s.models {
		text, err := s.backend.Generate(ctx, model, prompt, s.systemContext)
		if err == nil {
			return &ports.Completion{Text: text, Model: model}, nil
		}
		if !errors.Is(err, domain.ErrQuotaExceeded) {
			return nil, fmt.Errorf("assistant: model %s: %w", model, err)
		}

		tried = append(tried, model)
		s.onFallback(model)
		s.log.Warn().Str("model", model).Msg("model over quota, falling back")
	}

	return nil, &domain.QuotaExceededError{Tried: tried}
}
