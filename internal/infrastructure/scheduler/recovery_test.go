package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vivulocal/marketplace-api/internal/core/ports"
)

type stubDecisions struct {
	n     int
	err   error
	calls int
}

func (s *stubDecisions) Decide(context.Context, ports.DecideInput) (*ports.DecisionResult, error) {
	return nil, errors.New("not used")
}

func (s *stubDecisions) ResumeInterrupted(context.Context) (int, error) {
	s.calls++
	return s.n, s.err
}

func TestRecovery_RunOnce(t *testing.T) {
	decisions := &stubDecisions{n: 2}
	r, err := NewRecovery("@every 1m", decisions, zerolog.Nop())
	require.NoError(t, err)

	var reported int
	r.OnResumed(func(n int) { reported = n })

	assert.Equal(t, 2, r.RunOnce(context.Background()))
	assert.Equal(t, 2, reported)
	assert.Equal(t, 1, decisions.calls)
}

func TestRecovery_RunOnceReportsPartialProgress(t *testing.T) {
	r, err := NewRecovery("@every 1m", &stubDecisions{n: 1, err: errors.New("one failed")}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 1, r.RunOnce(context.Background()))
}

func TestNewRecovery_InvalidSchedule(t *testing.T) {
	_, err := NewRecovery("not a schedule", &stubDecisions{}, zerolog.Nop())
	assert.Error(t, err)
}
