package optimizer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream returned 503")

type recordedCall struct {
	Backend BackendID
	System  string
	Human   string
}

// callLog records every endpoint call across backends in order.
type callLog struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (l *callLog) add(c recordedCall) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, c)
}

func (l *callLog) backends() []BackendID {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]BackendID, 0, len(l.calls))
	for _, c := range l.calls {
		out = append(out, c.Backend)
	}
	return out
}

func (l *callLog) forBackend(b BackendID) []recordedCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []recordedCall
	for _, c := range l.calls {
		if c.Backend == b {
			out = append(out, c)
		}
	}
	return out
}

// scriptedEndpoint answers with respond(n) where n is the 1-based call count.
type scriptedEndpoint struct {
	backend BackendID
	log     *callLog
	respond func(n int) (string, error)

	mu sync.Mutex
	n  int
}

func (e *scriptedEndpoint) Complete(_ context.Context, system, human string) (string, error) {
	e.mu.Lock()
	e.n++
	n := e.n
	e.mu.Unlock()

	if e.log != nil {
		e.log.add(recordedCall{Backend: e.backend, System: system, Human: human})
	}
	return e.respond(n)
}

func replyWith(text string) func(int) (string, error) {
	return func(int) (string, error) { return text, nil }
}

func alwaysFail(err error) func(int) (string, error) {
	return func(int) (string, error) { return "", err }
}

// recordingSleeper stores requested delays instead of waiting.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
	err    error
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return s.err
}

type countingRecorder struct {
	mu       sync.Mutex
	attempts []error
	stages   map[Stage]error
}

func (r *countingRecorder) ObserveAttempt(_ BackendID, _ int, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, err)
}

func (r *countingRecorder) ObserveStage(stage Stage, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stages == nil {
		r.stages = map[Stage]error{}
	}
	r.stages[stage] = err
}

func mustTemplates(t *testing.T) *TemplateRegistry {
	t.Helper()
	reg, err := DefaultTemplates()
	require.NoError(t, err)
	return reg
}

// threeBackends returns endpoints for A, B and C that share one call log.
func threeBackends(log *callLog, a, b, c func(int) (string, error)) map[BackendID]ChatEndpoint {
	return map[BackendID]ChatEndpoint{
		BackendA: &scriptedEndpoint{backend: BackendA, log: log, respond: a},
		BackendB: &scriptedEndpoint{backend: BackendB, log: log, respond: b},
		BackendC: &scriptedEndpoint{backend: BackendC, log: log, respond: c},
	}
}
