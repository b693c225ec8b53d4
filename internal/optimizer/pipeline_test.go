package optimizer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T, endpoints map[BackendID]ChatEndpoint, sleeper *recordingSleeper, opts ...InvokerOption) *Service {
	t.Helper()
	opts = append([]InvokerOption{WithSleeper(sleeper)}, opts...)
	return NewService(endpoints, mustTemplates(t), Settings{
		MaxRetries: 3,
		RetryDelay: time.Second,
	}, zap.NewNop(), opts...)
}

func TestRunOptimization_FreshRequirementRunsThreeSequentialStages(t *testing.T) {
	log := &callLog{}
	svc := newTestService(t, threeBackends(log, replyWith("draft-a"), replyWith("draft-b"), replyWith("final-c")), &recordingSleeper{})
	reg := mustTemplates(t)

	result, err := svc.RunOptimization(context.Background(), "Write a function", History{})

	require.NoError(t, err)
	assert.Equal(t, &PipelineResult{Stage1: "draft-a", Stage2: "draft-b", Stage3: "final-c"}, result)
	assert.Equal(t, []BackendID{BackendA, BackendB, BackendC}, log.backends())

	stage1, _ := reg.Lookup(Stage1, false)
	a := log.forBackend(BackendA)[0]
	assert.Equal(t, stage1.System, a.System)
	assert.Contains(t, a.Human, "Write a function")

	b := log.forBackend(BackendB)[0]
	assert.Contains(t, b.Human, "Write a function")
	assert.Contains(t, b.Human, "draft-a")

	c := log.forBackend(BackendC)[0]
	assert.Contains(t, c.Human, "Write a function")
	assert.Contains(t, c.Human, "draft-a")
	assert.Contains(t, c.Human, "draft-b")
}

func TestRunOptimization_HistoryUsesContinuationTemplates(t *testing.T) {
	log := &callLog{}
	svc := newTestService(t, threeBackends(log, replyWith("1"), replyWith("2"), replyWith("3")), &recordingSleeper{})
	reg := mustTemplates(t)

	_, err := svc.RunOptimization(context.Background(), "", History{{User: "hi", AI: "hello"}})

	require.NoError(t, err)
	for _, tc := range []struct {
		stage   Stage
		backend BackendID
	}{{Stage1, BackendA}, {Stage2, BackendB}, {Stage3, BackendC}} {
		tmpl, ok := reg.Lookup(tc.stage, true)
		require.True(t, ok)
		call := log.forBackend(tc.backend)[0]
		assert.Equal(t, tmpl.System, call.System, tc.stage.String())
		assert.Contains(t, call.Human, "User: hi")
		assert.NotContains(t, call.Human, "Initial requirement:")
	}
}

func TestRun_StageTwoFailureAbortsWithoutPartialResult(t *testing.T) {
	log := &callLog{}
	sleeper := &recordingSleeper{}
	rec := &countingRecorder{}
	svc := newTestService(t, threeBackends(log, replyWith("draft-a"), alwaysFail(errUpstream), replyWith("never")), sleeper, WithRecorder(rec))

	result, err := svc.RunOptimization(context.Background(), "Write a function", nil)

	assert.Nil(t, result)
	assert.Equal(t, []BackendID{BackendA, BackendB, BackendB, BackendB}, log.backends())
	assert.Empty(t, log.forBackend(BackendC))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeper.delays)

	var stageErr *PipelineStageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, Stage2, stageErr.Stage)

	var invErr *StageInvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, BackendB, invErr.Backend)
	assert.ErrorIs(t, err, errUpstream)

	assert.NoError(t, rec.stages[Stage1])
	assert.Error(t, rec.stages[Stage2])
	assert.NotContains(t, rec.stages, Stage3)
}

func TestRun_StageOneFailureSkipsLaterStages(t *testing.T) {
	log := &callLog{}
	svc := newTestService(t, threeBackends(log, alwaysFail(errUpstream), replyWith("b"), replyWith("c")), &recordingSleeper{})

	_, err := svc.RunOptimization(context.Background(), "req", nil)

	var stageErr *PipelineStageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, Stage1, stageErr.Stage)
	assert.Equal(t, []BackendID{BackendA, BackendA, BackendA}, log.backends())
}

func TestRun_UserTextWithPlaceholdersIsNotExpanded(t *testing.T) {
	log := &callLog{}
	svc := newTestService(t, threeBackends(log, replyWith("a"), replyWith("b"), replyWith("c")), &recordingSleeper{})

	_, err := svc.RunOptimization(context.Background(), "keep {priorOutput} literally", nil)

	require.NoError(t, err)
	assert.Contains(t, log.forBackend(BackendB)[0].Human, "keep {priorOutput} literally")
}

func TestPipeline_ConcurrentRunsDoNotShareState(t *testing.T) {
	endpoints := map[BackendID]ChatEndpoint{
		BackendA: &scriptedEndpoint{backend: BackendA, respond: replyWith("a")},
		BackendB: &scriptedEndpoint{backend: BackendB, respond: replyWith("b")},
		BackendC: &scriptedEndpoint{backend: BackendC, respond: replyWith("c")},
	}
	svc := newTestService(t, endpoints, &recordingSleeper{})

	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			res, err := svc.RunOptimization(context.Background(), "req", nil)
			if err == nil && res.Stage3 != "c" {
				err = assert.AnError
			}
			errs <- err
		}()
	}
	for i := 0; i < 8; i++ {
		assert.NoError(t, <-errs)
	}
}
