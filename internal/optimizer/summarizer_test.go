package optimizer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeLongText_UsesBackendC(t *testing.T) {
	log := &callLog{}
	svc := newTestService(t, threeBackends(log, replyWith("a"), replyWith("b"), replyWith("short summary")), &recordingSleeper{})
	content := strings.Repeat("long text ", 100)

	summary, err := svc.SummarizeLongText(context.Background(), content)

	require.NoError(t, err)
	assert.Equal(t, "short summary", summary)
	assert.Equal(t, []BackendID{BackendC}, log.backends())
	assert.Contains(t, log.calls[0].Human, content)
	assert.Equal(t, mustTemplates(t).Summary().System, log.calls[0].System)
}

// The core has no length gate; short content is rejected by the HTTP layer only.
func TestSummarizeLongText_BelowMinimumStillRunsWhenCalledDirectly(t *testing.T) {
	log := &callLog{}
	svc := newTestService(t, threeBackends(log, replyWith("a"), replyWith("b"), replyWith("s")), &recordingSleeper{})

	summary, err := svc.SummarizeLongText(context.Background(), strings.Repeat("x", 400))

	require.NoError(t, err)
	assert.Equal(t, "s", summary)
	assert.Len(t, log.calls, 1)
}

func TestSummarizeLongText_PropagatesInvocationError(t *testing.T) {
	svc := newTestService(t, threeBackends(nil, replyWith("a"), replyWith("b"), alwaysFail(errUpstream)), &recordingSleeper{})

	_, err := svc.SummarizeLongText(context.Background(), "content")

	var invErr *StageInvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, BackendC, invErr.Backend)
	assert.Equal(t, 3, invErr.Attempts)
}

func TestSessionTitle_TrimsAndTruncates(t *testing.T) {
	log := &callLog{}
	svc := newTestService(t, threeBackends(log, replyWith("  \"Refactoring the billing module\"\n"), replyWith("b"), replyWith("c")), &recordingSleeper{})

	title, err := svc.SessionTitle(context.Background(), "please refactor billing")

	require.NoError(t, err)
	assert.Equal(t, "Refactoring the", title)
	assert.Equal(t, []BackendID{BackendA}, log.backends())
}

func TestSessionTitle_DoesNotRetry(t *testing.T) {
	log := &callLog{}
	svc := newTestService(t, threeBackends(log, alwaysFail(errUpstream), replyWith("b"), replyWith("c")), &recordingSleeper{})

	_, err := svc.SessionTitle(context.Background(), "anything")

	require.Error(t, err)
	assert.Len(t, log.calls, 1)
}
