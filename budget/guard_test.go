package budget

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentguard/internal/testutil"
	"github.com/hupe1980/agentguard/model"
)

func TestCall_StepLimit(t *testing.T) {
	limits := testLimits()
	limits.MaxSteps = 3
	b, _ := newTestBudget(t, limits)
	call := &testutil.RecordingCall{Response: testutil.WithTotal(1)}

	for i := 0; i < 3; i++ {
		_, err := b.Call(context.Background(), model.Request{}, call.Call)
		require.NoError(t, err)
	}

	_, err := b.Call(context.Background(), model.Request{}, call.Call)
	be := requireReason(t, err, ReasonStepLimit)
	assert.Equal(t, 3, be.Snapshot.StepsUsed)
	assert.Equal(t, "exec-1", be.ExecutionID)
	assert.Equal(t, 3, call.Calls())
	assert.Equal(t, 3, b.Snapshot().StepsUsed)
}

func TestCall_ZeroStepsNeverInvokes(t *testing.T) {
	limits := testLimits()
	limits.MaxSteps = 0
	b, _ := newTestBudget(t, limits)
	call := &testutil.RecordingCall{Response: testutil.WithTotal(1)}

	_, err := b.Call(context.Background(), model.Request{}, call.Call)
	requireReason(t, err, ReasonStepLimit)
	assert.Zero(t, call.Calls())
	assert.Zero(t, b.Snapshot().StepsUsed)
}

func TestCall_FailedCallConsumesStepAndPassesErrorThrough(t *testing.T) {
	b, _ := newTestBudget(t, testLimits())
	providerErr := errors.New("provider: 503")
	call := &testutil.RecordingCall{Err: providerErr}

	resp, err := b.Call(context.Background(), model.Request{}, call.Call)
	assert.Nil(t, resp)
	assert.Same(t, providerErr, err)
	assert.False(t, IsBudgetError(err))

	snap := b.Snapshot()
	assert.Equal(t, 1, snap.StepsUsed)
	assert.Zero(t, snap.TokensUsed)
	assert.True(t, snap.TokenAccountingReliable)
}

func TestCall_NilCallFunc(t *testing.T) {
	b, _ := newTestBudget(t, testLimits())

	_, err := b.Call(context.Background(), model.Request{}, nil)
	require.Error(t, err)
	assert.False(t, IsBudgetError(err))
	assert.Zero(t, b.Snapshot().StepsUsed)
}

func TestCall_ClampsOutputTokens(t *testing.T) {
	intPtr := func(v int) *int { return &v }

	tests := []struct {
		name      string
		requested *int
		want      int
	}{
		{name: "unset uses cap", requested: nil, want: 100},
		{name: "below cap honored", requested: intPtr(40), want: 40},
		{name: "equal to cap", requested: intPtr(100), want: 100},
		{name: "above cap clamped", requested: intPtr(5000), want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := newTestBudget(t, testLimits())
			call := &testutil.RecordingCall{Response: testutil.WithTotal(1)}

			req := model.Request{MaxOutputTokens: tt.requested}
			_, err := b.Call(context.Background(), req, call.Call)
			require.NoError(t, err)

			require.Len(t, call.Requests, 1)
			require.NotNil(t, call.Requests[0].MaxOutputTokens)
			assert.Equal(t, tt.want, *call.Requests[0].MaxOutputTokens)
			if tt.requested != nil {
				assert.Equal(t, *tt.requested, *req.MaxOutputTokens, "caller request must not be mutated")
			}
		})
	}
}

func TestCall_TokenLimitIsRetroactiveAndSticky(t *testing.T) {
	limits := testLimits()
	limits.MaxTokens = 500
	b, clock := newTestBudget(t, limits)
	call := &testutil.RecordingCall{Response: testutil.WithTotal(600)}

	resp, err := b.Call(context.Background(), model.Request{}, call.Call)
	require.NoError(t, err)
	require.NotNil(t, resp)

	reason, ok := b.Terminated()
	require.True(t, ok)
	assert.Equal(t, ReasonTokenLimit, reason)

	clock.Advance(5 * time.Second)

	_, err = b.Call(context.Background(), model.Request{}, call.Call)
	first := requireReason(t, err, ReasonTokenLimit)
	assert.Equal(t, 600, first.Snapshot.TokensUsed)
	assert.Equal(t, 100, first.Snapshot.Overshoot)
	assert.Zero(t, first.Snapshot.ElapsedMs, "snapshot is the one captured at termination")
	assert.Equal(t, 1, call.Calls())

	err = b.RecordToolCall()
	second := requireReason(t, err, ReasonTokenLimit)
	assert.Equal(t, first.Snapshot, second.Snapshot)
	assert.Zero(t, b.Snapshot().ToolCallsUsed)
	assert.Equal(t, 1, b.Snapshot().StepsUsed)
}

func TestCall_SplitUsageCountsAsSum(t *testing.T) {
	limits := testLimits()
	limits.MaxTokens = 500
	b, _ := newTestBudget(t, limits)
	call := &testutil.RecordingCall{Response: testutil.WithSplit(300, 350)}

	_, err := b.Call(context.Background(), model.Request{}, call.Call)
	require.NoError(t, err)

	_, err = b.Call(context.Background(), model.Request{}, call.Call)
	be := requireReason(t, err, ReasonTokenLimit)
	assert.Equal(t, 650, be.Snapshot.TokensUsed)
	assert.Equal(t, 150, be.Snapshot.Overshoot)
}

func TestCall_ExactlyAtTokenLimitIsAllowed(t *testing.T) {
	limits := testLimits()
	limits.MaxTokens = 500
	b, _ := newTestBudget(t, limits)
	call := &testutil.RecordingCall{Response: testutil.WithTotal(500)}

	_, err := b.Call(context.Background(), model.Request{}, call.Call)
	require.NoError(t, err)
	_, ok := b.Terminated()
	assert.False(t, ok)
}

func TestCall_StepLimitOutranksRecordedTokenLimit(t *testing.T) {
	limits := testLimits()
	limits.MaxSteps = 1
	limits.MaxTokens = 10
	b, _ := newTestBudget(t, limits)
	call := &testutil.RecordingCall{Response: testutil.WithTotal(50)}

	_, err := b.Call(context.Background(), model.Request{}, call.Call)
	require.NoError(t, err)

	_, err = b.Call(context.Background(), model.Request{}, call.Call)
	requireReason(t, err, ReasonStepLimit)

	// The tool path still has quota, so the recorded termination surfaces there.
	requireReason(t, b.RecordToolCall(), ReasonTokenLimit)
}

func TestTimeout_OutranksEverything(t *testing.T) {
	limits := testLimits()
	limits.MaxSteps = 1
	limits.MaxToolCalls = 0
	limits.MaxTokens = 10
	limits.Timeout = 10 * time.Second
	b, clock := newTestBudget(t, limits)
	call := &testutil.RecordingCall{Response: testutil.WithTotal(50)}

	_, err := b.Call(context.Background(), model.Request{}, call.Call)
	require.NoError(t, err)

	clock.Advance(10 * time.Second)

	_, err = b.Call(context.Background(), model.Request{}, call.Call)
	be := requireReason(t, err, ReasonTimeout)
	assert.Equal(t, int64(10_000), be.Snapshot.ElapsedMs)
	requireReason(t, b.RecordToolCall(), ReasonTimeout)
}

func TestTimeout_ZeroRejectsImmediately(t *testing.T) {
	limits := testLimits()
	limits.Timeout = 0
	b, _ := newTestBudget(t, limits)
	call := &testutil.RecordingCall{Response: testutil.WithTotal(1)}

	_, err := b.Call(context.Background(), model.Request{}, call.Call)
	requireReason(t, err, ReasonTimeout)
	assert.Zero(t, call.Calls())
}

func TestTimeout_NotEnforcedDuringCall(t *testing.T) {
	limits := testLimits()
	limits.Timeout = time.Second
	b, clock := newTestBudget(t, limits)

	slow := func(_ context.Context, _ model.Request) (*model.Response, error) {
		clock.Advance(time.Hour)
		return testutil.WithTotal(1), nil
	}

	resp, err := b.Call(context.Background(), model.Request{}, slow)
	require.NoError(t, err)
	assert.NotNil(t, resp)

	requireReason(t, b.RecordToolCall(), ReasonTimeout)
}

func TestRecordToolCall_Limit(t *testing.T) {
	limits := testLimits()
	limits.MaxToolCalls = 2
	b, _ := newTestBudget(t, limits)

	require.NoError(t, b.RecordToolCall())
	require.NoError(t, b.RecordToolCall())

	be := requireReason(t, b.RecordToolCall(), ReasonToolLimit)
	assert.Equal(t, 2, be.Snapshot.ToolCallsUsed)
	assert.Equal(t, 2, b.Snapshot().ToolCallsUsed)

	// Tool exhaustion does not affect the call path.
	_, err := b.Call(context.Background(), model.Request{}, (&testutil.RecordingCall{Response: testutil.WithTotal(1)}).Call)
	assert.NoError(t, err)
}

func TestFailOpen_MissingUsageDisablesTokenLimit(t *testing.T) {
	limits := testLimits()
	limits.MaxTokens = 100
	b, _ := newTestBudget(t, limits)

	resp, err := b.Call(context.Background(), model.Request{}, (&testutil.RecordingCall{Response: testutil.WithoutUsage()}).Call)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.False(t, b.Snapshot().TokenAccountingReliable)

	_, err = b.Call(context.Background(), model.Request{}, (&testutil.RecordingCall{Response: testutil.WithTotal(500)}).Call)
	require.NoError(t, err)

	_, err = b.Call(context.Background(), model.Request{}, (&testutil.RecordingCall{Response: testutil.WithTotal(1)}).Call)
	require.NoError(t, err, "token limit is no longer enforced")

	snap := b.Snapshot()
	assert.Equal(t, 501, snap.TokensUsed)
	assert.False(t, snap.TokenAccountingReliable)
	_, terminated := b.Terminated()
	assert.False(t, terminated)
}

func TestFailOpen_PartialUsageIsUnavailable(t *testing.T) {
	b, _ := newTestBudget(t, testLimits())

	_, err := b.Call(context.Background(), model.Request{}, (&testutil.RecordingCall{Response: testutil.WithPromptOnly(40)}).Call)
	require.NoError(t, err)

	snap := b.Snapshot()
	assert.Zero(t, snap.TokensUsed)
	assert.False(t, snap.TokenAccountingReliable)
}

func TestFailOpen_NilResponseIsUnavailable(t *testing.T) {
	b, _ := newTestBudget(t, testLimits())

	resp, err := b.Call(context.Background(), model.Request{}, (&testutil.RecordingCall{}).Call)
	require.NoError(t, err)
	assert.Nil(t, resp)
	assert.False(t, b.Snapshot().TokenAccountingReliable)
}

func TestFailClosed_MissingOrPartialUsage(t *testing.T) {
	tests := []struct {
		name string
		resp *model.Response
	}{
		{name: "no usage", resp: testutil.WithoutUsage()},
		{name: "prompt only", resp: testutil.WithPromptOnly(10)},
		{name: "completion only", resp: &model.Response{Usage: &model.TokenUsage{CompletionTokens: new(int)}}},
		{name: "empty usage", resp: &model.Response{Usage: &model.TokenUsage{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limits := testLimits()
			limits.TokenAccountingMode = FailClosed
			b, _ := newTestBudget(t, limits)

			resp, err := b.Call(context.Background(), model.Request{}, (&testutil.RecordingCall{Response: tt.resp}).Call)
			assert.Nil(t, resp)
			be := requireReason(t, err, ReasonUsageUnavailable)
			assert.ErrorIs(t, err, ErrUsageUnavailable)
			assert.Equal(t, 1, be.Snapshot.StepsUsed)

			snap := b.Snapshot()
			assert.True(t, snap.TokenAccountingReliable)
			_, terminated := b.Terminated()
			assert.False(t, terminated)

			// Not sticky: a later call with usage succeeds.
			_, err = b.Call(context.Background(), model.Request{}, (&testutil.RecordingCall{Response: testutil.WithTotal(5)}).Call)
			assert.NoError(t, err)
		})
	}
}

type recordingObserver struct {
	steps, tools  int
	tokens        []int
	unavailable   int
	exhaustedWith []Reason
	overshoots    []int
}

func (r *recordingObserver) StepConsumed(Snapshot) { r.steps++ }
func (r *recordingObserver) UsageRecorded(_ Snapshot, tokens int, available bool) {
	if !available {
		r.unavailable++
		return
	}
	r.tokens = append(r.tokens, tokens)
}
func (r *recordingObserver) ToolCallRecorded(Snapshot) { r.tools++ }
func (r *recordingObserver) TerminationRecorded(_ Reason, s Snapshot) {
	r.overshoots = append(r.overshoots, s.Overshoot)
}
func (r *recordingObserver) Exhausted(err *Error) {
	r.exhaustedWith = append(r.exhaustedWith, err.Reason)
}

func TestObserver_Notifications(t *testing.T) {
	limits := testLimits()
	limits.MaxTokens = 10
	obs := &recordingObserver{}
	other := &recordingObserver{}
	b, _ := newTestBudget(t, limits, func(o *Options) { o.Observer = Observers{obs, other} })

	_, err := b.Call(context.Background(), model.Request{}, (&testutil.RecordingCall{Response: testutil.WithSplit(4, 3)}).Call)
	require.NoError(t, err)
	require.NoError(t, b.RecordToolCall())
	_, err = b.Call(context.Background(), model.Request{}, (&testutil.RecordingCall{Response: testutil.WithTotal(20)}).Call)
	require.NoError(t, err)
	require.Error(t, b.RecordToolCall())

	assert.Equal(t, 2, obs.steps)
	assert.Equal(t, 1, obs.tools)
	assert.Equal(t, []int{7, 20}, obs.tokens)
	assert.Equal(t, []Reason{ReasonTokenLimit}, obs.exhaustedWith)
	assert.Equal(t, []int{17}, obs.overshoots)
	assert.Equal(t, obs, other)
}
