package budget

import (
	"time"

	"github.com/hupe1980/agentguard/logging"
)

// Options configures a Budget.
type Options struct {
	// Clock returns the current time; defaults to time.Now. It must be
	// monotonically non-decreasing.
	Clock    func() time.Time
	Logger   logging.Logger
	Observer Observer
}

// termination is the one-shot record set when the cumulative token limit is
// crossed. A nil *termination means unset.
type termination struct {
	reason   Reason
	snapshot Snapshot
}

// Budget holds the counters of one agent loop. See the package documentation
// for the concurrency precondition.
type Budget struct {
	limits   Limits
	clock    func() time.Time
	logger   logging.Logger
	observer Observer

	startTime     time.Time
	stepsUsed     int
	toolCallsUsed int
	tokensUsed    int
	reliable      bool
	terminated    *termination
}

// New creates a Budget; the timeout window starts now.
func New(limits Limits, optFns ...func(o *Options)) (*Budget, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}

	opts := Options{
		Clock:    time.Now,
		Logger:   logging.NoOpLogger{},
		Observer: NopObserver{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Observer == nil {
		opts.Observer = NopObserver{}
	}

	limits.TokenAccountingMode = limits.Mode()

	return &Budget{
		limits:    limits,
		clock:     opts.Clock,
		logger:    opts.Logger,
		observer:  opts.Observer,
		startTime: opts.Clock(),
		reliable:  true,
	}, nil
}

// Limits returns the configuration the Budget was created with.
func (b *Budget) Limits() Limits { return b.limits }

// Snapshot returns the current state. Overshoot is only reported on the
// TOKEN_LIMIT error itself.
func (b *Budget) Snapshot() Snapshot {
	return buildSnapshot(b, b.clock(), 0)
}

// Terminated reports the recorded termination reason, if any.
func (b *Budget) Terminated() (Reason, bool) {
	if b.terminated == nil {
		return "", false
	}
	return b.terminated.reason, true
}

// Remaining is what is left of each limit, floored at zero.
type Remaining struct {
	Steps     int
	ToolCalls int
	Tokens    int
	Time      time.Duration
}

// Remaining returns what is left of each limit.
func (b *Budget) Remaining() Remaining {
	return Remaining{
		Steps:     max(b.limits.MaxSteps-b.stepsUsed, 0),
		ToolCalls: max(b.limits.MaxToolCalls-b.toolCallsUsed, 0),
		Tokens:    max(b.limits.MaxTokens-b.tokensUsed, 0),
		Time:      max(b.limits.Timeout-b.clock().Sub(b.startTime), 0),
	}
}

func (b *Budget) newError(reason Reason, snap Snapshot) *Error {
	return &Error{Reason: reason, ExecutionID: b.limits.ExecutionID, Snapshot: snap}
}

// exhausted reports err to the logger and observer before it is returned.
func (b *Budget) exhausted(err *Error) error {
	b.logger.Warn("budget.exhausted",
		"execution_id", err.ExecutionID,
		"reason", string(err.Reason),
		"steps_used", err.Snapshot.StepsUsed,
		"tool_calls_used", err.Snapshot.ToolCallsUsed,
		"tokens_used", err.Snapshot.TokensUsed,
	)
	b.observer.Exhausted(err)
	return err
}
