package budget

// Observer is notified of budget state changes. Implementations must not call
// back into the Budget.
type Observer interface {
	// StepConsumed fires once a call attempt passed the checks and was counted.
	StepConsumed(s Snapshot)
	// UsageRecorded fires after a successful call; available is false when the
	// response carried no usable usage data.
	UsageRecorded(s Snapshot, tokens int, available bool)
	// ToolCallRecorded fires after a tool call was accepted.
	ToolCallRecorded(s Snapshot)
	// TerminationRecorded fires once, when the token limit is crossed. s is
	// the stored snapshot including the overshoot.
	TerminationRecorded(reason Reason, s Snapshot)
	// Exhausted fires for every budget error returned to a caller.
	Exhausted(err *Error)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) StepConsumed(Snapshot)                {}
func (NopObserver) UsageRecorded(Snapshot, int, bool)    {}
func (NopObserver) ToolCallRecorded(Snapshot)            {}
func (NopObserver) TerminationRecorded(Reason, Snapshot) {}
func (NopObserver) Exhausted(*Error)                     {}

// Observers fans notifications out to several observers in order.
type Observers []Observer

func (o Observers) StepConsumed(s Snapshot) {
	for _, obs := range o {
		obs.StepConsumed(s)
	}
}

func (o Observers) UsageRecorded(s Snapshot, tokens int, available bool) {
	for _, obs := range o {
		obs.UsageRecorded(s, tokens, available)
	}
}

func (o Observers) ToolCallRecorded(s Snapshot) {
	for _, obs := range o {
		obs.ToolCallRecorded(s)
	}
}

func (o Observers) TerminationRecorded(reason Reason, s Snapshot) {
	for _, obs := range o {
		obs.TerminationRecorded(reason, s)
	}
}

func (o Observers) Exhausted(err *Error) {
	for _, obs := range o {
		obs.Exhausted(err)
	}
}
