package coordinator

import (
	"sync"
	"time"
)

type Step string

const (
	StepRouting      Step = "routing"
	StepDomain       Step = "domain"
	StepOptimization Step = "optimization"
	StepCompleted    Step = "completed"
)

type StepTiming struct {
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
}

// FlowState tracks one call's progress through the pipeline. It exists for
// the duration of the call only and is never persisted.
type FlowState struct {
	RequestID   string
	SessionID   string
	CurrentStep Step
	StartedAt   time.Time
	Steps       map[Step]StepTiming

	mu    sync.Mutex
	clock func() time.Time
}

// FlowSnapshot is a point-in-time copy of a FlowState, safe to copy and
// serialize; it carries no lock.
type FlowSnapshot struct {
	RequestID   string              `json:"request_id"`
	SessionID   string              `json:"session_id"`
	CurrentStep Step                `json:"current_step"`
	StartedAt   time.Time           `json:"started_at"`
	Steps       map[Step]StepTiming `json:"steps"`
}

func newFlowState(requestID, sessionID string, clock func() time.Time) *FlowState {
	return &FlowState{
		RequestID: requestID,
		SessionID: sessionID,
		StartedAt: clock(),
		Steps:     make(map[Step]StepTiming),
		clock:     clock,
	}
}

func (f *FlowState) begin(step Step) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CurrentStep = step
	f.Steps[step] = StepTiming{StartedAt: f.clock()}
}

func (f *FlowState) end(step Step) {
	f.mu.Lock()
	defer f.mu.Unlock()
	timing := f.Steps[step]
	timing.EndedAt = f.clock()
	f.Steps[step] = timing
}

func (f *FlowState) complete() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CurrentStep = StepCompleted
}

func (f *FlowState) step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.CurrentStep
}

// timings reports milliseconds spent per step, including steps still in
// flight when a call fails partway.
func (f *FlowState) timings() map[string]int64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make(map[string]int64, len(f.Steps))
	for step, timing := range f.Steps {
		end := timing.EndedAt
		if end.IsZero() {
			end = f.clock()
		}
		out[string(step)] = end.Sub(timing.StartedAt).Milliseconds()
	}
	return out
}

// snapshot returns a copy safe to hand out of the coordinator.
func (f *FlowState) snapshot() FlowSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	steps := make(map[Step]StepTiming, len(f.Steps))
	for k, v := range f.Steps {
		steps[k] = v
	}
	return FlowSnapshot{
		RequestID:   f.RequestID,
		SessionID:   f.SessionID,
		CurrentStep: f.CurrentStep,
		StartedAt:   f.StartedAt,
		Steps:       steps,
	}
}
