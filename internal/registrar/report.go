package registrar

import (
	"fmt"
	"sync"

	"beacon/internal/capability"
)

// Status classifies the outcome of one registration attempt.
type Status string

const (
	// StatusRegistered means the definition reached the engine.
	StatusRegistered Status = "registered"
	// StatusSkipped means the definition was rejected before touching the
	// engine (missing name, malformed spec).
	StatusSkipped Status = "skipped"
	// StatusReplaced means the definition reached the engine and displaced an
	// earlier registration of the same name within the same kind.
	StatusReplaced Status = "replaced"
)

// Outcome records what happened to a single definition during registration.
// Registration is best-effort: nothing is ever raised to the caller, but every
// attempt leaves an outcome tests and operators can assert on.
type Outcome struct {
	Kind   capability.Kind
	Name   string
	Status Status
	Reason string
}

// Report aggregates the outcomes of one bootstrap pass.
type Report struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (r *Report) add(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

// Outcomes returns a copy of all recorded outcomes in registration order.
func (r *Report) Outcomes() []Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Outcome, len(r.outcomes))
	copy(out, r.outcomes)
	return out
}

// Count returns how many outcomes of the given kind have the given status.
func (r *Report) Count(kind capability.Kind, status Status) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, o := range r.outcomes {
		if o.Kind == kind && o.Status == status {
			n++
		}
	}
	return n
}

// Summary renders a one-line description suitable for the startup log.
func (r *Report) Summary() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var registered, skipped, replaced int
	for _, o := range r.outcomes {
		switch o.Status {
		case StatusRegistered:
			registered++
		case StatusSkipped:
			skipped++
		case StatusReplaced:
			replaced++
		}
	}
	return fmt.Sprintf("%d registered, %d replaced, %d skipped", registered, replaced, skipped)
}
