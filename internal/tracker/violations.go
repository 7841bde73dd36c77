package tracker

// SignalKind is the outcome of one violation observation.
type SignalKind int

const (
	// SignalNone means a clean observation with no prior violations.
	SignalNone SignalKind = iota
	// SignalWarning means a forbidden observation still inside the grace window.
	SignalWarning
	// SignalPenalize means forbidden activity has been sustained for the
	// full grace window and the session should lock.
	SignalPenalize
	// SignalRecovered means a clean observation that ended a violation streak.
	SignalRecovered
)

// Signal is the violation tracker's verdict for a single tick.
type Signal struct {
	Kind SignalKind
	// Remaining is the number of forbidden seconds left before a penalty,
	// set only for SignalWarning.
	Remaining int
}

// ViolationTracker debounces forbidden activity: isolated forbidden samples
// below the grace threshold only warn, sustained forbidden activity for the
// full grace window penalizes. State is per-session and never persisted.
type ViolationTracker struct {
	graceSeconds int
	count        int
}

// NewViolationTracker creates a tracker with the given grace period.
func NewViolationTracker(graceSeconds int) *ViolationTracker {
	return &ViolationTracker{graceSeconds: graceSeconds}
}

// Observe consumes one tick's forbidden verdict and returns the resulting
// signal. The caller resets the tracker when it transitions to locked.
func (v *ViolationTracker) Observe(forbidden bool) Signal {
	if forbidden {
		v.count++
		if v.count >= v.graceSeconds {
			return Signal{Kind: SignalPenalize}
		}
		return Signal{Kind: SignalWarning, Remaining: v.graceSeconds - v.count}
	}

	if v.count > 0 {
		v.count = 0
		return Signal{Kind: SignalRecovered}
	}

	return Signal{Kind: SignalNone}
}

// Reset clears the consecutive-violation counter.
func (v *ViolationTracker) Reset() {
	v.count = 0
}

// Count returns the current consecutive-violation counter.
func (v *ViolationTracker) Count() int {
	return v.count
}

// SetGracePeriod updates the grace window for the next session.
func (v *ViolationTracker) SetGracePeriod(graceSeconds int) {
	v.graceSeconds = graceSeconds
}
