// Package circuit implements a per-domain three-state circuit breaker
// (closed/open/half-open) shielding extractor adapters from hosts that are
// blocking or erroring repeatedly (§4.12).
package circuit

import (
	"sync"
	"time"
)

// State is one of the three breaker states for a domain.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// RecoveryTimeout is how long a domain stays open before a half-open probe
// is allowed through.
const RecoveryTimeout = 30 * time.Minute

// InactiveCleanupAge marks a domain eligible for state cleanup once it has
// seen no activity for this long.
const InactiveCleanupAge = 24 * time.Hour

type domainState struct {
	state            State
	consecutiveFails int
	halfOpenSuccess  int
	openedAt         time.Time
	lastActivity     time.Time
}

// Breaker tracks per-domain state. It is a process-singleton, constructed
// once at startup and injected into the FlowOrchestrator.
type Breaker struct {
	failureThreshold  int
	openDuration      time.Duration
	successThreshold  int

	mu      sync.Mutex
	domains map[string]*domainState
}

// New constructs a Breaker with the given thresholds.
func New(failureThreshold int, openDuration time.Duration, successThreshold int) *Breaker {
	return &Breaker{
		failureThreshold: failureThreshold,
		openDuration:      openDuration,
		successThreshold:  successThreshold,
		domains:           make(map[string]*domainState),
	}
}

// Allow reports whether a request to domain may proceed. An open breaker
// within the breaker's open duration rejects; past that, it transitions to
// half-open and allows exactly one probe request through.
func (b *Breaker) Allow(domain string, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	d := b.domainLocked(domain, now)
	d.lastActivity = now

	switch d.state {
	case StateClosed:
		return true
	case StateHalfOpen:
		// Exactly one probe in flight at a time: once we've let a caller in,
		// stay closed to everyone else until RecordSuccess/RecordFailure
		// resolves it. halfOpenSuccess = n >= 0 means n probes succeeded and
		// none is in flight; -(n+1) marks a probe in flight after n successes.
		if d.halfOpenSuccess < 0 {
			return false
		}
		d.halfOpenSuccess = -d.halfOpenSuccess - 1
		return true
	case StateOpen:
		if now.Sub(d.openedAt) >= b.openDuration {
			d.state = StateHalfOpen
			d.halfOpenSuccess = -1
			return true
		}
		return false
	default:
		return true
	}
}

// RecordSuccess registers a successful request to domain.
func (b *Breaker) RecordSuccess(domain string, now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	d := b.domainLocked(domain, now)
	d.lastActivity = now

	switch d.state {
	case StateClosed:
		d.consecutiveFails = 0
	case StateHalfOpen:
		if d.halfOpenSuccess < 0 {
			d.halfOpenSuccess = -d.halfOpenSuccess - 1
		}
		d.halfOpenSuccess++
		if d.halfOpenSuccess >= b.successThreshold {
			d.state = StateClosed
			d.consecutiveFails = 0
			d.halfOpenSuccess = 0
		}
	}
}

// RecordFailure registers a failed request to domain.
func (b *Breaker) RecordFailure(domain string, now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	d := b.domainLocked(domain, now)
	d.lastActivity = now

	switch d.state {
	case StateClosed:
		d.consecutiveFails++
		if d.consecutiveFails >= b.failureThreshold {
			d.state = StateOpen
			d.openedAt = now
		}
	case StateHalfOpen:
		d.state = StateOpen
		d.openedAt = now
		d.halfOpenSuccess = 0
	}
}

// StateOf returns domain's current state, mostly for observability/tests.
func (b *Breaker) StateOf(domain string) State {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.domains[domain]
	if !ok {
		return StateClosed
	}
	return d.state
}

// domainLocked returns domain's state, creating it closed if absent. Caller
// must hold b.mu.
func (b *Breaker) domainLocked(domain string, now time.Time) *domainState {
	d, ok := b.domains[domain]
	if !ok {
		d = &domainState{state: StateClosed, lastActivity: now}
		b.domains[domain] = d
	}
	return d
}

// BlockedDomain describes one currently-open domain for observability (§8
// scenario 5: "getBlockedDomains()").
type BlockedDomain struct {
	Domain            string
	OpenedAt          time.Time
	TimeUntilHalfOpen time.Duration
}

// BlockedDomains returns every domain currently in the open state, with the
// remaining time until it becomes eligible for a half-open probe.
func (b *Breaker) BlockedDomains(now time.Time) []BlockedDomain {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []BlockedDomain
	for domain, d := range b.domains {
		if d.state != StateOpen {
			continue
		}
		remaining := b.openDuration - now.Sub(d.openedAt)
		if remaining < 0 {
			remaining = 0
		}
		out = append(out, BlockedDomain{
			Domain:            domain,
			OpenedAt:          d.openedAt,
			TimeUntilHalfOpen: remaining,
		})
	}
	return out
}

// Cleanup removes domains inactive for more than InactiveCleanupAge, called
// periodically by a background sweep.
func (b *Breaker) Cleanup(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for domain, d := range b.domains {
		if now.Sub(d.lastActivity) > InactiveCleanupAge {
			delete(b.domains, domain)
			removed++
		}
	}
	return removed
}
