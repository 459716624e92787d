package health

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

type State int

const (
	Healthy State = iota
	Degraded
	Broken
)

func (s State) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case Degraded:
		return "degraded"
	case Broken:
		return "broken"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Transition is emitted whenever the state changes.
type Transition struct {
	From State
	To   State
	At   time.Time
	// Err is the failure that caused the transition, nil on recovery.
	Err error
}

type Status struct {
	State               State
	ConsecutiveFailures int
	LastError           string
	LastSuccess         time.Time
	LastFailure         time.Time
	// BreakerOpenUntil is set while batches are being skipped.
	BreakerOpenUntil time.Time
}

type statusResponse struct {
	State               State      `json:"state"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastError           string     `json:"last_error,omitempty"`
	LastSuccess         *time.Time `json:"last_success,omitempty"`
	LastFailure         *time.Time `json:"last_failure,omitempty"`
	BreakerOpenUntil    *time.Time `json:"breaker_open_until,omitempty"`
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// MarshalJSON leaves out timestamps that were never set.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(statusResponse{
		State:               s.State,
		ConsecutiveFailures: s.ConsecutiveFailures,
		LastError:           s.LastError,
		LastSuccess:         optionalTime(s.LastSuccess),
		LastFailure:         optionalTime(s.LastFailure),
		BreakerOpenUntil:    optionalTime(s.BreakerOpenUntil),
	})
}

type Options struct {
	// Threshold is the number of consecutive failures that open the
	// breaker, 0 disables the breaker.
	Threshold int
	Cooldown  time.Duration
}

// Tracker counts consecutive batch failures and opens a breaker once they
// reach the threshold. After the cooldown a single trial batch is let
// through, success closes the breaker and failure opens it again.
type Tracker struct {
	opts Options

	mutex     sync.Mutex
	status    Status
	trial     bool
	listeners []func(Transition)
}

func NewTracker(opts Options) *Tracker {
	return &Tracker{opts: opts}
}

// OnTransition registers a callback, callbacks run synchronously outside
// the tracker's lock.
func (t *Tracker) OnTransition(fn func(Transition)) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.listeners = append(t.listeners, fn)
}

// Allow reports whether a batch may run at `now`.
func (t *Tracker) Allow(now time.Time) bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.status.State != Broken {
		return true
	}
	if now.Before(t.status.BreakerOpenUntil) || t.trial {
		return false
	}
	t.trial = true
	return true
}

func (t *Tracker) Success(now time.Time) {
	t.mutex.Lock()
	prev := t.status.State
	t.trial = false
	t.status.State = Healthy
	t.status.ConsecutiveFailures = 0
	t.status.LastError = ""
	t.status.LastSuccess = now
	t.status.BreakerOpenUntil = time.Time{}
	listeners := t.listeners
	t.mutex.Unlock()

	if prev != Healthy {
		emit(listeners, Transition{From: prev, To: Healthy, At: now})
	}
}

func (t *Tracker) Failure(now time.Time, err error) {
	t.mutex.Lock()
	prev := t.status.State
	t.trial = false
	t.status.ConsecutiveFailures++
	t.status.LastFailure = now
	if err != nil {
		t.status.LastError = err.Error()
	}

	t.status.State = Degraded
	if t.opts.Threshold > 0 && t.status.ConsecutiveFailures >= t.opts.Threshold {
		t.status.State = Broken
		t.status.BreakerOpenUntil = now.Add(t.opts.Cooldown)
	}
	next := t.status.State
	listeners := t.listeners
	t.mutex.Unlock()

	if prev != next {
		emit(listeners, Transition{From: prev, To: next, At: now, Err: err})
	}
}

func emit(listeners []func(Transition), tr Transition) {
	for _, fn := range listeners {
		fn(tr)
	}
}

func (t *Tracker) Status() Status {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.status
}

// ServeHTTP writes the status as json, broken is served as 503.
func (t *Tracker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := t.Status()
	w.Header().Set("Content-Type", "application/json")
	if status.State == Broken {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(status)
}
