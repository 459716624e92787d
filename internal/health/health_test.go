package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTrackerBreaker(t *testing.T) {
	tracker := NewTracker(Options{Threshold: 2, Cooldown: 10 * time.Minute})

	var transitions []Transition
	tracker.OnTransition(func(tr Transition) {
		transitions = append(transitions, tr)
	})

	start := time.Unix(1727770000, 0)
	require.True(t, tracker.Allow(start))

	tracker.Failure(start, errors.New("token not found"))
	require.Equal(t, Degraded, tracker.Status().State)
	require.True(t, tracker.Allow(start.Add(time.Minute)))

	tracker.Failure(start.Add(time.Minute), errors.New("token not found"))
	status := tracker.Status()
	require.Equal(t, Broken, status.State)
	require.Equal(t, 2, status.ConsecutiveFailures)
	require.Equal(t, start.Add(11*time.Minute), status.BreakerOpenUntil)

	require.False(t, tracker.Allow(start.Add(5*time.Minute)))

	// cooldown elapsed, exactly one trial
	trialAt := start.Add(12 * time.Minute)
	require.True(t, tracker.Allow(trialAt))
	require.False(t, tracker.Allow(trialAt))

	// failed trial re-opens the breaker
	tracker.Failure(trialAt, errors.New("still down"))
	require.False(t, tracker.Allow(trialAt.Add(time.Minute)))
	require.Equal(t, trialAt.Add(10*time.Minute), tracker.Status().BreakerOpenUntil)

	recoverAt := trialAt.Add(11 * time.Minute)
	require.True(t, tracker.Allow(recoverAt))
	tracker.Success(recoverAt)

	status = tracker.Status()
	require.Equal(t, Healthy, status.State)
	require.Zero(t, status.ConsecutiveFailures)
	require.Empty(t, status.LastError)

	require.Len(t, transitions, 3)
	require.Equal(t, Healthy, transitions[0].From)
	require.Equal(t, Degraded, transitions[0].To)
	require.Equal(t, Degraded, transitions[1].From)
	require.Equal(t, Broken, transitions[1].To)
	require.Equal(t, Broken, transitions[2].From)
	require.Equal(t, Healthy, transitions[2].To)
	require.NoError(t, transitions[2].Err)
}

func TestTrackerWithoutBreaker(t *testing.T) {
	tracker := NewTracker(Options{})
	now := time.Unix(0, 0)
	for i := 0; i < 10; i++ {
		tracker.Failure(now, errors.New("x"))
	}
	require.Equal(t, Degraded, tracker.Status().State)
	require.True(t, tracker.Allow(now))
}

func TestTrackerServeHTTP(t *testing.T) {
	tracker := NewTracker(Options{Threshold: 1, Cooldown: time.Minute})

	rec := httptest.NewRecorder()
	tracker.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var fresh map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fresh))
	require.Equal(t, map[string]any{"state": "healthy", "consecutive_failures": float64(0)}, fresh)

	tracker.Failure(time.Unix(100, 0), errors.New("boom"))
	rec = httptest.NewRecorder()
	tracker.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "broken", body["state"])
	require.Equal(t, "boom", body["last_error"])
	require.Equal(t, float64(1), body["consecutive_failures"])
	require.Contains(t, body, "last_failure")
	require.Contains(t, body, "breaker_open_until")
	require.NotContains(t, body, "last_success")
}
