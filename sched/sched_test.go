package sched

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestScheduleHighestTimeslice(t *testing.T) {
	s := New()
	a := &Task{ID: 1, Priority: 1, Timeslice: 5}
	b := &Task{ID: 2, Priority: 1, Timeslice: 9}
	s.Enqueue(a)
	s.Enqueue(b)

	picked, err := s.Schedule()
	assert.NilError(t, err)
	assert.Equal(t, picked.ID, uint64(2))
}

func TestScheduleTieBreaksRoundRobin(t *testing.T) {
	s := New()
	a := &Task{ID: 1, Priority: 1, Timeslice: 5}
	b := &Task{ID: 2, Priority: 1, Timeslice: 5}
	s.Enqueue(a) // inserted first, so wins the tie
	s.Enqueue(b)

	picked, err := s.Schedule()
	assert.NilError(t, err)
	assert.Equal(t, picked.ID, uint64(1))
}

func TestExpireTimesliceDecaysAndRequeues(t *testing.T) {
	s := New()
	a := &Task{ID: 1, Priority: 3, Timeslice: 10}
	s.Enqueue(a)

	s.ExpireTimeslice(a)
	assert.Equal(t, a.Timeslice, 10/2+3)

	picked, err := s.Schedule()
	assert.NilError(t, err)
	assert.Equal(t, picked.ID, uint64(1))
}

func TestSleepOnRemovesFromRunQueue(t *testing.T) {
	s := New()
	a := &Task{ID: 1, Priority: 1, Timeslice: 1}
	s.Enqueue(a)

	q := NewWaitQueue()
	s.SleepOn(q, a)
	assert.Equal(t, a.State, Sleeping)

	_, err := s.Schedule()
	assert.ErrorContains(t, err, "not runnable")
}

func TestWakeUpOneReleasesLongestWaiting(t *testing.T) {
	s := New()
	a := &Task{ID: 1}
	b := &Task{ID: 2}
	s.Enqueue(a)
	s.Enqueue(b)

	q := NewWaitQueue()
	s.SleepOn(q, a)
	s.SleepOn(q, b)

	woken := s.WakeUpOne(q)
	assert.Equal(t, woken.ID, uint64(1))
	assert.Equal(t, woken.State, Running)
	assert.Equal(t, b.State, Sleeping)
}

func TestWakeUpAllReleasesEveryWaiter(t *testing.T) {
	s := New()
	a := &Task{ID: 1}
	b := &Task{ID: 2}
	s.Enqueue(a)
	s.Enqueue(b)

	q := NewWaitQueue()
	s.SleepOn(q, a)
	s.SleepOn(q, b)

	s.WakeUpAll(q)
	assert.Equal(t, a.State, Running)
	assert.Equal(t, b.State, Running)
}

func TestScheduleTimeoutExpiresToZero(t *testing.T) {
	s := New()
	a := &Task{ID: 1}
	s.Enqueue(a)

	s.ScheduleTimeout(nil, a, 3)
	s.Tick(2)
	assert.Equal(t, a.State, Sleeping)

	s.Tick(1)
	assert.Equal(t, a.State, Running)
	remaining, timedOut := a.TimeoutResult()
	assert.Equal(t, remaining, 0)
	assert.Assert(t, timedOut)
}

func TestScheduleTimeoutWokenEarlyKeepsRemaining(t *testing.T) {
	s := New()
	a := &Task{ID: 1}
	s.Enqueue(a)

	q := NewWaitQueue()
	s.ScheduleTimeout(q, a, 10)
	s.Tick(4)

	s.WakeUp(q)
	assert.Equal(t, a.State, Running)
	remaining, timedOut := a.TimeoutResult()
	assert.Equal(t, remaining, 6)
	assert.Assert(t, !timedOut)

	// a second tick must not resurrect the cancelled timer.
	s.Tick(100)
	assert.Equal(t, a.State, Running)
}
