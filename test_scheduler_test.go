package rxcore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestSchedulerRunsInDueOrderWithStableTies(t *testing.T) {
	sched := NewTestScheduler()
	var events []string

	sched.ScheduleWithDelay(func() { events = append(events, "b@2") }, 2*time.Second)
	sched.ScheduleWithDelay(func() { events = append(events, "a@1") }, time.Second)
	sched.ScheduleWithDelay(func() { events = append(events, "c@2") }, 2*time.Second)
	sched.Schedule(func() { events = append(events, "now") })

	sched.AdvanceTimeBy(2 * time.Second)
	assert.Equal(t, []string{"now", "a@1", "b@2", "c@2"}, events)
}

func TestTestSchedulerClockDuringAction(t *testing.T) {
	sched := NewTestScheduler()
	var seen []time.Duration

	sched.ScheduleWithDelay(func() {
		seen = append(seen, sched.Clock())
		sched.ScheduleWithDelay(func() { seen = append(seen, sched.Clock()) }, time.Second)
	}, 3*time.Second)

	sched.AdvanceTimeTo(10 * time.Second)

	assert.Equal(t, []time.Duration{3 * time.Second, 4 * time.Second}, seen)
	assert.Equal(t, 10*time.Second, sched.Clock())
	assert.Equal(t, testEpoch.Add(10*time.Second), sched.Now())
}

func TestTestSchedulerClockNeverMovesBackwards(t *testing.T) {
	sched := NewTestScheduler()
	sched.AdvanceTimeTo(5 * time.Second)
	sched.AdvanceTimeTo(time.Second)

	assert.Equal(t, 5*time.Second, sched.Clock())
}

func TestTestSchedulerTriggerActions(t *testing.T) {
	sched := NewTestScheduler()
	ran := false
	sched.Schedule(func() { ran = true })

	sched.TriggerActions()
	assert.True(t, ran)
	assert.Equal(t, time.Duration(0), sched.Clock())
}

func TestTestSchedulerDisposedActions(t *testing.T) {
	sched := NewTestScheduler()
	ran := false

	sched.ScheduleWithDelay(func() { ran = true }, time.Second).Dispose()
	assert.Equal(t, 0, sched.PendingActions())

	worker := sched.CreateWorker()
	worker.ScheduleWithDelay(func() { ran = true }, time.Second)
	worker.Dispose()
	assert.True(t, worker.ScheduleWithDelay(func() { ran = true }, 0).IsDisposed())

	sched.AdvanceTimeBy(2 * time.Second)
	assert.False(t, ran)
}

func TestTestSchedulerReportsActionPanics(t *testing.T) {
	sink := captureUnhandled(t)
	sched := NewTestScheduler()
	ran := false

	sched.Schedule(func() { panic("action boom") })
	sched.ScheduleWithDelay(func() { ran = true }, time.Second)

	assert.NotPanics(t, func() { sched.AdvanceTimeBy(time.Second) })
	assert.True(t, ran, "panic之后的任务继续执行")

	errs := sink.errors()
	require.Len(t, errs, 1)
	var producerErr *ProducerError
	assert.ErrorAs(t, errs[0], &producerErr)
}
