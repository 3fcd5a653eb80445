package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/lysyi3m/quake-report/app/database"
	"github.com/lysyi3m/quake-report/app/metrics"
	"github.com/lysyi3m/quake-report/app/quake"
)

type State int32

const (
	StateIdle State = iota
	StateRunning
	StateDelivered
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDelivered:
		return "delivered"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

var ErrTaskAlreadyStarted = errors.New("task already started")

// OnComplete receives the outcome of a load. ok=false means no data: the
// pipeline failed and records is nil.
type OnComplete func(records []quake.Record, ok bool)

// LoadQuakesTask runs the pipeline once on a background worker and hands the
// outcome to its dispatcher. It is single-shot: Idle -> Running ->
// Delivered or Cancelled.
type LoadQuakesTask struct {
	Task
	pipeline   QuakePipeline
	queue      TaskQueue
	dispatcher Dispatcher
	runRepo    database.RunRepository

	state      atomic.Int32
	url        string
	onComplete OnComplete
}

var _ TaskInterface = (*LoadQuakesTask)(nil)

// NewLoadQuakesTask creates an idle task. runRepo may be nil.
func NewLoadQuakesTask(feedName string, pipeline QuakePipeline, queue TaskQueue, dispatcher Dispatcher, runRepo database.RunRepository) *LoadQuakesTask {
	if dispatcher == nil {
		dispatcher = Inline
	}

	return &LoadQuakesTask{
		Task:       NewTask(TaskTypeLoadQuakes, feedName),
		pipeline:   pipeline,
		queue:      queue,
		dispatcher: dispatcher,
		runRepo:    runRepo,
	}
}

func (t *LoadQuakesTask) State() State {
	return State(t.state.Load())
}

// Start queues the load and returns immediately.
func (t *LoadQuakesTask) Start(url string, onComplete OnComplete) error {
	if !t.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return ErrTaskAlreadyStarted
	}
	t.url = url
	t.onComplete = onComplete
	metrics.IncTaskState(StateRunning.String())

	if err := t.queue.EnqueueTask(t); err != nil {
		if t.state.CompareAndSwap(int32(StateRunning), int32(StateCancelled)) {
			metrics.IncTaskState(StateCancelled.String())
		}
		return fmt.Errorf("failed to enqueue load task: %w", err)
	}

	slog.Debug("Load task started", "feed", t.FeedName, "id", t.ID, "url", url)
	return nil
}

// Cancel discards the outcome of a running task. The in-flight request is
// not aborted. No-op in any other state.
func (t *LoadQuakesTask) Cancel() {
	if t.state.CompareAndSwap(int32(StateRunning), int32(StateCancelled)) {
		metrics.IncTaskState(StateCancelled.String())
		slog.Debug("Load task cancelled", "feed", t.FeedName, "id", t.ID)
	}
}

func (t *LoadQuakesTask) Execute(ctx context.Context) error {
	startedAt := time.Now()

	if t.State() != StateRunning {
		slog.Debug("Load task no longer running, skipping", "feed", t.FeedName, "id", t.ID, "state", t.State().String())
		t.recordRun(database.Run{Outcome: database.OutcomeSkipped, StartedAt: startedAt, FinishedAt: startedAt})
		return nil
	}

	records, err := t.pipeline.Run(ctx, t.url)
	finishedAt := time.Now()
	metrics.ObservePipelineDuration(finishedAt.Sub(startedAt))

	run := database.Run{
		Outcome:     database.OutcomeSucceeded,
		RecordCount: len(records),
		StartedAt:   startedAt,
		FinishedAt:  finishedAt,
	}
	if err != nil {
		kind := quake.KindOf(err).String()
		metrics.IncFetchFailure(kind)
		run.Outcome = database.OutcomeFailed
		run.ErrorKind = kind
		run.ErrorMessage = err.Error()
	}
	t.recordRun(run)

	ok := err == nil
	if !t.dispatcher.Post(func() { t.deliver(records, ok) }) {
		if t.state.CompareAndSwap(int32(StateRunning), int32(StateCancelled)) {
			metrics.IncTaskState(StateCancelled.String())
		}
		slog.Warn("Dispatcher stopped, load result discarded", "feed", t.FeedName, "id", t.ID)
	}

	if err != nil {
		return fmt.Errorf("failed to load earthquakes: %w", err)
	}

	slog.Info("Earthquakes loaded", "feed", t.FeedName, "count", len(records), "duration", finishedAt.Sub(startedAt).String())
	return nil
}

// deliver runs on the dispatcher.
func (t *LoadQuakesTask) deliver(records []quake.Record, ok bool) {
	if !t.state.CompareAndSwap(int32(StateRunning), int32(StateDelivered)) {
		slog.Debug("Load task cancelled, result discarded", "feed", t.FeedName, "id", t.ID)
		return
	}
	metrics.IncTaskState(StateDelivered.String())

	if !ok {
		records = nil
	} else {
		metrics.SetRecordsDelivered(t.FeedName, len(records))
	}

	if t.onComplete != nil {
		t.onComplete(records, ok)
	}
}

func (t *LoadQuakesTask) recordRun(run database.Run) {
	if t.runRepo == nil {
		return
	}

	run.TaskID = t.ID
	run.FeedName = t.FeedName
	if _, err := t.runRepo.InsertRun(run); err != nil {
		slog.Warn("Failed to record fetch run", "feed", t.FeedName, "id", t.ID, "error", err)
	}
}
