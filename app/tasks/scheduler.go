package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/quake-report/app/cfg"
	"github.com/lysyi3m/quake-report/app/database"
	"github.com/lysyi3m/quake-report/app/feed"
	"github.com/lysyi3m/quake-report/app/quake"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	configCache *feed.ConfigCache
	board       *feed.Board
	pipeline    QuakePipeline
	dispatcher  Dispatcher
	runRepo     database.RunRepository
	interval    time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface

	mu          sync.Mutex
	active      map[string]*LoadQuakesTask
	lastStarted map[string]time.Time
	now         func() time.Time
}

func NewScheduler(configCache *feed.ConfigCache, board *feed.Board, pipeline QuakePipeline,
	dispatcher Dispatcher, runRepo database.RunRepository) *Scheduler {
	cfg := cfg.Get()

	return newScheduler(configCache, board, pipeline, dispatcher, runRepo,
		time.Duration(cfg.SchedulerInterval)*time.Second, cfg.WorkerCount)
}

func newScheduler(configCache *feed.ConfigCache, board *feed.Board, pipeline QuakePipeline,
	dispatcher Dispatcher, runRepo database.RunRepository, interval time.Duration, workerCount int) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		configCache: configCache,
		board:       board,
		pipeline:    pipeline,
		dispatcher:  dispatcher,
		runRepo:     runRepo,
		interval:    interval,
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 300),
		active:      make(map[string]*LoadQuakesTask),
		lastStarted: make(map[string]time.Time),
		now:         time.Now,
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.startDueTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.startDueTasks()
			}
		}
	}()
}

// Stop cancels active loads and waits for the workers to exit. Tasks still
// queued are dropped.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for _, task := range s.active {
		task.Cancel()
	}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// RefreshFeed starts a new load for feedName, superseding any load still in
// flight for it. The result replaces the feed's snapshot on the board.
func (s *Scheduler) RefreshFeed(feedName string) (*LoadQuakesTask, error) {
	feedConfig, err := s.configCache.GetConfig(feedName)
	if err != nil {
		return nil, err
	}
	if !feedConfig.Settings.Enabled {
		return nil, fmt.Errorf("feed '%s' is disabled", feedName)
	}

	task := NewLoadQuakesTask(feedName, s.pipeline, s, s.dispatcher, s.runRepo)

	s.mu.Lock()
	if previous := s.active[feedName]; previous != nil {
		previous.Cancel()
	}
	s.active[feedName] = task
	s.lastStarted[feedName] = s.now()
	s.mu.Unlock()

	err = task.Start(feedConfig.URL, func(records []quake.Record, ok bool) {
		s.board.Replace(feedName, records, ok)
		s.clearActive(feedName, task)
	})
	if err != nil {
		s.clearActive(feedName, task)
		return nil, err
	}

	return task, nil
}

func (s *Scheduler) clearActive(feedName string, task *LoadQuakesTask) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active[feedName] == task {
		delete(s.active, feedName)
	}
}

func (s *Scheduler) startDueTasks() {
	if err := s.configCache.Run(); err != nil {
		slog.Warn("Failed to reload feed configurations", "error", err)
	}

	feedConfigs := s.configCache.GetEnabledConfigs()
	s.dropDisabledFeeds(feedConfigs)

	if len(feedConfigs) == 0 {
		slog.Debug("No enabled feed configurations found")
		return
	}

	now := s.now()
	for _, feedConfig := range feedConfigs {
		if !s.isDue(feedConfig, now) {
			continue
		}

		if _, err := s.RefreshFeed(feedConfig.Name); err != nil {
			slog.Warn("Failed to start LoadQuakesTask", "feed", feedConfig.Name, "error", err)
		}
	}
}

// dropDisabledFeeds cancels loads and clears snapshots of feeds that are no
// longer enabled.
func (s *Scheduler) dropDisabledFeeds(enabled map[string]*feed.Config) {
	s.mu.Lock()
	for name, task := range s.active {
		if _, ok := enabled[name]; !ok {
			task.Cancel()
			delete(s.active, name)
		}
	}
	for name := range s.lastStarted {
		if _, ok := enabled[name]; !ok {
			delete(s.lastStarted, name)
		}
	}
	s.mu.Unlock()

	for _, name := range s.board.FeedNames() {
		if _, ok := enabled[name]; !ok {
			s.board.Clear(name)
			slog.Info("Feed disabled, snapshot cleared", "feed", name)
		}
	}
}

func (s *Scheduler) isDue(feedConfig *feed.Config, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task := s.active[feedConfig.Name]; task != nil && task.State() == StateRunning {
		slog.Debug("Feed load still in flight", "feed", feedConfig.Name, "id", task.GetID())
		return false
	}

	last, ok := s.lastStarted[feedConfig.Name]
	if !ok {
		return true
	}

	nextAt := last.Add(time.Duration(feedConfig.Settings.RefreshInterval) * time.Second)
	if nextAt.After(now) {
		slog.Debug("Feed not due for refresh yet", "feed", feedConfig.Name, "next_fetch_at", nextAt)
		return false
	}
	return true
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.MarkStarted()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	if err := task.Execute(taskCtx); err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "feed", task.GetFeedName(), "error", err)
		return
	}

	slog.Debug("Worker task completed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "duration", task.GetDuration().String())
}
