package worker

import (
	"context"
	"sync"
	"time"

	"github.com/cesargomez89/iptvcatalog/internal/constants"
	"github.com/cesargomez89/iptvcatalog/internal/domain"
	"github.com/cesargomez89/iptvcatalog/internal/logger"
)

// Runner executes one import run.
type Runner interface {
	Run(ctx context.Context, run *domain.ImportRun) error
}

// Queue is the import run bookkeeping the worker polls.
type Queue interface {
	NextQueuedImportRun(ctx context.Context) (*domain.ImportRun, error)
	ResetStuckImportRuns(ctx context.Context) error
}

// Worker is the single writer of the catalog: it picks queued import runs
// and executes them one after another.
type Worker struct {
	Queue        Queue
	Runner       Runner
	Logger       *logger.Logger
	PollInterval time.Duration
	wg           sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc
	wake         chan struct{}
}

func NewWorker(queue Queue, runner Runner, log *logger.Logger) *Worker {
	if log == nil {
		log = logger.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		Queue:        queue,
		Runner:       runner,
		Logger:       log.WithComponent("worker"),
		PollInterval: constants.DefaultPollInterval,
		ctx:          ctx,
		cancel:       cancel,
		wake:         make(chan struct{}, 1),
	}
}

func (w *Worker) Start() {
	w.Logger.Info("Starting worker")

	if err := w.Queue.ResetStuckImportRuns(w.ctx); err != nil {
		w.Logger.Error("Failed to reset stuck import runs", "error", err)
	}

	w.wg.Add(1)
	go w.processRuns()
}

// Stop cancels the running import, if any, and waits for the loop to exit.
func (w *Worker) Stop() {
	w.Logger.Info("Stopping worker")
	w.cancel()
	w.wg.Wait()
}

// Notify makes the worker poll immediately instead of waiting for the next tick.
func (w *Worker) Notify() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Worker) processRuns() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.PollInterval)
	defer ticker.Stop()

	for {
		w.drain()

		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
		case <-w.wake:
		}
	}
}

// drain runs queued imports until none are left.
func (w *Worker) drain() {
	for w.ctx.Err() == nil {
		run, err := w.Queue.NextQueuedImportRun(w.ctx)
		if err != nil {
			w.Logger.Error("Failed to fetch queued import", "error", err)
			return
		}
		if run == nil {
			return
		}
		w.runImport(run)
	}
}

func (w *Worker) runImport(run *domain.ImportRun) {
	defer func() {
		if r := recover(); r != nil {
			w.Logger.Error("Panic in import run", "import_id", run.ID, "panic", r)
		}
	}()

	w.Logger.Info("Running import", "import_id", run.ID, "force", run.Force)
	if err := w.Runner.Run(w.ctx, run); err != nil {
		w.Logger.Error("Import run failed", "import_id", run.ID, "error", err)
	}
}
