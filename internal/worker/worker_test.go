package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cesargomez89/iptvcatalog/internal/domain"
	"github.com/cesargomez89/iptvcatalog/internal/logger"
)

type memQueue struct {
	mu     sync.Mutex
	runs   []*domain.ImportRun
	resets int
}

func (q *memQueue) NextQueuedImportRun(ctx context.Context) (*domain.ImportRun, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, r := range q.runs {
		if r.Status == domain.ImportStatusQueued {
			return r, nil
		}
	}
	return nil, nil
}

func (q *memQueue) ResetStuckImportRuns(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.resets++
	return nil
}

func (q *memQueue) add(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.runs = append(q.runs, &domain.ImportRun{ID: id, Status: domain.ImportStatusQueued})
}

type recordingRunner struct {
	q       *memQueue
	mu      sync.Mutex
	order   []string
	active  int
	maxSeen int
	fail    bool
}

func (r *recordingRunner) Run(ctx context.Context, run *domain.ImportRun) error {
	r.mu.Lock()
	r.active++
	if r.active > r.maxSeen {
		r.maxSeen = r.active
	}
	r.order = append(r.order, run.ID)
	r.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	r.mu.Lock()
	r.active--
	r.mu.Unlock()

	r.q.mu.Lock()
	defer r.q.mu.Unlock()
	if r.fail {
		run.Status = domain.ImportStatusFailed
		return errors.New("import failed")
	}
	run.Status = domain.ImportStatusCompleted
	return nil
}

func (r *recordingRunner) ran() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Condition not met before deadline")
}

func TestWorker_RunsQueuedImportsSequentially(t *testing.T) {
	q := &memQueue{}
	q.add("a")
	q.add("b")
	q.add("c")
	runner := &recordingRunner{q: q}

	w := NewWorker(q, runner, logger.Discard())
	w.PollInterval = 10 * time.Millisecond
	w.Start()
	defer w.Stop()

	waitFor(t, func() bool { return len(runner.ran()) == 3 })

	got := runner.ran()
	for i, want := range []string{"a", "b", "c"} {
		if got[i] != want {
			t.Errorf("Run %d = %s, want %s", i, got[i], want)
		}
	}
	runner.mu.Lock()
	maxSeen := runner.maxSeen
	runner.mu.Unlock()
	if maxSeen != 1 {
		t.Errorf("Expected one import at a time, saw %d", maxSeen)
	}
	q.mu.Lock()
	resets := q.resets
	q.mu.Unlock()
	if resets != 1 {
		t.Errorf("Expected stuck runs to be reset once, got %d", resets)
	}
}

func TestWorker_NotifyPicksUpNewRun(t *testing.T) {
	q := &memQueue{}
	runner := &recordingRunner{q: q}

	w := NewWorker(q, runner, logger.Discard())
	w.PollInterval = time.Hour
	w.Start()
	defer w.Stop()

	q.add("late")
	w.Notify()

	waitFor(t, func() bool { return len(runner.ran()) == 1 })
}

func TestWorker_ContinuesAfterFailure(t *testing.T) {
	q := &memQueue{}
	q.add("x")
	q.add("y")
	runner := &recordingRunner{q: q, fail: true}

	w := NewWorker(q, runner, logger.Discard())
	w.PollInterval = 10 * time.Millisecond
	w.Start()
	defer w.Stop()

	waitFor(t, func() bool { return len(runner.ran()) == 2 })
}
