package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/cesargomez89/iptvcatalog/internal/catalog"
	"github.com/cesargomez89/iptvcatalog/internal/constants"
	"github.com/cesargomez89/iptvcatalog/internal/domain"
	"github.com/cesargomez89/iptvcatalog/internal/logger"
	"github.com/cesargomez89/iptvcatalog/internal/metrics"
	"github.com/cesargomez89/iptvcatalog/internal/source"
	"github.com/cesargomez89/iptvcatalog/internal/store"
)

// ErrImportInProgress is returned when a run is started while another one is
// queued or running.
var ErrImportInProgress = errors.New("an import is already in progress")

// Decision is the outcome of the import policy.
type Decision string

const (
	DecisionImport  Decision = "import"
	DecisionPartial Decision = "partial"
	DecisionForce   Decision = "force"
	DecisionSkip    Decision = "skip"
)

// Clears reports whether the catalog is emptied before importing.
func (d Decision) Clears() bool {
	return d == DecisionPartial || d == DecisionForce
}

// Fetcher downloads a playlist document.
type Fetcher interface {
	Fetch(ctx context.Context, creds source.Credentials) ([]byte, error)
}

type ImportService struct {
	Repo     *store.DB
	Settings *store.SettingsRepo
	Importer *catalog.Importer
	Gate     *catalog.Gate
	Fetcher  Fetcher
	Defaults source.Credentials
	Logger   *logger.Logger
}

func NewImportService(repo *store.DB, fetcher Fetcher, gate *catalog.Gate, defaults source.Credentials, log *logger.Logger) *ImportService {
	if gate == nil {
		gate = catalog.NewGate()
	}
	if log == nil {
		log = logger.Default()
	}
	return &ImportService{
		Repo:     repo,
		Settings: store.NewSettingsRepo(repo),
		Importer: catalog.NewImporter(repo, log),
		Gate:     gate,
		Fetcher:  fetcher,
		Defaults: defaults,
		Logger:   log.WithComponent("import"),
	}
}

// Decide applies the import policy to the current catalog: import into an
// empty store, redo a partial one that has categories but no streams,
// reimport when forced and skip otherwise.
func (s *ImportService) Decide(ctx context.Context, force bool) (Decision, error) {
	if force {
		return DecisionForce, nil
	}

	categories, err := s.Repo.CountCategories(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to count categories: %w", err)
	}
	streams, err := s.Repo.CountStreams(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to count streams: %w", err)
	}

	switch {
	case categories == 0 && streams == 0:
		return DecisionImport, nil
	case categories > 0 && streams == 0:
		return DecisionPartial, nil
	default:
		return DecisionSkip, nil
	}
}

// Credentials returns the configured playlist credentials with any
// persisted settings applied on top.
func (s *ImportService) Credentials(ctx context.Context) (source.Credentials, error) {
	creds := s.Defaults
	overrides := []struct {
		key string
		dst *string
	}{
		{store.SettingPlaylistURL, &creds.URL},
		{store.SettingPlaylistUsername, &creds.Username},
		{store.SettingPlaylistPassword, &creds.Password},
	}
	for _, o := range overrides {
		v, err := s.Settings.Get(ctx, o.key)
		if err != nil {
			return creds, fmt.Errorf("failed to read setting %s: %w", o.key, err)
		}
		if v != "" {
			*o.dst = v
		}
	}
	return creds, nil
}

// SaveCredentials persists connection parameters. Empty fields clear the
// stored value so the configured default applies again.
func (s *ImportService) SaveCredentials(ctx context.Context, creds source.Credentials) error {
	values := map[string]string{
		store.SettingPlaylistURL:      creds.URL,
		store.SettingPlaylistUsername: creds.Username,
		store.SettingPlaylistPassword: creds.Password,
	}
	for key, v := range values {
		var err error
		if v == "" {
			err = s.Settings.Delete(ctx, key)
		} else {
			err = s.Settings.Set(ctx, key, v)
		}
		if err != nil {
			return fmt.Errorf("failed to save setting %s: %w", key, err)
		}
	}
	return nil
}

// Enqueue queues an import run for the worker. When a run is already queued
// or running, that run is returned instead.
func (s *ImportService) Enqueue(ctx context.Context, force bool) (*domain.ImportRun, error) {
	creds, err := s.Credentials(ctx)
	if err != nil {
		return nil, err
	}

	run, created, err := s.Repo.CreateImportRunUnlessActive(ctx, newRun(creds.URL, force, domain.ImportStatusQueued))
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue import: %w", err)
	}
	if !created {
		s.Logger.Info("Import already pending", "import_id", run.ID, "status", run.Status)
		return run, nil
	}
	s.Logger.Info("Import enqueued", "import_id", run.ID, "force", force)
	return run, nil
}

// Run executes a queued run against the playlist source. A run that already
// finished is not executed again.
func (s *ImportService) Run(ctx context.Context, run *domain.ImportRun) error {
	if run.Finished() {
		return fmt.Errorf("import %s already %s", run.ID, run.Status)
	}
	return s.execute(ctx, run, func(ctx context.Context) ([]byte, error) {
		if s.Fetcher == nil {
			return nil, errors.New("no playlist source configured")
		}
		creds, err := s.Credentials(ctx)
		if err != nil {
			return nil, err
		}
		return s.Fetcher.Fetch(ctx, creds)
	})
}

// ImportFile imports a payload stored on disk, recording it as a run.
func (s *ImportService) ImportFile(ctx context.Context, path string, force bool) (*domain.ImportRun, error) {
	run, created, err := s.Repo.CreateImportRunUnlessActive(ctx, newRun(path, force, domain.ImportStatusQueued))
	if err != nil {
		return nil, fmt.Errorf("failed to record import: %w", err)
	}
	if !created {
		return run, ErrImportInProgress
	}

	err = s.execute(ctx, run, func(context.Context) ([]byte, error) {
		return os.ReadFile(path)
	})

	final, getErr := s.Repo.GetImportRun(context.WithoutCancel(ctx), run.ID)
	if getErr != nil {
		return run, errors.Join(err, getErr)
	}
	return final, err
}

// execute holds the gate closed for the whole run. The payload is loaded and
// parsed before anything is cleared, so a failed download or a malformed
// document leaves the catalog as it was.
func (s *ImportService) execute(ctx context.Context, run *domain.ImportRun, load func(context.Context) ([]byte, error)) (err error) {
	log := s.Logger.WithImport(run.ID)
	start := time.Now()
	// Bookkeeping must land even when ctx is what ended the run.
	bg := context.WithoutCancel(ctx)

	s.Gate.Close()
	defer s.Gate.Open()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during import: %v", r)
		}
		if err != nil {
			log.Error("Import failed", "error", err)
			metrics.ImportRuns.WithLabelValues(string(domain.ImportStatusFailed)).Inc()
			if fErr := s.Repo.FailImportRun(bg, run.ID, err.Error()); fErr != nil {
				log.Error("Failed to record import failure", "error", fErr)
			}
		}
	}()

	if err := s.Repo.UpdateImportStatus(ctx, run.ID, domain.ImportStatusRunning, 0); err != nil {
		return err
	}

	decision, err := s.Decide(ctx, run.Force)
	if err != nil {
		return err
	}
	log.Info("Import decision", "decision", decision)

	if decision == DecisionSkip {
		metrics.ImportRuns.WithLabelValues(string(domain.ImportStatusSkipped)).Inc()
		return s.Repo.CompleteImportRun(bg, run.ID, domain.ImportStatusSkipped, 0, 0, 0)
	}

	payload, err := load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load playlist: %w", err)
	}

	plan, err := s.Importer.Parse(payload)
	if err != nil {
		return err
	}
	log.Info("Playlist parsed", "bytes", len(payload), "categories", plan.Categories(), "items", plan.Items())

	if decision.Clears() {
		if err := s.Repo.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear catalog: %w", err)
		}
		log.Info("Catalog cleared")
	}

	res, err := s.Importer.Write(ctx, plan, func(p catalog.Progress) {
		if uErr := s.Repo.UpdateImportProgress(bg, run.ID, p.Percent); uErr != nil {
			log.Warn("Failed to record progress", "error", uErr)
		}
	})
	if err != nil {
		return err
	}

	if err := s.Repo.CompleteImportRun(bg, run.ID, domain.ImportStatusCompleted, res.Categories, res.Streams, res.Skipped); err != nil {
		return err
	}
	if err := s.Settings.Set(bg, store.SettingLastImportAt, time.Now().UTC().Format(time.RFC3339)); err != nil {
		log.Warn("Failed to record import time", "error", err)
	}

	metrics.ImportRuns.WithLabelValues(string(domain.ImportStatusCompleted)).Inc()
	metrics.ImportDuration.Observe(time.Since(start).Seconds())
	log.Info("Import completed", "categories", res.Categories, "streams", res.Streams, "skipped", res.Skipped, "duration", time.Since(start))
	return nil
}

func newRun(src string, force bool, status domain.ImportStatus) *domain.ImportRun {
	now := time.Now()
	return &domain.ImportRun{
		ID:        uuid.New().String(),
		Status:    status,
		Source:    src,
		Force:     force,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *ImportService) GetRun(ctx context.Context, id string) (*domain.ImportRun, error) {
	return s.Repo.GetImportRun(ctx, id)
}

func (s *ImportService) ListRuns(ctx context.Context) ([]*domain.ImportRun, error) {
	return s.Repo.ListImportRuns(ctx, constants.MaxSearchResults)
}

// Status summarizes the catalog for operators.
type Status struct {
	Ready        bool              `json:"ready"`
	Categories   int               `json:"categories"`
	Streams      int               `json:"streams"`
	LastImportAt string            `json:"lastImportAt,omitempty"`
	ActiveRun    *domain.ImportRun `json:"activeRun,omitempty"`
	LatestRun    *domain.ImportRun `json:"latestRun,omitempty"`
}

func (s *ImportService) Status(ctx context.Context) (*Status, error) {
	st := &Status{Ready: s.Gate.Ready()}

	var err error
	if st.Categories, err = s.Repo.CountCategories(ctx); err != nil {
		return nil, err
	}
	if st.Streams, err = s.Repo.CountStreams(ctx); err != nil {
		return nil, err
	}
	if st.LastImportAt, err = s.Settings.Get(ctx, store.SettingLastImportAt); err != nil {
		return nil, err
	}
	if st.ActiveRun, err = s.Repo.GetActiveImportRun(ctx); err != nil {
		return nil, err
	}
	if st.LatestRun, err = s.Repo.LatestImportRun(ctx); err != nil {
		return nil, err
	}
	return st, nil
}
