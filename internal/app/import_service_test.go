package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cesargomez89/iptvcatalog/internal/catalog"
	"github.com/cesargomez89/iptvcatalog/internal/domain"
	"github.com/cesargomez89/iptvcatalog/internal/logger"
	"github.com/cesargomez89/iptvcatalog/internal/source"
	"github.com/cesargomez89/iptvcatalog/internal/store"
)

const testPayload = `{"data":{"categorizedStreams":{"vod":[
	{"category_id":"10","category_name":"Action","streams":[
		{"stream_id":"1","name":"A"},
		{"stream_id":"2","name":"B"}
	]}
]}}}`

func setupTestDB(t *testing.T) (*store.DB, func()) {
	tmpFile := filepath.Join(t.TempDir(), "test_app.db")
	db, err := store.NewSQLiteDB(tmpFile)
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	cleanup := func() {
		db.Close()
	}
	return db, cleanup
}

type stubFetcher struct {
	payload []byte
	err     error
	calls   int32
	creds   source.Credentials
	// onFetch runs inside Fetch when set.
	onFetch func()
}

func (f *stubFetcher) Fetch(ctx context.Context, creds source.Credentials) ([]byte, error) {
	atomic.AddInt32(&f.calls, 1)
	f.creds = creds
	if f.onFetch != nil {
		f.onFetch()
	}
	return f.payload, f.err
}

func newService(t *testing.T, db *store.DB, fetcher Fetcher) *ImportService {
	t.Helper()
	return NewImportService(db, fetcher, catalog.NewGate(), source.Credentials{URL: "http://example.com/playlist"}, logger.Discard())
}

func enqueueAndRun(t *testing.T, svc *ImportService, force bool) (*domain.ImportRun, error) {
	t.Helper()
	ctx := context.Background()
	run, err := svc.Enqueue(ctx, force)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	runErr := svc.Run(ctx, run)
	final, err := svc.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	return final, runErr
}

func TestImportService_Decide(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	svc := newService(t, db, nil)

	tests := []struct {
		name  string
		setup func()
		force bool
		want  Decision
	}{
		{"empty store", func() {}, false, DecisionImport},
		{"forced on empty", func() {}, true, DecisionForce},
		{"categories without streams", func() {
			db.BulkPutCategories(ctx, []domain.Category{{ID: "vod_1", CategoryID: "1", StreamType: domain.StreamTypeVOD}})
		}, false, DecisionPartial},
		{"populated", func() {
			db.BulkPutStreams(ctx, []domain.Stream{{ID: "1_1", CategoryID: "vod_1", StreamID: "1", StreamType: domain.StreamTypeVOD}})
		}, false, DecisionSkip},
		{"forced when populated", func() {}, true, DecisionForce},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			got, err := svc.Decide(ctx, tt.force)
			if err != nil {
				t.Fatalf("Decide failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Decide = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestImportService_EnqueueDeduplicates(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	svc := newService(t, db, nil)

	run, err := svc.Enqueue(ctx, false)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if run.Status != domain.ImportStatusQueued || run.Source != "http://example.com/playlist" {
		t.Errorf("Unexpected run: %+v", run)
	}

	again, err := svc.Enqueue(ctx, true)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if again.ID != run.ID {
		t.Errorf("Expected existing run %s, got %s", run.ID, again.ID)
	}
}

func TestImportService_ConcurrentEnqueue(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	svc := newService(t, db, nil)

	const callers = 8
	ids := make([]string, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			run, err := svc.Enqueue(ctx, false)
			errs[i] = err
			if run != nil {
				ids[i] = run.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("Enqueue %d failed: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Errorf("Enqueue %d returned run %s, want %s", i, ids[i], ids[0])
		}
	}

	runs, err := svc.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("Expected a single queued run, got %d", len(runs))
	}
}

// largePayload builds a vod payload with categories*perCategory streams.
func largePayload(categories, perCategory int) []byte {
	var b strings.Builder
	b.WriteString(`{"data":{"categorizedStreams":{"vod":[`)
	for c := 0; c < categories; c++ {
		if c > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, `{"category_id":"%d","category_name":"Category %d","streams":[`, c, c)
		for i := 0; i < perCategory; i++ {
			if i > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(&b, `{"stream_id":"%d","name":"Stream %d"}`, i, i)
		}
		b.WriteString(`]}`)
	}
	b.WriteString(`]}}}`)
	return []byte(b.String())
}

func TestImportService_RunWithConcurrentWrites(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	svc := newService(t, db, &stubFetcher{payload: largePayload(20, 1000)})

	done := make(chan struct{})
	var writeErrs atomic.Int32
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; ; i++ {
				select {
				case <-done:
					return
				default:
				}
				if err := svc.Settings.Set(ctx, fmt.Sprintf("scratch_%d", w), fmt.Sprint(i)); err != nil {
					writeErrs.Add(1)
				}
				time.Sleep(time.Millisecond)
			}
		}(w)
	}

	run, err := enqueueAndRun(t, svc, false)
	close(done)
	wg.Wait()

	if err != nil {
		t.Fatalf("Run failed alongside settings writes: %v", err)
	}
	if run.Status != domain.ImportStatusCompleted || run.Streams != 20000 {
		t.Errorf("Unexpected run: %+v", run)
	}
	if n := writeErrs.Load(); n != 0 {
		t.Errorf("Expected settings writes to wait for the import, %d failed", n)
	}
}

func TestImportService_RunRefusesFinishedRun(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	fetcher := &stubFetcher{payload: []byte(testPayload)}
	svc := newService(t, db, fetcher)

	run, err := enqueueAndRun(t, svc, false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if err := svc.Run(context.Background(), run); err == nil {
		t.Error("Expected an error re-running a completed import")
	}
	if n := atomic.LoadInt32(&fetcher.calls); n != 1 {
		t.Errorf("Expected a single fetch, got %d", n)
	}
}

func TestImportService_RunImportsThenSkips(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	fetcher := &stubFetcher{payload: []byte(testPayload)}
	svc := newService(t, db, fetcher)

	run, err := enqueueAndRun(t, svc, false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if run.Status != domain.ImportStatusCompleted || run.Categories != 1 || run.Streams != 2 || run.Progress != 100 {
		t.Errorf("Unexpected completed run: %+v", run)
	}

	last, _ := svc.Settings.Get(ctx, store.SettingLastImportAt)
	if last == "" {
		t.Error("Expected last import time to be recorded")
	}

	second, err := enqueueAndRun(t, svc, false)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if second.Status != domain.ImportStatusSkipped {
		t.Errorf("Expected skipped run, got %s", second.Status)
	}
	if fetcher.calls != 1 {
		t.Errorf("Expected a single fetch, got %d", fetcher.calls)
	}
}

func TestImportService_ForceClearsStaleRows(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	stale := []domain.Stream{{ID: "99_9", CategoryID: "live_99", StreamID: "9", StreamType: domain.StreamTypeLive, Name: "Old"}}
	db.BulkPutCategories(ctx, []domain.Category{{ID: "live_99", CategoryID: "99", StreamType: domain.StreamTypeLive}})
	db.BulkPutStreams(ctx, stale)

	svc := newService(t, db, &stubFetcher{payload: []byte(testPayload)})
	if _, err := enqueueAndRun(t, svc, true); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if _, err := db.GetStream(ctx, "99_9"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected stale stream to be cleared, got %v", err)
	}
	if n, _ := db.CountStreams(ctx); n != 2 {
		t.Errorf("Expected 2 streams, got %d", n)
	}
}

func TestImportService_PartialReimport(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	db.BulkPutCategories(ctx, []domain.Category{{ID: "live_1", CategoryID: "1", StreamType: domain.StreamTypeLive}})

	svc := newService(t, db, &stubFetcher{payload: []byte(testPayload)})
	run, err := enqueueAndRun(t, svc, false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if run.Status != domain.ImportStatusCompleted {
		t.Errorf("Expected completed, got %s", run.Status)
	}
	if _, err := db.GetCategory(ctx, "live_1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected partial import to be cleared, got %v", err)
	}
}

func TestImportService_FailuresKeepCatalog(t *testing.T) {
	tests := []struct {
		name    string
		fetcher *stubFetcher
		wantIs  error
	}{
		{"network failure", &stubFetcher{err: errors.New("connection refused")}, nil},
		{"malformed payload", &stubFetcher{payload: []byte(`{"data":{}}`)}, domain.ErrMalformedPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, cleanup := setupTestDB(t)
			defer cleanup()
			ctx := context.Background()

			db.BulkPutCategories(ctx, []domain.Category{{ID: "live_1", CategoryID: "1", StreamType: domain.StreamTypeLive}})
			db.BulkPutStreams(ctx, []domain.Stream{{ID: "1_1", CategoryID: "live_1", StreamID: "1", StreamType: domain.StreamTypeLive}})

			svc := newService(t, db, tt.fetcher)
			run, err := enqueueAndRun(t, svc, true)
			if err == nil {
				t.Fatal("Expected run to fail")
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("Expected %v, got %v", tt.wantIs, err)
			}
			if run.Status != domain.ImportStatusFailed || run.Error == nil {
				t.Errorf("Expected failed run with error, got %+v", run)
			}
			if n, _ := db.CountStreams(ctx); n != 1 {
				t.Errorf("Expected catalog to be untouched, got %d streams", n)
			}
			if !svc.Gate.Ready() {
				t.Error("Gate left closed after failure")
			}
		})
	}
}

func TestImportService_GateClosedDuringRun(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	var svc *ImportService
	var closedDuringFetch bool
	fetcher := &stubFetcher{payload: []byte(testPayload)}
	fetcher.onFetch = func() { closedDuringFetch = !svc.Gate.Ready() }
	svc = newService(t, db, fetcher)

	if _, err := enqueueAndRun(t, svc, false); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !closedDuringFetch {
		t.Error("Expected gate to be closed while importing")
	}
	if !svc.Gate.Ready() {
		t.Error("Expected gate to reopen")
	}
}

func TestImportService_Credentials(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	fetcher := &stubFetcher{payload: []byte(testPayload)}
	svc := newService(t, db, fetcher)

	creds, err := svc.Credentials(ctx)
	if err != nil {
		t.Fatalf("Credentials failed: %v", err)
	}
	if creds.URL != "http://example.com/playlist" || creds.Username != "" {
		t.Errorf("Expected defaults, got %+v", creds)
	}

	if err := svc.SaveCredentials(ctx, source.Credentials{URL: "http://other/p", Username: "bob", Password: "secret"}); err != nil {
		t.Fatalf("SaveCredentials failed: %v", err)
	}
	if _, err := enqueueAndRun(t, svc, false); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if fetcher.creds.URL != "http://other/p" || fetcher.creds.Username != "bob" || fetcher.creds.Password != "secret" {
		t.Errorf("Fetcher got %+v", fetcher.creds)
	}

	if err := svc.SaveCredentials(ctx, source.Credentials{}); err != nil {
		t.Fatalf("SaveCredentials failed: %v", err)
	}
	creds, _ = svc.Credentials(ctx)
	if creds.URL != "http://example.com/playlist" {
		t.Errorf("Expected default URL after clearing, got %q", creds.URL)
	}
}

func TestImportService_ImportFile(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "playlist.json")
	if err := os.WriteFile(path, []byte(testPayload), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	svc := newService(t, db, nil)
	run, err := svc.ImportFile(ctx, path, false)
	if err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}
	if run.Status != domain.ImportStatusCompleted || run.Source != path || run.Streams != 2 {
		t.Errorf("Unexpected run: %+v", run)
	}

	run, err = svc.ImportFile(ctx, filepath.Join(t.TempDir(), "missing.json"), true)
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
	if run.Status != domain.ImportStatusFailed {
		t.Errorf("Expected failed run, got %s", run.Status)
	}
	if n, _ := db.CountStreams(ctx); n != 2 {
		t.Errorf("Failed file import should keep catalog, got %d streams", n)
	}
}

func TestImportService_ImportFileWhileActive(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	svc := newService(t, db, nil)
	queued, err := svc.Enqueue(ctx, false)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	active, err := svc.ImportFile(ctx, "whatever.json", false)
	if !errors.Is(err, ErrImportInProgress) {
		t.Errorf("Expected ErrImportInProgress, got %v", err)
	}
	if active == nil || active.ID != queued.ID {
		t.Errorf("Expected active run %s, got %+v", queued.ID, active)
	}
}

func TestImportService_Status(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	svc := newService(t, db, &stubFetcher{payload: []byte(testPayload)})
	if _, err := enqueueAndRun(t, svc, false); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	st, err := svc.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if !st.Ready || st.Categories != 1 || st.Streams != 2 {
		t.Errorf("Unexpected status: %+v", st)
	}
	if st.ActiveRun != nil {
		t.Errorf("Expected no active run, got %+v", st.ActiveRun)
	}
	if st.LatestRun == nil || st.LatestRun.Status != domain.ImportStatusCompleted {
		t.Errorf("Expected latest completed run, got %+v", st.LatestRun)
	}
	if _, err := time.Parse(time.RFC3339, st.LastImportAt); err != nil {
		t.Errorf("LastImportAt %q is not RFC3339: %v", st.LastImportAt, err)
	}
}
