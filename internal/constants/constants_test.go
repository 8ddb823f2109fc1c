package constants

import (
	"testing"
	"time"
)

func TestDefaultValues(t *testing.T) {
	if DefaultPort != "8080" {
		t.Errorf("Expected DefaultPort to be '8080', got '%s'", DefaultPort)
	}

	if DefaultDBPath != "iptvcatalog.db" {
		t.Errorf("Expected DefaultDBPath to be 'iptvcatalog.db', got '%s'", DefaultDBPath)
	}

	if DefaultPlaylistURL == "" {
		t.Error("DefaultPlaylistURL should not be empty")
	}
}

func TestImportConstants(t *testing.T) {
	if StreamChunkSize != 1000 {
		t.Errorf("Expected StreamChunkSize to be 1000, got %d", StreamChunkSize)
	}

	if CategoryProgressWeight+StreamProgressWeight != 100 {
		t.Errorf("Progress weights should add up to 100, got %v", CategoryProgressWeight+StreamProgressWeight)
	}

	if AssumedStreamTotal <= 0 {
		t.Error("AssumedStreamTotal should be positive")
	}
}

func TestPaginationConstants(t *testing.T) {
	if MaxSearchResults != 100 {
		t.Errorf("Expected MaxSearchResults to be 100, got %d", MaxSearchResults)
	}

	if DefaultPageSize < 1 || DefaultPageSize > MaxPageSize {
		t.Errorf("DefaultPageSize %d should be within [1, %d]", DefaultPageSize, MaxPageSize)
	}
}

func TestIndexNames(t *testing.T) {
	names := []string{
		IndexStreamType,
		IndexStreamTypeCategoryID,
		IndexCategoryID,
		IndexCategoryIDStreamID,
		IndexName,
	}

	seen := make(map[string]bool)
	for _, n := range names {
		if n == "" {
			t.Error("Index name should not be empty")
		}
		if seen[n] {
			t.Errorf("Duplicate index name %q", n)
		}
		seen[n] = true
	}
}

func TestTimeouts(t *testing.T) {
	durations := map[string]time.Duration{
		"DefaultPlaylistTimeout": DefaultPlaylistTimeout,
		"DefaultPollInterval":    DefaultPollInterval,
		"DefaultRetryBase":       DefaultRetryBase,
		"DefaultGateTimeout":     DefaultGateTimeout,
	}

	for name, d := range durations {
		if d <= 0 {
			t.Errorf("%s should be positive, got %v", name, d)
		}
	}
}
