package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"

	"docsense/client/internal/analysis"
)

func setupTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	c, err := NewRedisCache("redis://"+s.Addr(), 24*time.Hour, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("failed to create record cache: %v", err)
	}
	return c, s
}

func TestSetAndGetRecord(t *testing.T) {
	c, s := setupTestCache(t)
	defer c.Close()
	defer s.Close()

	ctx := context.Background()
	rec := analysis.DocumentRecord{
		ID:        "doc-1",
		Filename:  "lease.pdf",
		Summary:   "a lease",
		KeyPoints: []string{"a", "b"},
	}
	c.Set(ctx, rec)

	got, ok := c.Get(ctx, "doc-1")
	if !ok {
		t.Fatalf("expected a fresh hit")
	}
	if got.Filename != "lease.pdf" || len(got.KeyPoints) != 2 {
		t.Errorf("record mangled: %+v", got)
	}
}

func TestGetMissingRecordIsMiss(t *testing.T) {
	c, s := setupTestCache(t)
	defer c.Close()
	defer s.Close()

	if _, ok := c.Get(context.Background(), "nope"); ok {
		t.Errorf("expected a miss")
	}
}

func TestExpiredRecordIsMiss(t *testing.T) {
	c, s := setupTestCache(t)
	defer c.Close()
	defer s.Close()

	ctx := context.Background()
	c.Set(ctx, analysis.DocumentRecord{ID: "doc-1"})

	// Past the 24h freshness window.
	s.FastForward(25 * time.Hour)

	if _, ok := c.Get(ctx, "doc-1"); ok {
		t.Errorf("expected stale record to be a miss")
	}
}

func TestClearRemovesAllRecords(t *testing.T) {
	c, s := setupTestCache(t)
	defer c.Close()
	defer s.Close()

	ctx := context.Background()
	c.Set(ctx, analysis.DocumentRecord{ID: "doc-1"})
	c.Set(ctx, analysis.DocumentRecord{ID: "doc-2"})

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, ok := c.Get(ctx, "doc-1"); ok {
		t.Errorf("doc-1 survived clear")
	}
	if _, ok := c.Get(ctx, "doc-2"); ok {
		t.Errorf("doc-2 survived clear")
	}
}

func TestClearLeavesForeignKeysAlone(t *testing.T) {
	c, s := setupTestCache(t)
	defer c.Close()
	defer s.Close()

	ctx := context.Background()
	if err := s.Set("someone-elses-key", "value"); err != nil {
		t.Fatalf("seed foreign key: %v", err)
	}
	c.Set(ctx, analysis.DocumentRecord{ID: "doc-1"})

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if !s.Exists("someone-elses-key") {
		t.Errorf("clear deleted keys outside the cache prefix")
	}
}

func TestCorruptRecordIsDropped(t *testing.T) {
	c, s := setupTestCache(t)
	defer c.Close()
	defer s.Close()

	ctx := context.Background()
	if err := s.Set("docsense:record:doc-1", "{not json"); err != nil {
		t.Fatalf("seed corrupt record: %v", err)
	}

	if _, ok := c.Get(ctx, "doc-1"); ok {
		t.Errorf("corrupt record should be a miss")
	}
	if s.Exists("docsense:record:doc-1") {
		t.Errorf("corrupt record should be deleted")
	}
}

func TestNoopCache(t *testing.T) {
	var c RecordCache = Noop{}
	ctx := context.Background()

	c.Set(ctx, analysis.DocumentRecord{ID: "doc-1"})
	if _, ok := c.Get(ctx, "doc-1"); ok {
		t.Errorf("noop cache should never hit")
	}
	if err := c.Clear(ctx); err != nil {
		t.Errorf("noop clear errored: %v", err)
	}
}
