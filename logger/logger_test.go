package logger

import (
	"io"
	"os"
	"sync/atomic"
	"testing"
)

func TestWithComponent(t *testing.T) {
	log := Logger()
	entry := log.WithComponent("test")
	if v, ok := entry.Entry.Data["component"]; !ok || v != "test" {
		t.Fatalf("component field missing: %v", entry.Entry.Data)
	}
}

func TestConfigureInvalidLevel(t *testing.T) {
	// Ensure environment variables do not override the provided level
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("invalid", "json", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestWithEnv(t *testing.T) {
	os.Setenv("FOO", "bar")
	log := Logger()
	entry := log.WithEnv("FOO")
	if v, ok := entry.Entry.Data["FOO"]; !ok || v != "bar" {
		t.Fatalf("env field not set: %v", entry.Entry.Data)
	}
}

func TestFetchCountersAccumulate(t *testing.T) {
	before := atomic.LoadInt64(&catalogReads)
	IncrementCatalogFetch(100)
	IncrementCatalogFetch(50)
	if got := atomic.LoadInt64(&catalogReads) - before; got != 2 {
		t.Fatalf("catalog reads delta = %d, want 2", got)
	}

	v, ok := sources.Load("torn_api")
	if !ok {
		t.Fatal("torn_api source stat not recorded")
	}
	if bytes := atomic.LoadInt64(&v.(*sourceStat).bytes); bytes < 150 {
		t.Fatalf("torn_api bytes = %d, want at least 150", bytes)
	}
}

func TestWarnRecordsFetchComponent(t *testing.T) {
	before := atomic.LoadInt64(&warnsFetch)
	log := Logger()
	log.SetOutput(io.Discard)
	log.WithComponent("torn_reader").Warn("boom")
	if got := atomic.LoadInt64(&warnsFetch) - before; got != 1 {
		t.Fatalf("fetch warns delta = %d, want 1", got)
	}
}
