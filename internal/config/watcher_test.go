package config

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startWatcher(t *testing.T, path string, cb ReloadCallback) *Watcher {
	t.Helper()
	w, err := NewWatcher(WatcherConfig{FilePath: path, DebounceMillis: 50}, cb)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, w.Stop(ctx))
	})
	return w
}

func TestNewWatcher_Validation(t *testing.T) {
	_, err := NewWatcher(WatcherConfig{}, func(*Config) error { return nil })
	assert.Error(t, err)

	_, err = NewWatcher(WatcherConfig{FilePath: "x.yaml"}, nil)
	assert.Error(t, err)

	w, err := NewWatcher(WatcherConfig{FilePath: "x.yaml"}, func(*Config) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 500, w.config.DebounceMillis)
	assert.NoError(t, w.Stop(context.Background()), "stop before start is a no-op")
}

func TestWatcher_InitialLoad(t *testing.T) {
	path := writeTempConfig(t, "schema_version: v1\nbatch: {concurrency: 3}\n")

	var got atomic.Int32
	startWatcher(t, path, func(cfg *Config) error {
		got.Store(int32(cfg.Batch.Concurrency))
		return nil
	})
	assert.Equal(t, int32(3), got.Load())
}

func TestWatcher_InitialFailures(t *testing.T) {
	bad := writeTempConfig(t, "schema_version: v9\n")
	w, err := NewWatcher(WatcherConfig{FilePath: bad}, func(*Config) error { return nil })
	require.NoError(t, err)
	assert.ErrorContains(t, w.Start(context.Background()), "failed to load initial config")

	good := writeTempConfig(t, "schema_version: v1\n")
	w, err = NewWatcher(WatcherConfig{FilePath: good}, func(*Config) error { return errors.New("rejected") })
	require.NoError(t, err)
	assert.ErrorContains(t, w.Start(context.Background()), "initial callback failed")
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	path := writeTempConfig(t, "schema_version: v1\nbatch: {concurrency: 1}\n")

	var mu sync.Mutex
	var seen []int
	startWatcher(t, path, func(cfg *Config) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, cfg.Batch.Concurrency)
		return nil
	})

	require.NoError(t, os.WriteFile(path, []byte("schema_version: v1\nbatch: {concurrency: 7}\n"), 0o600))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) >= 2 && seen[len(seen)-1] == 7
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatcher_InvalidReloadKeepsPrevious(t *testing.T) {
	path := writeTempConfig(t, "schema_version: v1\n")

	var calls atomic.Int32
	startWatcher(t, path, func(*Config) error {
		calls.Add(1)
		return nil
	})

	require.NoError(t, os.WriteFile(path, []byte("schema_version: v1\nserver: {port: -1}\n"), 0o600))
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	require.NoError(t, os.WriteFile(path, []byte("schema_version: v1\nserver: {port: 8081}\n"), 0o600))
	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, 3*time.Second, 20*time.Millisecond)
}

func TestWatcher_AtomicWrite(t *testing.T) {
	path := writeTempConfig(t, "schema_version: v1\n")

	var last atomic.Int32
	startWatcher(t, path, func(cfg *Config) error {
		last.Store(int32(cfg.Sessions.MaxEntries))
		return nil
	})

	cfg := Default()
	cfg.Sessions.MaxEntries = 42
	require.NoError(t, Write(path, cfg))

	assert.Eventually(t, func() bool { return last.Load() == 42 }, 3*time.Second, 20*time.Millisecond)
}
