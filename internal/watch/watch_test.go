package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rvachev/trustgate/internal/governance"
	"github.com/rvachev/trustgate/internal/pipeline"
)

func TestWatcherRunsInitialValidation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: demo\n"), 0644))

	results := make(chan *pipeline.Result, 8)
	w := New(pipeline.Config{
		ManifestPath: path,
		Policy:       governance.DefaultPolicy(),
	}, func(res *pipeline.Result, err error) {
		if res != nil {
			results <- res
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case res := <-results:
		assert.True(t, res.Passed)
	case <-time.After(5 * time.Second):
		t.Fatal("no initial validation run")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}

func TestWatcherRevalidatesOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: demo\n"), 0644))

	results := make(chan *pipeline.Result, 8)
	w := New(pipeline.Config{
		ManifestPath: path,
		Policy:       governance.DefaultPolicy(),
	}, func(res *pipeline.Result, err error) {
		if res != nil {
			results <- res
		}
	})
	w.debounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	// Initial run.
	select {
	case <-results:
	case <-time.After(5 * time.Second):
		t.Fatal("no initial run")
	}

	// Give the watcher time to register, then touch the manifest.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("name: demo-v2\n"), 0644))

	select {
	case res := <-results:
		assert.Equal(t, "demo-v2", res.Manifest.Name)
	case <-time.After(5 * time.Second):
		t.Fatal("no re-validation after change")
	}
}
