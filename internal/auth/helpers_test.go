package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/waabox/seerrdeck/internal/auth"
	"github.com/waabox/seerrdeck/internal/platform"
	"github.com/waabox/seerrdeck/internal/storage"
)

// recorder collects the order in which collaborators were touched.
type recorder struct {
	mu    sync.Mutex
	steps []string
}

func (r *recorder) add(step string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, step)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.steps...)
}

// recordingStore wraps a memory store and records every access.
type recordingStore struct {
	inner *storage.Memory
	rec   *recorder
}

func (s *recordingStore) GetItem(ctx context.Context, key string) (string, bool, error) {
	s.rec.add("storage.get")
	return s.inner.GetItem(ctx, key)
}

func (s *recordingStore) SetItem(ctx context.Context, key, value string) error {
	s.rec.add("storage.set")
	return s.inner.SetItem(ctx, key, value)
}

func (s *recordingStore) DeleteItem(ctx context.Context, key string) error {
	s.rec.add("storage.delete")
	return s.inner.DeleteItem(ctx, key)
}

// brokenStore fails every call, like storage that is unavailable.
type brokenStore struct{}

var errStorageDown = errors.New("storage unavailable")

func (brokenStore) GetItem(context.Context, string) (string, bool, error) {
	return "", false, errStorageDown
}
func (brokenStore) SetItem(context.Context, string, string) error { return errStorageDown }
func (brokenStore) DeleteItem(context.Context, string) error      { return errStorageDown }

func testFacts() platform.Facts {
	return platform.Facts{
		OSName:     "iOS",
		OSVersion:  "17.4",
		Brand:      "Apple",
		DeviceName: "Kitchen iPad",
		Model:      "iPad13,1",
		Screen:     platform.Screen{Width: 820, Height: 1180},
		Language:   "en",
	}
}

func testHeaders(t *testing.T) auth.Headers {
	t.Helper()
	h, err := auth.BuildHeaders("d1", auth.ProductInfo{Name: "Seerrdeck"}, testFacts())
	require.NoError(t, err)
	return h
}
