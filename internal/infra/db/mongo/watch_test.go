package mongo

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeStream stands in for a server-side change stream. Closing events with a
// nil err is a clean server-side end; with a non-nil err it is a broken
// stream.
type fakeStream struct {
	events chan bool
	err    error
}

func (f *fakeStream) Next(ctx context.Context) bool {
	select {
	case v, ok := <-f.events:
		return ok && v
	case <-ctx.Done():
		return false
	}
}

func (f *fakeStream) Err() error                  { return f.err }
func (f *fakeStream) Close(context.Context) error { return nil }

func waitSnapshot(t *testing.T, ch chan []string) []string {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

// A write landing while no stream is open, whether before the first open or
// during an outage, must reach the subscriber through the re-query that
// follows the next successful open.
func TestRunWatchRecoversMissedChanges(t *testing.T) {
	var mu sync.Mutex
	data := []string{"a"}
	setData := func(v ...string) {
		mu.Lock()
		data = v
		mu.Unlock()
	}
	query := func(context.Context) ([]string, error) {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), data...), nil
	}

	snapshots := make(chan []string, 16)
	fn := func(s []string, err error) {
		assert.NoError(t, err)
		snapshots <- s
	}

	first := &fakeStream{events: make(chan bool), err: errors.New("network reset")}
	second := &fakeStream{events: make(chan bool)}
	streams := make(chan *fakeStream, 2)
	streams <- first
	streams <- second
	open := func(context.Context) (changeStream, error) {
		return <-streams, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runWatch(ctx, time.Minute, nil, "test", open, query, fn)

	// Opening the stream is followed by a fresh snapshot, no event needed.
	assert.Equal(t, []string{"a"}, waitSnapshot(t, snapshots))

	// An event triggers a re-query.
	setData("a", "b")
	first.events <- true
	assert.Equal(t, []string{"a", "b"}, waitSnapshot(t, snapshots))

	// The stream breaks; a write during the outage is delivered by the
	// re-query right after the next open, with no event for it.
	setData("a", "b", "c")
	close(first.events)
	assert.Equal(t, []string{"a", "b", "c"}, waitSnapshot(t, snapshots))
}

// A change stream the server ends without error must be re-opened, not
// treated as a finished subscription.
func TestRunWatchReopensAfterCleanEnd(t *testing.T) {
	query := func(context.Context) ([]string, error) {
		return []string{"x"}, nil
	}
	snapshots := make(chan []string, 16)
	fn := func(s []string, err error) {
		assert.NoError(t, err)
		snapshots <- s
	}

	ended := &fakeStream{events: make(chan bool)}
	close(ended.events)
	live := &fakeStream{events: make(chan bool)}
	streams := make(chan *fakeStream, 2)
	streams <- ended
	streams <- live

	var opens atomic.Int32
	open := func(context.Context) (changeStream, error) {
		opens.Add(1)
		return <-streams, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runWatch(ctx, time.Minute, nil, "test", open, query, fn)

	waitSnapshot(t, snapshots)
	waitSnapshot(t, snapshots) // delivered by the re-opened stream
	assert.GreaterOrEqual(t, opens.Load(), int32(2))
}

// Once the resume window is exhausted the failure surfaces through the
// callback instead of dying silently.
func TestRunWatchSurfacesErrorAfterResumeWindow(t *testing.T) {
	query := func(context.Context) ([]string, error) {
		return nil, nil
	}
	errs := make(chan error, 1)
	fn := func(_ []string, err error) {
		if err != nil {
			errs <- err
		}
	}
	open := func(context.Context) (changeStream, error) {
		return nil, errors.New("no replica set")
	}

	go runWatch(context.Background(), 50*time.Millisecond, nil, "test", open, query, fn)

	select {
	case err := <-errs:
		assert.ErrorContains(t, err, "no replica set")
	case <-time.After(5 * time.Second):
		t.Fatal("watcher exited without surfacing the failure")
	}
}
