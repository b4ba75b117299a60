package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeServer struct {
	mu       sync.Mutex
	startErr error
	stopped  bool
}

func (s *fakeServer) Start(ctx context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	<-ctx.Done()
	return nil
}

func (s *fakeServer) Stop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return nil
}

func TestRunContextStopsOnCancel(t *testing.T) {
	srv := &fakeServer{}
	var cleaned bool
	a := New("test", nil, WithServer(srv), WithCleanup(func() { cleaned = true }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.NoError(t, a.RunContext(ctx))
	assert.True(t, srv.stopped)
	assert.True(t, cleaned)
}

func TestRunContextReturnsServerError(t *testing.T) {
	boom := errors.New("listen failed")
	a := New("test", nil, WithServer(&fakeServer{startErr: boom}), WithShutdownTimeout(time.Second))

	done := make(chan error, 1)
	go func() { done <- a.RunContext(context.Background()) }()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, boom)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop after server failure")
	}
}

func TestLifecycleOrder(t *testing.T) {
	lc := NewLifecycle(nil)
	var order []string
	for _, name := range []string{"a", "b", "c"} {
		lc.Append(Hook{
			Name:    name,
			OnStart: func(context.Context) error { order = append(order, "start:"+name); return nil },
			OnStop:  func(context.Context) error { order = append(order, "stop:"+name); return nil },
		})
	}
	boom := errors.New("close failed")
	lc.OnStop("d", func(context.Context) error { return boom })

	ctx := context.Background()
	require.NoError(t, lc.Start(ctx))
	assert.ErrorIs(t, lc.Stop(ctx), boom)
	assert.Equal(t, []string{"start:a", "start:b", "start:c", "stop:c", "stop:b", "stop:a"}, order)

	assert.NoError(t, lc.Stop(ctx))
}
