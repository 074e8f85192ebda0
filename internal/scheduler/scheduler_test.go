package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunOnce_ContinuesAfterFailure(t *testing.T) {
	s := NewScheduler()
	var ran []string
	s.Add(Job{Name: "a", Fn: func(ctx context.Context) error {
		ran = append(ran, "a")
		return errors.New("boom")
	}})
	s.Add(Job{Name: "b", Fn: func(ctx context.Context) error {
		ran = append(ran, "b")
		return nil
	}})

	err := s.RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected joined error")
	}
	if len(ran) != 2 || ran[0] != "a" || ran[1] != "b" {
		t.Fatalf("unexpected run order %v", ran)
	}
}

func TestStart_RunsImmediatelyAndOnTick(t *testing.T) {
	s := NewScheduler()
	var count atomic.Int32
	s.Add(Job{Name: "count", Fn: func(ctx context.Context) error {
		count.Add(1)
		return nil
	}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx, 10*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for count.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("job ran %d times, want at least 3", count.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop on cancel")
	}
}

func TestStop_Idempotent(t *testing.T) {
	s := NewScheduler()
	var count atomic.Int32
	s.Add(Job{Name: "count", Fn: func(ctx context.Context) error {
		count.Add(1)
		return nil
	}})

	done := make(chan struct{})
	go func() {
		s.Start(context.Background(), time.Hour)
		close(done)
	}()
	for count.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	s.Stop()
	s.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	if count.Load() != 1 {
		t.Fatalf("job ran %d times, want 1", count.Load())
	}
}
