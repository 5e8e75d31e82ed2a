package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRegisterValidation(t *testing.T) {
	s := New()
	if err := s.Register(JobSpec{}); err == nil {
		t.Fatal("expected validation error")
	}
	if err := s.Register(JobSpec{Name: "bad-cron", Cron: "not a cron", Run: func(context.Context) error { return nil }}); err == nil {
		t.Fatal("expected cron parse error")
	}

	valid := JobSpec{
		Name: "tick",
		Cron: "* * * * *",
		Run:  func(context.Context) error { return nil },
	}
	if err := s.Register(valid); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := s.Register(valid); !errors.Is(err, ErrJobExists) {
		t.Fatalf("expected ErrJobExists, got: %v", err)
	}
}

func TestRunOnStart(t *testing.T) {
	s := New()
	var runs atomic.Int32

	err := s.Register(JobSpec{
		Name:       "counter",
		Cron:       "0 8 * * MON",
		RunOnStart: true,
		Run: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	deadline := time.After(time.Second)
	for runs.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("expected job to run immediately when RunOnStart is true")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := s.Stop(200 * time.Millisecond); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}

func TestRunOnStartDefaultFalse(t *testing.T) {
	s := New()
	fired := make(chan struct{}, 1)

	err := s.Register(JobSpec{
		Name: "lazy-start",
		Cron: "0 8 * * MON",
		Run: func(context.Context) error {
			select {
			case fired <- struct{}{}:
			default:
			}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer s.Stop(200 * time.Millisecond)

	select {
	case <-fired:
		t.Fatal("did not expect immediate run when RunOnStart is false")
	case <-time.After(15 * time.Millisecond):
	}
}

func TestStartTwice(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer s.Stop(200 * time.Millisecond)

	if err := s.Start(ctx); !errors.Is(err, ErrSchedulerStart) {
		t.Fatalf("expected ErrSchedulerStart, got: %v", err)
	}
}

func TestUnregister(t *testing.T) {
	s := New()
	if err := s.Unregister("missing"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got: %v", err)
	}

	err := s.Register(JobSpec{
		Name: "tick",
		Cron: "* * * * *",
		Run:  func(context.Context) error { return nil },
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := s.Unregister("tick"); err != nil {
		t.Fatalf("unregister failed: %v", err)
	}
	if got := s.Snapshot(); len(got) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", got)
	}
}

func TestSnapshotTracksRuns(t *testing.T) {
	s := New()
	done := make(chan struct{}, 1)

	err := s.Register(JobSpec{
		Name:       "failing",
		Cron:       "0 8 * * MON",
		RunOnStart: true,
		Run: func(context.Context) error {
			select {
			case done <- struct{}{}:
			default:
			}
			return errors.New("boom")
		},
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	status := s.Snapshot()
	if len(status) != 1 || status[0].NextRunAt.IsZero() {
		t.Fatalf("expected a scheduled next run, got %+v", status)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not run")
	}
	if err := s.Stop(time.Second); err != nil {
		t.Fatalf("stop failed: %v", err)
	}

	status = s.Snapshot()
	if status[0].Runs == 0 {
		t.Fatalf("runs not tracked: %+v", status[0])
	}
	if status[0].LastError != "boom" {
		t.Fatalf("last error not tracked: %+v", status[0])
	}
}
