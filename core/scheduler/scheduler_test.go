package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestParseInterval(t *testing.T) {
	tests := []struct {
		spec string
		want time.Duration
		ok   bool
	}{
		{"@every 5m", 5 * time.Minute, true},
		{"30s", 30 * time.Second, true},
		{"@every -1s", 0, false},
		{"*/5 * * * *", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseInterval(tt.spec)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("%q: got %s, %v", tt.spec, got, err)
		}
	}
}

func TestTickerScheduler_ManualClock(t *testing.T) {
	clock := NewManualClock(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	s := NewTickerScheduler(clock, nil)
	ran := make(chan time.Time, 4)
	if err := s.Add("sweep", "@every 5m", func(ctx context.Context) error {
		ran <- clock.Now()
		return nil
	}); err != nil {
		t.Fatalf("add: %v", err)
	}
	s.Start(context.Background())
	defer s.Stop()

	clock.Advance(4 * time.Minute)
	select {
	case <-ran:
		t.Fatal("job ran before its interval")
	case <-time.After(20 * time.Millisecond):
	}
	clock.Advance(time.Minute)
	select {
	case at := <-ran:
		if at.Minute() != 5 {
			t.Fatalf("unexpected run time %s", at)
		}
	case <-time.After(time.Second):
		t.Fatal("job did not run")
	}
	if err := s.Add("late", "1m", func(context.Context) error { return nil }); err == nil {
		t.Fatal("adding after start must fail")
	}
}

func TestTickerScheduler_ErrorsDoNotStopLoop(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	s := NewTickerScheduler(clock, nil)
	var calls atomic.Int32
	done := make(chan struct{}, 2)
	_ = s.Every("flaky", time.Minute, func(context.Context) error {
		calls.Add(1)
		done <- struct{}{}
		return errors.New("boom")
	})
	s.Start(context.Background())
	for i := 0; i < 2; i++ {
		clock.Advance(time.Minute)
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("run %d missing", i)
		}
	}
	s.Stop()
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestCronScheduler_AddValidatesSpec(t *testing.T) {
	s := NewCronScheduler(nil)
	if err := s.Add("ok", "@every 1h", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Add("bad", "not a spec", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected invalid spec error")
	}
	if s.Entries() != 1 {
		t.Fatalf("expected 1 entry, got %d", s.Entries())
	}
	s.Start(context.Background())
	s.Stop()
}

func TestCronScheduler_RunsJob(t *testing.T) {
	s := NewCronScheduler(nil)
	ran := make(chan struct{}, 1)
	_ = s.Add("fast", "@every 1s", func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	})
	s.Start(context.Background())
	defer s.Stop()
	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("cron job did not run")
	}
}

func TestTickerScheduler_RecoversPanics(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	s := NewTickerScheduler(clock, nil)
	done := make(chan struct{}, 2)
	var calls atomic.Int32
	_ = s.Every("panicky", time.Second, func(context.Context) error {
		defer func() { done <- struct{}{} }()
		if calls.Add(1) == 1 {
			panic("first run")
		}
		return nil
	})
	s.Start(context.Background())
	defer s.Stop()
	for i := 0; i < 2; i++ {
		clock.Advance(time.Second)
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("run %d missing", i)
		}
	}
}
