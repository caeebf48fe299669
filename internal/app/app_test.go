package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeService struct {
	name     string
	startErr error
	block    bool

	mu      sync.Mutex
	stopped bool
	order   *[]string
}

func (s *fakeService) Name() string { return s.name }

func (s *fakeService) Start(ctx context.Context) error {
	if !s.block {
		return s.startErr
	}
	<-ctx.Done()
	return nil
}

func (s *fakeService) Stop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.order != nil {
		*s.order = append(*s.order, s.name)
	}
	return nil
}

func (s *fakeService) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func TestParseMode(t *testing.T) {
	cases := map[string]string{
		"":         ModeAll,
		"all":      ModeAll,
		" API ":    ModeAPI,
		"worker":   ModeWorker,
		"Worker\n": ModeWorker,
	}
	for input, want := range cases {
		got, err := ParseMode(input)
		if err != nil {
			t.Fatalf("ParseMode(%q) error: %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseMode(%q) = %q, want %q", input, got, want)
		}
	}
	if _, err := ParseMode("cron"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestRunnerStopsAllServicesWhenOneExits(t *testing.T) {
	var order []string
	blocking := &fakeService{name: "http", block: true, order: &order}
	failing := &fakeService{name: "scheduler", startErr: errors.New("boom"), order: &order}

	hookCalled := false
	runner := NewRunner(blocking, failing)
	runner.OnShutdown(func() { hookCalled = true })

	err := runner.Run(context.Background(), time.Second, nil)
	if err == nil || err.Error() != "boom" {
		t.Fatalf("expected boom error, got %v", err)
	}
	if !blocking.isStopped() || !failing.isStopped() {
		t.Fatalf("expected all services stopped")
	}
	if len(order) != 2 || order[0] != "scheduler" || order[1] != "http" {
		t.Fatalf("expected reverse stop order, got %v", order)
	}
	if !hookCalled {
		t.Fatalf("expected shutdown hook to run")
	}
}

func TestRunnerCancelledContextReturnsNil(t *testing.T) {
	svc := &fakeService{name: "http", block: true}
	runner := NewRunner(svc)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	if err := runner.Run(ctx, time.Second, nil); err != nil {
		t.Fatalf("expected nil error on cancel, got %v", err)
	}
	if !svc.isStopped() {
		t.Fatalf("expected service stopped")
	}
}

func TestRunnerWithoutServices(t *testing.T) {
	if err := NewRunner().Run(context.Background(), time.Second, nil); err == nil {
		t.Fatalf("expected error without services")
	}
	if err := RunWithOptions(nil, Options{}); err == nil {
		t.Fatalf("expected error for nil runner")
	}
}

func TestBuildRunnerRejectsBadInput(t *testing.T) {
	if _, err := BuildRunner(nil, ModeAll); err == nil {
		t.Fatalf("expected error for nil config")
	}
}
