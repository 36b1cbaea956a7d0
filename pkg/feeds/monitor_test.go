package feeds

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sentinel-infra/gridtwin/pkg/cascade"
	"github.com/sentinel-infra/gridtwin/pkg/geo"
	"github.com/sentinel-infra/gridtwin/pkg/metrics"
	"github.com/sentinel-infra/gridtwin/pkg/topology"
)

type stubFeed struct {
	name     string
	triggers []cascade.Trigger
	err      error
	polls    int
}

func (f *stubFeed) Name() string { return f.name }

func (f *stubFeed) Poll(context.Context) ([]cascade.Trigger, error) {
	f.polls++
	return f.triggers, f.err
}

type recordingSubmitter struct {
	submitted []cascade.Trigger
	err       error
}

func (s *recordingSubmitter) Simulate(_ context.Context, trigger cascade.Trigger) (*cascade.Result, error) {
	s.submitted = append(s.submitted, trigger)
	return &cascade.Result{}, s.err
}

// fakeClock hands the monitor a tick channel the test controls.
type fakeClock struct {
	ticks chan time.Time
}

func (f *fakeClock) Now() time.Time                      { return time.Unix(0, 0) }
func (f *fakeClock) Tick(time.Duration) <-chan time.Time { return f.ticks }

func TestTickOnceSubmitsTriggers(t *testing.T) {
	trigger := cascade.Trigger{
		DisasterType: cascade.Flood,
		Epicenter:    geo.Point{Lat: 19.0, Lon: 72.0},
		Severity:     0.5,
	}
	feed := &stubFeed{name: "stub", triggers: []cascade.Trigger{trigger}}
	submitter := &recordingSubmitter{}

	ticked := 0
	monitor := New(submitter, time.Second, feed).OnTick(func() { ticked++ })
	monitor.TickOnce(context.Background())

	if feed.polls != 1 {
		t.Errorf("Expected 1 poll, got %d", feed.polls)
	}
	if len(submitter.submitted) != 1 {
		t.Fatalf("Expected 1 submitted trigger, got %d", len(submitter.submitted))
	}
	if submitter.submitted[0] != trigger {
		t.Errorf("Expected trigger passed through unchanged, got %+v", submitter.submitted[0])
	}
	if ticked != 1 {
		t.Errorf("Expected tick callback once, got %d", ticked)
	}
}

func TestOnTickDrivesFeedTickCounter(t *testing.T) {
	m := metrics.New()
	feed := &stubFeed{name: "stub"}
	monitor := New(&recordingSubmitter{}, time.Second, feed).OnTick(m.FeedTicks.Inc)

	monitor.TickOnce(context.Background())
	monitor.TickOnce(context.Background())

	if got := testutil.ToFloat64(m.FeedTicks); got != 2 {
		t.Errorf("Expected 2 feed ticks recorded, got %f", got)
	}
}

func TestTickOnceSkipsFailingFeed(t *testing.T) {
	broken := &stubFeed{name: "broken", err: fmt.Errorf("upstream outage")}
	working := &stubFeed{name: "working", triggers: []cascade.Trigger{{
		DisasterType: cascade.Fire,
		Epicenter:    geo.Point{Lat: 19.0, Lon: 72.0},
		Severity:     0.4,
	}}}
	submitter := &recordingSubmitter{}

	monitor := New(submitter, time.Second, broken, working)
	monitor.TickOnce(context.Background())

	// The broken feed only skips itself.
	if len(submitter.submitted) != 1 {
		t.Errorf("Expected 1 trigger from the working feed, got %d", len(submitter.submitted))
	}
}

func TestTickOnceToleratesRejectedTrigger(t *testing.T) {
	feed := &stubFeed{name: "stub", triggers: []cascade.Trigger{{
		DisasterType: cascade.DisasterType("meteor"),
		Severity:     0.4,
	}}}
	submitter := &recordingSubmitter{err: fmt.Errorf("invalid trigger")}

	monitor := New(submitter, time.Second, feed)
	monitor.TickOnce(context.Background())

	if len(submitter.submitted) != 1 {
		t.Errorf("Expected submission attempt despite rejection, got %d", len(submitter.submitted))
	}
}

func TestRunPollsOnTicks(t *testing.T) {
	feed := &stubFeed{name: "stub"}
	clock := &fakeClock{ticks: make(chan time.Time)}
	monitor := New(&recordingSubmitter{}, time.Second, feed).WithClock(clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- monitor.Run(ctx) }()

	clock.ticks <- time.Unix(1, 0)
	clock.ticks <- time.Unix(2, 0)
	cancel()

	if err := <-done; err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if feed.polls != 2 {
		t.Errorf("Expected 2 polls, got %d", feed.polls)
	}
}

func TestSimulatedHazardFeed(t *testing.T) {
	districts := topology.DefaultDistricts()

	always := NewSimulatedHazardFeed(districts, 1.0, rand.New(rand.NewSource(5)))
	triggers, err := always.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if len(triggers) != 1 {
		t.Fatalf("Expected 1 trigger at probability 1, got %d", len(triggers))
	}
	trigger := triggers[0]
	if err := trigger.Validate(); err != nil {
		t.Errorf("Expected a valid trigger, got %v", err)
	}
	if trigger.Severity < 0.2 || trigger.Severity > 0.9 {
		t.Errorf("Severity %f outside the simulated band", trigger.Severity)
	}

	never := NewSimulatedHazardFeed(districts, 0.0, rand.New(rand.NewSource(5)))
	triggers, err = never.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if len(triggers) != 0 {
		t.Errorf("Expected no triggers at probability 0, got %d", len(triggers))
	}
}
