// Package feeds runs the background hazard watch: a repeating job that
// polls advisory feeds and submits any detected disaster trigger through
// the twin engine's serialized entry point. The monitor never touches node
// health itself.
package feeds

import (
	"context"
	"math/rand"
	"time"

	"github.com/sentinel-infra/gridtwin/pkg/cascade"
	"github.com/sentinel-infra/gridtwin/pkg/geo"
	"github.com/sentinel-infra/gridtwin/pkg/logger"
	"github.com/sentinel-infra/gridtwin/pkg/topology"
)

// Feed is a source of disaster triggers. Implementations own their retry
// and backoff behavior; a Poll error only skips the current tick.
type Feed interface {
	Name() string
	Poll(ctx context.Context) ([]cascade.Trigger, error)
}

// Submitter accepts triggers on the monitor's behalf; the twin engine
// satisfies it.
type Submitter interface {
	Simulate(ctx context.Context, trigger cascade.Trigger) (*cascade.Result, error)
}

// Clock abstracts time for the monitor so tests can drive ticks
// deterministically.
type Clock interface {
	Now() time.Time
	Tick(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                        { return time.Now() }
func (realClock) Tick(d time.Duration) <-chan time.Time { return time.Tick(d) }

// Monitor is the repeating scheduled job. Construct with New, then either
// Run it under a context or call TickOnce from tests.
type Monitor struct {
	feeds     []Feed
	submitter Submitter
	interval  time.Duration
	clock     Clock
	log       logger.Logger

	onTick func() // optional metrics hook
}

// New creates a monitor polling the given feeds at the given interval.
func New(submitter Submitter, interval time.Duration, feeds ...Feed) *Monitor {
	return &Monitor{
		feeds:     feeds,
		submitter: submitter,
		interval:  interval,
		clock:     realClock{},
		log:       logger.New(),
	}
}

// WithClock swaps the clock; tests use this to control scheduling.
func (m *Monitor) WithClock(clock Clock) *Monitor {
	m.clock = clock
	return m
}

// WithLogger swaps the logger.
func (m *Monitor) WithLogger(log logger.Logger) *Monitor {
	m.log = log
	return m
}

// OnTick registers a callback invoked after every evaluation, used for
// instrumentation.
func (m *Monitor) OnTick(fn func()) *Monitor {
	m.onTick = fn
	return m
}

// Run polls until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	ticks := m.clock.Tick(m.interval)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticks:
			m.TickOnce(ctx)
		}
	}
}

// TickOnce performs one evaluation of every feed. Triggers are submitted
// through the serialized engine entry point, exactly like manual triggers.
func (m *Monitor) TickOnce(ctx context.Context) {
	for _, feed := range m.feeds {
		triggers, err := feed.Poll(ctx)
		if err != nil {
			m.log.WithField("feed", feed.Name()).Warnf("poll failed: %v", err)
			continue
		}
		for _, trigger := range triggers {
			m.log.WithFields(map[string]interface{}{
				"feed":     feed.Name(),
				"disaster": string(trigger.DisasterType),
				"severity": trigger.Severity,
			}).Warn("hazard detected, submitting trigger")
			if _, err := m.submitter.Simulate(ctx, trigger); err != nil {
				m.log.WithField("feed", feed.Name()).Errorf("trigger rejected: %v", err)
			}
		}
	}
	if m.onTick != nil {
		m.onTick()
	}
}

// SimulatedHazardFeed stands in for a live seismic/meteorological feed. On
// each poll it raises a hazard with the configured probability, placed near
// a random district centre.
type SimulatedHazardFeed struct {
	districts   []topology.District
	probability float64
	rng         *rand.Rand
}

// NewSimulatedHazardFeed builds a simulated feed over the district catalog.
func NewSimulatedHazardFeed(districts []topology.District, probability float64, rng *rand.Rand) *SimulatedHazardFeed {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &SimulatedHazardFeed{districts: districts, probability: probability, rng: rng}
}

func (f *SimulatedHazardFeed) Name() string { return "simulated-hazard-feed" }

var hazardTypes = []cascade.DisasterType{cascade.Earthquake, cascade.Flood, cascade.Cyclone, cascade.Fire}

// Poll raises at most one hazard per tick.
func (f *SimulatedHazardFeed) Poll(_ context.Context) ([]cascade.Trigger, error) {
	if len(f.districts) == 0 || f.rng.Float64() >= f.probability {
		return nil, nil
	}

	d := f.districts[f.rng.Intn(len(f.districts))]
	trigger := cascade.Trigger{
		DisasterType: hazardTypes[f.rng.Intn(len(hazardTypes))],
		Epicenter: geo.Point{
			Lat: d.Center.Lat + (f.rng.Float64()-0.5)*0.4,
			Lon: d.Center.Lon + (f.rng.Float64()-0.5)*0.4,
		},
		Severity: 0.2 + f.rng.Float64()*0.7,
	}
	return []cascade.Trigger{trigger}, nil
}
