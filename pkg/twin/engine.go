// Package twin assembles the digital-twin engine: one topology store and
// the simulator, planner, scorer and risk fuser that operate over it. The
// engine is an explicit service object; construct as many as you need and
// they stay fully independent.
package twin

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/sentinel-infra/gridtwin/pkg/cascade"
	"github.com/sentinel-infra/gridtwin/pkg/logger"
	"github.com/sentinel-infra/gridtwin/pkg/metrics"
	"github.com/sentinel-infra/gridtwin/pkg/resilience"
	"github.com/sentinel-infra/gridtwin/pkg/riskfield"
	"github.com/sentinel-infra/gridtwin/pkg/stabilize"
	"github.com/sentinel-infra/gridtwin/pkg/topology"
)

// Options configures a new engine.
type Options struct {
	// Districts seeds the built-in catalog when TopologyFile is empty.
	Districts []topology.District

	// TopologyFile loads the graph from YAML instead of seeding.
	TopologyFile string

	// Seed drives all stochastic draws. Zero means time-seeded.
	Seed int64

	// StabilizationThreshold overrides the default planning threshold
	// when positive.
	StabilizationThreshold float64

	// RiskResolutionDeg is the fused risk grid resolution. Zero picks a
	// half-degree grid.
	RiskResolutionDeg float64

	// Signals overrides the resilience signal source, mainly for tests.
	Signals resilience.Signals

	Log logger.Logger
}

// Engine owns one topology and serializes every simulation against it.
// Results are immutable once returned and safe for concurrent readers.
type Engine struct {
	store     *topology.Store
	simulator *cascade.Simulator
	planner   *stabilize.Planner
	scorer    *resilience.Scorer
	fuser     *riskfield.Fuser
	metrics   *metrics.Metrics
	log       logger.Logger

	// simMu is the single critical section required by the shared mutable
	// node state: one cascade at a time per topology instance.
	simMu sync.Mutex

	resultMu   sync.RWMutex
	lastResult *cascade.Result

	subMu       sync.RWMutex
	subscribers []chan *cascade.Result
}

// New builds an engine from options.
func New(opts Options) (*Engine, error) {
	log := opts.Log
	if log == nil {
		log = logger.New()
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	var store *topology.Store
	var districts []topology.District
	if opts.TopologyFile != "" {
		loaded, fileDistricts, err := topology.LoadFile(opts.TopologyFile)
		if err != nil {
			return nil, fmt.Errorf("twin: %w", err)
		}
		store = loaded
		// Heatmap coordinates come from the file's district catalog when it
		// declares one.
		districts = fileDistricts
		if len(districts) == 0 {
			districts = opts.Districts
		}
	} else {
		districts = opts.Districts
		if len(districts) == 0 {
			districts = topology.DefaultDistricts()
		}
		store = topology.NewStore()
		if err := topology.Seed(store, districts, rng); err != nil {
			return nil, fmt.Errorf("twin: seeding topology: %w", err)
		}
	}

	signals := opts.Signals
	if signals == nil {
		signals = resilience.NewSimulatedSignals(rng)
	}

	resolution := opts.RiskResolutionDeg
	if resolution == 0 {
		resolution = 0.5
	}
	fuser, err := riskfield.NewFuser(riskfield.DefaultBounds(), resolution)
	if err != nil {
		return nil, fmt.Errorf("twin: %w", err)
	}

	simulator := cascade.NewSimulator(store, rng)
	planner := stabilize.NewPlanner(store, simulator, rng)
	if opts.StabilizationThreshold > 0 {
		planner.SetThreshold(opts.StabilizationThreshold)
	}

	store.MarkBaseline()

	engine := &Engine{
		store:     store,
		simulator: simulator,
		planner:   planner,
		scorer:    resilience.NewScorer(store, signals, districts),
		fuser:     fuser,
		metrics:   metrics.New(),
		log:       log,
	}
	log.WithField("nodes", store.NodeCount()).Info("digital twin engine ready")
	return engine, nil
}

// Store exposes the topology for read-mostly consumers (API handlers,
// scenario reports).
func (e *Engine) Store() *topology.Store { return e.store }

// Metrics exposes the engine's Prometheus registry.
func (e *Engine) Metrics() *metrics.Metrics { return e.metrics }

// Simulate runs one cascade behind the engine's critical section. All
// trigger producers, manual or scheduled, funnel through here so node
// health keeps a single consistent view.
func (e *Engine) Simulate(ctx context.Context, trigger cascade.Trigger) (*cascade.Result, error) {
	e.simMu.Lock()
	defer e.simMu.Unlock()

	start := time.Now()
	result, err := e.simulator.Simulate(ctx, trigger)
	if err != nil {
		e.metrics.SimulationsTotal.WithLabelValues(string(trigger.DisasterType), "error").Inc()
		return nil, err
	}

	e.metrics.SimulationsTotal.WithLabelValues(string(trigger.DisasterType), "ok").Inc()
	e.metrics.SimulationSeconds.Observe(time.Since(start).Seconds())
	e.metrics.FailedNodes.Observe(float64(len(result.AffectedNodes)))
	e.metrics.CascadeProbability.Observe(result.CascadeProbability)

	e.resultMu.Lock()
	e.lastResult = result
	e.resultMu.Unlock()

	e.log.WithFields(map[string]interface{}{
		"disaster":    string(trigger.DisasterType),
		"severity":    trigger.Severity,
		"failed":      len(result.AffectedNodes),
		"probability": result.CascadeProbability,
	}).Info("cascade simulation complete")

	e.publish(result)
	return result, nil
}

// GeneratePlan simulates and plans in one serialized step. A
// *stabilize.NotApplicableError passes through untouched so callers can
// treat it as the expected no-action outcome.
func (e *Engine) GeneratePlan(ctx context.Context, trigger cascade.Trigger) (*stabilize.Plan, error) {
	result, err := e.Simulate(ctx, trigger)
	if err != nil {
		return nil, err
	}

	plan, err := e.planner.PlanFromResult(result)
	if err != nil {
		if _, ok := err.(*stabilize.NotApplicableError); ok {
			e.metrics.PlansNotApplicable.Inc()
		}
		return nil, err
	}
	e.metrics.PlansGenerated.Inc()
	return plan, nil
}

// ResetTopology rolls every node back to its pre-damage baseline. It shares
// the simulation critical section so a reset never interleaves with a
// running cascade.
func (e *Engine) ResetTopology() {
	e.simMu.Lock()
	defer e.simMu.Unlock()
	e.store.RestoreBaseline()
	e.log.Info("topology restored to baseline")
}

// ActivePlans lists recent stabilization plans.
func (e *Engine) ActivePlans() []*stabilize.Plan { return e.planner.ActivePlans() }

// ExecuteAction simulates executing one planned action.
func (e *Engine) ExecuteAction(actionID string) (*stabilize.ExecutionRecord, error) {
	record, err := e.planner.ExecuteAction(actionID)
	if err == nil {
		e.metrics.ActionsExecuted.Inc()
	}
	return record, err
}

// ScoreDistrict returns one district's resilience score.
func (e *Engine) ScoreDistrict(district string) (*resilience.DistrictScore, error) {
	return e.scorer.ScoreDistrict(district)
}

// Resilience scores every district.
func (e *Engine) Resilience() ([]*resilience.DistrictScore, error) {
	return e.scorer.ScoreAll()
}

// Heatmap builds the national resilience heatmap.
func (e *Engine) Heatmap() (*resilience.Heatmap, error) {
	return e.scorer.BuildHeatmap()
}

// RiskField fuses the latest cascade result's infrastructure layer with any
// supplied external observations. With no completed simulation it fuses the
// external observations alone.
func (e *Engine) RiskField(external []riskfield.Observation) *riskfield.Field {
	// Copy so appending the infrastructure layer never writes into the
	// caller's backing array.
	observations := append([]riskfield.Observation(nil), external...)
	e.resultMu.RLock()
	if e.lastResult != nil {
		observations = append(observations, riskfield.InfrastructureLayer(e.lastResult, e.store)...)
	}
	e.resultMu.RUnlock()
	return e.fuser.Fuse(observations)
}

// LastResult returns the most recent simulation result, or nil.
func (e *Engine) LastResult() *cascade.Result {
	e.resultMu.RLock()
	defer e.resultMu.RUnlock()
	return e.lastResult
}

// Subscribe returns a channel receiving every completed simulation result.
// Slow subscribers drop results rather than stalling the engine.
func (e *Engine) Subscribe() <-chan *cascade.Result {
	ch := make(chan *cascade.Result, 8)
	e.subMu.Lock()
	e.subscribers = append(e.subscribers, ch)
	e.subMu.Unlock()
	return ch
}

func (e *Engine) publish(result *cascade.Result) {
	e.subMu.RLock()
	defer e.subMu.RUnlock()
	for _, ch := range e.subscribers {
		select {
		case ch <- result:
		default:
		}
	}
}
