// Package supervisor feeds the announcement engine. It polls the reports
// and aircraft sources with bounded retries, tracks their availability,
// probes network reachability, follows the vehicle location and consumes
// the radar detector feed.
//
// All state lives on the scheduler goroutine. Fetches and the detector feed
// run on their own goroutines and hand their results back with Post.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jsdx761/nexus/internal/announce"
	"github.com/jsdx761/nexus/internal/geo"
	"github.com/jsdx761/nexus/internal/reconcile"
	"github.com/jsdx761/nexus/internal/threat"
	"github.com/jsdx761/nexus/internal/timeutil"
)

// SourceSettings configures one polled source.
type SourceSettings struct {
	// MaxDistance in miles; records farther away are dropped.
	MaxDistance float64
	Interval    time.Duration
	RetryCount  int
	RetryDelay  time.Duration
}

// Settings is the immutable configuration of a Supervisor.
type Settings struct {
	Reports SourceSettings
	// DuplicateDistance is the radius in miles within which two reports of
	// the same type are the same hazard.
	DuplicateDistance float64

	Aircraft SourceSettings
	// AnonymousInterval replaces Aircraft.Interval when the aircraft source
	// is used without credentials.
	AnonymousInterval time.Duration
	Authenticated     bool

	// Network probe schedule.
	ProbeInterval   time.Duration
	ProbeRetryCount int
	ProbeRetryDelay time.Duration

	// LocationGrace delays the location-lost transition.
	LocationGrace time.Duration
	// HeadingThreshold is the distance in meters the vehicle must move
	// before the heading is recomputed from consecutive fixes.
	HeadingThreshold float64
	// UseDeviceHeading prefers the heading reported with a fix.
	UseDeviceHeading bool

	DetectorReconnect time.Duration
	RadarIdleClear    time.Duration

	// ReportsSourceName is spoken in reports availability messages.
	ReportsSourceName string
}

// DefaultSettings returns the stock supervisor settings.
func DefaultSettings() Settings {
	return Settings{
		Reports: SourceSettings{
			MaxDistance: 2.0, Interval: 24 * time.Second,
			RetryCount: 2, RetryDelay: 5 * time.Second,
		},
		DuplicateDistance: 0.2,
		Aircraft: SourceSettings{
			MaxDistance: 5.0, Interval: 24 * time.Second,
			RetryCount: 2, RetryDelay: 5 * time.Second,
		},
		AnonymousInterval: 240 * time.Second,
		ProbeInterval:     15 * time.Second,
		ProbeRetryCount:   2,
		ProbeRetryDelay:   5 * time.Second,
		LocationGrace:     10 * time.Second,
		HeadingThreshold:  40,
		DetectorReconnect: 5 * time.Second,
		RadarIdleClear:    10 * time.Second,
		ReportsSourceName: "Crowd-sourced",
	}
}

// Prober checks network reachability.
type Prober interface {
	Probe(ctx context.Context) error
}

// Detector opens the radar detector line feed. The returned channel is
// closed when the feed ends.
type Detector interface {
	Open(ctx context.Context) (<-chan string, error)
}

// Deps are the collaborators of a Supervisor. Nil sources are disabled.
type Deps struct {
	Scheduler *timeutil.Scheduler
	Engine    *announce.Engine
	Reports   Fetcher
	Aircraft  Fetcher
	Network   Prober
	Detector  Detector
	// RunFetch runs a fetch job of a polled source. Nil hands the job to
	// the source's worker started by Run.
	RunFetch func(job func(ctx context.Context))
}

// ErrNoSources is returned when no reports, aircraft or detector source is
// enabled.
var ErrNoSources = errors.New("no threat source enabled")

// Status is a point-in-time view of the supervisor for the API.
type Status struct {
	Reports  string          `json:"reports"`
	Aircraft string          `json:"aircraft"`
	Network  bool            `json:"network"`
	Location bool            `json:"location"`
	Detector string          `json:"detector"`
	Vehicle  *threat.Vehicle `json:"vehicle,omitempty"`
}

// Supervisor drives the polling, location and detector state machines.
type Supervisor struct {
	settings Settings
	sched    *timeutil.Scheduler
	clock    timeutil.Clock
	engine   *announce.Engine
	detector Detector

	reports  *poller
	aircraft *poller
	probe    *poller

	runFetch func(job func(ctx context.Context))
	stopped  bool
	polling  bool

	network     bool
	located     bool
	locationOff bool
	lostTask    *timeutil.Task
	vehicle     threat.Vehicle
	lastFix     *geo.Position

	detectorState string
	idleTask      *timeutil.Task

	mu     sync.RWMutex
	status Status
}

// New creates a Supervisor. It fails when no source is enabled.
func New(settings Settings, deps Deps) (*Supervisor, error) {
	if deps.Scheduler == nil || deps.Engine == nil {
		return nil, errors.New("supervisor needs a scheduler and an engine")
	}
	if deps.Reports == nil && deps.Aircraft == nil && deps.Detector == nil {
		return nil, ErrNoSources
	}
	s := &Supervisor{
		settings:      settings,
		sched:         deps.Scheduler,
		clock:         deps.Scheduler.Clock(),
		engine:        deps.Engine,
		detector:      deps.Detector,
		runFetch:      deps.RunFetch,
		network:       true,
		detectorState: "disabled",
	}
	if deps.Detector != nil {
		s.detectorState = detectorUnknown
	}

	if deps.Reports != nil {
		label := settings.ReportsSourceName + " alerts"
		s.reports = &poller{
			s: s, name: "reports", fetcher: deps.Reports, gated: true,
			interval:   settings.Reports.Interval,
			retries:    settings.Reports.RetryCount,
			retryDelay: settings.Reports.RetryDelay,
			apply:      s.applyReports,
			onChange: func(from, to Availability) {
				s.engine.AnnounceEvent(availabilityMessage(label, from, to))
			},
		}
	}
	if deps.Aircraft != nil {
		interval := settings.Aircraft.Interval
		if !settings.Authenticated && settings.AnonymousInterval > 0 {
			interval = settings.AnonymousInterval
		}
		s.aircraft = &poller{
			s: s, name: "aircraft", fetcher: deps.Aircraft, gated: true,
			interval:   interval,
			retries:    settings.Aircraft.RetryCount,
			retryDelay: settings.Aircraft.RetryDelay,
			apply:      s.applyAircraft,
			onChange: func(from, to Availability) {
				s.engine.AnnounceEvent(availabilityMessage("Aircraft alerts", from, to))
			},
		}
	}
	if deps.Network != nil {
		prober := deps.Network
		s.probe = &poller{
			s: s, name: "network",
			fetcher: FetcherFunc(func(ctx context.Context, _ threat.Vehicle) ([]*threat.Threat, error) {
				return nil, prober.Probe(ctx)
			}),
			interval:   settings.ProbeInterval,
			retries:    settings.ProbeRetryCount,
			retryDelay: settings.ProbeRetryDelay,
			onChange:   s.networkChanged,
		}
	}
	for _, p := range s.pollers() {
		if p.interval <= 0 {
			return nil, fmt.Errorf("%s interval must be positive, got %v", p.name, p.interval)
		}
		p.requests = make(chan func(ctx context.Context), 1)
	}
	s.publishStatus()
	return s, nil
}

func (s *Supervisor) pollers() []*poller {
	var out []*poller
	for _, p := range []*poller{s.reports, s.aircraft, s.probe} {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

// Run starts one fetch worker per polled source and the detector reader,
// posts Start onto the scheduler and blocks until ctx is done. Stop must be
// called once the scheduler is no longer running.
func (s *Supervisor) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, p := range s.pollers() {
		wg.Add(1)
		go func(p *poller) {
			defer wg.Done()
			p.work(ctx)
		}(p)
	}
	if s.detector != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.readDetector(ctx)
		}()
	}
	s.sched.Post(s.Start)
	<-ctx.Done()
	wg.Wait()
	return ctx.Err()
}

// Start arms the engine timers and the network probe. Polling of the
// reports and aircraft sources begins with the first location fix.
func (s *Supervisor) Start() {
	s.engine.Start()
	if s.probe != nil {
		s.probe.schedule(0)
	}
	diagf("supervisor started: reports=%t aircraft=%t detector=%t",
		s.reports != nil, s.aircraft != nil, s.detector != nil)
}

// Stop cancels every pending timer and clears the engine.
func (s *Supervisor) Stop() {
	s.stopped = true
	for _, p := range s.pollers() {
		p.cancel()
	}
	s.lostTask.Cancel()
	s.idleTask.Cancel()
	s.lostTask, s.idleTask = nil, nil
	s.engine.Stop()
	diagf("supervisor stopped")
}

// Status returns the current status. Safe for concurrent use.
func (s *Supervisor) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.status
	if st.Vehicle != nil {
		v := *st.Vehicle
		st.Vehicle = &v
	}
	return st
}

func (s *Supervisor) publishStatus() {
	st := Status{
		Reports:  "disabled",
		Aircraft: "disabled",
		Network:  s.network,
		Location: s.located,
		Detector: s.detectorState,
	}
	if s.reports != nil {
		st.Reports = s.reports.state.String()
	}
	if s.aircraft != nil {
		st.Aircraft = s.aircraft.state.String()
	}
	if s.located {
		v := s.vehicle
		st.Vehicle = &v
	}
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}

func (s *Supervisor) networkChanged(from, to Availability) {
	s.network = to == Available
	switch {
	case to == Unavailable:
		s.engine.AnnounceEvent("Network is offline")
	case from == Unavailable:
		s.engine.AnnounceEvent("Network is back online")
	}
}

func (s *Supervisor) applyReports(list []*threat.Threat) {
	inRange := reconcile.WithinRange(list, s.settings.Reports.MaxDistance)
	merged, changed := reconcile.Reports(inRange, s.engine.Tracked(announce.SourceReports), s.settings.DuplicateDistance)
	if changed {
		s.engine.SetReports(merged)
	}
}

func (s *Supervisor) applyAircraft(list []*threat.Threat) {
	inRange := reconcile.WithinRange(list, s.settings.Aircraft.MaxDistance)
	merged, changed := reconcile.Aircraft(inRange, s.engine.Tracked(announce.SourceAircraft))
	if changed {
		s.engine.SetAircraft(merged)
	}
}

// String summarizes the status on one line for logs and debug pages.
func (s *Supervisor) String() string {
	st := s.Status()
	return fmt.Sprintf("reports=%s aircraft=%s network=%t location=%t detector=%s",
		st.Reports, st.Aircraft, st.Network, st.Location, st.Detector)
}
