package supervisor

import (
	"context"
	"time"

	"github.com/jsdx761/nexus/internal/monitoring"
	"github.com/jsdx761/nexus/internal/threat"
	"github.com/jsdx761/nexus/internal/timeutil"
)

// Availability is the state of a polled source.
type Availability int

const (
	Unknown Availability = iota
	Available
	Unavailable
)

func (a Availability) String() string {
	switch a {
	case Available:
		return "available"
	case Unavailable:
		return "unavailable"
	}
	return "unknown"
}

// Fetcher is the fetch collaborator of a polled source: it returns the
// records around the vehicle or fails.
type Fetcher interface {
	Fetch(ctx context.Context, v threat.Vehicle) ([]*threat.Threat, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, v threat.Vehicle) ([]*threat.Threat, error)

func (f FetcherFunc) Fetch(ctx context.Context, v threat.Vehicle) ([]*threat.Threat, error) {
	return f(ctx, v)
}

type fetchRequest struct {
	attempt int
	vehicle threat.Vehicle
}

// poller runs the fetch cycle of one source: fetch, retry a bounded number
// of times with a fixed delay, then report the availability transition and
// wait for the next cycle. Only the fetch itself runs off the scheduler, on
// the poller's own worker.
type poller struct {
	s          *Supervisor
	name       string
	fetcher    Fetcher
	interval   time.Duration
	retries    int
	retryDelay time.Duration
	// gated cycles need the network and a vehicle location.
	gated bool

	state    Availability
	onChange func(from, to Availability)
	apply    func([]*threat.Threat)

	task     *timeutil.Task
	busy     bool
	requests chan func(ctx context.Context)
}

func (p *poller) schedule(d time.Duration) {
	p.task.Cancel()
	p.task = p.s.sched.After(d, p.tick)
}

func (p *poller) cancel() {
	p.task.Cancel()
	p.task = nil
}

func (p *poller) tick() {
	p.task = nil
	if p.busy || p.s.stopped {
		return
	}
	if p.gated && (!p.s.network || !p.s.located) {
		diagf("%s: skipping cycle, network=%t location=%t", p.name, p.s.network, p.s.located)
		monitoring.FetchResults.WithLabelValues(p.name, "skipped").Inc()
		p.transition(Unavailable)
		p.schedule(p.interval)
		return
	}
	p.attempt(0)
}

func (p *poller) attempt(n int) {
	p.task = nil
	p.busy = true
	req := fetchRequest{attempt: n, vehicle: p.s.vehicle}
	tracef("%s: attempt %d", p.name, n)
	job := func(ctx context.Context) {
		list, err := p.fetch(ctx, req)
		p.s.sched.Post(func() { p.result(req, list, err) })
	}
	if p.s.runFetch != nil {
		p.s.runFetch(job)
		return
	}
	p.requests <- job
}

func (p *poller) fetch(ctx context.Context, req fetchRequest) ([]*threat.Threat, error) {
	start := time.Now()
	list, err := p.fetcher.Fetch(ctx, req.vehicle)
	monitoring.FetchDuration.WithLabelValues(p.name).Observe(time.Since(start).Seconds())
	return list, err
}

// work runs fetch jobs until ctx is done.
func (p *poller) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-p.requests:
			job(ctx)
		}
	}
}

func (p *poller) result(req fetchRequest, list []*threat.Threat, err error) {
	p.busy = false
	if p.s.stopped {
		return
	}
	if err != nil {
		monitoring.FetchResults.WithLabelValues(p.name, "error").Inc()
		if req.attempt < p.retries {
			diagf("%s: attempt %d failed, retrying in %v: %v", p.name, req.attempt, p.retryDelay, err)
			next := req.attempt + 1
			p.task = p.s.sched.After(p.retryDelay, func() { p.attempt(next) })
			return
		}
		opsf("%s: giving up after %d attempts: %v", p.name, req.attempt+1, err)
		p.transition(Unavailable)
		p.schedule(p.interval)
		return
	}
	monitoring.FetchResults.WithLabelValues(p.name, "ok").Inc()
	p.transition(Available)
	if p.apply != nil {
		p.apply(list)
	}
	p.schedule(p.interval)
}

func (p *poller) transition(to Availability) {
	from := p.state
	if from == to {
		return
	}
	p.state = to
	diagf("%s: %s -> %s", p.name, from, to)
	monitoring.AvailabilityTransitions.WithLabelValues(p.name, to.String()).Inc()
	if p.onChange != nil {
		p.onChange(from, to)
	}
	p.s.publishStatus()
}

// availabilityMessage returns the spoken form of a polled source transition.
// The first failure is announced like any loss of the source.
func availabilityMessage(label string, from, to Availability) string {
	switch {
	case to == Available && from == Unknown:
		return label + " are on"
	case to == Available:
		return label + " are back on"
	case to == Unavailable:
		return label + " are off"
	}
	return ""
}
