package supervisor

import (
	"context"

	"github.com/jsdx761/nexus/internal/announce"
	"github.com/jsdx761/nexus/internal/reconcile"
	"github.com/jsdx761/nexus/internal/threat"
)

const (
	detectorUnknown      = "unknown"
	detectorConnected    = "connected"
	detectorDisconnected = "disconnected"
)

// readDetector opens the detector feed, consumes it until it ends and
// reconnects after the reconnect delay, until ctx is done.
func (s *Supervisor) readDetector(ctx context.Context) {
	for {
		lines, err := s.detector.Open(ctx)
		if err != nil {
			opsf("detector: open failed: %v", err)
			s.sched.Post(s.detectorDown)
		} else {
			s.sched.Post(s.detectorUp)
			s.consume(ctx, lines)
			s.sched.Post(s.detectorDown)
		}
		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(s.settings.DetectorReconnect):
		}
	}
}

// consume decodes every line of the feed and posts each batch.
func (s *Supervisor) consume(ctx context.Context, lines <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			alerts, errs := threat.ParseDetectorLine(line)
			for _, err := range errs {
				diagf("detector: dropping alert: %v", err)
			}
			batch, errs := threat.DetectorThreats(alerts)
			for _, err := range errs {
				diagf("detector: dropping alert: %v", err)
			}
			tracef("detector: %q -> %d alerts", line, len(batch))
			s.sched.Post(func() { s.onDetectorBatch(batch) })
		}
	}
}

func (s *Supervisor) detectorUp() {
	if s.stopped || s.detectorState == detectorConnected {
		return
	}
	first := s.detectorState == detectorUnknown
	s.detectorState = detectorConnected
	if first {
		s.engine.AnnounceEvent("Radar detector is on")
	} else {
		s.engine.AnnounceEvent("Radar detector is back on")
	}
	s.publishStatus()
}

func (s *Supervisor) detectorDown() {
	if s.stopped {
		return
	}
	was := s.detectorState
	s.detectorState = detectorDisconnected
	if was == detectorConnected {
		s.engine.AnnounceEvent("Radar detector is off")
		s.publishStatus()
	}
}

// onDetectorBatch merges one detector notification into the tracked radar
// alerts. A non-empty batch is announced and re-arms the idle-clear timer
// once its announcement completes.
func (s *Supervisor) onDetectorBatch(batch []*threat.Threat) {
	if s.stopped {
		return
	}
	merged, changed := reconcile.Radar(batch, s.engine.Tracked(announce.SourceRadar))
	if !changed {
		return
	}
	s.idleTask.Cancel()
	s.idleTask = nil
	s.engine.SetRadar(merged, s.armIdleClear)
}

func (s *Supervisor) armIdleClear() {
	if s.stopped {
		return
	}
	s.idleTask.Cancel()
	s.idleTask = s.sched.After(s.settings.RadarIdleClear, func() {
		s.idleTask = nil
		if len(s.engine.Tracked(announce.SourceRadar)) > 0 {
			diagf("detector: idle, clearing radar alerts")
			s.engine.SetRadar(nil, nil)
		}
	})
}
