package supervisor

import (
	"github.com/jsdx761/nexus/internal/announce"
	"github.com/jsdx761/nexus/internal/geo"
	"github.com/jsdx761/nexus/internal/reconcile"
	"github.com/jsdx761/nexus/internal/threat"
)

// Fix is one vehicle location update.
type Fix struct {
	Position geo.Position
	// Heading is the device heading in degrees, when the device has one.
	Heading *float64
}

// OnLocation handles a location update. Safe for concurrent use.
func (s *Supervisor) OnLocation(f Fix) {
	s.sched.Post(func() { s.onLocation(f) })
}

// OnLocationAvailability handles the location provider turning on or off.
// Safe for concurrent use.
func (s *Supervisor) OnLocationAvailability(available bool) {
	s.sched.Post(func() { s.onLocationAvailability(available) })
}

func (s *Supervisor) onLocation(f Fix) {
	if s.stopped {
		return
	}
	s.vehicle.Heading = s.heading(f)
	s.vehicle.Position = f.Position
	pos := f.Position
	s.lastFix = &pos
	s.located = true
	tracef("location %.6f,%.6f heading %.1f", pos.Lat, pos.Lon, s.vehicle.Heading)

	s.onLocationAvailability(true)
	s.relocate()

	if !s.polling {
		s.polling = true
		for _, p := range []*poller{s.reports, s.aircraft} {
			if p != nil {
				p.schedule(0)
			}
		}
		diagf("first location fix, polling started")
	}
	s.publishStatus()
}

// heading picks the vehicle heading for a fix: the device heading when
// preferred and present, else the bearing from the previous fix once the
// vehicle moved far enough, else the last known heading.
func (s *Supervisor) heading(f Fix) float64 {
	if s.settings.UseDeviceHeading && f.Heading != nil {
		return *f.Heading
	}
	if s.lastFix != nil && geo.Distance(*s.lastFix, f.Position) > s.settings.HeadingThreshold {
		return geo.Bearing(*s.lastFix, f.Position)
	}
	return s.vehicle.Heading
}

// relocate re-places tracked reports and aircraft around the new vehicle
// position and lets the engine re-evaluate them.
func (s *Supervisor) relocate() {
	if tracked := s.engine.Tracked(announce.SourceReports); len(tracked) > 0 {
		moved := reconcile.WithinRange(reconcile.Relocate(tracked, s.vehicle), s.settings.Reports.MaxDistance)
		if merged, changed := reconcile.Reports(moved, tracked, s.settings.DuplicateDistance); changed {
			s.engine.SetReports(merged)
		}
	}
	if tracked := s.engine.Tracked(announce.SourceAircraft); len(tracked) > 0 {
		moved := reconcile.WithinRange(reconcile.Relocate(tracked, s.vehicle), s.settings.Aircraft.MaxDistance)
		if merged, changed := reconcile.Aircraft(moved, tracked); changed {
			s.engine.SetAircraft(merged)
		}
	}
}

func (s *Supervisor) onLocationAvailability(available bool) {
	if s.stopped {
		return
	}
	if available {
		if s.lostTask.Cancel() {
			tracef("location back within grace period")
		}
		s.lostTask = nil
		if s.locationOff {
			s.locationOff = false
			s.engine.AnnounceEvent("Location is back on")
			s.publishStatus()
		}
		return
	}
	if s.lostTask != nil || s.locationOff {
		return
	}
	s.lostTask = s.sched.After(s.settings.LocationGrace, s.locationLost)
}

func (s *Supervisor) locationLost() {
	s.lostTask = nil
	s.locationOff = true
	s.located = false
	diagf("location lost")
	s.engine.AnnounceEvent("Location is off")
	s.publishStatus()
}

// Vehicle returns the current vehicle placement and whether it is known.
// Scheduler only.
func (s *Supervisor) Vehicle() (threat.Vehicle, bool) {
	return s.vehicle, s.located
}
