// Package threat defines the tracked threat record shared by the
// reconciler, the announcement engine and the UI: one tagged type covering
// detector alerts, crowd-sourced reports and aircraft, plus the per-class
// tables that drive priority, earcons and speech.
package threat

import (
	"math"

	"github.com/jsdx761/nexus/internal/geo"
)

// Class is the variant tag of a threat.
type Class int

const (
	ClassRadar Class = iota
	ClassLaser
	ClassSpeedCam
	ClassRedLightCam
	ClassUserMark
	ClassLockout
	ClassReport
	ClassAircraft
)

// Band is the radar band of a detector alert.
type Band int

const (
	BandNone Band = iota - 1
	BandX
	BandK
	BandKa
	BandPopK
	BandMRCD
	BandMRCT
	BandGT3
	BandGT4
)

// Direction is the side of the vehicle a detector alert comes from.
type Direction int

const (
	DirectionFront Direction = iota
	DirectionSide
	DirectionBack
)

// Alert holds the fields specific to detector alerts (radar, laser and the
// camera/marker classes the detector can report).
type Alert struct {
	Band      Band      `json:"band"`
	Intensity float64   `json:"intensity"`
	Frequency float64   `json:"frequency"`
	Direction Direction `json:"direction"`
}

// Report holds the fields of a crowd-sourced report.
type Report struct {
	Type     string       `json:"type"`
	SubType  string       `json:"subType"`
	City     string       `json:"city"`
	Street   string       `json:"street"`
	ThumbsUp int          `json:"thumbsUp"`
	Position geo.Position `json:"position"`
}

// Aircraft holds the fields of an aircraft state vector joined with its
// registry entry.
type Aircraft struct {
	Transponder  string       `json:"transponder"`
	CallSign     string       `json:"callSign"`
	OnGround     bool         `json:"onGround"`
	Altitude     float64      `json:"altitude"`
	Owner        string       `json:"owner"`
	Manufacturer string       `json:"manufacturer"`
	Kind         string       `json:"kind"`
	Position     geo.Position `json:"position"`
}

// Threat is a tracked hazard. Exactly one of Alert, Report or Aircraft is
// set, matching Class.
type Threat struct {
	Class    Class     `json:"class"`
	Alert    *Alert    `json:"alert,omitempty"`
	Report   *Report   `json:"report,omitempty"`
	Aircraft *Aircraft `json:"aircraft,omitempty"`

	// Distance from the vehicle in miles.
	Distance float64 `json:"distance"`
	// BearingHour is the clock position relative to the vehicle heading.
	BearingHour int  `json:"bearingHour"`
	Priority    int  `json:"priority"`
	Muted       bool `json:"muted"`

	Announced           int     `json:"announced"`
	AnnounceDistance    float64 `json:"announceDistance"`
	AnnounceBearingHour int     `json:"announceBearingHour"`
}

// Vehicle is the observer position and heading used to place threats.
type Vehicle struct {
	Position geo.Position `json:"position"`
	// Heading in degrees clockwise from north.
	Heading float64 `json:"heading"`
}

// Position returns the geographic position of located threats.
func (t *Threat) Position() (geo.Position, bool) {
	switch {
	case t.Report != nil:
		return t.Report.Position, true
	case t.Aircraft != nil:
		return t.Aircraft.Position, true
	}
	return geo.Position{}, false
}

// Locate recomputes distance, clock hour and priority of a located threat
// for the given vehicle. Detector alerts are left untouched.
func (t *Threat) Locate(v Vehicle) {
	p, ok := t.Position()
	if !ok {
		return
	}
	meters := geo.Distance(v.Position, p)
	t.Distance = geo.ToMiles(meters)
	rel := geo.RelativeBearing(v.Heading, geo.Bearing(v.Position, p))
	t.BearingHour = geo.ClockHour(rel)
	t.Priority = int(math.Round(meters))
}

// MarkAnnounced records an announcement and snapshots the position it was
// made at.
func (t *Threat) MarkAnnounced() {
	t.Announced++
	t.AnnounceDistance = t.Distance
	t.AnnounceBearingHour = t.BearingHour
}

// ShouldAnnounce reports whether a report or aircraft needs announcing:
// never announced, closer by at least reminderDistance miles since the last
// announcement, or moved around the clock face by reminderBearing hours.
func (t *Threat) ShouldAnnounce(reminderDistance float64, reminderBearing int) bool {
	if t.Announced == 0 {
		return true
	}
	if t.AnnounceDistance-t.Distance >= reminderDistance {
		return true
	}
	d := geo.HourDelta(t.AnnounceBearingHour, t.BearingHour)
	return d >= reminderBearing && d <= 12-reminderBearing
}

// SameIdentity reports whether two threats describe the same tracked
// entity. Identity never considers priority or distance.
func SameIdentity(a, b *Threat) bool {
	if a.Class != b.Class {
		return false
	}
	switch {
	case a.Report != nil && b.Report != nil:
		ra, rb := a.Report, b.Report
		return ra.City == rb.City && ra.Street == rb.Street &&
			ra.Position.Lat == rb.Position.Lat && ra.Position.Lon == rb.Position.Lon
	case a.Aircraft != nil && b.Aircraft != nil:
		return a.Aircraft.Transponder == b.Aircraft.Transponder
	case a.Alert != nil && b.Alert != nil:
		return a.Alert.Band == b.Alert.Band && a.Alert.Frequency == b.Alert.Frequency
	}
	return false
}

// DuplicateReport reports whether two reports are soft duplicates: same
// type within maxMiles of each other.
func DuplicateReport(a, b *Threat, maxMiles float64) bool {
	if a.Report == nil || b.Report == nil || a.Report.Type != b.Report.Type {
		return false
	}
	return geo.ToMiles(geo.Distance(a.Report.Position, b.Report.Position)) <= maxMiles
}

// Clone returns a deep copy for handing to readers outside the event loop.
func (t *Threat) Clone() *Threat {
	c := *t
	if t.Alert != nil {
		a := *t.Alert
		c.Alert = &a
	}
	if t.Report != nil {
		r := *t.Report
		c.Report = &r
	}
	if t.Aircraft != nil {
		a := *t.Aircraft
		c.Aircraft = &a
	}
	return &c
}
