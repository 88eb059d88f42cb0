// Package reconcile merges freshly decoded threat batches into the tracked
// lists, so that a hazard seen again keeps its tracked record and with it
// its announcement history.
package reconcile

import (
	"github.com/jsdx761/nexus/internal/threat"
)

// updateFunc copies the mutable fields of a fresh record onto the tracked
// record it matched.
type updateFunc func(tracked, fresh *threat.Threat) bool

// merge matches every incoming record against tracked by identity. Matched
// records are updated in place and reused, unmatched ones are kept as new.
// Tracked records absent from incoming are dropped. Each tracked record is
// matched at most once, and the first match wins.
func merge(incoming, tracked []*threat.Threat, update updateFunc) ([]*threat.Threat, bool) {
	out := make([]*threat.Threat, 0, len(incoming))
	used := make([]bool, len(tracked))
	changed := false

	for _, fresh := range incoming {
		match := -1
		for i, t := range tracked {
			if !used[i] && threat.SameIdentity(fresh, t) {
				match = i
				break
			}
		}
		if match < 0 {
			tracef("new %s: %s", fresh.Class, fresh.Speech())
			out = append(out, fresh)
			changed = true
			continue
		}
		used[match] = true
		t := tracked[match]
		if update(t, fresh) {
			changed = true
		}
		out = append(out, t)
	}

	for i, t := range tracked {
		if !used[i] {
			tracef("dropped %s: %s", t.Class, t.Speech())
			changed = true
		}
	}
	return out, changed
}

// Radar merges a detector notification into the tracked radar and laser
// alerts. An empty batch leaves the tracked list untouched; a non-empty one
// replaces it and always reports a change so the batch gets announced.
func Radar(incoming, tracked []*threat.Threat) ([]*threat.Threat, bool) {
	if len(incoming) == 0 {
		return tracked, false
	}
	out, _ := merge(incoming, tracked, func(t, fresh *threat.Threat) bool {
		if t.Alert != nil && fresh.Alert != nil {
			t.Alert.Direction = fresh.Alert.Direction
			t.Alert.Intensity = fresh.Alert.Intensity
		}
		t.Muted = fresh.Muted
		tracef("repeating %s", t.Speech())
		return true
	})
	diagf("radar batch: %d incoming, %d tracked, %d merged", len(incoming), len(tracked), len(out))
	return out, true
}

// Reports merges a reports batch into the tracked reports, first dropping
// soft duplicates of earlier reports in the same batch.
func Reports(incoming, tracked []*threat.Threat, duplicateMiles float64) ([]*threat.Threat, bool) {
	unique := Dedup(incoming, duplicateMiles)
	out, changed := merge(unique, tracked, relocate)
	diagf("reports batch: %d incoming, %d unique, %d tracked, changed=%t",
		len(incoming), len(unique), len(tracked), changed)
	return out, changed
}

// Aircraft merges an aircraft batch into the tracked aircraft.
func Aircraft(incoming, tracked []*threat.Threat) ([]*threat.Threat, bool) {
	out, changed := merge(incoming, tracked, func(t, fresh *threat.Threat) bool {
		moved := relocate(t, fresh)
		if t.Aircraft != nil && fresh.Aircraft != nil {
			if t.Aircraft.Position != fresh.Aircraft.Position || t.Aircraft.Altitude != fresh.Aircraft.Altitude {
				moved = true
			}
			t.Aircraft.Position = fresh.Aircraft.Position
			t.Aircraft.Altitude = fresh.Aircraft.Altitude
			t.Aircraft.OnGround = fresh.Aircraft.OnGround
			t.Aircraft.CallSign = fresh.Aircraft.CallSign
		}
		return moved
	})
	diagf("aircraft batch: %d incoming, %d tracked, changed=%t", len(incoming), len(tracked), changed)
	return out, changed
}

// relocate copies the vehicle-relative placement of fresh onto t.
func relocate(t, fresh *threat.Threat) bool {
	moved := t.Distance != fresh.Distance || t.BearingHour != fresh.BearingHour
	if moved {
		tracef("existing %s with new distance %.3f hour %d", t.Class, fresh.Distance, fresh.BearingHour)
	}
	t.Distance = fresh.Distance
	t.BearingHour = fresh.BearingHour
	t.Priority = fresh.Priority
	return moved
}

// Dedup keeps a report only if no earlier kept report in the batch has the
// same type within duplicateMiles of it. Other classes pass through.
func Dedup(batch []*threat.Threat, duplicateMiles float64) []*threat.Threat {
	out := make([]*threat.Threat, 0, len(batch))
	for _, t := range batch {
		dup := false
		for _, kept := range out {
			if threat.DuplicateReport(t, kept, duplicateMiles) {
				dup = true
				break
			}
		}
		if dup {
			tracef("duplicate report %s", t.Speech())
			continue
		}
		out = append(out, t)
	}
	return out
}

// WithinRange drops records farther than maxMiles from the vehicle.
func WithinRange(batch []*threat.Threat, maxMiles float64) []*threat.Threat {
	out := make([]*threat.Threat, 0, len(batch))
	for _, t := range batch {
		if t.Distance <= maxMiles {
			out = append(out, t)
		} else {
			tracef("out of range %s at %.2f miles", t.Class, t.Distance)
		}
	}
	return out
}

// Relocate returns fresh copies of the tracked located records placed for
// a new vehicle position, ready to be merged back with Reports or Aircraft.
func Relocate(tracked []*threat.Threat, v threat.Vehicle) []*threat.Threat {
	out := make([]*threat.Threat, 0, len(tracked))
	for _, t := range tracked {
		if _, ok := t.Position(); !ok {
			opsf("cannot relocate %s without a position", t.Class)
			continue
		}
		c := t.Clone()
		c.Locate(v)
		out = append(out, c)
	}
	return out
}
