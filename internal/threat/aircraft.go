package threat

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jsdx761/nexus/internal/geo"
)

// StateVector is the subset of an aircraft state vector the engine uses.
type StateVector struct {
	Transponder string
	CallSign    string
	Position    geo.Position
	Altitude    float64
	OnGround    bool
}

// Positions within a state vector array.
const (
	svTransponder = 0
	svCallSign    = 1
	svLongitude   = 5
	svLatitude    = 6
	svBaroAlt     = 7
	svOnGround    = 8
	svGeoAlt      = 13
)

type statesEnvelope struct {
	States []json.RawMessage `json:"states"`
}

var errMissingTransponder = errors.New("state vector has no transponder")

// DecodeStateVectors decodes an aircraft states response body. Elements that
// are not arrays or lack a transponder are returned as errors and skipped.
func DecodeStateVectors(data []byte) ([]StateVector, []error, error) {
	var env statesEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, nil, fmt.Errorf("failed to decode state vectors: %w", err)
	}
	var out []StateVector
	var errs []error
	for i, raw := range env.States {
		var fields []json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			errs = append(errs, fmt.Errorf("state vector %d: %w", i, err))
			continue
		}
		sv := StateVector{}
		if !field(fields, svTransponder, &sv.Transponder) || sv.Transponder == "" {
			errs = append(errs, fmt.Errorf("state vector %d: %w", i, errMissingTransponder))
			continue
		}
		field(fields, svCallSign, &sv.CallSign)
		sv.CallSign = strings.TrimSpace(sv.CallSign)
		field(fields, svLongitude, &sv.Position.Lon)
		field(fields, svLatitude, &sv.Position.Lat)
		field(fields, svOnGround, &sv.OnGround)
		if !field(fields, svGeoAlt, &sv.Altitude) {
			field(fields, svBaroAlt, &sv.Altitude)
		}
		out = append(out, sv)
	}
	return out, errs, nil
}

// field decodes fields[i] into dst, reporting false for a missing index,
// a null or a value of the wrong type.
func field(fields []json.RawMessage, i int, dst any) bool {
	if i >= len(fields) || len(fields[i]) == 0 || string(fields[i]) == "null" {
		return false
	}
	return json.Unmarshal(fields[i], dst) == nil
}

// AircraftInfo is the registry metadata joined onto a state vector.
type AircraftInfo struct {
	Manufacturer    string
	ICAODescription string
	Owner           string
}

var (
	fixedWing  = regexp.MustCompile(`^[LSAT]..$`)
	rotorcraft = regexp.MustCompile(`^[HG]..$`)
	electric   = regexp.MustCompile(`^..E$`)
)

// AircraftKind classifies an ICAO aircraft type description such as "L2J"
// or "H1T".
func AircraftKind(icaoDescription string) string {
	kind := "Aircraft"
	switch {
	case fixedWing.MatchString(icaoDescription):
		kind = "Airplane"
	case rotorcraft.MatchString(icaoDescription):
		kind = "Helicopter"
	default:
		return kind
	}
	if electric.MatchString(icaoDescription) {
		kind = "Drone"
	}
	return kind
}

// FromStateVector builds a located aircraft threat.
func FromStateVector(sv StateVector, info AircraftInfo, v Vehicle) *Threat {
	t := &Threat{
		Class: ClassAircraft,
		Aircraft: &Aircraft{
			Transponder:  sv.Transponder,
			CallSign:     sv.CallSign,
			OnGround:     sv.OnGround,
			Altitude:     sv.Altitude,
			Owner:        info.Owner,
			Manufacturer: info.Manufacturer,
			Kind:         AircraftKind(info.ICAODescription),
			Position:     sv.Position,
		},
	}
	t.Locate(v)
	return t
}
