// Package geo implements the spherical-earth math used to place threats
// around the vehicle: destination projection, great-circle distance,
// bearings and their mapping onto a 12-hour clock face.
package geo

import "math"

const (
	// DestinationRadius is the mean earth radius in meters used when
	// projecting a destination point.
	DestinationRadius = 6371000.0

	// DistanceRadius is the WGS84 equatorial radius in meters used by the
	// law of cosines distance.
	DistanceRadius = 6378137.0

	// MetersPerMile converts between statute miles and meters.
	MetersPerMile = 1609.34
)

// Position is a point on the earth in decimal degrees.
type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// Destination returns the point reached by travelling distanceMeters from
// origin along the given initial bearing. The resulting longitude is
// normalized into [-180,180].
func Destination(origin Position, distanceMeters, bearingDegrees float64) Position {
	delta := distanceMeters / DestinationRadius
	theta := radians(bearingDegrees)
	phi1 := radians(origin.Lat)
	lambda1 := radians(origin.Lon)

	sinPhi2 := math.Sin(phi1)*math.Cos(delta) + math.Cos(phi1)*math.Sin(delta)*math.Cos(theta)
	phi2 := math.Asin(sinPhi2)
	y := math.Sin(theta) * math.Sin(delta) * math.Cos(phi1)
	x := math.Cos(delta) - math.Sin(phi1)*sinPhi2
	lambda2 := lambda1 + math.Atan2(y, x)

	lon := degrees(math.Mod(lambda2+3*math.Pi, 2*math.Pi) - math.Pi)
	return Position{Lat: degrees(phi2), Lon: lon}
}

// Distance returns the great-circle distance in meters between a and b
// using the spherical law of cosines.
func Distance(a, b Position) float64 {
	phi1 := radians(a.Lat)
	phi2 := radians(b.Lat)
	dLambda := radians(b.Lon - a.Lon)

	c := math.Sin(phi1)*math.Sin(phi2) + math.Cos(phi1)*math.Cos(phi2)*math.Cos(dLambda)
	// rounding can push c just outside the acos domain
	c = math.Max(-1, math.Min(1, c))
	return math.Acos(c) * DistanceRadius
}

// Bearing returns the initial bearing from a to b in degrees, in [0,360).
func Bearing(a, b Position) float64 {
	phi1 := radians(a.Lat)
	phi2 := radians(b.Lat)
	dLambda := radians(b.Lon - a.Lon)

	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)
	return wrap360(degrees(math.Atan2(y, x)))
}

// RelativeBearing returns the bearing to a target relative to the vehicle
// heading, in [0,360).
func RelativeBearing(heading, bearingToTarget float64) float64 {
	return wrap360(bearingToTarget - heading)
}

func wrap360(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	// -1e-15 wraps to 360 after the addition above
	if d >= 360 {
		d = 0
	}
	return d
}

// ClockHour maps a relative bearing onto a clock face, 1..12 with dead
// ahead reported as 12.
func ClockHour(relativeBearingDegrees float64) int {
	hour := int(math.Round(wrap360(relativeBearingDegrees)/30)) % 12
	if hour == 0 {
		return 12
	}
	return hour
}

// HourDelta returns the circular distance between two clock hours,
// min(d, 12-d), in [0,6].
func HourDelta(a, b int) int {
	d := (b - a) % 12
	if d < 0 {
		d += 12
	}
	if 12-d < d {
		return 12 - d
	}
	return d
}

// ToMiles converts meters to miles.
func ToMiles(meters float64) float64 { return meters / MetersPerMile }

// ToMeters converts miles to meters.
func ToMeters(miles float64) float64 { return miles * MetersPerMile }

// Strength maps a distance onto [0,1] for intensity display, 1 at the
// vehicle and 0 at or beyond maxRange. Both arguments share one unit.
func Strength(distance, maxRange float64) float64 {
	if maxRange <= 0 {
		return 0
	}
	s := (maxRange - distance) / maxRange
	return math.Max(0, math.Min(1, s))
}

// Region is a latitude/longitude bounding box.
type Region struct {
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
}

// BoundingRegion returns the box enclosing the points radiusMeters away from
// center due south, west, north and east.
func BoundingRegion(center Position, radiusMeters float64) Region {
	return Region{
		Bottom: Destination(center, radiusMeters, 180).Lat,
		Left:   Destination(center, radiusMeters, 270).Lon,
		Top:    Destination(center, radiusMeters, 0).Lat,
		Right:  Destination(center, radiusMeters, 90).Lon,
	}
}
