package threat

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DetectorAlert is one alert reported by the radar detector.
type DetectorAlert struct {
	Slot      int
	ID        int
	Type      string
	RSSI      int
	Raw       int
	Frequency float64
	Direction Direction
	Detected  bool
	Muted     bool
}

var errAlertFields = errors.New("alert needs at least 8 fields")

// ParseDetectorAlert parses one comma separated detector alert:
// slot,id,type,rssi,raw,frequency,direction,detected[,muted].
func ParseDetectorAlert(s string) (DetectorAlert, error) {
	var a DetectorAlert
	f := strings.Split(strings.TrimSpace(s), ",")
	if len(f) < 8 {
		return a, fmt.Errorf("%w: %q", errAlertFields, s)
	}
	for i := range f {
		f[i] = strings.TrimSpace(f[i])
	}

	var err error
	if a.Slot, err = strconv.Atoi(f[0]); err != nil {
		return a, fmt.Errorf("invalid slot %q: %w", f[0], err)
	}
	if a.ID, err = strconv.Atoi(f[1]); err != nil {
		return a, fmt.Errorf("invalid alert id %q: %w", f[1], err)
	}
	a.Type = f[2]
	if a.RSSI, err = strconv.Atoi(f[3]); err != nil {
		return a, fmt.Errorf("invalid rssi %q: %w", f[3], err)
	}
	if a.Raw, err = strconv.Atoi(f[4]); err != nil {
		return a, fmt.Errorf("invalid raw value %q: %w", f[4], err)
	}
	if a.Frequency, err = strconv.ParseFloat(f[5], 64); err != nil {
		return a, fmt.Errorf("invalid frequency %q: %w", f[5], err)
	}
	switch strings.ToUpper(f[6]) {
	case "F", "FRONT":
		a.Direction = DirectionFront
	case "S", "SIDE":
		a.Direction = DirectionSide
	default:
		a.Direction = DirectionBack
	}
	a.Detected = f[7] == "1"
	a.Muted = len(f) > 8 && f[8] == "1"
	return a, nil
}

// ParseDetectorLine parses one device data notification: zero or more alerts
// separated by ';'. Alerts that fail to parse are returned as errors
// alongside the ones that parsed.
func ParseDetectorLine(line string) ([]DetectorAlert, []error) {
	var alerts []DetectorAlert
	var errs []error
	for _, part := range strings.Split(line, ";") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		a, err := ParseDetectorAlert(part)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		alerts = append(alerts, a)
	}
	return alerts, errs
}

// ErrUnknownAlertType is returned for detector alert types with no class.
var ErrUnknownAlertType = errors.New("unknown alert type")

// FromDetectorAlert builds a threat from a detector alert.
func FromDetectorAlert(a DetectorAlert) (*Threat, error) {
	t := &Threat{
		Class: ClassRadar,
		Alert: &Alert{
			Band:      BandNone,
			Intensity: float64((a.RSSI + 2) * 10),
			Frequency: a.Frequency,
			Direction: a.Direction,
		},
		Muted:       a.Muted,
		BearingHour: 12,
	}
	if strings.EqualFold(a.Type, "Laser") {
		t.Class = ClassLaser
	} else {
		band, ok := bandByCode(a.Type)
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownAlertType, a.Type)
		}
		t.Alert.Band = band
	}
	t.Priority = t.staticPriority()
	return t, nil
}

func bandByCode(code string) (Band, bool) {
	code = strings.ToUpper(code)
	for b, info := range bands {
		if info.code == code {
			return b, true
		}
	}
	return BandNone, false
}

// DetectorThreats converts the detected, unmuted alerts of one notification
// into threats. Alerts of unknown types are returned as errors.
func DetectorThreats(alerts []DetectorAlert) ([]*Threat, []error) {
	var out []*Threat
	var errs []error
	for _, a := range alerts {
		if !a.Detected || a.Muted {
			continue
		}
		t, err := FromDetectorAlert(a)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, t)
	}
	return out, errs
}
