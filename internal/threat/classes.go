package threat

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats/scalar"
)

// classInfo is the single table consulted for priority, earcons and speech.
type classInfo struct {
	name   string
	label  string
	earcon string
	// priority for classes with a static priority; located classes use
	// their distance instead.
	priority int
	located  bool
	// speakReminders plays speech on every announcement rather than only
	// the first one.
	speakReminders bool
	// nowOnReminder appends "now" to repeated announcements.
	nowOnReminder bool
}

var classes = map[Class]classInfo{
	ClassRadar:       {name: "radar", label: "Radar", earcon: "[s6]", priority: 3},
	ClassLaser:       {name: "laser", label: "Laser", earcon: "[s5]", priority: 0},
	ClassSpeedCam:    {name: "speed_cam", label: "Speed Cam", earcon: "[s10]", priority: 4},
	ClassRedLightCam: {name: "red_light_cam", label: "Red Light Cam", earcon: "[s10]", priority: 4},
	ClassUserMark:    {name: "user_mark", label: "User Mark", earcon: "[s9]", priority: 4},
	ClassLockout:     {name: "lockout", label: "Lockout", earcon: "[s9]", priority: 4},
	ClassReport: {name: "report", label: "Hazard", earcon: "[s8]", located: true,
		speakReminders: true, nowOnReminder: true},
	ClassAircraft: {name: "aircraft", label: "Aircraft", earcon: "[s7]", located: true,
		speakReminders: true, nowOnReminder: true},
}

type bandInfo struct {
	code     string
	display  string
	spoken   string
	earcon   string
	priority int
}

var bands = map[Band]bandInfo{
	BandX:    {code: "X", display: "X band", spoken: "X band", earcon: "[s2]", priority: 3},
	BandK:    {code: "K", display: "K band", spoken: "K band", earcon: "[s4]", priority: 2},
	BandKa:   {code: "KA", display: "Ka band", spoken: "K A band", earcon: "[s3]", priority: 1},
	BandPopK: {code: "POP", display: "Pop K band", spoken: "Pop K band", earcon: "[s4]", priority: 2},
	BandMRCD: {code: "MRCD", display: "MRCD", spoken: "M R C D", earcon: "[s10]", priority: 3},
	BandMRCT: {code: "MRCT", display: "MRCT", spoken: "M R C T", earcon: "[s10]", priority: 3},
	BandGT3:  {code: "GT3", display: "GT3", spoken: "G T 3", earcon: "[s6]", priority: 3},
	BandGT4:  {code: "GT4", display: "GT4", spoken: "G T 4", earcon: "[s6]", priority: 3},
}

var reportLabels = map[string]string{
	"POLICE":   "Speed Trap",
	"ACCIDENT": "Accident",
}

func (c Class) String() string {
	if info, ok := classes[c]; ok {
		return info.name
	}
	return "class(" + strconv.Itoa(int(c)) + ")"
}

func (b Band) String() string {
	if info, ok := bands[b]; ok {
		return info.display
	}
	return ""
}

// Located reports whether the class carries a geographic position.
func (c Class) Located() bool { return classes[c].located }

// SpeaksReminders reports whether repeated announcements of the class
// include speech.
func (c Class) SpeaksReminders() bool { return classes[c].speakReminders }

// Label returns the display name of a threat.
func (t *Threat) Label() string {
	switch {
	case t.Report != nil:
		if l, ok := reportLabels[t.Report.Type]; ok {
			return l
		}
	case t.Aircraft != nil && t.Aircraft.Kind != "":
		return t.Aircraft.Kind
	}
	return classes[t.Class].label
}

// Earcon returns the sound id that introduces a threat.
func (t *Threat) Earcon() string {
	if t.Class == ClassRadar && t.Alert != nil {
		if b, ok := bands[t.Alert.Band]; ok {
			return b.earcon
		}
	}
	if info, ok := classes[t.Class]; ok {
		return info.earcon
	}
	return "[s6]"
}

// staticPriority returns the priority of unlocated classes.
func (t *Threat) staticPriority() int {
	if t.Class == ClassRadar && t.Alert != nil {
		if b, ok := bands[t.Alert.Band]; ok {
			return b.priority
		}
	}
	if info, ok := classes[t.Class]; ok {
		return info.priority
	}
	return 4
}

// SortByPriority orders threats by ascending priority, keeping arrival
// order between equal priorities.
func SortByPriority(list []*Threat) {
	sort.SliceStable(list, func(i, j int) bool { return list[i].Priority < list[j].Priority })
}

// formatDecimal renders v like the "0.#" pattern: at most one decimal,
// half-even rounding, no trailing zero.
func formatDecimal(v float64) string {
	return strconv.FormatFloat(scalar.RoundEven(v, 1), 'f', -1, 64)
}

func formatMiles(d float64) string {
	unit := "mile"
	if d >= 2.0 {
		unit = "miles"
	}
	return formatDecimal(d) + " " + unit
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// Speech returns the utterance announcing a threat.
func (t *Threat) Speech() string {
	info := classes[t.Class]
	var b strings.Builder
	now := info.nowOnReminder && t.Announced > 1

	switch {
	case t.Class == ClassRadar && t.Alert != nil:
		b.WriteString(bands[t.Alert.Band].spoken)
		if t.Alert.Frequency >= 1 {
			b.WriteString(" " + formatDecimal(t.Alert.Frequency))
		}
		b.WriteString(" " + info.label)

	case t.Report != nil:
		b.WriteString(t.Label())
		if now {
			b.WriteString(" now")
		}
		t.writePlacement(&b)
		if t.Report.Street != "" {
			b.WriteString(" on " + t.Report.Street)
		} else if t.Report.City != "" {
			b.WriteString(" in " + t.Report.City)
		}

	case t.Aircraft != nil:
		if t.Aircraft.Owner != "" {
			b.WriteString(t.Aircraft.Owner)
		} else {
			b.WriteString("Unidentified")
		}
		if t.Aircraft.Manufacturer != "" {
			b.WriteString(" " + capitalize(t.Aircraft.Manufacturer))
		}
		b.WriteString(" " + t.Label())
		if now {
			b.WriteString(" now")
		}
		t.writePlacement(&b)

	default:
		b.WriteString(t.Label())
	}
	return b.String()
}

func (t *Threat) writePlacement(b *strings.Builder) {
	if t.BearingHour != 0 {
		fmt.Fprintf(b, " at %d o'clock", t.BearingHour)
	}
	if t.Distance != 0 {
		b.WriteString(" " + formatMiles(t.Distance) + " away")
	}
}

// Summary returns the second display line of a threat: band and frequency
// for detector alerts, distance for located threats.
func (t *Threat) Summary() string {
	switch {
	case t.Class == ClassRadar && t.Alert != nil:
		s := t.Alert.Band.String()
		if t.Alert.Frequency >= 1 {
			s += " " + formatDecimal(t.Alert.Frequency) + " GHz"
		}
		return s
	case t.Class == ClassLaser:
		return "Lidar"
	case t.Class.Located() && t.Distance != 0:
		return formatMiles(t.Distance)
	}
	return ""
}
