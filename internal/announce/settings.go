package announce

import "time"

// Source identifies one of the three tracked lists.
type Source int

const (
	SourceRadar Source = iota
	SourceReports
	SourceAircraft
	numSources
)

func (s Source) String() string {
	switch s {
	case SourceRadar:
		return "radar"
	case SourceReports:
		return "reports"
	case SourceAircraft:
		return "aircraft"
	}
	return "unknown"
}

// SourceSettings bounds how one source is announced.
type SourceSettings struct {
	// MaxSpeech and MaxEarcons cap how many records of one batch get an
	// utterance or an earcon.
	MaxSpeech  int
	MaxEarcons int
	// ReminderDistance (miles) and ReminderBearing (clock hours) are the
	// changes since the last announcement that trigger another one.
	ReminderDistance float64
	ReminderBearing  int
	// ReminderInterval is the period of the earcon-only reminder for the
	// nearest record. Zero disables it.
	ReminderInterval time.Duration
}

// Settings is the immutable configuration of an Engine.
type Settings struct {
	Radar    SourceSettings
	Reports  SourceSettings
	Aircraft SourceSettings

	// AllClearInterval is the period of the all-clear check.
	AllClearInterval time.Duration
	// EarconGap is the pause between an earcon and what follows it.
	EarconGap time.Duration
	// SpeechTimeout bounds the wait for a speech completion callback.
	SpeechTimeout time.Duration
	// ReportsSourceName is spoken in reports availability messages.
	ReportsSourceName string
}

func (s *Settings) source(src Source) SourceSettings {
	switch src {
	case SourceReports:
		return s.Reports
	case SourceAircraft:
		return s.Aircraft
	}
	return s.Radar
}

// DefaultSettings returns the stock announcement settings.
func DefaultSettings() Settings {
	return Settings{
		Radar: SourceSettings{MaxSpeech: 3, MaxEarcons: 3},
		Reports: SourceSettings{
			MaxSpeech: 3, MaxEarcons: 1,
			ReminderDistance: 0.25, ReminderBearing: 3,
			ReminderInterval: 60 * time.Second,
		},
		Aircraft: SourceSettings{
			MaxSpeech: 3, MaxEarcons: 1,
			ReminderDistance: 1.0, ReminderBearing: 3,
			ReminderInterval: 60 * time.Second,
		},
		AllClearInterval:  10 * time.Second,
		EarconGap:         250 * time.Millisecond,
		SpeechTimeout:     30 * time.Second,
		ReportsSourceName: "Crowd-sourced",
	}
}
