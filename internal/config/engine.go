package config

import (
	"github.com/jsdx761/nexus/internal/announce"
	"github.com/jsdx761/nexus/internal/fetch"
	"github.com/jsdx761/nexus/internal/supervisor"
)

// EngineSettings is the immutable settings value handed to the engine and
// the supervisor at construction.
type EngineSettings struct {
	Announce   announce.Settings
	Supervisor supervisor.Settings
}

// SourceName returns the name spoken for the reports source, derived
// from its URL unless configured.
func (c *Config) SourceName() string {
	if c.ReportsSourceName != nil && *c.ReportsSourceName != "" {
		return *c.ReportsSourceName
	}
	return fetch.SourceName(c.GetReportsURL())
}

// Engine builds the engine and supervisor settings.
func (c *Config) Engine() EngineSettings {
	name := c.SourceName()
	a := announce.Settings{
		Radar: announce.SourceSettings{
			MaxSpeech:  intOr(c.RadarMaxSpeech, 3),
			MaxEarcons: intOr(c.RadarMaxEarcons, 3),
		},
		Reports: announce.SourceSettings{
			MaxSpeech:        intOr(c.ReportsMaxSpeech, 3),
			MaxEarcons:       intOr(c.ReportsMaxEarcons, 1),
			ReminderDistance: c.GetReportsReminderDistance(),
			ReminderBearing:  c.GetReminderBearing(),
			ReminderInterval: c.GetReminderInterval(),
		},
		Aircraft: announce.SourceSettings{
			MaxSpeech:        intOr(c.AircraftMaxSpeech, 3),
			MaxEarcons:       intOr(c.AircraftMaxEarcons, 1),
			ReminderDistance: c.GetAircraftReminderDistance(),
			ReminderBearing:  c.GetReminderBearing(),
			ReminderInterval: c.GetReminderInterval(),
		},
		AllClearInterval:  c.GetAllClearInterval(),
		EarconGap:         c.GetEarconGap(),
		SpeechTimeout:     c.GetSpeechTimeout(),
		ReportsSourceName: name,
	}
	s := supervisor.Settings{
		Reports: supervisor.SourceSettings{
			MaxDistance: c.GetReportsMaxDistance(),
			Interval:    c.GetReportsInterval(),
			RetryCount:  c.GetReportsRetryCount(),
			RetryDelay:  c.GetReportsRetryDelay(),
		},
		DuplicateDistance: c.GetReportsDuplicateDistance(),
		Aircraft: supervisor.SourceSettings{
			MaxDistance: c.GetAircraftMaxDistance(),
			Interval:    c.GetAircraftInterval(),
			RetryCount:  c.GetAircraftRetryCount(),
			RetryDelay:  c.GetAircraftRetryDelay(),
		},
		AnonymousInterval: c.GetAircraftAnonymousInterval(),
		Authenticated:     c.GetAircraftAuthenticated(),
		ProbeInterval:     c.GetNetworkProbeInterval(),
		ProbeRetryCount:   c.GetNetworkProbeRetryCount(),
		ProbeRetryDelay:   c.GetNetworkProbeRetryDelay(),
		LocationGrace:     c.GetLocationGrace(),
		HeadingThreshold:  c.GetHeadingThreshold(),
		UseDeviceHeading:  c.GetUseDeviceHeading(),
		DetectorReconnect: c.GetDetectorReconnect(),
		RadarIdleClear:    c.GetRadarIdleClear(),
		ReportsSourceName: name,
	}
	return EngineSettings{Announce: a, Supervisor: s}
}
