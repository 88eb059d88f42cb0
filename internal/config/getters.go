package config

import "time"

func durationOr(s *string, def time.Duration) time.Duration {
	if s == nil || *s == "" {
		return def
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return def // default on parse error
	}
	return d
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func stringOr(v *string, def string) string {
	if v == nil {
		return def
	}
	return *v
}

// GetReportsEnabled returns whether the reports source is polled.
func (c *Config) GetReportsEnabled() bool { return boolOr(c.ReportsEnabled, true) }

// GetReportsURL returns the reports service base URL.
func (c *Config) GetReportsURL() string {
	return stringOr(c.ReportsURL, "https://www.waze.com")
}

// GetReportsMaxDistance returns the reports range in miles.
func (c *Config) GetReportsMaxDistance() float64 { return floatOr(c.ReportsMaxDistance, 2.0) }

// GetReportsDuplicateDistance returns the radius within which two reports
// of the same type are one hazard.
func (c *Config) GetReportsDuplicateDistance() float64 {
	return floatOr(c.ReportsDuplicateDistance, 0.2)
}

func (c *Config) GetReportsReminderDistance() float64 {
	return floatOr(c.ReportsReminderDistance, 0.25)
}

func (c *Config) GetReportsInterval() time.Duration {
	return durationOr(c.ReportsInterval, 24*time.Second)
}

func (c *Config) GetReportsRetryCount() int { return intOr(c.ReportsRetryCount, 2) }

func (c *Config) GetReportsRetryDelay() time.Duration {
	return durationOr(c.ReportsRetryDelay, 5*time.Second)
}

// GetAircraftEnabled returns whether the aircraft source is polled.
func (c *Config) GetAircraftEnabled() bool { return boolOr(c.AircraftEnabled, true) }

// GetAircraftURL returns the aircraft state service base URL.
func (c *Config) GetAircraftURL() string {
	return stringOr(c.AircraftURL, "https://opensky-network.org")
}

func (c *Config) GetAircraftUser() string     { return stringOr(c.AircraftUser, "") }
func (c *Config) GetAircraftPassword() string { return stringOr(c.AircraftPassword, "") }

// GetAircraftAuthenticated reports whether both aircraft credentials are set.
func (c *Config) GetAircraftAuthenticated() bool {
	return c.GetAircraftUser() != "" && c.GetAircraftPassword() != ""
}

func (c *Config) GetAircraftMaxDistance() float64 { return floatOr(c.AircraftMaxDistance, 5.0) }

func (c *Config) GetAircraftReminderDistance() float64 {
	return floatOr(c.AircraftReminderDistance, 1.0)
}

func (c *Config) GetAircraftInterval() time.Duration {
	return durationOr(c.AircraftInterval, 24*time.Second)
}

// GetAircraftAnonymousInterval returns the polling interval used without
// credentials.
func (c *Config) GetAircraftAnonymousInterval() time.Duration {
	return durationOr(c.AircraftAnonymousInterval, 240*time.Second)
}

func (c *Config) GetAircraftRetryCount() int { return intOr(c.AircraftRetryCount, 2) }

func (c *Config) GetAircraftRetryDelay() time.Duration {
	return durationOr(c.AircraftRetryDelay, 5*time.Second)
}

// GetRegistryPath returns the aircraft registry, a .csv file or a sqlite
// database.
func (c *Config) GetRegistryPath() string {
	return stringOr(c.RegistryPath, "data/aircraft.db")
}

func (c *Config) GetReminderBearing() int { return intOr(c.ReminderBearing, 3) }

func (c *Config) GetReminderInterval() time.Duration {
	return durationOr(c.ReminderInterval, 60*time.Second)
}

func (c *Config) GetAllClearInterval() time.Duration {
	return durationOr(c.AllClearInterval, 10*time.Second)
}

func (c *Config) GetEarconGap() time.Duration {
	return durationOr(c.EarconGap, 250*time.Millisecond)
}

func (c *Config) GetSpeechTimeout() time.Duration {
	return durationOr(c.SpeechTimeout, 30*time.Second)
}

// GetPlayer returns the audio player kind.
func (c *Config) GetPlayer() string {
	if p := stringOr(c.Player, ""); p != "" {
		return p
	}
	return PlayerConsole
}

// GetSpeechWordDelay returns how long the console player takes per word.
func (c *Config) GetSpeechWordDelay() time.Duration {
	return durationOr(c.SpeechWordDelay, 300*time.Millisecond)
}

func (c *Config) GetNetworkProbeURL() string {
	return stringOr(c.NetworkProbeURL, "https://www.google.com")
}

func (c *Config) GetNetworkProbeTimeout() time.Duration {
	return durationOr(c.NetworkProbeTimeout, 5*time.Second)
}

func (c *Config) GetNetworkProbeInterval() time.Duration {
	return durationOr(c.NetworkProbeInterval, 15*time.Second)
}

func (c *Config) GetNetworkProbeRetryCount() int { return intOr(c.NetworkProbeRetryCount, 2) }

func (c *Config) GetNetworkProbeRetryDelay() time.Duration {
	return durationOr(c.NetworkProbeRetryDelay, 5*time.Second)
}

func (c *Config) GetLocationGrace() time.Duration {
	return durationOr(c.LocationGrace, 10*time.Second)
}

// GetHeadingThreshold returns, in meters, how far the vehicle must move
// before its heading is recomputed.
func (c *Config) GetHeadingThreshold() float64 { return floatOr(c.HeadingThreshold, 40) }

func (c *Config) GetUseDeviceHeading() bool { return boolOr(c.UseDeviceHeading, false) }

func (c *Config) GetDetectorReconnect() time.Duration {
	return durationOr(c.DetectorReconnect, 5*time.Second)
}

func (c *Config) GetRadarIdleClear() time.Duration {
	return durationOr(c.RadarIdleClear, 10*time.Second)
}

// GetNATSURL returns the NATS server to publish to. Empty disables NATS;
// "embedded" starts a server in process.
func (c *Config) GetNATSURL() string { return stringOr(c.NATSURL, "") }

func (c *Config) GetNATSSubjectPrefix() string {
	return stringOr(c.NATSSubjectPrefix, "nexus")
}
