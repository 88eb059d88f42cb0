// Package config loads the nexus configuration file. Every field is
// optional: omitted fields fall back to the stock values through the Get*
// accessors, so partial files are safe.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultConfigPath is where cmd/nexus looks for a config file when -config
// is not given.
const DefaultConfigPath = "config/nexus.json"

// Player values.
const (
	PlayerConsole = "console"
	PlayerRemote  = "remote"
)

// Config is the root of the configuration file. Durations are strings such
// as "24s" or "250ms"; distances are in miles unless stated otherwise.
type Config struct {
	// Reports source
	ReportsEnabled           *bool    `json:"reports_enabled,omitempty"`
	ReportsURL               *string  `json:"reports_url,omitempty"`
	ReportsSourceName        *string  `json:"reports_source_name,omitempty"`
	ReportsMaxDistance       *float64 `json:"reports_max_distance,omitempty"`
	ReportsDuplicateDistance *float64 `json:"reports_duplicate_distance,omitempty"`
	ReportsReminderDistance  *float64 `json:"reports_reminder_distance,omitempty"`
	ReportsInterval          *string  `json:"reports_interval,omitempty"`
	ReportsRetryCount        *int     `json:"reports_retry_count,omitempty"`
	ReportsRetryDelay        *string  `json:"reports_retry_delay,omitempty"`

	// Aircraft source
	AircraftEnabled           *bool    `json:"aircraft_enabled,omitempty"`
	AircraftURL               *string  `json:"aircraft_url,omitempty"`
	AircraftUser              *string  `json:"aircraft_user,omitempty"`
	AircraftPassword          *string  `json:"aircraft_password,omitempty"`
	AircraftMaxDistance       *float64 `json:"aircraft_max_distance,omitempty"`
	AircraftReminderDistance  *float64 `json:"aircraft_reminder_distance,omitempty"`
	AircraftInterval          *string  `json:"aircraft_interval,omitempty"`
	AircraftAnonymousInterval *string  `json:"aircraft_anonymous_interval,omitempty"`
	AircraftRetryCount        *int     `json:"aircraft_retry_count,omitempty"`
	AircraftRetryDelay        *string  `json:"aircraft_retry_delay,omitempty"`
	RegistryPath              *string  `json:"registry_path,omitempty"`

	// Announcements
	RadarMaxSpeech     *int    `json:"radar_max_speech,omitempty"`
	RadarMaxEarcons    *int    `json:"radar_max_earcons,omitempty"`
	ReportsMaxSpeech   *int    `json:"reports_max_speech,omitempty"`
	ReportsMaxEarcons  *int    `json:"reports_max_earcons,omitempty"`
	AircraftMaxSpeech  *int    `json:"aircraft_max_speech,omitempty"`
	AircraftMaxEarcons *int    `json:"aircraft_max_earcons,omitempty"`
	ReminderBearing    *int    `json:"reminder_bearing,omitempty"`
	ReminderInterval   *string `json:"reminder_interval,omitempty"`
	AllClearInterval   *string `json:"all_clear_interval,omitempty"`
	EarconGap          *string `json:"earcon_gap,omitempty"`
	SpeechTimeout      *string `json:"speech_timeout,omitempty"`
	Player             *string `json:"player,omitempty"`
	SpeechWordDelay    *string `json:"speech_word_delay,omitempty"`

	// Network probe
	NetworkProbeURL        *string `json:"network_probe_url,omitempty"`
	NetworkProbeTimeout    *string `json:"network_probe_timeout,omitempty"`
	NetworkProbeInterval   *string `json:"network_probe_interval,omitempty"`
	NetworkProbeRetryCount *int    `json:"network_probe_retry_count,omitempty"`
	NetworkProbeRetryDelay *string `json:"network_probe_retry_delay,omitempty"`

	// Location
	LocationGrace    *string  `json:"location_grace,omitempty"`
	HeadingThreshold *float64 `json:"heading_threshold,omitempty"` // meters
	UseDeviceHeading *bool    `json:"use_device_heading,omitempty"`

	// Radar detector
	DetectorReconnect *string `json:"detector_reconnect,omitempty"`
	RadarIdleClear    *string `json:"radar_idle_clear,omitempty"`

	// Remote displays
	NATSURL           *string `json:"nats_url,omitempty"`
	NATSSubjectPrefix *string `json:"nats_subject_prefix,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyConfig returns a Config with all fields unset.
func EmptyConfig() *Config {
	return &Config{}
}

// LoadConfig loads a Config from a JSON file. The path must have a .json
// extension and the file must be under 1MB.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Environment variables overlaid by ApplyEnv.
const (
	EnvReportsURL       = "NEXUS_REPORTS_URL"
	EnvAircraftURL      = "NEXUS_AIRCRAFT_URL"
	EnvAircraftUser     = "NEXUS_AIRCRAFT_USER"
	EnvAircraftPassword = "NEXUS_AIRCRAFT_PASSWORD"
	EnvNATSURL          = "NEXUS_NATS_URL"
)

// ApplyEnv overrides source URLs and credentials with the environment
// variables that are set. A nil lookup uses os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for _, v := range []struct {
		name string
		dst  **string
	}{
		{EnvReportsURL, &c.ReportsURL},
		{EnvAircraftURL, &c.AircraftURL},
		{EnvAircraftUser, &c.AircraftUser},
		{EnvAircraftPassword, &c.AircraftPassword},
		{EnvNATSURL, &c.NATSURL},
	} {
		if s, ok := lookup(v.name); ok {
			*v.dst = ptrString(strings.TrimSpace(s))
		}
	}
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	durations := []struct {
		name string
		val  *string
		// polling intervals re-arm a timer and must be positive.
		positive bool
	}{
		{"reports_interval", c.ReportsInterval, true},
		{"reports_retry_delay", c.ReportsRetryDelay, false},
		{"aircraft_interval", c.AircraftInterval, true},
		{"aircraft_anonymous_interval", c.AircraftAnonymousInterval, false},
		{"aircraft_retry_delay", c.AircraftRetryDelay, false},
		{"reminder_interval", c.ReminderInterval, false},
		{"all_clear_interval", c.AllClearInterval, false},
		{"earcon_gap", c.EarconGap, false},
		{"speech_timeout", c.SpeechTimeout, false},
		{"speech_word_delay", c.SpeechWordDelay, false},
		{"network_probe_timeout", c.NetworkProbeTimeout, false},
		{"network_probe_interval", c.NetworkProbeInterval, true},
		{"network_probe_retry_delay", c.NetworkProbeRetryDelay, false},
		{"location_grace", c.LocationGrace, false},
		{"detector_reconnect", c.DetectorReconnect, false},
		{"radar_idle_clear", c.RadarIdleClear, false},
	}
	for _, d := range durations {
		if d.val == nil || *d.val == "" {
			continue
		}
		v, err := time.ParseDuration(*d.val)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", d.name, *d.val, err)
		}
		if v < 0 {
			return fmt.Errorf("%s must be non-negative, got %s", d.name, *d.val)
		}
		if d.positive && v == 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, *d.val)
		}
	}

	distances := []struct {
		name string
		val  *float64
	}{
		{"reports_max_distance", c.ReportsMaxDistance},
		{"reports_duplicate_distance", c.ReportsDuplicateDistance},
		{"reports_reminder_distance", c.ReportsReminderDistance},
		{"aircraft_max_distance", c.AircraftMaxDistance},
		{"aircraft_reminder_distance", c.AircraftReminderDistance},
		{"heading_threshold", c.HeadingThreshold},
	}
	for _, d := range distances {
		if d.val != nil && *d.val < 0 {
			return fmt.Errorf("%s must be non-negative, got %f", d.name, *d.val)
		}
	}

	counts := []struct {
		name string
		val  *int
	}{
		{"reports_retry_count", c.ReportsRetryCount},
		{"aircraft_retry_count", c.AircraftRetryCount},
		{"network_probe_retry_count", c.NetworkProbeRetryCount},
		{"radar_max_speech", c.RadarMaxSpeech},
		{"radar_max_earcons", c.RadarMaxEarcons},
		{"reports_max_speech", c.ReportsMaxSpeech},
		{"reports_max_earcons", c.ReportsMaxEarcons},
		{"aircraft_max_speech", c.AircraftMaxSpeech},
		{"aircraft_max_earcons", c.AircraftMaxEarcons},
	}
	for _, n := range counts {
		if n.val != nil && *n.val < 0 {
			return fmt.Errorf("%s must be non-negative, got %d", n.name, *n.val)
		}
	}

	if c.ReminderBearing != nil && (*c.ReminderBearing < 1 || *c.ReminderBearing > 6) {
		return fmt.Errorf("reminder_bearing must be between 1 and 6 hours, got %d", *c.ReminderBearing)
	}
	if c.Player != nil {
		switch *c.Player {
		case "", PlayerConsole, PlayerRemote:
		default:
			return fmt.Errorf("player must be %q or %q, got %q", PlayerConsole, PlayerRemote, *c.Player)
		}
	}
	return nil
}
