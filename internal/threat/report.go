package threat

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/jsdx761/nexus/internal/geo"
)

// RawReport is one crowd-sourced report as served by the reports source.
type RawReport struct {
	Type     string `json:"type"`
	SubType  string `json:"subtype"`
	City     string `json:"city"`
	Street   string `json:"street"`
	ThumbsUp int    `json:"nThumbsUp"`
	Location struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	} `json:"location"`
}

type reportsEnvelope struct {
	Alerts []json.RawMessage `json:"alerts"`
}

// reportTypes are the report types worth announcing.
var reportTypes = map[string]bool{
	"POLICE":   true,
	"ACCIDENT": true,
}

var cityState = regexp.MustCompile(`^(.*)(, [A-Z][A-Z])$`)

var errMissingType = errors.New("report has no type")

// DecodeReports decodes a reports response body. Elements that fail to
// decode are returned as errors and skipped; reports of types that are not
// announced are dropped silently.
func DecodeReports(data []byte) ([]RawReport, []error, error) {
	var env reportsEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, nil, fmt.Errorf("failed to decode reports: %w", err)
	}
	var out []RawReport
	var errs []error
	for i, raw := range env.Alerts {
		var r RawReport
		if err := json.Unmarshal(raw, &r); err != nil {
			errs = append(errs, fmt.Errorf("report %d: %w", i, err))
			continue
		}
		if r.Type == "" {
			errs = append(errs, fmt.Errorf("report %d: %w", i, errMissingType))
			continue
		}
		if !reportTypes[r.Type] {
			continue
		}
		r.City = cityState.ReplaceAllString(r.City, "$1")
		out = append(out, r)
	}
	return out, errs, nil
}

// FromReport builds a located threat from a decoded report.
func FromReport(r RawReport, v Vehicle) *Threat {
	t := &Threat{
		Class: ClassReport,
		Report: &Report{
			Type:     r.Type,
			SubType:  r.SubType,
			City:     r.City,
			Street:   r.Street,
			ThumbsUp: r.ThumbsUp,
			Position: geo.Position{Lat: r.Location.Y, Lon: r.Location.X},
		},
	}
	t.Locate(v)
	return t
}
