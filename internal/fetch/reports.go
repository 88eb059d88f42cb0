package fetch

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/jsdx761/nexus/internal/geo"
	"github.com/jsdx761/nexus/internal/httputil"
	"github.com/jsdx761/nexus/internal/monitoring"
	"github.com/jsdx761/nexus/internal/threat"
)

// ReportsClient fetches the crowd-sourced reports around the vehicle.
type ReportsClient struct {
	Client  httputil.HTTPClient
	BaseURL string
	// MaxDistance in miles sizes the queried region.
	MaxDistance float64
}

// URL returns the query URL of the region around center.
func (c *ReportsClient) URL(center geo.Position) string {
	r := geo.BoundingRegion(center, geo.ToMeters(c.MaxDistance))
	return fmt.Sprintf("%s/rtserver/web/TGeoRSS?bottom=%f&left=%f&top=%f&right=%f&ma=200&mj=200&mu=20&types=alerts",
		strings.TrimRight(c.BaseURL, "/"), r.Bottom, r.Left, r.Top, r.Right)
}

// Fetch returns the police and accident reports around v.
func (c *ReportsClient) Fetch(ctx context.Context, v threat.Vehicle) ([]*threat.Threat, error) {
	req, err := newRequest(ctx, http.MethodGet, c.URL(v.Position))
	if err != nil {
		return nil, err
	}
	body, _, err := get(c.Client, req)
	if err != nil {
		return nil, err
	}
	raw, errs, err := threat.DecodeReports(body)
	if err != nil {
		return nil, errors.Wrap(err, "reports")
	}
	for _, e := range errs {
		monitoring.Logf("reports: dropping element: %v", e)
	}
	out := make([]*threat.Threat, 0, len(raw))
	for _, r := range raw {
		out = append(out, threat.FromReport(r, v))
	}
	return out, nil
}
