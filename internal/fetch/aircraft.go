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
	"github.com/jsdx761/nexus/internal/registry"
	"github.com/jsdx761/nexus/internal/threat"
)

// AircraftClient fetches the state vectors of registered aircraft flying
// around the vehicle.
type AircraftClient struct {
	Client  httputil.HTTPClient
	BaseURL string
	// User and Password enable HTTP basic auth when both are set.
	User     string
	Password string
	// MaxDistance in miles sizes the queried region and drops farther
	// aircraft.
	MaxDistance float64
	Registry    registry.Lookup
}

// Authenticated reports whether requests carry credentials.
func (c *AircraftClient) Authenticated() bool {
	return c.User != "" && c.Password != ""
}

// URL returns the query URL of the region around center.
func (c *AircraftClient) URL(center geo.Position) string {
	r := geo.BoundingRegion(center, geo.ToMeters(c.MaxDistance))
	return fmt.Sprintf("%s/api/states/all?lamin=%f&lomin=%f&lamax=%f&lomax=%f",
		strings.TrimRight(c.BaseURL, "/"), r.Bottom, r.Left, r.Top, r.Right)
}

// Fetch returns the registered airborne aircraft within range of v.
func (c *AircraftClient) Fetch(ctx context.Context, v threat.Vehicle) ([]*threat.Threat, error) {
	req, err := newRequest(ctx, http.MethodGet, c.URL(v.Position))
	if err != nil {
		return nil, err
	}
	if c.Authenticated() {
		req.SetBasicAuth(c.User, c.Password)
	}
	body, header, err := get(c.Client, req)
	if err != nil {
		return nil, err
	}
	if remaining := header.Get("X-Rate-Limit-Remaining"); remaining != "" {
		monitoring.Logf("aircraft: remaining rate limit %s", remaining)
	}

	states, errs, err := threat.DecodeStateVectors(body)
	if err != nil {
		return nil, errors.Wrap(err, "aircraft")
	}
	for _, e := range errs {
		monitoring.Logf("aircraft: dropping state vector: %v", e)
	}

	var out []*threat.Threat
	for _, sv := range states {
		entry, ok := c.Registry.Lookup(sv.Transponder)
		if !ok {
			continue
		}
		t := threat.FromStateVector(sv, threat.AircraftInfo{
			Manufacturer:    entry.Manufacturer,
			ICAODescription: entry.ICAODescription,
			Owner:           entry.Owner,
		}, v)
		if sv.OnGround || t.Distance > c.MaxDistance {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}
