package fetch

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/jsdx761/nexus/internal/httputil"
)

// Prober checks network reachability with a HEAD request.
type Prober struct {
	Client  httputil.HTTPClient
	URL     string
	Timeout time.Duration
}

// Probe succeeds when the probe URL answers 200. Captive portals and
// outage pages answer with other codes.
func (p *Prober) Probe(ctx context.Context) error {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	req, err := newRequest(ctx, http.MethodHead, p.URL)
	if err != nil {
		return err
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "probing %s", p.URL)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("probing %s: status %d", p.URL, resp.StatusCode)
	}
	return nil
}
