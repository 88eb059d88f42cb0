// Package fetch implements the HTTP collaborators of the polled sources:
// crowd-sourced reports, aircraft state vectors and the network probe.
package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/jsdx761/nexus/internal/httputil"
)

// ErrUnexpectedStatus is returned when a source answers with a status other
// than 200.
var ErrUnexpectedStatus = errors.New("unexpected status")

// ErrEmptyBody is returned when a source answers with no content.
var ErrEmptyBody = errors.New("empty response body")

// maxBody bounds a source response.
const maxBody = 8 << 20

// get performs req and returns the body of a 200 response.
func get(client httputil.HTTPClient, req *http.Request) ([]byte, http.Header, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "GET %s", req.URL.Redacted())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.Header, errors.Wrapf(ErrUnexpectedStatus, "GET %s: %d", req.URL.Redacted(), resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, resp.Header, errors.Wrapf(err, "reading %s", req.URL.Redacted())
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, resp.Header, errors.Wrapf(ErrEmptyBody, "GET %s", req.URL.Redacted())
	}
	return body, resp.Header, nil
}

func newRequest(ctx context.Context, method, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	req.Header.Set("Connection", "close")
	return req, nil
}

// SourceName derives the spoken name of the reports source from its URL:
// the second-level label of the host, capitalized. It falls back to
// "Crowd-sourced".
func SourceName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "Crowd-sourced"
	}
	parts := strings.Split(u.Hostname(), ".")
	if len(parts) < 2 || parts[len(parts)-2] == "" {
		return "Crowd-sourced"
	}
	label := strings.ToLower(parts[len(parts)-2])
	return strings.ToUpper(label[:1]) + label[1:]
}
