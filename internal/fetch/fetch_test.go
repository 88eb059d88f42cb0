package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsdx761/nexus/internal/geo"
	"github.com/jsdx761/nexus/internal/httputil"
	"github.com/jsdx761/nexus/internal/registry"
	"github.com/jsdx761/nexus/internal/threat"
)

var vehicle = threat.Vehicle{Position: geo.Position{Lat: 45.5, Lon: -73.6}}

const reportsBody = `{"alerts":[
	{"type":"POLICE","subtype":"POLICE_VISIBLE","city":"Montreal, QC","street":"Rue Sherbrooke","nThumbsUp":4,"location":{"x":-73.6,"y":45.51}},
	{"type":"JAM","city":"Montreal, QC","location":{"x":-73.6,"y":45.5}},
	{"type":"ACCIDENT","city":"Westmount, QC","location":{"x":-73.59,"y":45.49}},
	7
]}`

// TestReportsFetch checks the query region and the decoding of a response.
func TestReportsFetch(t *testing.T) {
	mock := httputil.NewMockHTTPClient().AddResponse(http.StatusOK, reportsBody)
	c := &ReportsClient{Client: mock, BaseURL: "https://www.waze.com/", MaxDistance: 2}

	list, err := c.Fetch(context.Background(), vehicle)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "POLICE", list[0].Report.Type)
	assert.Equal(t, "Montreal", list[0].Report.City)
	assert.Equal(t, 12, list[0].BearingHour)
	assert.InDelta(t, 0.69, list[0].Distance, 0.01)
	assert.Equal(t, "Westmount", list[1].Report.City)

	req := mock.Request(0)
	require.NotNil(t, req)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/rtserver/web/TGeoRSS", req.URL.Path)
	q := req.URL.Query()
	assert.Equal(t, "alerts", q.Get("types"))
	assert.Equal(t, "200", q.Get("ma"))
	assertRegion(t, q, "bottom", "top", "left", "right", 2)
}

// assertRegion checks that the query bounds span radiusMiles around the
// vehicle in each direction.
func assertRegion(t *testing.T, q url.Values, bottom, top, left, right string, radiusMiles float64) {
	t.Helper()
	parse := func(k string) float64 {
		v, err := strconv.ParseFloat(q.Get(k), 64)
		require.NoError(t, err, k)
		return v
	}
	p := vehicle.Position
	for _, c := range []struct {
		key string
		at  geo.Position
	}{
		{bottom, geo.Position{Lat: parse(bottom), Lon: p.Lon}},
		{top, geo.Position{Lat: parse(top), Lon: p.Lon}},
		{left, geo.Position{Lat: p.Lat, Lon: parse(left)}},
		{right, geo.Position{Lat: p.Lat, Lon: parse(right)}},
	} {
		assert.InDelta(t, radiusMiles, geo.ToMiles(geo.Distance(p, c.at)), 0.01, c.key)
	}
	assert.Less(t, parse(bottom), parse(top))
	assert.Less(t, parse(left), parse(right))
}

func TestReportsFetchFailures(t *testing.T) {
	tests := []struct {
		name   string
		mock   *httputil.MockHTTPClient
		target error
	}{
		{"status", httputil.NewMockHTTPClient().AddResponse(http.StatusTooManyRequests, "slow down"), ErrUnexpectedStatus},
		{"empty", httputil.NewMockHTTPClient().AddResponse(http.StatusOK, "  \n"), ErrEmptyBody},
		{"transport", httputil.NewMockHTTPClient().AddError(errors.New("dial tcp: timeout")), nil},
		{"envelope", httputil.NewMockHTTPClient().AddResponse(http.StatusOK, "<html>"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &ReportsClient{Client: tt.mock, BaseURL: "https://www.waze.com", MaxDistance: 2}
			list, err := c.Fetch(context.Background(), vehicle)
			require.Error(t, err)
			assert.Nil(t, list)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}
}

const statesBody = `{"time":1700000000,"states":[
	["a54f11","N761P   ","United States",1700000000,1700000000,-73.6,45.52,300.0,false,50.0,0.0,0.0,null,320.0,"1200",false,0],
	["ac82ec","",         "United States",1700000000,1700000000,-73.6,45.49,0.0,true,0.0,0.0,0.0,null,null,null,false,0],
	["ffffff","UAL1",     "United States",1700000000,1700000000,-73.6,45.51,9000.0,false,200.0,0.0,0.0,null,9100.0,null,false,0],
	["a0b1c2","",         "United States",1700000000,1700000000,-73.6,46.5,100.0,false,10.0,0.0,0.0,null,null,null,false,0],
	[null,"BAD"],
	"junk"
]}`

func testRegistry() registry.Table {
	return registry.Table{
		"a54f11": {Transponder: "a54f11", Manufacturer: "CESSNA", ICAODescription: "L1P", Owner: "State Police"},
		"ac82ec": {Transponder: "ac82ec", Manufacturer: "BELL", ICAODescription: "H1T", Owner: "County Sheriff"},
		"a0b1c2": {Transponder: "a0b1c2", Manufacturer: "DJI", ICAODescription: "H4E"},
	}
}

// TestAircraftFetch checks registry filtering, ground and range drops and
// the query.
func TestAircraftFetch(t *testing.T) {
	mock := httputil.NewMockHTTPClient().AddResponseWithHeaders(http.StatusOK, statesBody,
		http.Header{"X-Rate-Limit-Remaining": {"3999"}})
	c := &AircraftClient{Client: mock, BaseURL: "https://opensky-network.org", MaxDistance: 5, Registry: testRegistry()}

	list, err := c.Fetch(context.Background(), vehicle)
	require.NoError(t, err)
	require.Len(t, list, 1)
	a := list[0].Aircraft
	assert.Equal(t, "a54f11", a.Transponder)
	assert.Equal(t, "N761P", a.CallSign)
	assert.Equal(t, 320.0, a.Altitude)
	assert.Equal(t, "Airplane", a.Kind)
	assert.Equal(t, "State Police", a.Owner)

	req := mock.Request(0)
	assert.Equal(t, "/api/states/all", req.URL.Path)
	_, _, ok := req.BasicAuth()
	assert.False(t, ok, "anonymous requests carry no credentials")
	assertRegion(t, req.URL.Query(), "lamin", "lamax", "lomin", "lomax", 5)
}

func TestAircraftBasicAuth(t *testing.T) {
	tests := []struct {
		user, password string
		want           bool
	}{
		{"alice", "secret", true},
		{"alice", "", false},
		{"", "secret", false},
	}
	for _, tt := range tests {
		mock := httputil.NewMockHTTPClient().AddResponse(http.StatusOK, `{"states":null}`)
		c := &AircraftClient{Client: mock, BaseURL: "https://opensky-network.org", User: tt.user, Password: tt.password,
			MaxDistance: 5, Registry: registry.Table{}}
		list, err := c.Fetch(context.Background(), vehicle)
		require.NoError(t, err)
		assert.Empty(t, list)
		assert.Equal(t, tt.want, c.Authenticated())

		user, password, ok := mock.Request(0).BasicAuth()
		assert.Equal(t, tt.want, ok)
		if ok {
			assert.Equal(t, tt.user, user)
			assert.Equal(t, tt.password, password)
		}
	}
}

func TestAircraftFetchStatus(t *testing.T) {
	mock := httputil.NewMockHTTPClient().AddResponse(http.StatusUnauthorized, "")
	c := &AircraftClient{Client: mock, BaseURL: "https://opensky-network.org", MaxDistance: 5, Registry: testRegistry()}
	_, err := c.Fetch(context.Background(), vehicle)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Contains(t, err.Error(), "401")
}

func TestProbe(t *testing.T) {
	mock := httputil.NewMockHTTPClient().
		AddResponse(http.StatusOK, "").
		AddError(errors.New("no route to host"))
	p := &Prober{Client: mock, URL: "https://www.google.com", Timeout: 5 * time.Second}

	assert.NoError(t, p.Probe(context.Background()))
	assert.Error(t, p.Probe(context.Background()))

	req := mock.Request(0)
	assert.Equal(t, http.MethodHead, req.Method)
	deadline, ok := req.Context().Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(5*time.Second), deadline, time.Second)
}

// TestProbeNeedsOK checks that answers other than 200 do not count as a
// working network.
func TestProbeNeedsOK(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"redirect", http.StatusFound},
		{"moved", http.StatusMovedPermanently},
		{"outage page", http.StatusServiceUnavailable},
		{"captive portal", http.StatusNetworkAuthenticationRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := httputil.NewMockHTTPClient().AddResponse(tt.status, "")
			p := &Prober{Client: mock, URL: "https://www.google.com"}
			err := p.Probe(context.Background())
			if err == nil {
				t.Fatalf("Probe with status %d succeeded, want error", tt.status)
			}
			assert.Contains(t, err.Error(), strconv.Itoa(tt.status))
		})
	}
}

func TestSourceName(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.waze.com", "Waze"},
		{"https://WWW.WAZE.COM/row-rtserver", "Waze"},
		{"http://localhost:8080", "Crowd-sourced"},
		{"::not a url", "Crowd-sourced"},
		{"https://reports.example.co", "Example"},
	}
	for _, tt := range tests {
		if got := SourceName(tt.url); got != tt.want {
			t.Errorf("SourceName(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
