package api

import (
	"bufio"
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tailscale.com/tsweb"

	"github.com/jsdx761/nexus/internal/announce"
	"github.com/jsdx761/nexus/internal/geo"
	"github.com/jsdx761/nexus/internal/notify"
	"github.com/jsdx761/nexus/internal/supervisor"
	"github.com/jsdx761/nexus/internal/testutil"
	"github.com/jsdx761/nexus/internal/threat"
)

type fakeEngine struct {
	mu      sync.Mutex
	threats []*threat.Threat
	done    []string
}

func (e *fakeEngine) Snapshot() []*threat.Threat { return e.threats }

func (e *fakeEngine) SpeechDone(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.done = append(e.done, id)
}

type fakeSupervisor struct {
	status    supervisor.Status
	fixes     []supervisor.Fix
	available []bool
}

func (s *fakeSupervisor) Status() supervisor.Status    { return s.status }
func (s *fakeSupervisor) OnLocation(f supervisor.Fix) { s.fixes = append(s.fixes, f) }
func (s *fakeSupervisor) OnLocationAvailability(available bool) {
	s.available = append(s.available, available)
}

func newTestServer() (*Server, *fakeEngine, *fakeSupervisor) {
	engine := &fakeEngine{}
	sup := &fakeSupervisor{status: supervisor.Status{Reports: "available", Aircraft: "unknown", Network: true, Detector: "disabled"}}
	return NewServer(engine, sup, notify.NewHub()), engine, sup
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestListThreats(t *testing.T) {
	s, engine, _ := newTestServer()

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/threats", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.JSONEq(t, `[]`, rec.Body.String(), "an empty list is not null")

	engine.threats = []*threat.Threat{
		{Class: threat.ClassRadar, Alert: &threat.Alert{Band: threat.BandKa, Frequency: 34.7}},
		{Class: threat.ClassReport, Report: &threat.Report{Type: "POLICE"}, Distance: 0.5},
	}
	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/threats", nil))
	var got []threat.Threat
	testutil.DecodeJSON(t, rec, &got)
	require.Len(t, got, 2)
	assert.Equal(t, threat.ClassReport, got[1].Class)
	assert.Equal(t, 34.7, got[0].Alert.Frequency)
}

func TestShowStatus(t *testing.T) {
	s, engine, sup := newTestServer()
	engine.threats = []*threat.Threat{{Class: threat.ClassLaser}}
	sup.status.Location = true
	sup.status.Vehicle = &threat.Vehicle{Position: geo.Position{Lat: 37.5, Lon: -122.1}, Heading: 90}

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	var got StatusResponse
	testutil.DecodeJSON(t, rec, &got)
	assert.Equal(t, "available", got.Reports)
	assert.True(t, got.Location)
	assert.Equal(t, 1, got.Threats)
	require.NotNil(t, got.Vehicle)
	assert.Equal(t, 90.0, got.Vehicle.Heading)
	assert.NotEmpty(t, got.Version.Version)
}

func TestPostLocation(t *testing.T) {
	tests := []struct {
		name      string
		body      any
		wantCode  int
		wantFixes int
		wantOff   bool
	}{
		{"fix", map[string]float64{"lat": 37.5, "lon": -122.1}, http.StatusAccepted, 1, false},
		{"fix with heading", map[string]float64{"lat": 37.5, "lon": -122.1, "heading": 270}, http.StatusAccepted, 1, false},
		{"provider off", map[string]bool{"available": false}, http.StatusAccepted, 0, true},
		{"missing lon", map[string]float64{"lat": 37.5}, http.StatusBadRequest, 0, false},
		{"latitude out of range", map[string]float64{"lat": 91, "lon": 0}, http.StatusBadRequest, 0, false},
		{"heading out of range", map[string]float64{"lat": 1, "lon": 1, "heading": 360}, http.StatusBadRequest, 0, false},
		{"unknown field", `{"lat":1,"lon":1,"speed":30}`, http.StatusBadRequest, 0, false},
		{"malformed", `{"lat":`, http.StatusBadRequest, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, sup := newTestServer()
			rec := serve(s, testutil.NewJSONRequest(t, http.MethodPost, "/api/location", tt.body))
			testutil.AssertStatusCode(t, rec.Code, tt.wantCode)
			assert.Len(t, sup.fixes, tt.wantFixes)
			if tt.wantOff {
				assert.Equal(t, []bool{false}, sup.available)
			} else {
				assert.Empty(t, sup.available)
			}
		})
	}
}

func TestPostLocationHeading(t *testing.T) {
	s, _, sup := newTestServer()
	rec := serve(s, testutil.NewJSONRequest(t, http.MethodPost, "/api/location", `{"lat":37.5,"lon":-122.1,"heading":45}`))
	testutil.AssertStatusCode(t, rec.Code, http.StatusAccepted)
	require.Len(t, sup.fixes, 1)
	require.NotNil(t, sup.fixes[0].Heading)
	assert.Equal(t, 45.0, *sup.fixes[0].Heading)
	assert.Equal(t, geo.Position{Lat: 37.5, Lon: -122.1}, sup.fixes[0].Position)

	rec = serve(s, testutil.NewJSONRequest(t, http.MethodPost, "/api/location", `{"lat":37.5,"lon":-122.1}`))
	testutil.AssertStatusCode(t, rec.Code, http.StatusAccepted)
	assert.Nil(t, sup.fixes[1].Heading)
}

func TestSpeechDone(t *testing.T) {
	s, engine, _ := newTestServer()
	rec := serve(s, httptest.NewRequest(http.MethodPost, "/api/speech/3f2b-utt/done", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusAccepted)
	assert.Equal(t, []string{"3f2b-utt"}, engine.done)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/speech/3f2b-utt/done", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusMethodNotAllowed)
}

func TestMetrics(t *testing.T) {
	s, _, _ := newTestServer()
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestStreamEvents(t *testing.T) {
	s, _, _ := newTestServer()
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected\n", line)
	r.ReadString('\n')

	s.hub.Publish(announce.Event{Kind: announce.EventSpeech, Text: "Laser", ID: "u1"})
	lines := make(chan string, 1)
	go func() {
		l, _ := r.ReadString('\n')
		lines <- l
	}()
	select {
	case l := <-lines:
		assert.True(t, strings.HasPrefix(l, "data: {"), l)
		assert.Contains(t, l, `"text":"Laser"`)
		assert.Contains(t, l, `"id":"u1"`)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestStreamEventsDisabled(t *testing.T) {
	s := NewServer(&fakeEngine{}, &fakeSupervisor{}, nil)
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/events", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusServiceUnavailable)
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/threats?x=1", nil))
	assert.Contains(t, buf.String(), colorBoldRed+"418"+colorReset)
	assert.Contains(t, buf.String(), "/api/threats?x=1")
}

func TestStatusCodeColor(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, colorBoldGreen + "200" + colorReset},
		{304, colorYellow + "304" + colorReset},
		{404, colorBoldRed + "404" + colorReset},
		{503, colorBoldRed + "503" + colorReset},
		{101, "101"},
	}
	for _, tt := range tests {
		if got := statusCodeColor(tt.code); got != tt.want {
			t.Errorf("statusCodeColor(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestAdminEngineDump(t *testing.T) {
	s, engine, sup := newTestServer()
	engine.threats = []*threat.Threat{{Class: threat.ClassRadar, Alert: &threat.Alert{Band: threat.BandKa, Frequency: 34.7}, Priority: 2}}
	sup.status.Vehicle = &threat.Vehicle{Position: geo.Position{Lat: 37.5, Lon: -122.1}}

	mux := http.NewServeMux()
	s.AttachAdminRoutes(tsweb.Debugger(mux))
	req := httptest.NewRequest(http.MethodGet, "/debug/engine", nil)
	req.RemoteAddr = "127.0.0.1:4000"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	body := rec.Body.String()
	assert.Contains(t, body, "reports=available")
	assert.Contains(t, body, "1 tracked")
	assert.Contains(t, body, "34.7 GHz")
	assert.Contains(t, body, "vehicle 37.500000,-122.100000")
}
