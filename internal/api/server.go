// Package api serves the HTTP surface of nexus: the threat list and status
// for displays, a live event stream, location ingest from the phone or GPS
// bridge, and the completion callback of remote speech players.
package api

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jsdx761/nexus/internal/geo"
	"github.com/jsdx761/nexus/internal/httputil"
	"github.com/jsdx761/nexus/internal/notify"
	"github.com/jsdx761/nexus/internal/supervisor"
	"github.com/jsdx761/nexus/internal/threat"
	"github.com/jsdx761/nexus/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Engine is the part of the announcement engine the API reads.
type Engine interface {
	Snapshot() []*threat.Threat
	SpeechDone(id string)
}

// Supervisor is the part of the supervisor the API reads and feeds.
type Supervisor interface {
	Status() supervisor.Status
	OnLocation(supervisor.Fix)
	OnLocationAvailability(available bool)
}

type Server struct {
	engine Engine
	sup    Supervisor
	hub    *notify.Hub
}

func NewServer(engine Engine, sup Supervisor, hub *notify.Hub) *Server {
	return &Server{engine: engine, sup: sup, hub: hub}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// Router returns the API routes and /metrics.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.HandleFunc("/threats", s.listThreats).Methods(http.MethodGet)
	apiRouter.HandleFunc("/status", s.showStatus).Methods(http.MethodGet)
	apiRouter.HandleFunc("/events", s.streamEvents).Methods(http.MethodGet)
	apiRouter.HandleFunc("/location", s.postLocation).Methods(http.MethodPost)
	apiRouter.HandleFunc("/speech/{id}/done", s.speechDone).Methods(http.MethodPost)
	return router
}

func (s *Server) listThreats(w http.ResponseWriter, r *http.Request) {
	list := s.engine.Snapshot()
	if list == nil {
		list = []*threat.Threat{}
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	supervisor.Status
	Threats     int          `json:"threats"`
	Subscribers int          `json:"subscribers"`
	Version     version.Info `json:"version"`
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:  s.sup.Status(),
		Threats: len(s.engine.Snapshot()),
		Version: version.Get(),
	}
	if s.hub != nil {
		resp.Subscribers = s.hub.Len()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// LocationRequest is the body of POST /api/location. Available false
// reports the location provider turning off and needs no coordinates.
type LocationRequest struct {
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
	Heading   *float64 `json:"heading,omitempty"`
	Available *bool    `json:"available,omitempty"`
}

func (s *Server) postLocation(w http.ResponseWriter, r *http.Request) {
	var req LocationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if req.Available != nil && !*req.Available {
		s.sup.OnLocationAvailability(false)
		httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "unavailable"})
		return
	}
	if req.Lat == nil || req.Lon == nil {
		httputil.BadRequest(w, "lat and lon are required")
		return
	}
	if *req.Lat < -90 || *req.Lat > 90 || *req.Lon < -180 || *req.Lon > 180 {
		httputil.BadRequest(w, fmt.Sprintf("position %f,%f out of range", *req.Lat, *req.Lon))
		return
	}
	if req.Heading != nil && (*req.Heading < 0 || *req.Heading >= 360) {
		httputil.BadRequest(w, fmt.Sprintf("heading %f must be in [0, 360)", *req.Heading))
		return
	}
	s.sup.OnLocation(supervisor.Fix{
		Position: geo.Position{Lat: *req.Lat, Lon: *req.Lon},
		Heading:  req.Heading,
	})
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) speechDone(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.engine.SpeechDone(id)
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "id": id})
}
