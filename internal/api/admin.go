package api

import (
	"fmt"
	"net/http"

	"tailscale.com/tsweb"
)

// AttachAdminRoutes adds a plain text dump of the tracked threats and
// source status to the debug pages.
func (s *Server) AttachAdminRoutes(debug *tsweb.DebugHandler) {
	debug.HandleFunc("engine", "Tracked threats and source status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		st := s.sup.Status()
		fmt.Fprintf(w, "reports=%s aircraft=%s network=%t location=%t detector=%s\n",
			st.Reports, st.Aircraft, st.Network, st.Location, st.Detector)
		if st.Vehicle != nil {
			fmt.Fprintf(w, "vehicle %.6f,%.6f heading %.0f\n",
				st.Vehicle.Position.Lat, st.Vehicle.Position.Lon, st.Vehicle.Heading)
		}
		list := s.engine.Snapshot()
		fmt.Fprintf(w, "\n%d tracked\n", len(list))
		for i, t := range list {
			fmt.Fprintf(w, "%2d. %s %s (priority %d)\n", i+1, t.Label(), t.Summary(), t.Priority)
		}
	})
}
