package serialmux

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"tailscale.com/tsweb"
)

var detectorPage = template.Must(template.New("detector").Parse(`<!DOCTYPE html>
<html>
<head><title>Detector bridge</title></head>
<body>
<h1>Detector bridge {{.Path}}</h1>
<p>Status: {{if .Connected}}connected{{else}}disconnected{{end}}</p>
<form id="send">
  <input name="command" placeholder="command" autofocus>
  <button type="submit">Send</button>
</form>
<pre id="tail"></pre>
<script>
const tail = document.getElementById("tail");
const events = new EventSource("detector-tail");
events.onmessage = (e) => {
  tail.textContent = e.data + "\n" + tail.textContent.split("\n").slice(0, 200).join("\n");
};
document.getElementById("send").onsubmit = async (e) => {
  e.preventDefault();
  const resp = await fetch("detector-send", {method: "POST", body: new FormData(e.target)});
  tail.textContent = "> " + (await resp.text()) + "\n" + tail.textContent;
};
</script>
</body>
</html>
`))

// AttachAdminRoutes adds the detector page, command endpoint and live tail
// to the debug pages.
func (d *Device) AttachAdminRoutes(debug *tsweb.DebugHandler) {
	debug.HandleFunc("detector", "Detector bridge tail and commands", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		data := struct {
			Path      string
			Connected bool
		}{d.path, d.Connected()}
		if err := detectorPage.Execute(w, data); err != nil {
			http.Error(w, "Failed to render page", http.StatusInternalServerError)
		}
	})

	debug.HandleSilentFunc("detector-send", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		command := strings.TrimSpace(r.FormValue("command"))
		if command == "" {
			http.Error(w, "Missing command", http.StatusBadRequest)
			return
		}
		if err := d.SendCommand(command); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintf(w, "Wrote command %q to %s", command, d.path)
	})

	debug.HandleSilentFunc("detector-tail", d.serveTail)
}

// serveTail streams every line read from the bridge as server-sent events.
func (d *Device) serveTail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	mux := d.current()
	if mux == nil {
		http.Error(w, errNotConnected.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	id, lines := mux.Subscribe()
	defer mux.Unsubscribe(id)

	fmt.Fprint(w, ": ping\n\n")
	flusher.Flush()
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", line); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
