package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"tailscale.com/tsweb"

	"github.com/jsdx761/nexus/internal/announce"
	"github.com/jsdx761/nexus/internal/api"
	"github.com/jsdx761/nexus/internal/audio"
	"github.com/jsdx761/nexus/internal/config"
	"github.com/jsdx761/nexus/internal/fetch"
	"github.com/jsdx761/nexus/internal/httputil"
	"github.com/jsdx761/nexus/internal/notify"
	"github.com/jsdx761/nexus/internal/reconcile"
	"github.com/jsdx761/nexus/internal/registry"
	"github.com/jsdx761/nexus/internal/serialmux"
	"github.com/jsdx761/nexus/internal/supervisor"
	"github.com/jsdx761/nexus/internal/timeutil"
)

const defaultConfigHint = config.DefaultConfigPath + " if present"

// simPort selects the simulated detector bridge.
const simPort = "sim"

// fetchTimeout bounds one source request.
const fetchTimeout = 20 * time.Second

// setupLogging routes the engine package log streams to w. ops is always
// printed; diag adds state transitions and trace adds per-record detail.
func setupLogging(level string, w io.Writer) error {
	var diag, trace io.Writer
	switch level {
	case "ops":
	case "diag":
		diag = w
	case "trace":
		diag, trace = w, w
	default:
		return fmt.Errorf("unknown log level %q: expected ops, diag or trace", level)
	}
	announce.SetLogWriters(w, diag, trace)
	supervisor.SetLogWriters(w, diag, trace)
	reconcile.SetLogWriters(w, diag, trace)
	return nil
}

// loadConfig reads path, or DefaultConfigPath when path is empty and the
// file exists. With neither, every setting takes its default.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if _, err := os.Stat(config.DefaultConfigPath); err != nil {
			return config.EmptyConfig(), nil
		}
		path = config.DefaultConfigPath
	}
	return config.LoadConfig(path)
}

type detectorOptions struct {
	port     string
	baud     int
	disabled bool
	// interval between simulated bridge lines.
	interval time.Duration
}

// openDetector returns the detector device, or nil when it is disabled or
// no port is given.
func openDetector(opts detectorOptions) (*serialmux.Device, error) {
	if opts.disabled || opts.port == "" {
		return nil, nil
	}
	portOpts, err := serialmux.PortOptions{BaudRate: opts.baud}.Normalize()
	if err != nil {
		return nil, err
	}
	if opts.port == simPort {
		interval := opts.interval
		if interval <= 0 {
			interval = 2 * time.Second
		}
		return serialmux.NewDevice(simPort, portOpts, serialmux.SimulatedOpener(serialmux.DemoScript, interval)), nil
	}
	return serialmux.NewDevice(opts.port, portOpts, nil), nil
}

// app holds the wired components and what must be released on exit.
type app struct {
	engine   *announce.Engine
	sup      *supervisor.Supervisor
	api      *api.Server
	hub      *notify.Hub
	detector *serialmux.Device
	store    *registry.Store
	closers  []func() error
}

// build wires the engine, its sources and the UI collaborators.
func build(cfg *config.Config, sched *timeutil.Scheduler, out io.Writer, det detectorOptions) (*app, error) {
	a := &app{}
	settings := cfg.Engine()

	var player announce.Player = audio.Remote{}
	var console *audio.Console
	if cfg.GetPlayer() == config.PlayerConsole {
		console = audio.NewConsole(out, sched, cfg.GetSpeechWordDelay())
		player = console
	}
	a.engine = announce.NewEngine(sched, player, settings.Announce)
	if console != nil {
		console.SetCompleter(a.engine)
	}

	a.hub = notify.NewHub()
	a.engine.AddListener(a.hub)
	a.closers = append(a.closers, func() error { a.hub.Close(); return nil })
	if err := a.connectNATS(cfg); err != nil {
		a.close()
		return nil, err
	}

	client := httputil.NewStandardClient(fetchTimeout)
	deps := supervisor.Deps{
		Scheduler: sched,
		Engine:    a.engine,
		Network: &fetch.Prober{
			Client:  client,
			URL:     cfg.GetNetworkProbeURL(),
			Timeout: cfg.GetNetworkProbeTimeout(),
		},
	}
	if cfg.GetReportsEnabled() {
		deps.Reports = &fetch.ReportsClient{
			Client:      client,
			BaseURL:     cfg.GetReportsURL(),
			MaxDistance: cfg.GetReportsMaxDistance(),
		}
	}
	if cfg.GetAircraftEnabled() {
		if lookup := a.openRegistry(cfg.GetRegistryPath()); lookup != nil {
			deps.Aircraft = &fetch.AircraftClient{
				Client:      client,
				BaseURL:     cfg.GetAircraftURL(),
				User:        cfg.GetAircraftUser(),
				Password:    cfg.GetAircraftPassword(),
				MaxDistance: cfg.GetAircraftMaxDistance(),
				Registry:    lookup,
			}
		}
	}

	dev, err := openDetector(det)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("detector: %w", err)
	}
	if dev != nil {
		a.detector = dev
		deps.Detector = dev
	}

	sup, err := supervisor.New(settings.Supervisor, deps)
	if err != nil {
		a.close()
		return nil, err
	}
	a.sup = sup
	a.api = api.NewServer(a.engine, sup, a.hub)
	return a, nil
}

// openRegistry opens the aircraft registry. A missing or empty registry
// disables the aircraft source.
func (a *app) openRegistry(path string) registry.Lookup {
	lookup, closeFn, err := registry.Open(path)
	if err != nil {
		log.Printf("aircraft alerts disabled: %v", err)
		return nil
	}
	a.closers = append(a.closers, closeFn)
	if store, ok := lookup.(*registry.Store); ok {
		a.store = store
	}
	if lookup.Len() == 0 {
		log.Printf("aircraft alerts disabled: registry %s is empty", path)
		return nil
	}
	return lookup
}

func (a *app) connectNATS(cfg *config.Config) error {
	url := cfg.GetNATSURL()
	if url == "" {
		return nil
	}
	if url == notify.Embedded {
		ns, err := notify.StartEmbeddedServer("127.0.0.1", server.DEFAULT_PORT)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() error { ns.Shutdown(); return nil })
		url = ns.ClientURL()
	}
	pub, err := notify.Connect(url, cfg.GetNATSSubjectPrefix())
	if err != nil {
		return err
	}
	// Registered after the server so it closes first.
	a.closers = append(a.closers, pub.Close)
	a.engine.AddListener(pub)
	log.Printf("publishing events to %s under %s.>", url, cfg.GetNATSSubjectPrefix())
	return nil
}

func (a *app) attachAdminRoutes(debug *tsweb.DebugHandler) {
	a.api.AttachAdminRoutes(debug)
	if a.detector != nil {
		a.detector.AttachAdminRoutes(debug)
	}
	if a.store != nil {
		if err := a.store.AttachAdminRoutes(debug); err != nil {
			log.Printf("registry admin routes: %v", err)
		}
	}
}

// close releases everything in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("close: %v", err)
		}
	}
	a.closers = nil
}
