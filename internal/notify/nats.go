package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/jsdx761/nexus/internal/announce"
	"github.com/jsdx761/nexus/internal/monitoring"
)

// DefaultSubjectPrefix prefixes every published subject. Events go to
// <prefix>.threats, <prefix>.speech and <prefix>.earcon.
const DefaultSubjectPrefix = "nexus"

// Embedded is the URL value selecting an in-process NATS server.
const Embedded = "embedded"

// NATSPublisher publishes engine events to NATS subjects.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
}

// Connect dials url with unlimited reconnects and returns a publisher
// using prefix, or DefaultSubjectPrefix when prefix is empty.
func Connect(url, prefix string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("nexus"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			monitoring.Logf("nats error: %v", err)
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				monitoring.Logf("nats disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			monitoring.Logf("nats reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return NewNATSPublisher(nc, prefix), nil
}

// NewNATSPublisher publishes over an existing connection.
func NewNATSPublisher(nc *nats.Conn, prefix string) *NATSPublisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSPublisher{nc: nc, prefix: prefix}
}

// Subject returns the subject events of kind are published to.
func (p *NATSPublisher) Subject(kind announce.EventKind) string {
	return p.prefix + "." + string(kind)
}

// Publish implements announce.Listener. The client buffers outgoing
// messages, so this does not wait on the network.
func (p *NATSPublisher) Publish(ev announce.Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		monitoring.Logf("notify: encoding %s event: %v", ev.Kind, err)
		return
	}
	if err := p.nc.Publish(p.Subject(ev.Kind), msg); err != nil {
		monitoring.Logf("notify: publishing %s: %v", p.Subject(ev.Kind), err)
	}
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if err := p.nc.FlushTimeout(2 * time.Second); err != nil {
		monitoring.Logf("notify: flush on close: %v", err)
	}
	p.nc.Close()
	return nil
}

// StartEmbeddedServer runs a NATS server in process on host:port (port -1
// picks a free port) and waits until it accepts connections.
func StartEmbeddedServer(host string, port int) (*server.Server, error) {
	ns, err := server.NewServer(&server.Options{
		Host:   host,
		Port:   port,
		NoLog:  true,
		NoSigs: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create NATS server: %w", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server not ready for connections")
	}
	monitoring.Logf("embedded NATS server listening on %s", ns.ClientURL())
	return ns, nil
}
