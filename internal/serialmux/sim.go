package serialmux

import (
	"bytes"
	"io"
	"sync"
	"time"
)

// DemoScript is a short drive past a Ka band trap and a laser gun, as the
// bridge would report it.
var DemoScript = []string{
	"# bridge ready",
	"1,11,KA,2,0,34.7,F,1",
	"1,11,KA,5,0,34.7,F,1",
	"1,11,KA,8,0,34.7,F,1;2,12,K,1,0,24.15,S,1",
	"1,11,KA,6,0,34.7,B,1",
	"",
	"3,13,Laser,9,0,0,F,1",
	"",
	"",
	"",
}

// SimulatedPort replays a script of bridge lines in a loop, one line per
// interval, and records the commands written to it.
type SimulatedPort struct {
	r *io.PipeReader
	w *io.PipeWriter

	stop     chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	written bytes.Buffer
}

// NewSimulatedPort starts replaying lines.
func NewSimulatedPort(lines []string, interval time.Duration) *SimulatedPort {
	r, w := io.Pipe()
	p := &SimulatedPort{r: r, w: w, stop: make(chan struct{})}
	go p.replay(lines, interval)
	return p
}

func (p *SimulatedPort) replay(lines []string, interval time.Duration) {
	defer p.w.Close()
	if len(lines) == 0 {
		<-p.stop
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for i := 0; ; i++ {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
		}
		if _, err := io.WriteString(p.w, lines[i%len(lines)]+"\n"); err != nil {
			return
		}
	}
}

func (p *SimulatedPort) Read(b []byte) (int, error) { return p.r.Read(b) }

// Write records a command.
func (p *SimulatedPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.Write(b)
}

// Written returns everything written so far.
func (p *SimulatedPort) Written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}

// Close stops the replay.
func (p *SimulatedPort) Close() error {
	p.stopOnce.Do(func() {
		close(p.stop)
		p.r.Close()
	})
	return nil
}

// SimulatedOpener returns a PortOpener creating a fresh SimulatedPort on
// every open.
func SimulatedOpener(lines []string, interval time.Duration) PortOpener {
	return func(string, PortOptions) (SerialPorter, error) {
		return NewSimulatedPort(lines, interval), nil
	}
}
