package serialmux

import (
	"bytes"
	"errors"
	"io"
	"sync"
)

// testPort is an in-memory SerialPorter. Reads block until data is added
// or the port is closed; EOF can be signalled with Finish.
type testPort struct {
	mu       sync.Mutex
	cond     *sync.Cond
	read     bytes.Buffer
	written  bytes.Buffer
	closed   bool
	finished bool
	writeErr error
}

func newTestPort() *testPort {
	p := &testPort{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *testPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for !p.closed && !p.finished && p.read.Len() == 0 {
		p.cond.Wait()
	}
	if p.closed {
		return 0, errors.New("port closed")
	}
	if p.read.Len() == 0 && p.finished {
		return 0, io.EOF
	}
	return p.read.Read(b)
}

func (p *testPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	return p.written.Write(b)
}

func (p *testPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.cond.Broadcast()
	return nil
}

func (p *testPort) feed(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.read.WriteString(s)
	p.cond.Broadcast()
}

// finish makes reads return EOF once the buffered data is consumed.
func (p *testPort) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finished = true
	p.cond.Broadcast()
}

func (p *testPort) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *testPort) commands() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}
