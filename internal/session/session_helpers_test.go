package session

import (
	"errors"
	"sync"
	"time"
)

// fakeConn is an in-memory transport.WSConnection. ReadMessage drains an
// inbound queue the test feeds with pushRead; once the queue is exhausted
// and closed, ReadMessage returns io.EOF-equivalent to end ReadPump, mirroring
// a real socket's closed-connection behavior.
type fakeConn struct {
	mu       sync.Mutex
	inbound  chan []byte
	written  [][]byte
	pings    int
	closed   bool
	pongFunc func(string) error
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbound: make(chan []byte, 16)}
}

func (c *fakeConn) pushRead(b []byte) { c.inbound <- b }
func (c *fakeConn) closeInbound()     { close(c.inbound) }

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	b, ok := <-c.inbound
	if !ok {
		return 0, nil, errors.New("fakeConn: closed")
	}
	return 1, b, nil
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("fakeConn: write on closed connection")
	}
	c.written = append(c.written, data)
	return nil
}

func (c *fakeConn) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pings++
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) SetReadDeadline(time.Time) error  { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (c *fakeConn) SetReadLimit(int64)               {}
func (c *fakeConn) SetPongHandler(h func(string) error) {
	c.pongFunc = h
}
func (c *fakeConn) RemoteAddr() string { return "10.0.0.1:1234" }

func (c *fakeConn) writtenCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.written)
}

func testSessionConfig() Config {
	return Config{
		RequireAuth:       false,
		AuthTimeout:       time.Second,
		OutboundQueueSize: 8,
		EnableBatching:    false,
		BatchSize:         4,
		BatchInterval:     10 * time.Millisecond,
		WriteTimeout:      time.Second,
		InboundRatePerSec: 1000,
		InboundBurst:      1000,
		PongWait:          time.Minute,
		PingPeriod:        30 * time.Second,
	}
}
