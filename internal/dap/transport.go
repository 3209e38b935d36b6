// Package dap implements the client side of the Debug Adapter Protocol (DAP)
// needed to start a .NET debug session from an assembled adapter binary.
//
// This package provides:
//   - Transport: DAP message framing over an adapter's stdio or a TCP socket
//   - Client: initialize, launch or attach, configurationDone and disconnect
//   - SessionManager: bounded set of live sessions with lifecycle management
//
// The protocol is described at: https://microsoft.github.io/debug-adapter-protocol/
package dap

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/go-dap"
)

// Transport handles communication with a DAP server
type Transport struct {
	closer io.Closer
	reader *bufio.Reader
	writer *bufio.Writer
	mu     sync.Mutex
	seq    int
}

// NewTCPTransport dials a debug adapter listening on address
func NewTCPTransport(address string, timeout time.Duration) (*Transport, error) {
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DAP server at %s: %w", address, err)
	}
	return newTransport(conn, conn, conn), nil
}

// NewStdioTransport creates a transport over an adapter process's pipes
func NewStdioTransport(stdin io.WriteCloser, stdout io.ReadCloser) *Transport {
	return newTransport(stdout, stdin, pipePair{stdin: stdin, stdout: stdout})
}

func newTransport(r io.Reader, w io.Writer, c io.Closer) *Transport {
	return &Transport{
		closer: c,
		reader: bufio.NewReader(r),
		writer: bufio.NewWriter(w),
		seq:    1,
	}
}

// pipePair closes both ends of a child process's stdio
type pipePair struct {
	stdin  io.WriteCloser
	stdout io.ReadCloser
}

func (p pipePair) Close() error {
	errIn := p.stdin.Close()
	errOut := p.stdout.Close()
	if errIn != nil {
		return errIn
	}
	return errOut
}

// NextSeq returns the next sequence number
func (t *Transport) NextSeq() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	seq := t.seq
	t.seq++
	return seq
}

// Send writes one framed DAP message
func (t *Transport) Send(msg dap.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := dap.WriteProtocolMessage(t.writer, msg); err != nil {
		return fmt.Errorf("failed to write DAP message: %w", err)
	}
	if err := t.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush DAP message: %w", err)
	}
	return nil
}

// Receive reads one framed DAP message
func (t *Transport) Receive() (dap.Message, error) {
	msg, err := dap.ReadProtocolMessage(t.reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read DAP message: %w", err)
	}
	return msg, nil
}

// Close closes the underlying connection or pipes
func (t *Transport) Close() error {
	return t.closer.Close()
}
