package dap

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/go-dap"

	"github.com/ctagard/dotnet-dap/internal/ctxlog"
	"github.com/ctagard/dotnet-dap/internal/errors"
	"github.com/ctagard/dotnet-dap/internal/launch"
	"github.com/ctagard/dotnet-dap/pkg/types"
)

// Default request timeouts
const (
	requestTimeout = 10 * time.Second
	startTimeout   = 30 * time.Second
)

// Client provides a high-level API for the DAP requests that start and stop
// a session
type Client struct {
	transport *Transport
	logger    *slog.Logger

	// Response handling
	pendingRequests map[int]chan dap.Message
	mu              sync.Mutex

	// Event handling
	eventHandler func(dap.Message)
	handlerMu    sync.RWMutex

	// Capabilities from initialize response
	capabilities dap.Capabilities

	initialized     chan struct{}
	initializedOnce sync.Once
	terminated      chan struct{}
	terminatedOnce  sync.Once

	// Context for shutdown
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewClient creates a new DAP client with the given transport. ctx supplies
// the logger only; the client lives until Close.
func NewClient(ctx context.Context, transport *Transport) *Client {
	runCtx, cancel := context.WithCancel(context.Background())
	c := &Client{
		transport:       transport,
		logger:          ctxlog.FromContext(ctx),
		pendingRequests: make(map[int]chan dap.Message),
		initialized:     make(chan struct{}),
		terminated:      make(chan struct{}),
		ctx:             runCtx,
		cancel:          cancel,
	}

	c.wg.Add(1)
	go c.readLoop()

	return c
}

// SetEventHandler sets the handler for DAP events
func (c *Client) SetEventHandler(handler func(dap.Message)) {
	c.handlerMu.Lock()
	c.eventHandler = handler
	c.handlerMu.Unlock()
}

// Terminated is closed once the adapter reports the debuggee has ended or
// the transport fails
func (c *Client) Terminated() <-chan struct{} {
	return c.terminated
}

func (c *Client) readLoop() {
	defer c.wg.Done()
	defer c.markTerminated()

	consecutiveErrors := 0
	const maxConsecutiveErrors = 5

	for {
		msg, err := c.transport.Receive()
		if err != nil {
			select {
			case <-c.ctx.Done():
				return
			default:
			}
			consecutiveErrors++
			c.logger.Warn("DAP transport error", "attempt", consecutiveErrors, "error", err)
			if consecutiveErrors >= maxConsecutiveErrors {
				c.logger.Error("DAP transport: too many consecutive errors, stopping read loop")
				return
			}
			continue
		}

		consecutiveErrors = 0
		c.handleMessage(msg)
	}
}

// handleMessage routes responses to their waiting request and everything
// else to the event handler
func (c *Client) handleMessage(msg dap.Message) {
	if resp, ok := msg.(dap.ResponseMessage); ok {
		seq := resp.GetResponse().RequestSeq
		c.mu.Lock()
		if ch, ok := c.pendingRequests[seq]; ok {
			ch <- msg
			delete(c.pendingRequests, seq)
		}
		c.mu.Unlock()
		return
	}

	switch msg.(type) {
	case *dap.InitializedEvent:
		c.initializedOnce.Do(func() { close(c.initialized) })
	case *dap.TerminatedEvent:
		c.markTerminated()
	}

	c.handlerMu.RLock()
	handler := c.eventHandler
	c.handlerMu.RUnlock()
	if handler != nil {
		handler(msg)
	}
}

func (c *Client) markTerminated() {
	c.terminatedOnce.Do(func() { close(c.terminated) })
}

// send assigns a sequence number, registers a response channel and writes
// the request
func (c *Client) send(req dap.RequestMessage) (chan dap.Message, error) {
	seq := c.transport.NextSeq()
	req.GetRequest().Seq = seq

	respCh := make(chan dap.Message, 1)
	c.mu.Lock()
	c.pendingRequests[seq] = respCh
	c.mu.Unlock()

	if err := c.transport.Send(req); err != nil {
		c.forget(seq)
		return nil, err
	}
	return respCh, nil
}

func (c *Client) forget(seq int) {
	c.mu.Lock()
	delete(c.pendingRequests, seq)
	c.mu.Unlock()
}

func (c *Client) await(req dap.RequestMessage, respCh chan dap.Message, timeout time.Duration) (dap.Message, error) {
	command := req.GetRequest().Command
	select {
	case resp := <-respCh:
		if err := checkResponse(command, resp); err != nil {
			return nil, err
		}
		return resp, nil
	case <-time.After(timeout):
		c.forget(req.GetRequest().Seq)
		return nil, fmt.Errorf("%s response timeout", command)
	case <-c.ctx.Done():
		return nil, c.ctx.Err()
	}
}

// sendRequest sends a request and waits for its successful response
func (c *Client) sendRequest(req dap.RequestMessage, timeout time.Duration) (dap.Message, error) {
	respCh, err := c.send(req)
	if err != nil {
		return nil, err
	}
	return c.await(req, respCh, timeout)
}

// checkResponse turns unsuccessful responses into DAP_PROTOCOL_ERROR
func checkResponse(command string, msg dap.Message) error {
	if errResp, ok := msg.(*dap.ErrorResponse); ok {
		detail := errResp.Message
		if errResp.Body.Error != nil && errResp.Body.Error.Format != "" {
			detail = errResp.Body.Error.Format
		}
		return errors.Wrap(errors.CodeDAPProtocolError,
			fmt.Sprintf("%s failed: %s", command, detail),
			"Check the debugger configuration and the adapter's stderr output.", nil)
	}
	resp, ok := msg.(dap.ResponseMessage)
	if !ok {
		return fmt.Errorf("unexpected message type: %T", msg)
	}
	if !resp.GetResponse().Success {
		return errors.Wrap(errors.CodeDAPProtocolError,
			fmt.Sprintf("%s failed: %s", command, resp.GetResponse().Message), "", nil)
	}
	return nil
}

func newRequest(command string) dap.Request {
	return dap.Request{
		ProtocolMessage: dap.ProtocolMessage{Type: "request"},
		Command:         command,
	}
}

// Initialize sends the initialize request for a coreclr adapter
func (c *Client) Initialize(clientID, clientName string) (*dap.InitializeResponse, error) {
	req := &dap.InitializeRequest{
		Request: newRequest("initialize"),
		Arguments: dap.InitializeRequestArguments{
			ClientID:                     clientID,
			ClientName:                   clientName,
			AdapterID:                    "coreclr",
			Locale:                       "en-US",
			LinesStartAt1:                true,
			ColumnsStartAt1:              true,
			PathFormat:                   "path",
			SupportsVariableType:         true,
			SupportsVariablePaging:       true,
			SupportsRunInTerminalRequest: false,
		},
	}

	resp, err := c.sendRequest(req, requestTimeout)
	if err != nil {
		return nil, err
	}

	initResp, ok := resp.(*dap.InitializeResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type: %T", resp)
	}
	c.capabilities = initResp.Body
	return initResp, nil
}

// WaitInitialized waits for the initialized event with a timeout
func (c *Client) WaitInitialized(timeout time.Duration) error {
	select {
	case <-c.initialized:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("timeout waiting for initialized event")
	case <-c.ctx.Done():
		return c.ctx.Err()
	}
}

// Start sends the launch or attach request described by args, completes
// configuration once the adapter is initialized, then waits for the
// launch/attach response. Adapters may hold that response until
// configurationDone, so it is not awaited first.
func (c *Client) Start(args types.StartDebuggingRequestArguments) error {
	req, err := launch.ToRequest(args, 0)
	if err != nil {
		return err
	}

	respCh, err := c.send(req)
	if err != nil {
		return err
	}

	if err := c.WaitInitialized(requestTimeout); err != nil {
		c.forget(req.GetRequest().Seq)
		return err
	}
	if err := c.ConfigurationDone(); err != nil {
		c.forget(req.GetRequest().Seq)
		return err
	}

	_, err = c.await(req, respCh, startTimeout)
	return err
}

// ConfigurationDone signals that configuration is complete
func (c *Client) ConfigurationDone() error {
	_, err := c.sendRequest(&dap.ConfigurationDoneRequest{Request: newRequest("configurationDone")}, requestTimeout)
	return err
}

// Disconnect ends the debug session
func (c *Client) Disconnect(terminateDebuggee bool) error {
	req := &dap.DisconnectRequest{
		Request: newRequest("disconnect"),
		Arguments: &dap.DisconnectArguments{
			TerminateDebuggee: terminateDebuggee,
		},
	}
	_, err := c.sendRequest(req, requestTimeout)
	return err
}

// Capabilities returns the capabilities from the initialize response
func (c *Client) Capabilities() dap.Capabilities {
	return c.capabilities
}

// Close shuts down the client
func (c *Client) Close() error {
	c.cancel()
	err := c.transport.Close()
	c.wg.Wait()
	return err
}
