package dap

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/google/go-dap"

	"github.com/ctagard/dotnet-dap/internal/errors"
	"github.com/ctagard/dotnet-dap/pkg/types"
)

// fakeAdapter is a minimal DAP server that holds the launch response until
// configurationDone, the way vsdbg does.
type fakeAdapter struct {
	t        *testing.T
	listener net.Listener

	mu       sync.Mutex
	commands []string
	launch   json.RawMessage
}

func newFakeAdapter(t *testing.T) *fakeAdapter {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	f := &fakeAdapter{t: t, listener: ln}
	go f.serve()
	t.Cleanup(func() { _ = ln.Close() })
	return f
}

func (f *fakeAdapter) addr() string {
	return f.listener.Addr().String()
}

func (f *fakeAdapter) received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

func (f *fakeAdapter) serve() {
	conn, err := f.listener.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)
	seq := 0
	write := func(msg dap.Message) {
		_ = dap.WriteProtocolMessage(w, msg)
		_ = w.Flush()
	}
	response := func(req *dap.Request, success bool, message string) dap.Response {
		seq++
		return dap.Response{
			ProtocolMessage: dap.ProtocolMessage{Seq: seq, Type: "response"},
			RequestSeq:      req.Seq,
			Success:         success,
			Command:         req.Command,
			Message:         message,
		}
	}
	event := func(name string) dap.Event {
		seq++
		return dap.Event{ProtocolMessage: dap.ProtocolMessage{Seq: seq, Type: "event"}, Event: name}
	}

	var pendingLaunch dap.RequestMessage
	for {
		msg, err := dap.ReadProtocolMessage(r)
		if err != nil {
			return
		}
		req, ok := msg.(dap.RequestMessage)
		if !ok {
			continue
		}
		f.mu.Lock()
		f.commands = append(f.commands, req.GetRequest().Command)
		f.mu.Unlock()

		switch m := msg.(type) {
		case *dap.InitializeRequest:
			write(&dap.InitializeResponse{
				Response: response(&m.Request, true, ""),
				Body:     dap.Capabilities{SupportsConfigurationDoneRequest: true, SupportsConditionalBreakpoints: true},
			})
		case *dap.LaunchRequest:
			f.mu.Lock()
			f.launch = m.Arguments
			f.mu.Unlock()
			var args map[string]interface{}
			_ = json.Unmarshal(m.Arguments, &args)
			if args["program"] == "/fail.dll" {
				write(&dap.ErrorResponse{
					Response: response(&m.Request, false, "launch failed"),
					Body:     dap.ErrorResponseBody{Error: &dap.ErrorMessage{Id: 1, Format: "program does not exist"}},
				})
				continue
			}
			pendingLaunch = m
			write(&dap.InitializedEvent{Event: event("initialized")})
		case *dap.AttachRequest:
			pendingLaunch = m
			write(&dap.InitializedEvent{Event: event("initialized")})
		case *dap.ConfigurationDoneRequest:
			write(&dap.ConfigurationDoneResponse{Response: response(&m.Request, true, "")})
			if pendingLaunch != nil {
				switch p := pendingLaunch.(type) {
				case *dap.LaunchRequest:
					write(&dap.LaunchResponse{Response: response(&p.Request, true, "")})
				case *dap.AttachRequest:
					write(&dap.AttachResponse{Response: response(&p.Request, true, "")})
				}
				pendingLaunch = nil
			}
		case *dap.DisconnectRequest:
			write(&dap.DisconnectResponse{Response: response(&m.Request, true, "")})
			write(&dap.ExitedEvent{Event: event("exited"), Body: dap.ExitedEventBody{ExitCode: 7}})
			write(&dap.TerminatedEvent{Event: event("terminated")})
		}
	}
}

func connect(t *testing.T, f *fakeAdapter) *Client {
	t.Helper()
	transport, err := NewTCPTransport(f.addr(), time.Second)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	client := NewClient(context.Background(), transport)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// TestClient_StartSequence verifies initialize, launch, configurationDone
// ordering and the launch payload.
func TestClient_StartSequence(t *testing.T) {
	f := newFakeAdapter(t)
	client := connect(t, f)

	resp, err := client.Initialize("dotnet-dap", "dotnet-dap")
	if err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	if !resp.Body.SupportsConfigurationDoneRequest || !client.Capabilities().SupportsConditionalBreakpoints {
		t.Errorf("unexpected capabilities %+v", resp.Body)
	}

	config := json.RawMessage(`{"type":"coreclr","request":"launch","program":"/app/App.dll"}`)
	if err := client.Start(types.StartDebuggingRequestArguments{Configuration: config, Request: types.RequestLaunch}); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	want := []string{"initialize", "launch", "configurationDone"}
	got := f.received()
	if len(got) != len(want) {
		t.Fatalf("expected commands %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("command %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	f.mu.Lock()
	launchArgs := string(f.launch)
	f.mu.Unlock()
	if launchArgs != string(config) {
		t.Errorf("expected launch arguments %s, got %s", config, launchArgs)
	}
}

// TestClient_Attach verifies attach requests follow the same sequence.
func TestClient_Attach(t *testing.T) {
	f := newFakeAdapter(t)
	client := connect(t, f)

	if _, err := client.Initialize("dotnet-dap", "dotnet-dap"); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	err := client.Start(types.StartDebuggingRequestArguments{
		Configuration: json.RawMessage(`{"request":"attach","processId":42}`),
		Request:       types.RequestAttach,
	})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if got := f.received(); len(got) < 2 || got[1] != "attach" {
		t.Errorf("expected attach request, got %v", got)
	}
}

// TestClient_ErrorResponse verifies a failed launch becomes a protocol error.
func TestClient_ErrorResponse(t *testing.T) {
	f := newFakeAdapter(t)
	client := connect(t, f)

	if _, err := client.Initialize("dotnet-dap", "dotnet-dap"); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	respCh, err := client.send(&dap.LaunchRequest{
		Request:   newRequest("launch"),
		Arguments: json.RawMessage(`{"program":"/fail.dll"}`),
	})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	select {
	case msg := <-respCh:
		err := checkResponse("launch", msg)
		if !errors.HasCode(err, errors.CodeDAPProtocolError) {
			t.Fatalf("expected %s, got %v", errors.CodeDAPProtocolError, err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for launch response")
	}
}

// TestClient_DisconnectTerminates verifies the terminated event is observed.
func TestClient_DisconnectTerminates(t *testing.T) {
	f := newFakeAdapter(t)
	client := connect(t, f)

	if _, err := client.Initialize("dotnet-dap", "dotnet-dap"); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	events := make(chan string, 4)
	client.SetEventHandler(func(msg dap.Message) {
		if e, ok := msg.(dap.EventMessage); ok {
			events <- e.GetEvent().Event
		}
	})

	if err := client.Disconnect(true); err != nil {
		t.Fatalf("disconnect failed: %v", err)
	}
	select {
	case <-client.Terminated():
	case <-time.After(5 * time.Second):
		t.Fatal("expected client to report termination")
	}
	var seen []string
	for len(seen) < 2 {
		select {
		case name := <-events:
			seen = append(seen, name)
		case <-time.After(5 * time.Second):
			t.Fatalf("expected exited and terminated events, got %v", seen)
		}
	}
	if seen[0] != "exited" || seen[1] != "terminated" {
		t.Errorf("expected [exited terminated], got %v", seen)
	}
}

// TestCheckResponse verifies unsuccessful plain responses are errors.
func TestCheckResponse(t *testing.T) {
	ok := &dap.ConfigurationDoneResponse{Response: dap.Response{Success: true, Command: "configurationDone"}}
	if err := checkResponse("configurationDone", ok); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	failed := &dap.ConfigurationDoneResponse{Response: dap.Response{Success: false, Message: "nope"}}
	if err := checkResponse("configurationDone", failed); !errors.HasCode(err, errors.CodeDAPProtocolError) {
		t.Errorf("expected %s, got %v", errors.CodeDAPProtocolError, err)
	}
	if err := checkResponse("x", &dap.InitializedEvent{}); err == nil {
		t.Error("expected error for non-response message")
	}
}

// TestTransport_NextSeq verifies sequence numbers start at 1 and increase.
func TestTransport_NextSeq(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()
	transport := newTransport(a, a, a)
	defer transport.Close()

	for want := 1; want <= 3; want++ {
		if got := transport.NextSeq(); got != want {
			t.Errorf("expected seq %d, got %d", want, got)
		}
	}
}
