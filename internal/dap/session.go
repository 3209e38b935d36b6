package dap

import (
	"context"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/google/go-dap"
	"github.com/google/uuid"

	"github.com/ctagard/dotnet-dap/internal/ctxlog"
	"github.com/ctagard/dotnet-dap/internal/errors"
	"github.com/ctagard/dotnet-dap/pkg/types"
)

// Session represents an active debug session
type Session struct {
	ID        string
	Adapter   string
	Request   types.RequestKind
	Status    types.SessionStatus
	Client    *Client
	Process   *exec.Cmd
	PID       int
	Program   string
	CreatedAt time.Time

	exitCode *int
	mu       sync.RWMutex
}

// SessionManager manages concurrent debug sessions
type SessionManager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	logger   *slog.Logger

	maxSessions    int
	sessionTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// NewSessionManager creates a new session manager. Sessions older than
// sessionTimeout are terminated; zero disables expiry.
func NewSessionManager(ctx context.Context, maxSessions int, sessionTimeout time.Duration) *SessionManager {
	runCtx, cancel := context.WithCancel(context.Background())
	sm := &SessionManager{
		sessions:       make(map[string]*Session),
		logger:         ctxlog.FromContext(ctx),
		maxSessions:    maxSessions,
		sessionTimeout: sessionTimeout,
		ctx:            runCtx,
		cancel:         cancel,
	}

	if sessionTimeout > 0 {
		go sm.cleanupLoop()
	}

	return sm
}

func (sm *SessionManager) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-sm.ctx.Done():
			return
		case <-ticker.C:
			sm.cleanupExpiredSessions()
		}
	}
}

func (sm *SessionManager) cleanupExpiredSessions() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := time.Now()
	for id, session := range sm.sessions {
		if now.Sub(session.CreatedAt) > sm.sessionTimeout {
			sm.logger.Info("terminating expired session", "session", id)
			sm.terminateSessionLocked(id, true)
		}
	}
}

// CreateSession reserves a slot for a new session. Sessions whose adapter
// has already terminated do not take a slot.
func (sm *SessionManager) CreateSession(adapter string, request types.RequestKind, program string) (*Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.maxSessions > 0 && sm.activeLocked() >= sm.maxSessions {
		return nil, errors.InvalidParameter("maxSessions", sm.maxSessions, "fewer active sessions; stop one with debug_stop")
	}

	session := &Session{
		ID:        uuid.New().String(),
		Adapter:   adapter,
		Request:   request,
		Status:    types.SessionStatusInitializing,
		Program:   program,
		CreatedAt: time.Now(),
	}

	sm.sessions[session.ID] = session
	return session, nil
}

// activeLocked counts sessions that are not terminated; sm.mu must be held
func (sm *SessionManager) activeLocked() int {
	n := 0
	for _, session := range sm.sessions {
		if session.status() != types.SessionStatusTerminated {
			n++
		}
	}
	return n
}

// Bind attaches the adapter process and its client to a session. Adapter
// output is logged, the debuggee's exit code is recorded and the session is
// marked terminated when the adapter goes away.
func (sm *SessionManager) Bind(id string, client *Client, cmd *exec.Cmd) error {
	session, err := sm.GetSession(id)
	if err != nil {
		return err
	}

	session.mu.Lock()
	session.Client = client
	session.Process = cmd
	if cmd != nil && cmd.Process != nil {
		session.PID = cmd.Process.Pid
	}
	session.mu.Unlock()

	if client != nil {
		client.SetEventHandler(func(msg dap.Message) {
			switch e := msg.(type) {
			case *dap.OutputEvent:
				sm.logger.Debug("debuggee output", "session", id, "category", e.Body.Category, "output", e.Body.Output)
			case *dap.ExitedEvent:
				code := e.Body.ExitCode
				session.mu.Lock()
				session.exitCode = &code
				session.mu.Unlock()
				sm.logger.Info("debuggee exited", "session", id, "exitCode", code)
			}
		})
		go func() {
			select {
			case <-client.Terminated():
				session.setStatus(types.SessionStatusTerminated)
			case <-sm.ctx.Done():
			}
		}()
	}
	return nil
}

// GetSession retrieves a session by ID
func (sm *SessionManager) GetSession(id string) (*Session, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, ok := sm.sessions[id]
	if !ok {
		return nil, errors.SessionNotFound(id)
	}
	return session, nil
}

// ListSessions returns all active sessions
func (sm *SessionManager) ListSessions() []*Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sessions := make([]*Session, 0, len(sm.sessions))
	for _, session := range sm.sessions {
		sessions = append(sessions, session)
	}
	return sessions
}

// UpdateSessionStatus updates the status of a session
func (sm *SessionManager) UpdateSessionStatus(id string, status types.SessionStatus) error {
	session, err := sm.GetSession(id)
	if err != nil {
		return err
	}
	session.setStatus(status)
	return nil
}

// TerminateSession disconnects from the adapter, kills its process group
// and forgets the session
func (sm *SessionManager) TerminateSession(id string, terminateDebuggee bool) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, ok := sm.sessions[id]; !ok {
		return errors.SessionNotFound(id)
	}
	sm.terminateSessionLocked(id, terminateDebuggee)
	return nil
}

// terminateSessionLocked must be called with sm.mu held
func (sm *SessionManager) terminateSessionLocked(id string, terminateDebuggee bool) {
	session, ok := sm.sessions[id]
	if !ok {
		return
	}

	session.mu.Lock()
	client, cmd, pid := session.Client, session.Process, session.PID
	session.mu.Unlock()

	if client != nil {
		if err := client.Disconnect(terminateDebuggee); err != nil {
			sm.logger.Warn("failed to disconnect session, continuing cleanup", "session", id, "error", err)
		}
		if err := client.Close(); err != nil {
			sm.logger.Warn("failed to close client, continuing cleanup", "session", id, "error", err)
		}
	}

	// Uses platform-specific implementation (process_unix.go / process_windows.go)
	if err := killProcessGroup(pid, cmd); err != nil {
		sm.logger.Warn("failed to kill adapter process group", "session", id, "pid", pid, "error", err)
	}
	if cmd != nil && cmd.Process != nil {
		go func() { _ = cmd.Wait() }()
	}

	session.setStatus(types.SessionStatusTerminated)
	delete(sm.sessions, id)
}

// Close shuts down the session manager and all sessions
func (sm *SessionManager) Close() {
	sm.cancel()

	sm.mu.Lock()
	defer sm.mu.Unlock()

	for id := range sm.sessions {
		sm.terminateSessionLocked(id, true)
	}
}

func (s *Session) setStatus(status types.SessionStatus) {
	s.mu.Lock()
	s.Status = status
	s.mu.Unlock()
}

func (s *Session) status() types.SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Status
}

// GetInfo returns a snapshot of the session
func (s *Session) GetInfo() types.SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return types.SessionInfo{
		SessionID: s.ID,
		Adapter:   s.Adapter,
		Request:   s.Request,
		Status:    s.Status,
		PID:       s.PID,
		Program:   s.Program,
		ExitCode:  s.exitCode,
	}
}
