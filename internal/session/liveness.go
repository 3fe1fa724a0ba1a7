package session

import (
	"context"
	"log/slog"
	"time"
)

// LivenessMonitor periodically sweeps a registry for sessions that have
// gone quiet past the session timeout and closes them, and sends
// heartbeats to the rest so idle-but-healthy peers aren't mistaken for
// dead ones. Modeled on the ai.TickManager start/stop loop precedent
// (internal/ai/manager.go) and login.SessionManager's TTL sweep
// (internal/login/session_manager.go).
type LivenessMonitor struct {
	registry          *Registry
	heartbeatInterval time.Duration
	sessionTimeout    time.Duration
}

// NewLivenessMonitor creates a monitor over registry.
func NewLivenessMonitor(registry *Registry, heartbeatInterval, sessionTimeout time.Duration) *LivenessMonitor {
	return &LivenessMonitor{
		registry:          registry,
		heartbeatInterval: heartbeatInterval,
		sessionTimeout:    sessionTimeout,
	}
}

// Run sweeps on heartbeatInterval until ctx is canceled.
func (m *LivenessMonitor) Run(ctx context.Context, heartbeat []byte) {
	ticker := time.NewTicker(m.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep(heartbeat)
		}
	}
}

func (m *LivenessMonitor) sweep(heartbeat []byte) {
	now := time.Now().UnixNano()
	deadline := m.sessionTimeout.Nanoseconds()

	var stale []*Session
	m.registry.ForEach(func(s *Session) {
		if now-s.LastActivity() > deadline {
			stale = append(stale, s)
			return
		}
		if heartbeat != nil {
			if err := s.Send(heartbeat); err != nil {
				slog.Debug("liveness: heartbeat send failed", "session", s.ID(), "error", err)
			}
		}
	})

	for _, s := range stale {
		slog.Info("liveness: closing stale session", "session", s.ID())
		_ = s.Close()
	}
}
