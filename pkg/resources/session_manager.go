// Package resources verwaltet die Play-Sessions des Servers: Anmeldung,
// Limits pro IP, Nachrichtenrate und das Aufräumen inaktiver Sessions.
package resources

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/antibyte/pixelbasic/pkg/configuration"
	"github.com/antibyte/pixelbasic/pkg/logger"
	"github.com/google/uuid"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrServerFull       = errors.New("maximum sessions reached")
	ErrTooManyFromIP    = errors.New("maximum sessions per IP reached")
	ErrAlreadyConnected = errors.New("session already connected")
	ErrRateLimited      = errors.New("rate limit exceeded")
)

// Limits are the per-server and per-session caps.
type Limits struct {
	MaxSessions      int
	MaxSessionsPerIP int
	MaxMessages      int64 // pro Minute
	MaxBandwidth     int64 // Bytes pro Minute
	IdleTimeout      time.Duration
	ReaperInterval   time.Duration
}

// LimitsFromConfig reads the [Server] section.
func LimitsFromConfig() Limits {
	return Limits{
		MaxSessions:      configuration.GetInt("Server", "max_sessions", 50),
		MaxSessionsPerIP: configuration.GetInt("Server", "max_sessions_per_ip", 5),
		MaxMessages:      int64(configuration.GetInt("Server", "rate_limit_messages", 600)),
		MaxBandwidth:     int64(configuration.GetInt("Server", "rate_limit_bandwidth", 65536)),
		IdleTimeout:      configuration.GetDuration("Server", "session_idle_timeout", 10*time.Minute),
		ReaperInterval:   configuration.GetDuration("Server", "reaper_interval", time.Minute),
	}
}

// Session verwaltet die Ressourcen einer einzelnen Session
type Session struct {
	ID           string
	Program      string
	IPAddress    string
	CreatedAt    time.Time
	LastActivity time.Time
	Connected    bool

	MessageCount  int64
	BandwidthUsed int64
	windowStart   time.Time

	// closer beendet die zugehörige Verbindung beim Aufräumen
	closer func()
}

// SessionManager hands out play sessions and enforces their limits.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	limits   Limits
	now      func() time.Time
}

// NewSessionManager creates an empty manager.
func NewSessionManager(limits Limits) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		limits:   limits,
		now:      time.Now,
	}
}

// Register allocates a session for program and returns its ID. It
// implements auth.SessionRegistrar.
func (sm *SessionManager) Register(program, clientIP string) (string, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.limits.MaxSessions > 0 && len(sm.sessions) >= sm.limits.MaxSessions {
		return "", fmt.Errorf("%w: %d", ErrServerFull, len(sm.sessions))
	}
	if sm.limits.MaxSessionsPerIP > 0 {
		ipCount := 0
		for _, s := range sm.sessions {
			if s.IPAddress == clientIP {
				ipCount++
			}
		}
		if ipCount >= sm.limits.MaxSessionsPerIP {
			return "", fmt.Errorf("%w for %s: %d", ErrTooManyFromIP, clientIP, ipCount)
		}
	}

	now := sm.now()
	s := &Session{
		ID:           uuid.New().String(),
		Program:      program,
		IPAddress:    clientIP,
		CreatedAt:    now,
		LastActivity: now,
		windowStart:  now,
	}
	sm.sessions[s.ID] = s
	logger.Info(logger.AreaSession, "session registered: %s (program: %q, IP: %s)", s.ID, program, clientIP)
	return s.ID, nil
}

// Attach marks the session as connected. closer is called when the reaper
// or Unregister removes the session while it is still connected.
func (sm *SessionManager) Attach(id string, closer func()) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	s, ok := sm.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if s.Connected {
		return fmt.Errorf("%w: %s", ErrAlreadyConnected, id)
	}
	s.Connected = true
	s.closer = closer
	s.LastActivity = sm.now()
	return nil
}

// Detach marks the session as disconnected; it stays registered until it
// is reaped or unregistered.
func (sm *SessionManager) Detach(id string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if s, ok := sm.sessions[id]; ok {
		s.Connected = false
		s.closer = nil
		s.LastActivity = sm.now()
	}
}

// Unregister removes a session and closes its connection.
func (sm *SessionManager) Unregister(id string) error {
	sm.mu.Lock()
	s, ok := sm.sessions[id]
	if ok {
		delete(sm.sessions, id)
	}
	sm.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sm.release(s)
	return nil
}

func (sm *SessionManager) release(s *Session) {
	if s.closer != nil {
		s.closer()
	}
	logger.Info(logger.AreaSession, "session unregistered: %s (duration: %v, messages: %d)",
		s.ID, sm.now().Sub(s.CreatedAt).Round(time.Second), s.MessageCount)
}

// CheckLimits records one inbound message of messageSize bytes and fails
// once the per-minute message or bandwidth limit is exceeded.
func (sm *SessionManager) CheckLimits(id string, messageSize int) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	s, ok := sm.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	now := sm.now()
	if now.Sub(s.windowStart) >= time.Minute {
		s.windowStart = now
		s.MessageCount = 0
		s.BandwidthUsed = 0
	}
	s.MessageCount++
	s.BandwidthUsed += int64(messageSize)
	s.LastActivity = now

	if sm.limits.MaxMessages > 0 && s.MessageCount > sm.limits.MaxMessages {
		return fmt.Errorf("%w: session %s sent %d messages this minute", ErrRateLimited, id, s.MessageCount)
	}
	if sm.limits.MaxBandwidth > 0 && s.BandwidthUsed > sm.limits.MaxBandwidth {
		return fmt.Errorf("%w: session %s sent %d bytes this minute", ErrRateLimited, id, s.BandwidthUsed)
	}
	return nil
}

// Get returns a copy of the session.
func (sm *SessionManager) Get(id string) (Session, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	s, ok := sm.sessions[id]
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	out := *s
	out.closer = nil
	return out, nil
}

// Count returns the number of registered sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// Stats is a snapshot for the status endpoint.
type Stats struct {
	Sessions   int    `json:"sessions"`
	Connected  int    `json:"connected"`
	UniqueIPs  int    `json:"unique_ips"`
	Messages   int64  `json:"messages"`
	Goroutines int    `json:"goroutines"`
	HeapMB     uint64 `json:"heap_mb"`
}

// GetStats gibt Statistiken über alle Sessions zurück
func (sm *SessionManager) GetStats() Stats {
	sm.mu.RLock()
	st := Stats{Sessions: len(sm.sessions)}
	ips := make(map[string]struct{})
	for _, s := range sm.sessions {
		if s.Connected {
			st.Connected++
		}
		st.Messages += s.MessageCount
		ips[s.IPAddress] = struct{}{}
	}
	sm.mu.RUnlock()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	st.UniqueIPs = len(ips)
	st.Goroutines = runtime.NumGoroutine()
	st.HeapMB = m.HeapAlloc / (1024 * 1024)
	return st
}

// CleanupInactiveSessions removes sessions idle longer than maxIdle and
// returns their IDs.
func (sm *SessionManager) CleanupInactiveSessions(maxIdle time.Duration) []string {
	now := sm.now()
	var expired []*Session

	sm.mu.Lock()
	for id, s := range sm.sessions {
		if now.Sub(s.LastActivity) > maxIdle {
			expired = append(expired, s)
			delete(sm.sessions, id)
		}
	}
	sm.mu.Unlock()

	ids := make([]string, 0, len(expired))
	for _, s := range expired {
		logger.Info(logger.AreaSession, "cleaning up inactive session: %s", s.ID)
		sm.release(s)
		ids = append(ids, s.ID)
	}
	return ids
}

// Run reaps idle sessions every ReaperInterval until ctx is done.
func (sm *SessionManager) Run(ctx context.Context) {
	interval := sm.limits.ReaperInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if sm.limits.IdleTimeout > 0 {
				if n := len(sm.CleanupInactiveSessions(sm.limits.IdleTimeout)); n > 0 {
					logger.Info(logger.AreaSession, "cleaned up %d inactive sessions", n)
				}
			}
		}
	}
}
