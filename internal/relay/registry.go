// Package relay pairs a client channel and an outbound target channel and
// shuttles bytes between them for the life of a session.
package relay

/*
 * registry.go
 * Live-session registry keyed by source_ip:fingerprint_prefix
 */

import (
	"fmt"
	"sync"

	"golang.org/x/crypto/ssh"
)

// Session is the in-memory state of one proxied connection, owned
// exclusively by its handler until handed to the relay engine.
type Session struct {
	ID             string
	SourceIP       string
	Fingerprint    string
	ClientChannel  ssh.Channel
	TargetChannel  ssh.Channel
	OutboundClient *ssh.Client
	TargetHost     string
}

// sessionID derives the registry key from the source IP and a short prefix
// of the fingerprint.
func sessionID(sourceIP, fingerprint string) string {
	end := len(fingerprint)
	if end > 16 {
		end = 16
	}
	return fmt.Sprintf("%s:%s", sourceIP, fingerprint[:end])
}

// Registry is the mutex-guarded table of live sessions, supporting O(1)
// lookup, insert, delete and bulk teardown on shutdown.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Put registers s under its derived ID, returning that ID.
func (r *Registry) Put(s *Session) string {
	id := sessionID(s.SourceIP, s.Fingerprint)
	s.ID = id
	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	return id
}

// Delete removes the session with the given ID, if present.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Get returns the session with the given ID, if any.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// TeardownAll closes every live session's channels and outbound client,
// for use during process shutdown. Each close is isolated so that one
// failure doesn't block the others.
func (r *Registry) TeardownAll() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		closeSession(s)
	}
}

func closeSession(s *Session) {
	if nil != s.ClientChannel {
		s.ClientChannel.Close()
	}
	if nil != s.TargetChannel {
		s.TargetChannel.Close()
	}
	if nil != s.OutboundClient {
		s.OutboundClient.Close()
	}
}
