package relay

/*
 * relay.go
 * Bidirectional byte relay between a client and target channel
 */

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"

	"github.com/Arylite/Bastion/internal/catalog"
)

// frameSize is the read buffer size used by each relay worker.
const frameSize = 4096

// Engine runs paired relay sessions and owns the live-session registry.
type Engine struct {
	registry *Registry
	store    catalog.Store
	log      logrus.FieldLogger
}

// NewEngine returns a relay Engine. Session close is reported as a
// structured log line; nothing is written to store.
func NewEngine(store catalog.Store, log logrus.FieldLogger) *Engine {
	return &Engine{registry: NewRegistry(), store: store, log: log}
}

// Registry exposes the engine's session registry, e.g. for the listener's
// global shutdown path.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Run registers s and relays bytes between its client and target channels
// in both directions until either direction terminates, then tears the
// session down. Run blocks until teardown is complete.
//
// Each direction is a goroutine doing a buffered copy; there is no 1-second
// readability probe here because ssh.Channel.Read already blocks until
// data, EOF, or the channel is closed out from under it — closing either
// channel is what unblocks a stuck Read, so a supervisor goroutine racing
// the two directions and closing on the first exit is sufficient.
func (e *Engine) Run(ctx context.Context, s *Session) {
	id := e.registry.Put(s)

	done := make(chan struct{}, 2)
	go func() {
		e.copyDirection(s.ClientChannel, s.TargetChannel, "client->target")
		done <- struct{}{}
	}()
	go func() {
		e.copyDirection(s.TargetChannel, s.ClientChannel, "target->client")
		done <- struct{}{}
	}()

	// The supervisor acts the instant either direction finishes; it does
	// not wait for both. Tearing down closes both channels, which
	// unblocks whichever direction is still copying.
	select {
	case <-done:
	case <-ctx.Done():
	}

	e.teardown(id, s)
}

func (e *Engine) copyDirection(src, dst ssh.Channel, label string) {
	buf := make([]byte, frameSize)
	_, err := io.CopyBuffer(dst, src, buf)
	if nil != err {
		e.log.WithError(err).WithField("direction", label).Debug("relay direction terminated")
	}
}

func (e *Engine) teardown(id string, s *Session) {
	// Closes are isolated: one failing must not block the others.
	if nil != s.ClientChannel {
		s.ClientChannel.Close()
	}
	if nil != s.TargetChannel {
		s.TargetChannel.Close()
	}
	if nil != s.OutboundClient {
		s.OutboundClient.Close()
	}

	e.registry.Delete(id)

	// "closed" isn't one of the three ConnectionEvent statuses
	// (success/denied/error), so session-end is recorded as a structured
	// log line rather than a connection_logs row — there is no status
	// value that would fit without stretching that schema.
	e.log.WithFields(logrus.Fields{
		"source_ip":   s.SourceIP,
		"fingerprint": s.Fingerprint,
		"target":      s.TargetHost,
	}).Info("session closed")
}

// ShutdownAll tears down every live session, for use during process
// shutdown.
func (e *Engine) ShutdownAll() {
	e.registry.TeardownAll()
}
