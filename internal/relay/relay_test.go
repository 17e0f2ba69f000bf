package relay

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"

	"github.com/stretchr/testify/require"
)

// fakeChannel is a minimal ssh.Channel backed by a pair of io.Pipe halves,
// enough to drive Engine.Run without a real SSH connection. readW and
// writeR are held by the test to simulate a remote peer: writing to readW
// looks like incoming data, reading writeR looks like outgoing data, and
// closing either simulates that half of the connection going away.
type fakeChannel struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (c *fakeChannel) Read(p []byte) (int, error)  { return c.r.Read(p) }
func (c *fakeChannel) Write(p []byte) (int, error) { return c.w.Write(p) }
func (c *fakeChannel) Close() error {
	c.r.Close()
	c.w.Close()
	return nil
}
func (c *fakeChannel) CloseWrite() error { return c.w.Close() }
func (c *fakeChannel) SendRequest(name string, wantReply bool, payload []byte) (bool, error) {
	return false, nil
}
func (c *fakeChannel) Stderr() io.ReadWriter { return nil }

var _ ssh.Channel = (*fakeChannel)(nil)

// newFakeChannel returns a channel plus the remote-side pipe halves the
// test uses to feed it data or simulate the remote peer disappearing.
func newFakeChannel() (ch *fakeChannel, remoteWrite *io.PipeWriter, remoteRead *io.PipeReader) {
	readR, readW := io.Pipe()
	writeR, writeW := io.Pipe()
	return &fakeChannel{r: readR, w: writeW}, readW, writeR
}

func discardLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(discardWriter{})
	return log
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestEngineRunTearsDownWhenClientSideEOFs(t *testing.T) {
	engine := NewEngine(nil, discardLogger())

	clientCh, clientRemoteWrite, _ := newFakeChannel()
	targetCh, _, _ := newFakeChannel()

	s := &Session{
		SourceIP:      "203.0.113.9",
		Fingerprint:   "SHA256:relaytest",
		ClientChannel: clientCh,
		TargetChannel: targetCh,
	}

	done := make(chan struct{})
	go func() {
		engine.Run(context.Background(), s)
		close(done)
	}()

	// Simulate the client's side of the connection going away: the
	// client->target copy's Read returns EOF, which should be enough for
	// the supervisor to tear the whole session down without waiting on
	// the other direction.
	clientRemoteWrite.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Engine.Run did not return after client-side EOF")
	}

	require.Equal(t, 0, engine.Registry().Len())
}

func TestEngineRunHonorsContextCancellation(t *testing.T) {
	engine := NewEngine(nil, discardLogger())

	clientCh, _, _ := newFakeChannel()
	targetCh, _, _ := newFakeChannel()

	s := &Session{
		SourceIP:      "203.0.113.10",
		Fingerprint:   "SHA256:ctxcancel",
		ClientChannel: clientCh,
		TargetChannel: targetCh,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		engine.Run(ctx, s)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Engine.Run did not return after context cancellation")
	}
}

func TestRegistryReflectsSessionDuringRun(t *testing.T) {
	engine := NewEngine(nil, discardLogger())

	clientCh, clientRemoteWrite, _ := newFakeChannel()
	targetCh, _, _ := newFakeChannel()

	s := &Session{
		SourceIP:      "203.0.113.11",
		Fingerprint:   "SHA256:registrycheck",
		ClientChannel: clientCh,
		TargetChannel: targetCh,
	}

	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		close(started)
		engine.Run(context.Background(), s)
		close(done)
	}()
	<-started
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, engine.Registry().Len())

	clientRemoteWrite.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Engine.Run did not return")
	}
	require.Equal(t, 0, engine.Registry().Len())
}
