package bastion

/*
 * listener.go
 * TCP accept loop, per-connection handler, global cap, shutdown
 */

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"

	"github.com/Arylite/Bastion/internal/auth"
	"github.com/Arylite/Bastion/internal/catalog"
	"github.com/Arylite/Bastion/internal/relay"
	"github.com/Arylite/Bastion/internal/router"
)

// firstChannelTimeout bounds how long the listener waits for the client's
// first (and only) session channel after a successful handshake.
const firstChannelTimeout = 30 * time.Second

// outboundAuthTimeout bounds the outbound dialer's SSH handshake/auth
// phase, independent of the configured dial timeout.
const outboundAuthTimeout = 30 * time.Second

// Supervisor is the listener & supervisor component: it accepts TCP
// connections, drives each through handshake/auth/routing, and hands
// successfully routed connections to the relay engine.
type Supervisor struct {
	addr              string
	globalCap         int
	connectTimeout    time.Duration
	hostKey           ssh.Signer
	store             catalog.Store
	authenticator     *auth.Authenticator
	router            *router.Router
	relayEngine       *relay.Engine
	log               logrus.FieldLogger

	mu        sync.Mutex
	running   bool
	liveConns int
	listener  net.Listener
}

// New returns a Supervisor ready to Run.
func New(
	addr string,
	globalCap int,
	connectTimeout time.Duration,
	hostKey ssh.Signer,
	store catalog.Store,
	authenticator *auth.Authenticator,
	rtr *router.Router,
	relayEngine *relay.Engine,
	log logrus.FieldLogger,
) *Supervisor {
	return &Supervisor{
		addr:           addr,
		globalCap:      globalCap,
		connectTimeout: connectTimeout,
		hostKey:        hostKey,
		store:          store,
		authenticator:  authenticator,
		router:         rtr,
		relayEngine:    relayEngine,
		log:            log,
	}
}

// Run binds the listener and accepts connections until Shutdown is called
// or ctx is cancelled. It blocks until the accept loop exits.
func (s *Supervisor) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if nil != err {
		return err
	}

	s.mu.Lock()
	s.listener = ln
	s.running = true
	s.mu.Unlock()

	s.log.WithField("addr", s.addr).Info("bastion listening")

	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()

	for {
		conn, err := ln.Accept()
		if nil != err {
			s.mu.Lock()
			running := s.running
			s.mu.Unlock()
			if !running {
				return nil
			}
			s.log.WithError(err).Warn("accept error")
			continue
		}
		go s.handleConn(ctx, conn)
	}
}

// Shutdown stops accepting new connections and tears down every live
// session.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	s.running = false
	ln := s.listener
	s.mu.Unlock()

	if nil != ln {
		ln.Close()
	}
	s.relayEngine.ShutdownAll()
	s.log.Info("bastion shut down")
}

func (s *Supervisor) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	sourceIP := sourceIPOf(conn)
	log := s.log.WithField("source_ip", sourceIP)

	if !s.admit() {
		log.Warn("global connection cap exceeded, rejecting")
		return
	}
	defer s.release()

	iface := NewInterface(s.authenticator, sourceIP, log)
	conf := iface.Config(s.hostKey)

	sc, chans, reqs, err := ssh.NewServerConn(conn, conf)
	if nil != err {
		log.WithError(err).Debug("handshake failed")
		return
	}
	defer sc.Close()

	go ServeGlobalRequests(reqs, log)

	channel, chanReqs, err := AcceptSession(chans, firstChannelTimeout, log)
	if nil != err {
		log.WithError(err).Debug("no session channel established")
		return
	}

	if nil == iface.Binding {
		// Shouldn't happen: a successful handshake implies
		// publicKeyCallback accepted and stashed a binding.
		channel.Close()
		return
	}
	go ServeChannelRequests(chanReqs, log)

	target := s.router.Route(ctx, iface.Binding, iface.PresentedUsername, sourceIP)
	if nil == target {
		channel.Close()
		return
	}

	client, targetChannel, err := Dial(ctx, *target, s.hostKey, s.connectTimeout, outboundAuthTimeout)
	if nil != err {
		log.WithError(err).Warn("outbound dial failed")
		s.recordDialFailure(ctx, iface.Fingerprint, sourceIP, iface.PresentedUsername, *target, err)
		channel.Close()
		return
	}

	sess := &relay.Session{
		SourceIP:       sourceIP,
		Fingerprint:    iface.Fingerprint,
		ClientChannel:  channel,
		TargetChannel:  targetChannel,
		OutboundClient: client,
		TargetHost:     target.Host,
	}
	s.relayEngine.Run(ctx, sess)
}

func (s *Supervisor) admit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.liveConns+1 > s.globalCap {
		return false
	}
	s.liveConns++
	return true
}

func (s *Supervisor) release() {
	s.mu.Lock()
	s.liveConns--
	s.mu.Unlock()
}

func (s *Supervisor) recordDialFailure(ctx context.Context, fingerprint, sourceIP, username string, target catalog.Target, dialErr error) {
	evt := catalog.ConnectionEvent{
		Fingerprint:        fingerprint,
		SourceIP:           sourceIP,
		TargetHost:         target.Host,
		TargetUser:         target.User,
		PresentedUsername:  username,
		Status:              catalog.StatusError,
		Timestamp:          time.Now(),
		ErrorMessage:       dialErr.Error(),
	}
	if err := s.store.RecordEvent(ctx, evt); nil != err {
		s.log.WithError(err).Warn("failed to record outbound-dial-failure event")
	}
}

func sourceIPOf(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if nil != err {
		return conn.RemoteAddr().String()
	}
	return host
}
