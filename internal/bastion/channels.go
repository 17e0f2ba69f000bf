package bastion

/*
 * channels.go
 * Channel and global-request policy: session-only, no shell/exec
 */

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
)

// sftpSubsystem is the only subsystem name the bastion passes through.
const sftpSubsystem = "sftp"

// AcceptSession waits for the first "session" channel within timeout,
// rejecting every other channel-open kind it sees along the way with
// "administratively prohibited". It returns the accepted channel and its
// request stream, or an error if no session channel arrives before the
// deadline.
//
// Only one session channel is ever accepted per connection — the bastion
// doesn't multiplex multiple client sessions onto one outbound connection
// — so once a session channel is found, any further NewChannel on chans
// is drained and rejected for the lifetime of the connection.
func AcceptSession(chans <-chan ssh.NewChannel, timeout time.Duration, log logrus.FieldLogger) (ssh.Channel, <-chan *ssh.Request, error) {
	deadline := time.After(timeout)
	for {
		select {
		case nc, ok := <-chans:
			if !ok {
				return nil, nil, fmt.Errorf("connection closed before a session channel arrived")
			}
			if "session" != nc.ChannelType() {
				nc.Reject(ssh.Prohibited, "administratively prohibited")
				continue
			}
			ch, reqs, err := nc.Accept()
			if nil != err {
				return nil, nil, fmt.Errorf("accepting session channel: %w", err)
			}
			go rejectFurtherChannels(chans, log)
			return ch, reqs, nil
		case <-deadline:
			return nil, nil, fmt.Errorf("timed out waiting for a session channel")
		}
	}
}

func rejectFurtherChannels(chans <-chan ssh.NewChannel, log logrus.FieldLogger) {
	for nc := range chans {
		if err := nc.Reject(ssh.Prohibited, "administratively prohibited"); nil != err {
			log.WithError(err).Debug("rejecting extra channel")
		}
	}
}

// ServeChannelRequests answers channel-level requests on the session
// channel: shell and exec are always refused (exec additionally logs the
// requested command for audit), the sftp
// subsystem is allowed through, every other subsystem is refused. This
// never closes the channel itself — tunnelled traffic keeps flowing
// regardless of what's requested on the side channel of requests.
func ServeChannelRequests(reqs <-chan *ssh.Request, log logrus.FieldLogger) {
	for req := range reqs {
		switch req.Type {
		case "shell":
			log.Warn("shell request denied")
			req.Reply(false, nil)
		case "exec":
			var payload struct{ Command string }
			ssh.Unmarshal(req.Payload, &payload)
			log.WithField("command", payload.Command).Warn("exec request denied")
			req.Reply(false, nil)
		case "subsystem":
			var payload struct{ Name string }
			ssh.Unmarshal(req.Payload, &payload)
			if sftpSubsystem == payload.Name {
				req.Reply(true, nil)
				continue
			}
			log.WithField("subsystem", payload.Name).Warn("subsystem request denied")
			req.Reply(false, nil)
		default:
			if req.WantReply {
				req.Reply(false, nil)
			}
		}
	}
}

// tcpipForwardPayload mirrors the wire layout of a "tcpip-forward" global
// request (golang.org/x/crypto/ssh/tcpip.go's unexported equivalent).
type tcpipForwardPayload struct {
	Addr string
	Port uint32
}

type tcpipForwardReply struct {
	Port uint32
}

// ServeGlobalRequests answers connection-level global requests: a
// "tcpip-forward" is accepted and echoes back the requested port (ordinary
// port-forwarding is permitted over an already-routed session, though the
// bastion never itself originates a forwarded channel to an arbitrary
// destination), "cancel-tcpip-forward" is a no-op accept, and everything
// else is refused.
func ServeGlobalRequests(reqs <-chan *ssh.Request, log logrus.FieldLogger) {
	for req := range reqs {
		switch req.Type {
		case "tcpip-forward":
			var payload tcpipForwardPayload
			if err := ssh.Unmarshal(req.Payload, &payload); nil != err {
				req.Reply(false, nil)
				continue
			}
			if req.WantReply {
				req.Reply(true, ssh.Marshal(tcpipForwardReply{Port: payload.Port}))
			}
		case "cancel-tcpip-forward":
			if req.WantReply {
				req.Reply(true, nil)
			}
		default:
			if req.WantReply {
				req.Reply(false, nil)
			}
		}
	}
}
