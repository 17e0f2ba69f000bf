package bastion

/*
 * dialer.go
 * Outbound SSH session to the routed target
 */

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"

	"github.com/Arylite/Bastion/internal/catalog"
)

// Dial opens an SSH session to target using the bastion's own private key,
// with no fallback credential discovery — only bastionKey is ever tried.
// connectTimeout bounds the TCP dial; authTimeout bounds the SSH handshake
// and authentication that follow it. The target host key is
// unconditionally accepted: the bastion trusts the target network by
// policy.
func Dial(ctx context.Context, target catalog.Target, bastionKey ssh.Signer, connectTimeout, authTimeout time.Duration) (*ssh.Client, ssh.Channel, error) {
	addr := net.JoinHostPort(target.Host, strconv.Itoa(target.Port))

	dialer := &net.Dialer{Timeout: connectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if nil != err {
		return nil, nil, fmt.Errorf("dialing %s: %w", addr, err)
	}

	clientConf := &ssh.ClientConfig{
		User:            target.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(bastionKey)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         authTimeout,
	}

	// ssh.NewClientConn ignores clientConf.Timeout, so the handshake and
	// authentication are bounded by a deadline on the raw connection.
	if authTimeout > 0 {
		conn.SetDeadline(time.Now().Add(authTimeout))
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, clientConf)
	if nil != err {
		conn.Close()
		return nil, nil, fmt.Errorf("handshake with %s: %w", addr, err)
	}
	conn.SetDeadline(time.Time{})
	client := ssh.NewClient(sshConn, chans, reqs)

	channel, requests, err := client.OpenChannel("session", nil)
	if nil != err {
		client.Close()
		return nil, nil, fmt.Errorf("opening session channel to %s: %w", addr, err)
	}
	go ssh.DiscardRequests(requests)

	return client, channel, nil
}

// DiscardRequestsLogged is like ssh.DiscardRequests but logs what it
// discards, for the rare caller that wants visibility into unsolicited
// channel requests from the target side.
func DiscardRequestsLogged(tag string, reqs <-chan *ssh.Request, log logrus.FieldLogger) {
	for req := range reqs {
		log.WithFields(logrus.Fields{"tag": tag, "type": req.Type}).Debug("discarding unexpected request")
		if req.WantReply {
			req.Reply(false, nil)
		}
	}
}
