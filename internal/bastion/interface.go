// Package bastion implements the SSH server-side interface, the outbound
// dialer, and the listener/supervisor that tie the rest of the core
// together.
package bastion

/*
 * interface.go
 * Per-connection SSH server callback surface
 */

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"

	"github.com/Arylite/Bastion/internal/auth"
	"github.com/Arylite/Bastion/internal/catalog"
)

// defaultBanner is the SSH version string sent to clients.
const defaultBanner = "SSH-2.0-OpenSSH_8.9"

// Interface implements the server-side callback surface the transport
// invokes during handshake and channel negotiation. One Interface is
// constructed per accepted TCP connection and is never shared across
// connections or invoked concurrently by the transport.
type Interface struct {
	auth     *auth.Authenticator
	sourceIP string
	log      logrus.FieldLogger

	// Binding, PresentedUsername and Fingerprint are stashed here by
	// publicKeyCallback on a successful authentication, so later stages
	// of the same connection can read the accepted binding back off the
	// interface instance.
	Binding           *catalog.KeyBinding
	PresentedUsername string
	Fingerprint       string
}

// NewInterface returns an Interface bound to one source IP, backed by a.
func NewInterface(a *auth.Authenticator, sourceIP string, log logrus.FieldLogger) *Interface {
	return &Interface{auth: a, sourceIP: sourceIP, log: log}
}

// Config builds the per-connection ssh.ServerConfig. Only PublicKeyCallback
// is set — no PasswordCallback, no keyboard-interactive, no host-based —
// so "publickey" is the only method the transport ever advertises.
func (i *Interface) Config(hostKey ssh.Signer) *ssh.ServerConfig {
	conf := &ssh.ServerConfig{
		PublicKeyCallback: i.publicKeyCallback,
		ServerVersion:     defaultBanner,
	}
	conf.AddHostKey(hostKey)
	return conf
}

func (i *Interface) publicKeyCallback(conn ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
	res := i.auth.Authenticate(context.Background(), conn.User(), key.Marshal(), i.sourceIP)
	if !res.Accepted {
		return nil, fmt.Errorf("public key rejected")
	}

	i.Binding = res.Binding
	i.PresentedUsername = conn.User()
	i.Fingerprint = res.Fingerprint

	return &ssh.Permissions{
		Extensions: map[string]string{
			"fingerprint": res.Fingerprint,
		},
	}, nil
}
