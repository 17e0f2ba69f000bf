// Package hostkey loads or generates the bastion's own SSH server identity.
package hostkey

/*
 * hostkey.go
 * Get or make the bastion's RSA host key
 */

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/crypto/ssh"
)

// DefaultBits is the RSA modulus size used when a host key must be
// generated and the caller doesn't specify one.
const DefaultBits = 2048

// GetOrMake tries to read a private key from the file named path. If the
// file doesn't exist, an RSA key of the given size is generated, written to
// path with owner-only permissions, and a companion "path.pub" file is
// written alongside it. made reports whether a new key was generated.
//
// This reads-or-generates and returns the signer plus a "made" flag, but
// produces an RSA identity rather than an ed25519 one: an ed25519 key has
// no "bits" parameter and can't satisfy a configured key size.
func GetOrMake(path string, bits int) (key ssh.Signer, made bool, err error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		k, genErr := generate(path, bits)
		if nil != genErr {
			return nil, false, fmt.Errorf("generating host key: %w", genErr)
		}
		return k, true, nil
	}
	if nil != err {
		return nil, false, fmt.Errorf("reading host key %s: %w", path, err)
	}

	k, err := ssh.ParsePrivateKey(b)
	if nil != err {
		return nil, false, fmt.Errorf("parsing host key %s: %w", path, err)
	}
	return k, false, nil
}

func generate(path string, bits int) (ssh.Signer, error) {
	if bits < 1 {
		bits = DefaultBits
	}

	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if nil != err {
		return nil, fmt.Errorf("generating RSA key: %w", err)
	}

	pemBlock := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(priv),
	}
	if err := os.WriteFile(path, pem.EncodeToMemory(pemBlock), 0600); nil != err {
		return nil, fmt.Errorf("writing host key to %s: %w", path, err)
	}

	signer, err := ssh.NewSignerFromKey(priv)
	if nil != err {
		return nil, fmt.Errorf("parsing generated key: %w", err)
	}

	pub := path + ".pub"
	if err := os.WriteFile(pub, ssh.MarshalAuthorizedKey(signer.PublicKey()), 0644); nil != err {
		return nil, fmt.Errorf("writing public key to %s: %w", pub, err)
	}

	return signer, nil
}

// Fingerprint returns the SHA256 fingerprint of key, for logging.
func Fingerprint(key ssh.Signer) string {
	return ssh.FingerprintSHA256(key.PublicKey())
}
