// Package fingerprint computes the canonical identity of an SSH public key.
package fingerprint

/*
 * fingerprint.go
 * Canonical SHA-256 fingerprint of a public key blob
 */

import (
	"crypto/sha256"
	"encoding/base64"
)

// Of returns "SHA256:" followed by the unpadded standard base64 encoding of
// the SHA-256 digest of blob, the raw wire encoding of a public key. It is
// total over all key algorithms: it hashes the blob without interpreting
// it, so it never fails or returns the empty string for a non-empty blob.
//
// An empty blob yields the empty string, which callers treat as an invalid
// key.
func Of(blob []byte) string {
	if 0 == len(blob) {
		return ""
	}
	sum := sha256.Sum256(blob)
	return "SHA256:" + base64.RawStdEncoding.EncodeToString(sum[:])
}
