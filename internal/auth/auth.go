// Package auth implements the bastion's fingerprint-only authenticator.
package auth

/*
 * auth.go
 * Accept/reject a presented public key against the catalog
 */

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Arylite/Bastion/internal/catalog"
	"github.com/Arylite/Bastion/internal/fingerprint"
)

// Authenticator decides whether a presented public key is allowed to
// proceed, consulting the catalog by fingerprint alone. The presented
// username is never an input to the decision; it is only recorded on the
// resulting audit event.
type Authenticator struct {
	store catalog.Store
	log   logrus.FieldLogger
}

// New returns an Authenticator backed by store.
func New(store catalog.Store, log logrus.FieldLogger) *Authenticator {
	return &Authenticator{store: store, log: log}
}

// Result is the outcome of an authentication attempt.
type Result struct {
	Accepted    bool
	Binding     *catalog.KeyBinding
	Fingerprint string
}

// Authenticate computes the fingerprint of the presented key and looks it
// up. A denial or a failed lookup is recorded as exactly one connection
// event; an accepted key is logged, but no connection event is recorded
// for it here.
func (a *Authenticator) Authenticate(ctx context.Context, presentedUsername string, keyBlob []byte, sourceIP string) Result {
	fp := fingerprint.Of(keyBlob)
	if "" == fp {
		a.deny(ctx, "", sourceIP, presentedUsername, "invalid key blob")
		return Result{}
	}

	binding, err := a.store.Find(ctx, fp)
	if nil != err {
		a.log.WithError(err).WithField("fingerprint", fp).Error("catalog lookup failed")
		a.recordEvent(ctx, fp, sourceIP, presentedUsername, catalog.StatusError, err.Error())
		return Result{Fingerprint: fp}
	}

	if nil == binding {
		a.deny(ctx, fp, sourceIP, presentedUsername, "unknown fingerprint")
		return Result{Fingerprint: fp}
	}
	if !binding.Enabled {
		a.deny(ctx, fp, sourceIP, presentedUsername, "disabled")
		return Result{Fingerprint: fp}
	}

	a.log.WithFields(logrus.Fields{
		"fingerprint": fp,
		"source_ip":   sourceIP,
		"username":    presentedUsername,
	}).Info("authentication accepted")

	return Result{Accepted: true, Binding: binding, Fingerprint: fp}
}

func (a *Authenticator) deny(ctx context.Context, fp, sourceIP, username, reason string) {
	a.log.WithFields(logrus.Fields{
		"fingerprint": fp,
		"source_ip":   sourceIP,
		"username":    username,
		"reason":      reason,
	}).Warn("authentication denied")
	a.recordEvent(ctx, fp, sourceIP, username, catalog.StatusDenied, reason)
}

func (a *Authenticator) recordEvent(ctx context.Context, fp, sourceIP, username string, status catalog.ConnectionStatus, errMsg string) {
	evt := catalog.ConnectionEvent{
		Fingerprint:       fp,
		SourceIP:          sourceIP,
		PresentedUsername: username,
		Status:            status,
		Timestamp:         time.Now(),
		ErrorMessage:      errMsg,
	}
	// Audit log writes are best-effort: failure here is logged but never
	// fails the authentication decision itself.
	if err := a.store.RecordEvent(ctx, evt); nil != err {
		a.log.WithError(err).Warn("failed to record connection event")
	}
}
