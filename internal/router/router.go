// Package router validates an authenticated binding's target against
// network policy and produces the in-memory Target the dialer will use.
package router

/*
 * router.go
 * Resolve and validate a route for an authenticated key
 */

import (
	"context"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Arylite/Bastion/internal/catalog"
)

// Router turns an accepted KeyBinding into a validated Target, or rejects
// it.
type Router struct {
	store       catalog.Store
	log         logrus.FieldLogger
	restricted  []*net.IPNet
}

// New returns a Router that rejects targets inside any of restrictedCIDRs.
// Malformed CIDRs are skipped; config.Validate is expected to have already
// caught those at startup.
func New(store catalog.Store, restrictedCIDRs []string, log logrus.FieldLogger) *Router {
	var nets []*net.IPNet
	for _, c := range restrictedCIDRs {
		if "" == c {
			continue
		}
		if _, n, err := net.ParseCIDR(c); nil == err {
			nets = append(nets, n)
		}
	}
	return &Router{store: store, restricted: nets, log: log}
}

// Route validates binding and returns the Target to dial, applying an
// ordered sequence of checks. On success it records a "success" audit
// event; on rejection it records "denied" with a reason; unexpected errors
// record "error". Exactly one event is recorded per call.
func (r *Router) Route(ctx context.Context, binding *catalog.KeyBinding, presentedUsername, sourceIP string) *catalog.Target {
	if nil == binding || !binding.Enabled {
		r.deny(ctx, binding, presentedUsername, sourceIP, "binding missing or disabled")
		return nil
	}
	if "" == binding.TargetHost || "" == binding.TargetUser || binding.TargetPort < 1 || binding.TargetPort > 65535 {
		r.deny(ctx, binding, presentedUsername, sourceIP, "invalid target configuration")
		return nil
	}

	if ip := net.ParseIP(binding.TargetHost); nil != ip {
		for _, n := range r.restricted {
			if n.Contains(ip) {
				r.deny(ctx, binding, presentedUsername, sourceIP, "restricted")
				return nil
			}
		}
	}
	// A DNS name is accepted here unconditionally; reachability is not
	// tested pre-flight.

	target := &catalog.Target{
		Host: binding.TargetHost,
		Port: binding.TargetPort,
		User: binding.TargetUser,
	}

	r.log.WithFields(logrus.Fields{
		"fingerprint": binding.Fingerprint,
		"source_ip":   sourceIP,
		"target":      target.String(),
	}).Info("route accepted")
	r.recordEvent(ctx, binding, presentedUsername, sourceIP, target, catalog.StatusSuccess, "")

	return target
}

func (r *Router) deny(ctx context.Context, binding *catalog.KeyBinding, presentedUsername, sourceIP, reason string) {
	fp := ""
	if nil != binding {
		fp = binding.Fingerprint
	}
	r.log.WithFields(logrus.Fields{
		"fingerprint": fp,
		"source_ip":   sourceIP,
		"reason":      reason,
	}).Warn("route denied")
	r.recordEvent(ctx, binding, presentedUsername, sourceIP, nil, catalog.StatusDenied, reason)
}

func (r *Router) recordEvent(ctx context.Context, binding *catalog.KeyBinding, presentedUsername, sourceIP string, target *catalog.Target, status catalog.ConnectionStatus, errMsg string) {
	fp, targetHost, targetUser := "", "", ""
	if nil != binding {
		fp = binding.Fingerprint
	}
	if nil != target {
		targetHost, targetUser = target.Host, target.User
	}
	evt := catalog.ConnectionEvent{
		Fingerprint:        fp,
		SourceIP:           sourceIP,
		TargetHost:         targetHost,
		TargetUser:         targetUser,
		PresentedUsername:  presentedUsername,
		Status:             status,
		Timestamp:          time.Now(),
		ErrorMessage:       errMsg,
	}
	if err := r.store.RecordEvent(ctx, evt); nil != err {
		r.log.WithError(err).Warn("failed to record connection event")
	}
}
