package engine

import (
	"fmt"

	"github.com/roach88/arbiter/internal/ir"
)

// RoundTrip is the outcome of replaying a snapshot into a fresh engine.
type RoundTrip struct {
	// Digest is the canonical digest of the input snapshot.
	Digest string

	// Restored is the digest of the replica engine's snapshot.
	Restored string
}

// OK reports whether the replica reproduced the input state exactly.
func (r RoundTrip) OK() bool {
	return r.Digest == r.Restored
}

// VerifyRoundTrip restores snap into a new engine built with opts and
// snapshots it again. Restoring is the same code path used on every
// startup, so a snapshot that round-trips here reloads with identical
// catalog contents, decision order and threshold.
//
// The input snapshot is not modified.
func VerifyRoundTrip(snap *ir.Snapshot, opts ...EngineOption) (RoundTrip, error) {
	digest, err := ir.SnapshotDigest(snap)
	if err != nil {
		return RoundTrip{}, err
	}

	replica, err := NewFromSnapshot(snap, opts...)
	if err != nil {
		return RoundTrip{}, fmt.Errorf("replay snapshot: %w", err)
	}
	restored, err := ir.SnapshotDigest(replica.Snapshot())
	if err != nil {
		return RoundTrip{}, err
	}
	return RoundTrip{Digest: digest, Restored: restored}, nil
}
