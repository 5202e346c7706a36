package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/arbiter/internal/ir"
)

// ErrLogAhead is returned when the stored audit log holds entries the
// snapshot does not. Saving would leave the log inconsistent with the
// snapshot, and audit rows are never rewritten.
var ErrLogAhead = errors.New("stored audit log is ahead of snapshot")

// ErrLogDiverged is returned when a snapshot decision reuses a stored seq
// but differs from the stored record.
var ErrLogDiverged = errors.New("stored audit log diverges from snapshot")

// SaveSnapshot writes snap in one transaction.
//
// Decisions, threshold adjustments, outcomes and core memories are
// insert-only: rows already stored are left untouched (ON CONFLICT DO
// NOTHING), so saving the same snapshot twice is a no-op and the audit
// log is never rewritten. A decision whose seq is already stored must
// carry the stored digest, otherwise the save fails with ErrLogDiverged.
// Patterns, philosophy facts and the memory state row are upserted.
func (s *Store) SaveSnapshot(ctx context.Context, snap *ir.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("save snapshot: snapshot is nil")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save snapshot: begin: %w", err)
	}
	defer tx.Rollback()

	if err := checkNotAhead(ctx, tx, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if err := writePatterns(ctx, tx, snap.Patterns); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if err := writePhilosophy(ctx, tx, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if err := writeDecisions(ctx, tx, snap.Decisions); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if err := writeMemory(ctx, tx, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save snapshot: commit: %w", err)
	}
	return nil
}

func checkNotAhead(ctx context.Context, tx *sql.Tx, snap *ir.Snapshot) error {
	checks := []struct {
		query string
		have  int64
		what  string
	}{
		{"SELECT COALESCE(MAX(seq), 0) FROM decisions", snap.LastSeq(), "decision seq"},
		{"SELECT COUNT(*) FROM threshold_adjustments", int64(len(snap.Memory.History)), "threshold adjustments"},
		{"SELECT COUNT(*) FROM outcomes", int64(len(snap.Memory.Outcomes)), "outcomes"},
	}
	for _, c := range checks {
		var stored int64
		if err := tx.QueryRowContext(ctx, c.query).Scan(&stored); err != nil {
			return fmt.Errorf("check %s: %w", c.what, err)
		}
		if stored > c.have {
			return fmt.Errorf("%w: %s stored %d, snapshot %d", ErrLogAhead, c.what, stored, c.have)
		}
	}
	return nil
}

func writePatterns(ctx context.Context, tx *sql.Tx, patterns []ir.PatternRecord) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO patterns (name, position, category, confidence, description, phases)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			position = excluded.position,
			category = excluded.category,
			confidence = excluded.confidence,
			description = excluded.description,
			phases = excluded.phases
	`)
	if err != nil {
		return fmt.Errorf("prepare patterns: %w", err)
	}
	defer stmt.Close()

	for i, p := range patterns {
		phases, err := marshalPhases(p.Phases)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, p.Name, i, string(p.Category), p.Confidence, p.Description, phases); err != nil {
			return fmt.Errorf("write pattern %q: %w", p.Name, err)
		}
	}
	return nil
}

func writePhilosophy(ctx context.Context, tx *sql.Tx, snap *ir.Snapshot) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO philosophy (topic, key, value)
		VALUES (?, ?, ?)
		ON CONFLICT(topic, key) DO UPDATE SET value = excluded.value
	`)
	if err != nil {
		return fmt.Errorf("prepare philosophy: %w", err)
	}
	defer stmt.Close()

	for _, topic := range snap.SortedTopics() {
		for key, value := range snap.Philosophy[topic] {
			data, err := marshalFact(value)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, string(topic), key, data); err != nil {
				return fmt.Errorf("write fact %s/%s: %w", topic, key, err)
			}
		}
	}
	return nil
}

func writeDecisions(ctx context.Context, tx *sql.Tx, decisions []ir.DecisionRecord) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO decisions
		(seq, session, title, pattern_name, base_confidence, evidence_count, alignment,
		 confidence, tier, rationale, retained, threshold, created_at, digest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(seq) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("prepare decisions: %w", err)
	}
	defer stmt.Close()

	for _, d := range decisions {
		digest, err := ir.DecisionDigest(d)
		if err != nil {
			return fmt.Errorf("digest decision %d: %w", d.Seq, err)
		}
		res, err := stmt.ExecContext(ctx,
			d.Seq,
			d.Session,
			d.Title,
			d.PatternName,
			d.BaseConfidence,
			d.EvidenceCount,
			string(d.Alignment),
			d.Confidence,
			string(d.Tier),
			d.Rationale,
			boolToInt(d.Retained),
			d.Threshold,
			timeToNanos(d.Timestamp),
			digest,
		)
		if err != nil {
			return fmt.Errorf("write decision %d: %w", d.Seq, err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("write decision %d: %w", d.Seq, err)
		} else if n > 0 {
			continue
		}

		var stored string
		err = tx.QueryRowContext(ctx, "SELECT digest FROM decisions WHERE seq = ?", d.Seq).Scan(&stored)
		if err != nil {
			return fmt.Errorf("check decision %d: %w", d.Seq, err)
		}
		if stored != digest {
			return fmt.Errorf("%w: decision %d", ErrLogDiverged, d.Seq)
		}
	}
	return nil
}

func writeMemory(ctx context.Context, tx *sql.Tx, snap *ir.Snapshot) error {
	mem := snap.Memory

	for i, adj := range mem.History {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO threshold_adjustments (idx, from_value, to_value, reason, note, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(idx) DO NOTHING
		`, i+1, adj.From, adj.To, string(adj.Reason), adj.Note, timeToNanos(adj.Timestamp))
		if err != nil {
			return fmt.Errorf("write adjustment %d: %w", i+1, err)
		}
	}

	for i, o := range mem.Outcomes {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO outcomes (idx, confidence, correct, created_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(idx) DO NOTHING
		`, i+1, o.Confidence, boolToInt(o.Correct), timeToNanos(o.Timestamp))
		if err != nil {
			return fmt.Errorf("write outcome %d: %w", i+1, err)
		}
	}

	for _, c := range mem.Core {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO core_memories (seq, title, confidence, threshold, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(seq) DO NOTHING
		`, c.Seq, c.Title, c.Confidence, c.Threshold, timeToNanos(c.Timestamp))
		if err != nil {
			return fmt.Errorf("write core memory %d: %w", c.Seq, err)
		}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO memory_state (id, threshold, streak, version)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			threshold = excluded.threshold,
			streak = excluded.streak,
			version = excluded.version
	`, mem.Threshold, mem.Streak, snap.Version)
	if err != nil {
		return fmt.Errorf("write memory state: %w", err)
	}
	return nil
}
