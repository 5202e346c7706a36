package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/arbiter/internal/ir"
)

// ErrNoState is returned by LoadSnapshot when nothing has been saved yet.
var ErrNoState = errors.New("no saved state")

// LoadSnapshot reads the complete saved state.
// Patterns come back in registration order, decisions in seq order and the
// threshold history and outcomes in append order.
func (s *Store) LoadSnapshot(ctx context.Context) (*ir.Snapshot, error) {
	snap := &ir.Snapshot{}
	err := s.db.QueryRowContext(ctx,
		"SELECT threshold, streak, version FROM memory_state WHERE id = 1",
	).Scan(&snap.Memory.Threshold, &snap.Memory.Streak, &snap.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoState
		}
		return nil, fmt.Errorf("load memory state: %w", err)
	}

	if snap.Patterns, err = s.readPatterns(ctx); err != nil {
		return nil, err
	}
	if snap.Philosophy, err = s.readPhilosophy(ctx); err != nil {
		return nil, err
	}
	if snap.Decisions, err = s.ReadDecisions(ctx, ""); err != nil {
		return nil, err
	}
	if snap.Memory.History, err = s.readAdjustments(ctx); err != nil {
		return nil, err
	}
	if snap.Memory.Outcomes, err = s.readOutcomes(ctx); err != nil {
		return nil, err
	}
	if snap.Memory.Core, err = s.readCore(ctx); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Store) readPatterns(ctx context.Context) ([]ir.PatternRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, category, confidence, description, phases
		FROM patterns
		ORDER BY position ASC, name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query patterns: %w", err)
	}
	defer rows.Close()

	var out []ir.PatternRecord
	for rows.Next() {
		var (
			p        ir.PatternRecord
			category string
			phases   string
		)
		if err := rows.Scan(&p.Name, &category, &p.Confidence, &p.Description, &phases); err != nil {
			return nil, fmt.Errorf("scan pattern: %w", err)
		}
		p.Category = ir.Category(category)
		if p.Phases, err = unmarshalPhases(phases); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate patterns: %w", err)
	}
	return out, nil
}

func (s *Store) readPhilosophy(ctx context.Context) (map[ir.Topic]map[string]ir.FactValue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT topic, key, value
		FROM philosophy
		ORDER BY topic ASC, key COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query philosophy: %w", err)
	}
	defer rows.Close()

	var out map[ir.Topic]map[string]ir.FactValue
	for rows.Next() {
		var topic, key, value string
		if err := rows.Scan(&topic, &key, &value); err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		fact, err := unmarshalFact(value)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = make(map[ir.Topic]map[string]ir.FactValue)
		}
		t := ir.Topic(topic)
		if out[t] == nil {
			out[t] = make(map[string]ir.FactValue)
		}
		out[t][key] = fact
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate philosophy: %w", err)
	}
	return out, nil
}

// ReadDecisions returns stored decisions in seq order.
// A non-empty session restricts the result to that session's decisions.
func (s *Store) ReadDecisions(ctx context.Context, session string) ([]ir.DecisionRecord, error) {
	query := `
		SELECT seq, session, title, pattern_name, base_confidence, evidence_count, alignment,
		       confidence, tier, rationale, retained, threshold, created_at
		FROM decisions`
	var args []any
	if session != "" {
		query += " WHERE session = ?"
		args = append(args, session)
	}
	query += " ORDER BY seq ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var out []ir.DecisionRecord
	for rows.Next() {
		var (
			d         ir.DecisionRecord
			alignment string
			tier      string
			retained  int
			created   int64
		)
		err := rows.Scan(&d.Seq, &d.Session, &d.Title, &d.PatternName, &d.BaseConfidence,
			&d.EvidenceCount, &alignment, &d.Confidence, &tier, &d.Rationale,
			&retained, &d.Threshold, &created)
		if err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		d.Alignment = ir.Alignment(alignment)
		d.Tier = ir.Tier(tier)
		d.Retained = retained != 0
		d.Timestamp = nanosToTime(created)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decisions: %w", err)
	}
	return out, nil
}

func (s *Store) readAdjustments(ctx context.Context) ([]ir.Adjustment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT from_value, to_value, reason, note, created_at
		FROM threshold_adjustments
		ORDER BY idx ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query adjustments: %w", err)
	}
	defer rows.Close()

	var out []ir.Adjustment
	for rows.Next() {
		var (
			a       ir.Adjustment
			reason  string
			created int64
		)
		if err := rows.Scan(&a.From, &a.To, &reason, &a.Note, &created); err != nil {
			return nil, fmt.Errorf("scan adjustment: %w", err)
		}
		a.Reason = ir.AdjustmentReason(reason)
		a.Timestamp = nanosToTime(created)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate adjustments: %w", err)
	}
	return out, nil
}

func (s *Store) readOutcomes(ctx context.Context) ([]ir.Outcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT confidence, correct, created_at
		FROM outcomes
		ORDER BY idx ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var out []ir.Outcome
	for rows.Next() {
		var (
			o       ir.Outcome
			correct int
			created int64
		)
		if err := rows.Scan(&o.Confidence, &correct, &created); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.Correct = correct != 0
		o.Timestamp = nanosToTime(created)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return out, nil
}

func (s *Store) readCore(ctx context.Context) ([]ir.CoreMemory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, title, confidence, threshold, created_at
		FROM core_memories
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query core memories: %w", err)
	}
	defer rows.Close()

	var out []ir.CoreMemory
	for rows.Next() {
		var (
			c       ir.CoreMemory
			created int64
		)
		if err := rows.Scan(&c.Seq, &c.Title, &c.Confidence, &c.Threshold, &created); err != nil {
			return nil, fmt.Errorf("scan core memory: %w", err)
		}
		c.Timestamp = nanosToTime(created)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate core memories: %w", err)
	}
	return out, nil
}
