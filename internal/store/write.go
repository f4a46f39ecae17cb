package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/calder-stats/semfit/internal/engine"
	"github.com/calder-stats/semfit/internal/spec"
)

// WriteSpec registers a model specification. Specs are content-addressed:
// writing a model whose canonical text is already stored is a silent
// no-op, even under a different name. Returns the spec hash.
func (s *Store) WriteSpec(ctx context.Context, m spec.Model) (string, error) {
	hash := m.Hash()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO specs (hash, name, parent_hash, canonical, spec_version)
		VALUES (?, ?, NULLIF(?, ''), ?, ?)
		ON CONFLICT(hash) DO NOTHING
	`,
		hash,
		m.Name(),
		m.Parent(),
		m.Canonical(),
		spec.SpecVersion,
	)
	if err != nil {
		return "", fmt.Errorf("write spec: %w", err)
	}
	return hash, nil
}

// BeginRun opens a new run scoped to one dataset signature. Every fit
// and comparison written afterwards references the returned run ID.
func (s *Store) BeginRun(ctx context.Context, dataSig string) (Run, error) {
	run := Run{
		ID:            uuid.NewString(),
		DataSig:       dataSig,
		EngineVersion: spec.EngineVersion,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, data_sig, engine_version)
		VALUES (?, ?, ?)
	`, run.ID, run.DataSig, run.EngineVersion)
	if err != nil {
		return Run{}, fmt.Errorf("begin run: %w", err)
	}
	return run, nil
}

// WriteFit stores a fitted model under a run. The spec is registered in
// the same transaction so the foreign key always holds.
//
// Uses ON CONFLICT DO NOTHING on (run_id, spec_hash, grouping,
// constraints) for idempotency: refitting the same model the same way
// within a run returns the existing row's ID and inserted=false.
func (s *Store) WriteFit(ctx context.Context, runID string, fm *engine.FittedModel) (id int64, inserted bool, err error) {
	if fm.DataSig == "" || fm.SpecHash == "" {
		return 0, false, fmt.Errorf("write fit: fitted model missing provenance")
	}

	detail, err := marshalFitDetail(fm)
	if err != nil {
		return 0, false, fmt.Errorf("write fit: %w", err)
	}
	key := constraintKey(fm.Options.Constraints)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("write fit: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO specs (hash, name, parent_hash, canonical, spec_version)
		VALUES (?, ?, NULLIF(?, ''), ?, ?)
		ON CONFLICT(hash) DO NOTHING
	`, fm.SpecHash, fm.Model.Name(), fm.Model.Parent(), fm.Model.Canonical(), spec.SpecVersion)
	if err != nil {
		return 0, false, fmt.Errorf("write fit: register spec: %w", err)
	}

	idx := fm.Indices
	result, err := tx.ExecContext(ctx, `
		INSERT INTO fits
		(run_id, spec_hash, grouping, constraints, optimizer,
		 chisq, df, pvalue, cfi, tli, rmsea, srmr, n, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, spec_hash, grouping, constraints) DO NOTHING
	`,
		runID, fm.SpecHash, fm.Options.Group, key, fm.Optimizer,
		idx.ChiSquare, idx.DF, idx.PValue, idx.CFI, idx.TLI, idx.RMSEA, idx.SRMR, idx.N, detail,
	)
	if err != nil {
		return 0, false, fmt.Errorf("write fit: insert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("write fit: rows affected: %w", err)
	}

	if rowsAffected > 0 {
		id, err = result.LastInsertId()
		if err != nil {
			return 0, false, fmt.Errorf("write fit: last insert id: %w", err)
		}
		inserted = true
	} else {
		err = tx.QueryRowContext(ctx, `
			SELECT id FROM fits
			WHERE run_id = ? AND spec_hash = ? AND grouping = ? AND constraints = ?
		`, runID, fm.SpecHash, fm.Options.Group, key).Scan(&id)
		if err != nil {
			return 0, false, fmt.Errorf("write fit: select existing: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("write fit: commit: %w", err)
	}
	return id, inserted, nil
}

// WriteComparison stores a likelihood-ratio test result under a run.
// The step is empty for plain nested-model comparisons and names the
// invariance rung ("metric", "scalar") for ladder comparisons.
func (s *Store) WriteComparison(ctx context.Context, runID, restrictedHash, fullHash, step string, cmp *engine.Comparison) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comparisons
		(run_id, restricted_hash, full_hash, step, chisq_diff, df_diff, pvalue)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, restricted_hash, full_hash, step) DO NOTHING
	`,
		runID, restrictedHash, fullHash, step,
		cmp.ChiSquareDiff, cmp.DFDiff, cmp.PValue,
	)
	if err != nil {
		return fmt.Errorf("write comparison: %w", err)
	}
	return nil
}
