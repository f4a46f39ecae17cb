package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/calder-stats/semfit/internal/engine"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("store: not found")

// Run scopes stored results to one dataset and engine version.
type Run struct {
	ID            string `json:"id"`
	DataSig       string `json:"data_sig"`
	EngineVersion string `json:"engine_version"`
	CreatedAt     string `json:"created_at,omitempty"`
}

// SpecRecord is a stored model specification.
type SpecRecord struct {
	Hash        string `json:"hash"`
	Name        string `json:"name"`
	ParentHash  string `json:"parent_hash,omitempty"`
	Canonical   string `json:"canonical"`
	SpecVersion string `json:"spec_version"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// FitRecord is a stored fit with its full detail rehydrated.
type FitRecord struct {
	ID          int64               `json:"id"`
	RunID       string              `json:"run_id"`
	SpecHash    string              `json:"spec_hash"`
	Grouping    string              `json:"grouping,omitempty"`
	Constraints string              `json:"constraints,omitempty"`
	Optimizer   string              `json:"optimizer"`
	Indices     engine.FitIndices   `json:"indices"`
	Groups      []engine.GroupStats `json:"groups"`
	Parameters  []engine.Parameter  `json:"parameters"`
	ModIndices  []engine.Score      `json:"mod_indices"`
}

// ComparisonRecord is a stored likelihood-ratio test.
type ComparisonRecord struct {
	ID             int64   `json:"id"`
	RunID          string  `json:"run_id"`
	RestrictedHash string  `json:"restricted_hash"`
	FullHash       string  `json:"full_hash"`
	Step           string  `json:"step,omitempty"`
	ChiSquareDiff  float64 `json:"chisq_diff"`
	DFDiff         int     `json:"df_diff"`
	PValue         float64 `json:"pvalue"`
}

// GetSpec fetches one spec by hash.
func (s *Store) GetSpec(ctx context.Context, hash string) (SpecRecord, error) {
	var rec SpecRecord
	var parent sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT hash, name, parent_hash, canonical, spec_version, created_at
		FROM specs WHERE hash = ?
	`, hash).Scan(&rec.Hash, &rec.Name, &parent, &rec.Canonical, &rec.SpecVersion, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return SpecRecord{}, fmt.Errorf("get spec %s: %w", hash, ErrNotFound)
	}
	if err != nil {
		return SpecRecord{}, fmt.Errorf("get spec: %w", err)
	}
	rec.ParentHash = parent.String
	return rec, nil
}

// ListSpecs returns all stored specs ordered by creation time.
func (s *Store) ListSpecs(ctx context.Context) ([]SpecRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hash, name, parent_hash, canonical, spec_version, created_at
		FROM specs ORDER BY created_at, hash
	`)
	if err != nil {
		return nil, fmt.Errorf("list specs: %w", err)
	}
	defer rows.Close()

	var out []SpecRecord
	for rows.Next() {
		var rec SpecRecord
		var parent sql.NullString
		if err := rows.Scan(&rec.Hash, &rec.Name, &parent, &rec.Canonical, &rec.SpecVersion, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("list specs: scan: %w", err)
		}
		rec.ParentHash = parent.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Lineage walks the parent chain of a spec, returning the spec itself
// first and the root ancestor last. The chain stops at the first parent
// not present in the store.
func (s *Store) Lineage(ctx context.Context, hash string) ([]SpecRecord, error) {
	var out []SpecRecord
	seen := map[string]bool{}
	for hash != "" && !seen[hash] {
		seen[hash] = true
		rec, err := s.GetSpec(ctx, hash)
		if errors.Is(err, ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
		hash = rec.ParentHash
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("lineage %s: %w", hash, ErrNotFound)
	}
	return out, nil
}

// GetRun fetches one run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	var run Run
	err := s.db.QueryRowContext(ctx, `
		SELECT id, data_sig, engine_version, created_at FROM runs WHERE id = ?
	`, id).Scan(&run.ID, &run.DataSig, &run.EngineVersion, &run.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("get run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListFits returns every fit of a run in insertion order.
func (s *Store) ListFits(ctx context.Context, runID string) ([]FitRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, spec_hash, grouping, constraints, optimizer,
		       chisq, df, pvalue, cfi, tli, rmsea, srmr, n, detail
		FROM fits WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list fits: %w", err)
	}
	defer rows.Close()

	var out []FitRecord
	for rows.Next() {
		rec, err := scanFit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetFit fetches one fit by row ID.
func (s *Store) GetFit(ctx context.Context, id int64) (FitRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, spec_hash, grouping, constraints, optimizer,
		       chisq, df, pvalue, cfi, tli, rmsea, srmr, n, detail
		FROM fits WHERE id = ?
	`, id)
	if err != nil {
		return FitRecord{}, fmt.Errorf("get fit: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return FitRecord{}, fmt.Errorf("get fit: %w", err)
		}
		return FitRecord{}, fmt.Errorf("get fit %d: %w", id, ErrNotFound)
	}
	return scanFit(rows)
}

func scanFit(rows *sql.Rows) (FitRecord, error) {
	var rec FitRecord
	var detail string
	err := rows.Scan(&rec.ID, &rec.RunID, &rec.SpecHash, &rec.Grouping, &rec.Constraints, &rec.Optimizer,
		&rec.Indices.ChiSquare, &rec.Indices.DF, &rec.Indices.PValue,
		&rec.Indices.CFI, &rec.Indices.TLI, &rec.Indices.RMSEA, &rec.Indices.SRMR,
		&rec.Indices.N, &detail)
	if err != nil {
		return FitRecord{}, fmt.Errorf("scan fit: %w", err)
	}
	d, err := unmarshalFitDetail(detail)
	if err != nil {
		return FitRecord{}, err
	}
	// The detail blob carries the baseline indices the columns omit.
	rec.Indices = d.Indices
	rec.Groups = d.Groups
	rec.Parameters = d.Parameters
	rec.ModIndices = d.ModIndices
	return rec, nil
}

// ListComparisons returns every comparison of a run in insertion order.
func (s *Store) ListComparisons(ctx context.Context, runID string) ([]ComparisonRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, restricted_hash, full_hash, step, chisq_diff, df_diff, pvalue
		FROM comparisons WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list comparisons: %w", err)
	}
	defer rows.Close()

	var out []ComparisonRecord
	for rows.Next() {
		var rec ComparisonRecord
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.RestrictedHash, &rec.FullHash, &rec.Step,
			&rec.ChiSquareDiff, &rec.DFDiff, &rec.PValue); err != nil {
			return nil, fmt.Errorf("list comparisons: scan: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
