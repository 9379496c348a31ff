// Package postgres persists annotated run results for downstream
// automated checks. Persistence is optional; the on-disk artifacts remain
// canonical.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"gencorr/domain/core"
	"gencorr/domain/rg"

	"github.com/jmoiron/sqlx"
)

// ResultRepository stores annotated correlation results keyed by run
type ResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository creates a PostgreSQL result repository
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// EnsureSchema creates the results table if it does not exist
func (r *ResultRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS correlation_results (
			run_id       TEXT NOT NULL,
			config       TEXT NOT NULL,
			subject_a    TEXT NOT NULL,
			subject_b    TEXT NOT NULL,
			rg           DOUBLE PRECISION,
			se           DOUBLE PRECISION,
			z            DOUBLE PRECISION,
			p            DOUBLE PRECISION,
			adjusted_p   DOUBLE PRECISION,
			marker       TEXT NOT NULL,
			h2_obs       DOUBLE PRECISION,
			h2_obs_se    DOUBLE PRECISION,
			h2_int       DOUBLE PRECISION,
			h2_int_se    DOUBLE PRECISION,
			gcov_int     DOUBLE PRECISION,
			gcov_int_se  DOUBLE PRECISION,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (run_id, config, subject_a, subject_b)
		)`)
	if err != nil {
		return fmt.Errorf("ensuring correlation_results schema: %w", err)
	}
	return nil
}

// resultRow is the persistence shape; missing statistics map to NULL
type resultRow struct {
	RunID     string          `db:"run_id"`
	Config    string          `db:"config"`
	SubjectA  string          `db:"subject_a"`
	SubjectB  string          `db:"subject_b"`
	Rg        sql.NullFloat64 `db:"rg"`
	SE        sql.NullFloat64 `db:"se"`
	Z         sql.NullFloat64 `db:"z"`
	P         sql.NullFloat64 `db:"p"`
	AdjustedP sql.NullFloat64 `db:"adjusted_p"`
	Marker    string          `db:"marker"`
	H2Obs     sql.NullFloat64 `db:"h2_obs"`
	H2ObsSE   sql.NullFloat64 `db:"h2_obs_se"`
	H2Int     sql.NullFloat64 `db:"h2_int"`
	H2IntSE   sql.NullFloat64 `db:"h2_int_se"`
	GcovInt   sql.NullFloat64 `db:"gcov_int"`
	GcovIntSE sql.NullFloat64 `db:"gcov_int_se"`
}

// SaveResults stores every annotated result for one run configuration
func (r *ResultRepository) SaveResults(ctx context.Context, runID core.RunID, config string, results []rg.AnnotatedResult) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const insert = `
		INSERT INTO correlation_results (
			run_id, config, subject_a, subject_b, rg, se, z, p, adjusted_p, marker,
			h2_obs, h2_obs_se, h2_int, h2_int_se, gcov_int, gcov_int_se
		) VALUES (
			:run_id, :config, :subject_a, :subject_b, :rg, :se, :z, :p, :adjusted_p, :marker,
			:h2_obs, :h2_obs_se, :h2_int, :h2_int_se, :gcov_int, :gcov_int_se
		)
		ON CONFLICT (run_id, config, subject_a, subject_b) DO UPDATE SET
			rg = EXCLUDED.rg, se = EXCLUDED.se, z = EXCLUDED.z, p = EXCLUDED.p,
			adjusted_p = EXCLUDED.adjusted_p, marker = EXCLUDED.marker`

	for _, res := range results {
		row := resultRow{
			RunID:     runID.String(),
			Config:    config,
			SubjectA:  res.SubjectA,
			SubjectB:  res.SubjectB,
			Rg:        nullable(res.Rg),
			SE:        nullable(res.SE),
			Z:         nullable(res.Z),
			P:         nullable(res.P),
			AdjustedP: nullable(res.AdjustedP),
			Marker:    string(res.Marker),
			H2Obs:     nullable(res.H2Obs),
			H2ObsSE:   nullable(res.H2ObsSE),
			H2Int:     nullable(res.H2Int),
			H2IntSE:   nullable(res.H2IntSE),
			GcovInt:   nullable(res.GcovInt),
			GcovIntSE: nullable(res.GcovIntSE),
		}
		if _, err := tx.NamedExecContext(ctx, insert, row); err != nil {
			return fmt.Errorf("inserting result %s/%s: %w", res.SubjectA, res.SubjectB, err)
		}
	}
	return tx.Commit()
}

func nullable(v float64) sql.NullFloat64 {
	if rg.IsMissing(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
