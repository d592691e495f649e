package archive

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/investor-coach/internal/contracts"
	"github.com/wonny/investor-coach/internal/pipeline"
	"github.com/wonny/investor-coach/pkg/database"
	"github.com/wonny/investor-coach/pkg/logger"
)

//go:embed schema.sql
var schema string

var rowColumns = []string{
	"run_id", "rank", "symbol", "score", "volatility", "max_drawdown",
	"sharpe", "beta", "r_squared", "expense_ratio", "yield_pct", "warning",
}

// RunSummary is one archived run as listed by Recent
type RunSummary struct {
	RunID       string    `json:"run_id"`
	CreatedAt   time.Time `json:"created_at"`
	AsOf        time.Time `json:"as_of"`
	Benchmark   string    `json:"benchmark"`
	Tickers     []string  `json:"tickers"`
	ProfileName string    `json:"profile_name"`
	ProfileHash string    `json:"profile_hash"`
	TopPick     string    `json:"top_pick"`
}

// Repository persists comparison runs to Postgres
// ⭐ SSOT: 실행 기록 저장/조회는 여기서만
type Repository struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
}

// NewRepository creates a new archive repository
func NewRepository(db *database.DB, log *logger.Logger) *Repository {
	return &Repository{pool: db.Pool, logger: log.WithModule("archive")}
}

// EnsureSchema creates the coach schema and tables when missing
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure archive schema: %w", err)
	}
	return nil
}

// SaveRun stores the run header and its ranked rows in one transaction
func (r *Repository) SaveRun(ctx context.Context, res *pipeline.Result) error {
	runID, err := uuid.Parse(res.RunID)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", res.RunID, err)
	}

	weightsJSON, err := json.Marshal(res.Weights)
	if err != nil {
		return fmt.Errorf("failed to marshal weights: %w", err)
	}
	excluded := res.Excluded
	if excluded == nil {
		excluded = []pipeline.Exclusion{}
	}
	excludedJSON, err := json.Marshal(excluded)
	if err != nil {
		return fmt.Errorf("failed to marshal excluded: %w", err)
	}

	var asOf *time.Time
	if !res.AsOf.IsZero() {
		asOf = &res.AsOf
	}
	var topPick *string
	if tp := res.TopPick(); tp != "" {
		topPick = &tp
	}
	profileName := ""
	if res.Profile != nil {
		profileName = res.Profile.Name
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO coach.runs (
			run_id, as_of, benchmark, tickers, profile_name, profile_hash,
			timeframe, frequency, r2_align_target, risk_free_rate,
			weights, excluded, top_pick, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = tx.Exec(ctx, query,
		runID, asOf, res.Benchmark, res.Tickers, profileName, res.ProfileHash,
		string(res.Timeframe), string(res.Frequency), string(res.R2Target), res.RiskFreeRate,
		weightsJSON, excludedJSON, topPick, res.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"coach", "run_rows"},
		rowColumns,
		pgx.CopyFromRows(rowValues(runID, res.Rows)),
	)
	if err != nil {
		return fmt.Errorf("failed to copy run rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"run_id": res.RunID,
		"rows":   n,
	}).Info("Run archived")
	return nil
}

// rowValues flattens ranked rows in rowColumns order; nil metrics stay NULL
func rowValues(runID uuid.UUID, rows []contracts.ScoredRow) [][]interface{} {
	out := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		var warning *string
		if row.Warning != "" {
			w := row.Warning
			warning = &w
		}
		out = append(out, []interface{}{
			runID, row.Rank, row.Symbol, row.Score, row.Volatility, row.MaxDrawdown,
			row.Sharpe, row.Beta, row.RSquared, row.ExpenseRatio, row.YieldPct, warning,
		})
	}
	return out
}

// Recent lists the latest runs, newest first
func (r *Repository) Recent(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT run_id::text, created_at, COALESCE(as_of, created_at::date), benchmark, tickers, profile_name, profile_hash, COALESCE(top_pick, '')
		FROM coach.runs
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(&s.RunID, &s.CreatedAt, &s.AsOf, &s.Benchmark, &s.Tickers, &s.ProfileName, &s.ProfileHash, &s.TopPick); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

// Rows returns the ranked rows of one run
func (r *Repository) Rows(ctx context.Context, runID string) ([]contracts.ScoredRow, error) {
	id, err := uuid.Parse(runID)
	if err != nil {
		return nil, contracts.ValidationError{Field: "run_id", Message: err.Error()}
	}

	query := `
		SELECT rank, symbol, score, volatility, max_drawdown, sharpe, beta,
		       r_squared, expense_ratio, yield_pct, COALESCE(warning, '')
		FROM coach.run_rows
		WHERE run_id = $1
		ORDER BY rank
	`
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query run rows: %w", err)
	}
	defer rows.Close()

	var out []contracts.ScoredRow
	for rows.Next() {
		var s contracts.ScoredRow
		if err := rows.Scan(
			&s.Rank, &s.Symbol, &s.Score, &s.Volatility, &s.MaxDrawdown, &s.Sharpe, &s.Beta,
			&s.RSquared, &s.ExpenseRatio, &s.YieldPct, &s.Warning,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
