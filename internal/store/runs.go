package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/evalforge/ablate/internal/record"
)

// RunMeta describes one stored run.
type RunMeta struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Seed      int64     `json:"seed"`
	CreatedAt time.Time `json:"created_at"`
	Records   int       `json:"records"`
}

// IDGenerator produces run identifiers.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run ids, so a run listing
// ordered by id is also ordered by creation time.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7 string.
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined run ids for deterministic tests.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
// Generate panics once the ids are exhausted: a test asking for more runs
// than it planned is a test bug.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined id.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}

// SaveRun stores a result table as a new run and returns its metadata.
// The table is written in one transaction: a failed save leaves nothing.
func (s *Store) SaveRun(ctx context.Context, label string, seed int64, records []record.Evaluation, gen IDGenerator) (RunMeta, error) {
	if gen == nil {
		gen = UUIDv7Generator{}
	}
	meta := RunMeta{
		ID:        gen.Generate(),
		Label:     label,
		Seed:      seed,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Records:   len(records),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return RunMeta{}, fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, label, seed, created_at) VALUES (?, ?, ?, ?)`,
		meta.ID, meta.Label, meta.Seed, meta.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return RunMeta{}, fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records
		(run_id, seq, item_id, pack, mode,
		 contract_adherence, hallucination_rate, citation_precision,
		 citation_recall, abstain_rate, latency_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return RunMeta{}, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for seq, r := range records {
		_, err := stmt.ExecContext(ctx, meta.ID, seq, r.ID, r.Pack, r.Mode,
			r.ContractAdherence, r.HallucinationRate, r.CitationPrecision,
			r.CitationRecall, r.AbstainRate, r.LatencyMS)
		if err != nil {
			return RunMeta{}, fmt.Errorf("insert record %q: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return RunMeta{}, fmt.Errorf("commit save: %w", err)
	}
	return meta, nil
}

// LoadRun returns a run's result table in canonical production order.
// A missing run id is an error, not an empty table.
func (s *Store) LoadRun(ctx context.Context, runID string) ([]record.Evaluation, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("look up run: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("run %q not found", runID)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT item_id, pack, mode,
		contract_adherence, hallucination_rate, citation_precision,
		citation_recall, abstain_rate, latency_ms
		FROM records WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %q: %w", runID, err)
	}
	defer rows.Close()

	var records []record.Evaluation
	for rows.Next() {
		var r record.Evaluation
		err := rows.Scan(&r.ID, &r.Pack, &r.Mode,
			&r.ContractAdherence, &r.HallucinationRate, &r.CitationPrecision,
			&r.CitationRecall, &r.AbstainRate, &r.LatencyMS)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load run %q: %w", runID, err)
	}
	return records, nil
}

// LatestRun returns the metadata of the most recently created run.
// Returns sql.ErrNoRows wrapped when the store is empty.
func (s *Store) LatestRun(ctx context.Context) (RunMeta, error) {
	metas, err := s.ListRuns(ctx)
	if err != nil {
		return RunMeta{}, err
	}
	if len(metas) == 0 {
		return RunMeta{}, fmt.Errorf("no runs stored: %w", sql.ErrNoRows)
	}
	return metas[len(metas)-1], nil
}

// ListRuns returns stored run metadata ordered by id (creation time for
// UUIDv7 ids).
func (s *Store) ListRuns(ctx context.Context) ([]RunMeta, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT r.id, r.label, r.seed, r.created_at,
		(SELECT COUNT(*) FROM records WHERE run_id = r.id)
		FROM runs r ORDER BY r.id`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var metas []RunMeta
	for rows.Next() {
		var m RunMeta
		var created string
		if err := rows.Scan(&m.ID, &m.Label, &m.Seed, &created, &m.Records); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		m.CreatedAt, err = time.Parse(time.RFC3339, created)
		if err != nil {
			return nil, fmt.Errorf("parse created_at for run %q: %w", m.ID, err)
		}
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

// MetricByMode returns one metric's values for a (run, mode) group,
// feeding analyzers without materializing the whole table.
func (s *Store) MetricByMode(ctx context.Context, runID, metric, mode string) ([]float64, error) {
	column, err := metricColumn(metric)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+column+` FROM records WHERE run_id = ? AND mode = ? ORDER BY seq`,
		runID, mode)
	if err != nil {
		return nil, fmt.Errorf("query %s for run %q mode %s: %w", metric, runID, mode, err)
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan %s: %w", metric, err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// metricColumn maps a schema metric name to its column, rejecting anything
// else so metric names can never reach SQL unchecked.
func metricColumn(metric string) (string, error) {
	for _, name := range record.MetricNames {
		if metric == name {
			return name, nil
		}
	}
	return "", fmt.Errorf("unknown metric %q", metric)
}
