package ledger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/research-agent/internal/model"
)

// Pool is the subset of pgxpool.Pool the ledger uses, narrow enough to mock.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// PostgresLedger implements Ledger using pgxpool, for deployments where
// several processes share one ledger.
type PostgresLedger struct {
	pool Pool
}

// NewPostgres creates a PostgresLedger with a connection pool and applies
// the schema.
func NewPostgres(ctx context.Context, connString string) (*PostgresLedger, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 4
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	l := &PostgresLedger{pool: pool}
	if err := l.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return l, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests.
func NewPostgresWithPool(pool Pool) *PostgresLedger {
	return &PostgresLedger{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	record     JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS domain_scores (
	domain TEXT PRIMARY KEY,
	score  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS blacklist (
	domain TEXT PRIMARY KEY
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

func (l *PostgresLedger) migrate(ctx context.Context) error {
	_, err := l.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (l *PostgresLedger) Load(ctx context.Context) (*State, error) {
	state := NewState()

	rows, err := l.pool.Query(ctx, `SELECT record FROM runs ORDER BY created_at, id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: select runs")
	}
	defer rows.Close()
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		var run model.ResearchRun
		if err := json.Unmarshal(record, &run); err != nil {
			return nil, eris.Wrap(err, "postgres: parse run record")
		}
		state.Runs = append(state.Runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate runs")
	}

	scoreRows, err := l.pool.Query(ctx, `SELECT domain, score FROM domain_scores`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: select domain scores")
	}
	defer scoreRows.Close()
	for scoreRows.Next() {
		var domain string
		var score int
		if err := scoreRows.Scan(&domain, &score); err != nil {
			return nil, eris.Wrap(err, "postgres: scan domain score")
		}
		state.DomainScores[domain] = score
	}
	if err := scoreRows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate domain scores")
	}

	blRows, err := l.pool.Query(ctx, `SELECT domain FROM blacklist ORDER BY domain`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: select blacklist")
	}
	defer blRows.Close()
	for blRows.Next() {
		var domain string
		if err := blRows.Scan(&domain); err != nil {
			return nil, eris.Wrap(err, "postgres: scan blacklist")
		}
		state.Blacklist = append(state.Blacklist, domain)
	}
	if err := blRows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate blacklist")
	}

	return state, nil
}

func (l *PostgresLedger) Save(ctx context.Context, state *State) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx)

	for _, run := range state.Runs {
		record, err := json.Marshal(run)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal run %s", run.ID)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO runs (id, record, created_at) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`,
			run.ID, record, run.Timestamp.UTC(),
		); err != nil {
			return eris.Wrapf(err, "postgres: insert run %s", run.ID)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM domain_scores`); err != nil {
		return eris.Wrap(err, "postgres: clear domain scores")
	}
	for domain, score := range state.DomainScores {
		if _, err := tx.Exec(ctx,
			`INSERT INTO domain_scores (domain, score) VALUES ($1, $2)`,
			domain, score,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert score %s", domain)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM blacklist`); err != nil {
		return eris.Wrap(err, "postgres: clear blacklist")
	}
	for _, domain := range state.Blacklist {
		if _, err := tx.Exec(ctx,
			`INSERT INTO blacklist (domain) VALUES ($1)`,
			domain,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert blacklist %s", domain)
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit")
}

func (l *PostgresLedger) Close() error {
	l.pool.Close()
	return nil
}
