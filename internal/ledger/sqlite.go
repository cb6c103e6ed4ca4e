package ledger

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/research-agent/internal/model"
)

// SQLiteLedger implements Ledger using modernc.org/sqlite.
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given DSN, configures WAL mode
// and applies the schema.
func NewSQLite(ctx context.Context, dsn string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}

	l := &SQLiteLedger{db: db}
	if err := l.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	record     TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
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

func (l *SQLiteLedger) migrate(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (l *SQLiteLedger) Load(ctx context.Context) (*State, error) {
	state := NewState()

	rows, err := l.db.QueryContext(ctx, `SELECT record FROM runs ORDER BY created_at, id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: select runs")
	}
	defer rows.Close()
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		var run model.ResearchRun
		if err := json.Unmarshal([]byte(record), &run); err != nil {
			return nil, eris.Wrap(err, "sqlite: parse run record")
		}
		state.Runs = append(state.Runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate runs")
	}

	scoreRows, err := l.db.QueryContext(ctx, `SELECT domain, score FROM domain_scores`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: select domain scores")
	}
	defer scoreRows.Close()
	for scoreRows.Next() {
		var domain string
		var score int
		if err := scoreRows.Scan(&domain, &score); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan domain score")
		}
		state.DomainScores[domain] = score
	}
	if err := scoreRows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate domain scores")
	}

	blRows, err := l.db.QueryContext(ctx, `SELECT domain FROM blacklist ORDER BY domain`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: select blacklist")
	}
	defer blRows.Close()
	for blRows.Next() {
		var domain string
		if err := blRows.Scan(&domain); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan blacklist")
		}
		state.Blacklist = append(state.Blacklist, domain)
	}
	if err := blRows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate blacklist")
	}

	return state, nil
}

func (l *SQLiteLedger) Save(ctx context.Context, state *State) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	for _, run := range state.Runs {
		record, err := json.Marshal(run)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal run %s", run.ID)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO runs (id, record, created_at) VALUES (?, ?, ?) ON CONFLICT(id) DO NOTHING`,
			run.ID, string(record), run.Timestamp.UTC(),
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM domain_scores`); err != nil {
		return eris.Wrap(err, "sqlite: clear domain scores")
	}
	for domain, score := range state.DomainScores {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO domain_scores (domain, score) VALUES (?, ?)`,
			domain, score,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert score %s", domain)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM blacklist`); err != nil {
		return eris.Wrap(err, "sqlite: clear blacklist")
	}
	for _, domain := range state.Blacklist {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO blacklist (domain) VALUES (?)`,
			domain,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert blacklist %s", domain)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}
