package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SQLite stores players in a local database opened with db.OpenSQLite.
// Timestamps are kept as unix milliseconds.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *SQLite) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS players (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			username      TEXT NOT NULL UNIQUE,
			balance       INTEGER NOT NULL DEFAULT 0,
			donat_balance INTEGER NOT NULL DEFAULT 0,
			status        TEXT NOT NULL DEFAULT 'Bum',
			is_admin      INTEGER NOT NULL DEFAULT 0,
			total_clicks  INTEGER NOT NULL DEFAULT 0,
			total_visits  INTEGER NOT NULL DEFAULT 0,
			last_visit    INTEGER NOT NULL DEFAULT 0,
			created_at    INTEGER NOT NULL,
			updated_at    INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS businesses (
			player_id     INTEGER NOT NULL REFERENCES players(id) ON DELETE CASCADE,
			business_type INTEGER NOT NULL,
			count         INTEGER NOT NULL,
			PRIMARY KEY (player_id, business_type)
		);`,
		`CREATE TABLE IF NOT EXISTS cars (
			player_id INTEGER NOT NULL REFERENCES players(id) ON DELETE CASCADE,
			car_type  INTEGER NOT NULL,
			count     INTEGER NOT NULL,
			PRIMARY KEY (player_id, car_type)
		);`,
		`CREATE INDEX IF NOT EXISTS players_balance_idx ON players (balance DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *SQLite) Register(ctx context.Context, username string) (Player, error) {
	username, err := normalizeUsername(username)
	if err != nil {
		return Player{}, err
	}
	now := s.now().UnixMilli()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO players (username, status, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (username) DO NOTHING
	`, username, DefaultStatus, now, now)
	if err != nil {
		return Player{}, err
	}
	return scanSQLitePlayer(s.db.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE username = ?`, username))
}

func (s *SQLite) Visit(ctx context.Context, username string) (Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, err
	}
	defer tx.Rollback()

	player, err := scanSQLitePlayer(tx.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE username = ?`, username))
	if err != nil {
		return Record{}, err
	}
	out := Record{Player: player, Businesses: []BusinessRow{}, Cars: []CarRow{}}

	err = queryCounts(ctx, tx, `SELECT business_type, count FROM businesses WHERE player_id = ? ORDER BY business_type`, player.ID,
		func(id int, n int64) { out.Businesses = append(out.Businesses, BusinessRow{BusinessType: id, Count: n}) })
	if err != nil {
		return Record{}, err
	}
	err = queryCounts(ctx, tx, `SELECT car_type, count FROM cars WHERE player_id = ? ORDER BY car_type`, player.ID,
		func(id int, n int64) { out.Cars = append(out.Cars, CarRow{CarType: id, Count: n}) })
	if err != nil {
		return Record{}, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE players SET total_visits = total_visits + 1, last_visit = ? WHERE id = ?
	`, s.now().UnixMilli(), player.ID); err != nil {
		return Record{}, err
	}
	return out, tx.Commit()
}

func (s *SQLite) Roster(ctx context.Context, limit int) ([]Player, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+playerColumns+` FROM players ORDER BY balance DESC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Player, 0, limit)
	for rows.Next() {
		p, err := scanSQLitePlayer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLite) Update(ctx context.Context, in Update) (Player, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Player{}, err
	}
	defer tx.Rollback()

	var playerID int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM players WHERE username = ?`, in.Username).Scan(&playerID)
	if errors.Is(err, sql.ErrNoRows) {
		return Player{}, ErrNotFound
	}
	if err != nil {
		return Player{}, err
	}

	sets := make([]string, 0, 6)
	args := make([]any, 0, 7)
	add := func(column string, v any) {
		sets = append(sets, column+" = ?")
		args = append(args, v)
	}
	if in.Balance != nil {
		add("balance", *in.Balance)
	}
	if in.DonatBalance != nil {
		add("donat_balance", *in.DonatBalance)
	}
	if in.Status != nil {
		add("status", *in.Status)
	}
	if in.IsAdmin != nil {
		add("is_admin", *in.IsAdmin)
	}
	if in.TotalClicks != nil {
		add("total_clicks", *in.TotalClicks)
	}
	if len(sets) > 0 {
		add("updated_at", s.now().UnixMilli())
		args = append(args, playerID)
		query := "UPDATE players SET " + strings.Join(sets, ", ") + " WHERE id = ?"
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return Player{}, err
		}
	}

	if err := upsertCountsSQLite(ctx, tx, "businesses", "business_type", playerID, in.Businesses); err != nil {
		return Player{}, err
	}
	if err := upsertCountsSQLite(ctx, tx, "cars", "car_type", playerID, in.Cars); err != nil {
		return Player{}, err
	}

	player, err := scanSQLitePlayer(tx.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE id = ?`, playerID))
	if err != nil {
		return Player{}, err
	}
	return player, tx.Commit()
}

func queryCounts(ctx context.Context, tx *sql.Tx, query string, playerID int64, fn func(id int, n int64)) error {
	rows, err := tx.QueryContext(ctx, query, playerID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id int
		var n int64
		if err := rows.Scan(&id, &n); err != nil {
			return err
		}
		fn(id, n)
	}
	return rows.Err()
}

func upsertCountsSQLite(ctx context.Context, tx *sql.Tx, table, column string, playerID int64, counts map[int]int64) error {
	for id, n := range counts {
		var err error
		if n > 0 {
			_, err = tx.ExecContext(ctx, fmt.Sprintf(`
				INSERT INTO %[1]s (player_id, %[2]s, count) VALUES (?, ?, ?)
				ON CONFLICT (player_id, %[2]s) DO UPDATE SET count = excluded.count
			`, table, column), playerID, id, n)
		} else {
			_, err = tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE player_id = ? AND %s = ?`, table, column), playerID, id)
		}
		if err != nil {
			return fmt.Errorf("%s %d: %w", table, id, err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLitePlayer(row rowScanner) (Player, error) {
	var p Player
	var lastVisit, createdAt, updatedAt int64
	err := row.Scan(&p.ID, &p.Username, &p.Balance, &p.DonatBalance, &p.Status, &p.IsAdmin,
		&p.TotalClicks, &p.TotalVisits, &lastVisit, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Player{}, ErrNotFound
	}
	if err != nil {
		return Player{}, err
	}
	if lastVisit > 0 {
		p.LastVisit = time.UnixMilli(lastVisit).UTC()
	}
	p.CreatedAt = time.UnixMilli(createdAt).UTC()
	p.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return p, nil
}
