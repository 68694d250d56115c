package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS players (
	id            BIGSERIAL PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	balance       BIGINT NOT NULL DEFAULT 0,
	donat_balance BIGINT NOT NULL DEFAULT 0,
	status        TEXT NOT NULL DEFAULT 'Bum',
	is_admin      BOOLEAN NOT NULL DEFAULT false,
	total_clicks  BIGINT NOT NULL DEFAULT 0,
	total_visits  BIGINT NOT NULL DEFAULT 0,
	last_visit    TIMESTAMPTZ,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS businesses (
	player_id     BIGINT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
	business_type INT NOT NULL,
	count         BIGINT NOT NULL,
	PRIMARY KEY (player_id, business_type)
);
CREATE TABLE IF NOT EXISTS cars (
	player_id BIGINT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
	car_type  INT NOT NULL,
	count     BIGINT NOT NULL,
	PRIMARY KEY (player_id, car_type)
);
CREATE INDEX IF NOT EXISTS players_balance_idx ON players (balance DESC);
`

const playerColumns = `id, username, balance, donat_balance, status, is_admin, total_clicks, total_visits, last_visit, created_at, updated_at`

type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{db: pool}
}

func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Postgres) Register(ctx context.Context, username string) (Player, error) {
	username, err := normalizeUsername(username)
	if err != nil {
		return Player{}, err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO players (username, status)
		VALUES ($1, $2)
		ON CONFLICT (username) DO NOTHING
	`, username, DefaultStatus)
	if err != nil {
		return Player{}, err
	}
	return scanPlayer(s.db.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE username = $1`, username))
}

func (s *Postgres) Visit(ctx context.Context, username string) (Record, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return Record{}, err
	}
	defer tx.Rollback(ctx)

	player, err := scanPlayer(tx.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE username = $1`, username))
	if err != nil {
		return Record{}, err
	}
	out := Record{Player: player, Businesses: []BusinessRow{}, Cars: []CarRow{}}

	rows, err := tx.Query(ctx, `SELECT business_type, count FROM businesses WHERE player_id = $1 ORDER BY business_type`, player.ID)
	if err != nil {
		return Record{}, err
	}
	for rows.Next() {
		var r BusinessRow
		if err := rows.Scan(&r.BusinessType, &r.Count); err != nil {
			rows.Close()
			return Record{}, err
		}
		out.Businesses = append(out.Businesses, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Record{}, err
	}

	rows, err = tx.Query(ctx, `SELECT car_type, count FROM cars WHERE player_id = $1 ORDER BY car_type`, player.ID)
	if err != nil {
		return Record{}, err
	}
	for rows.Next() {
		var r CarRow
		if err := rows.Scan(&r.CarType, &r.Count); err != nil {
			rows.Close()
			return Record{}, err
		}
		out.Cars = append(out.Cars, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Record{}, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE players
		SET total_visits = total_visits + 1, last_visit = now()
		WHERE id = $1
	`, player.ID); err != nil {
		return Record{}, err
	}
	return out, tx.Commit(ctx)
}

func (s *Postgres) Roster(ctx context.Context, limit int) ([]Player, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `SELECT `+playerColumns+` FROM players ORDER BY balance DESC, id ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Player, 0, limit)
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Postgres) Update(ctx context.Context, in Update) (Player, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return Player{}, err
	}
	defer tx.Rollback(ctx)

	var playerID int64
	err = tx.QueryRow(ctx, `SELECT id FROM players WHERE username = $1 FOR UPDATE`, in.Username).Scan(&playerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Player{}, ErrNotFound
	}
	if err != nil {
		return Player{}, err
	}

	sets := make([]string, 0, 6)
	args := make([]any, 0, 6)
	add := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
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
		sets = append(sets, "updated_at = now()")
		args = append(args, playerID)
		query := fmt.Sprintf("UPDATE players SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return Player{}, err
		}
	}

	if err := upsertCountsPg(ctx, tx, "businesses", "business_type", playerID, in.Businesses); err != nil {
		return Player{}, err
	}
	if err := upsertCountsPg(ctx, tx, "cars", "car_type", playerID, in.Cars); err != nil {
		return Player{}, err
	}

	player, err := scanPlayer(tx.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1`, playerID))
	if err != nil {
		return Player{}, err
	}
	return player, tx.Commit(ctx)
}

func upsertCountsPg(ctx context.Context, tx pgx.Tx, table, column string, playerID int64, counts map[int]int64) error {
	for id, n := range counts {
		var err error
		if n > 0 {
			_, err = tx.Exec(ctx, fmt.Sprintf(`
				INSERT INTO %[1]s (player_id, %[2]s, count)
				VALUES ($1, $2, $3)
				ON CONFLICT (player_id, %[2]s) DO UPDATE SET count = EXCLUDED.count
			`, table, column), playerID, id, n)
		} else {
			_, err = tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE player_id = $1 AND %s = $2`, table, column), playerID, id)
		}
		if err != nil {
			return fmt.Errorf("%s %d: %w", table, id, err)
		}
	}
	return nil
}

func scanPlayer(row pgx.Row) (Player, error) {
	var p Player
	var lastVisit *time.Time
	err := row.Scan(&p.ID, &p.Username, &p.Balance, &p.DonatBalance, &p.Status, &p.IsAdmin,
		&p.TotalClicks, &p.TotalVisits, &lastVisit, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Player{}, ErrNotFound
	}
	if err != nil {
		return Player{}, err
	}
	if lastVisit != nil {
		p.LastVisit = *lastVisit
	}
	return p, nil
}
