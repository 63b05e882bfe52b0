package main

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the sqlite handle behind the server's query surface.
type DB struct {
	conn *sql.DB
}

// OpenDB opens the sqlite database at path, creating and migrating it as
// needed. Pass ":memory:" for an ephemeral database in tests.
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// sqlite serializes writers anyway; a single connection sidesteps
	// SQLITE_BUSY under load and keeps :memory: databases coherent
	// across the pool.
	conn.SetMaxOpenConns(1)
	if _, err := conn.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := conn.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func (db *DB) Close() error { return db.conn.Close() }

func (db *DB) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS players (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	pass_hash TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS stats (
	player_id INTEGER PRIMARY KEY REFERENCES players(id),
	runs INTEGER NOT NULL DEFAULT 0,
	best_score INTEGER NOT NULL DEFAULT 0,
	pellets INTEGER NOT NULL DEFAULT 0,
	orbs INTEGER NOT NULL DEFAULT 0,
	playtime REAL NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	player_id INTEGER NOT NULL REFERENCES players(id),
	score INTEGER NOT NULL DEFAULT 0,
	pellets INTEGER NOT NULL DEFAULT 0,
	orbs INTEGER NOT NULL DEFAULT 0,
	duration REAL NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_runs_player ON runs(player_id);
CREATE TABLE IF NOT EXISTS achievements (
	player_id INTEGER NOT NULL REFERENCES players(id),
	achievement_id TEXT NOT NULL,
	unlocked_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (player_id, achievement_id)
);
CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS analytics_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type TEXT NOT NULL,
	player_id INTEGER,
	session_id TEXT,
	data TEXT,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_type_time ON analytics_events(event_type, created_at);
`
	_, err := db.conn.Exec(schema)
	return err
}

type PlayerRow struct {
	ID       int64
	Username string
	PassHash string
}

type StatsRow struct {
	Runs      int
	BestScore int
	Pellets   int
	Orbs      int
	Playtime  float64
}

// LeaderboardEntry is one row of the public leaderboard, JSON-shaped for
// the HTTP endpoint.
type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	Username  string `json:"username"`
	BestScore int    `json:"best"`
	Runs      int    `json:"runs"`
	Pellets   int    `json:"pellets"`
	Orbs      int    `json:"orbs"`
}

// CreatePlayer inserts an account and its empty stats row.
func (db *DB) CreatePlayer(username, passHash string) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO players (username, pass_hash) VALUES (?, ?)`, username, passHash)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if _, err := tx.Exec(`INSERT INTO stats (player_id) VALUES (?)`, id); err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// GetPlayerByUsername returns nil, nil when the account does not exist.
func (db *DB) GetPlayerByUsername(username string) (*PlayerRow, error) {
	var p PlayerRow
	err := db.conn.QueryRow(
		`SELECT id, username, pass_hash FROM players WHERE username = ?`, username,
	).Scan(&p.ID, &p.Username, &p.PassHash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPlayerByID returns nil, nil when the account does not exist.
func (db *DB) GetPlayerByID(id int64) (*PlayerRow, error) {
	var p PlayerRow
	err := db.conn.QueryRow(
		`SELECT id, username, pass_hash FROM players WHERE id = ?`, id,
	).Scan(&p.ID, &p.Username, &p.PassHash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (db *DB) UsernameExists(username string) (bool, error) {
	var n int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM players WHERE username = ?`, username).Scan(&n)
	return n > 0, err
}

// GetStats returns the lifetime totals for an account. Missing rows come
// back zeroed rather than as an error.
func (db *DB) GetStats(playerID int64) (StatsRow, error) {
	var s StatsRow
	err := db.conn.QueryRow(
		`SELECT runs, best_score, pellets, orbs, playtime FROM stats WHERE player_id = ?`, playerID,
	).Scan(&s.Runs, &s.BestScore, &s.Pellets, &s.Orbs, &s.Playtime)
	if err == sql.ErrNoRows {
		return StatsRow{}, nil
	}
	return s, err
}

// RecordRun appends one finished run to the history and folds it into the
// lifetime totals in a single transaction.
func (db *DB) RecordRun(playerID int64, score, pellets, orbs int, duration float64) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO runs (player_id, score, pellets, orbs, duration) VALUES (?, ?, ?, ?, ?)`,
		playerID, score, pellets, orbs, duration,
	); err != nil {
		return err
	}
	if _, err := tx.Exec(
		`UPDATE stats SET
			runs = runs + 1,
			pellets = pellets + ?,
			orbs = orbs + ?,
			playtime = playtime + ?,
			best_score = CASE WHEN ? > best_score THEN ? ELSE best_score END
		WHERE player_id = ?`,
		pellets, orbs, duration, score, score, playerID,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// leaderboardColumns whitelists what the ORDER BY may name. The column
// string is never taken from the request.
var leaderboardColumns = map[string]string{
	"best":     "s.best_score",
	"runs":     "s.runs",
	"pellets":  "s.pellets",
	"orbs":     "s.orbs",
	"playtime": "s.playtime",
}

func (db *DB) GetLeaderboard(orderBy string, limit int) ([]LeaderboardEntry, error) {
	col, ok := leaderboardColumns[orderBy]
	if !ok {
		col = leaderboardColumns["best"]
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	q := fmt.Sprintf(
		`SELECT p.username, s.best_score, s.runs, s.pellets, s.orbs
		FROM stats s JOIN players p ON p.id = s.player_id
		ORDER BY %s DESC, p.username ASC LIMIT ?`, col)
	rows, err := db.conn.Query(q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Username, &e.BestScore, &e.Runs, &e.Pellets, &e.Orbs); err != nil {
			return nil, err
		}
		e.Rank = len(out) + 1
		out = append(out, e)
	}
	return out, rows.Err()
}

func (db *DB) GetSetting(key string) (string, error) {
	var v string
	err := db.conn.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return v, err
}

func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// UnlockAchievement records an unlock. Reports false when the player
// already had it.
func (db *DB) UnlockAchievement(playerID int64, achievementID string) (bool, error) {
	res, err := db.conn.Exec(
		`INSERT OR IGNORE INTO achievements (player_id, achievement_id) VALUES (?, ?)`,
		playerID, achievementID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (db *DB) GetAchievements(playerID int64) ([]string, error) {
	rows, err := db.conn.Query(
		`SELECT achievement_id FROM achievements WHERE player_id = ? ORDER BY unlocked_at`, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// insertEventsTx writes one analytics batch. Called by the analytics
// writer from its flush path.
func (db *DB) insertEventsTx(events []analyticsEvent) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO analytics_events (event_type, player_id, session_id, data, created_at)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, evt := range events {
		var pid interface{}
		if evt.PlayerID != 0 {
			pid = evt.PlayerID
		}
		if _, err := stmt.Exec(evt.Type, pid, evt.SessionID, evt.Data, evt.At); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// EventCount reports how many analytics events of one type were recorded
// since a cutoff. Empty type counts everything.
func (db *DB) EventCount(eventType string, since time.Time) (int, error) {
	var n int
	var err error
	if eventType == "" {
		err = db.conn.QueryRow(
			`SELECT COUNT(*) FROM analytics_events WHERE created_at >= ?`, since).Scan(&n)
	} else {
		err = db.conn.QueryRow(
			`SELECT COUNT(*) FROM analytics_events WHERE event_type = ? AND created_at >= ?`,
			eventType, since).Scan(&n)
	}
	return n, err
}
