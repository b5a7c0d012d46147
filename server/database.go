package server

import (
	"bytes"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite"

	"github.com/DirusLupito/Light-Year-Wars-C-sub000/game"
	"github.com/DirusLupito/Light-Year-Wars-C-sub000/protocol"
)

// DB wraps the SQLite match-results store.
type DB struct {
	conn *sql.DB
}

// MatchRecord is one finished match.
type MatchRecord struct {
	ID        string // uuid
	MapName   string
	StartedAt time.Time
	Duration  float64 // seconds
	Winner    int32   // faction id
	Players   int
	Archive   []byte // lz4-compressed msgpack MatchArchive
}

// MatchArchive is the msgpack payload stored per match: the final level,
// enough to reconstruct the end state for replays or postmortems.
type MatchArchive struct {
	Width    float32                  `msgpack:"w"`
	Height   float32                  `msgpack:"h"`
	Factions []protocol.FactionState  `msgpack:"f"`
	Planets  []protocol.PlanetState   `msgpack:"p"`
	Ships    []protocol.StarshipState `msgpack:"s"`
	Winner   int32                    `msgpack:"win"`
}

// OpenDB opens (or creates) the results database. ":memory:" works for
// tests.
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL keeps match writes from blocking reads by dashboards.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}
	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
	CREATE TABLE IF NOT EXISTS matches (
		id          TEXT PRIMARY KEY,
		map_name    TEXT NOT NULL,
		started_at  INTEGER NOT NULL,
		duration    REAL NOT NULL,
		winner      INTEGER NOT NULL,
		players     INTEGER NOT NULL,
		archive     BLOB
	)`)
	return err
}

// Close closes the underlying connection.
func (db *DB) Close() error { return db.conn.Close() }

// SaveMatch archives the final level into rec and inserts it.
func (db *DB) SaveMatch(rec MatchRecord, lvl *game.Level) error {
	full := protocol.FullFromLevel(lvl)
	arch := MatchArchive{
		Width:    full.Width,
		Height:   full.Height,
		Factions: full.Factions,
		Planets:  full.Planets,
		Ships:    full.Ships,
		Winner:   rec.Winner,
	}
	raw, err := msgpack.Marshal(&arch)
	if err != nil {
		return fmt.Errorf("archive marshal: %w", err)
	}
	var compressed bytes.Buffer
	zw := lz4.NewWriter(&compressed)
	if _, err := zw.Write(raw); err != nil {
		return fmt.Errorf("archive compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("archive compress: %w", err)
	}
	rec.Archive = compressed.Bytes()

	_, err = db.conn.Exec(
		`INSERT INTO matches (id, map_name, started_at, duration, winner, players, archive)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.MapName, rec.StartedAt.Unix(), rec.Duration, rec.Winner, rec.Players, rec.Archive)
	return err
}

// Matches lists stored results, newest first, without archives.
func (db *DB) Matches() ([]MatchRecord, error) {
	rows, err := db.conn.Query(
		`SELECT id, map_name, started_at, duration, winner, players
		 FROM matches ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MatchRecord
	for rows.Next() {
		var rec MatchRecord
		var started int64
		if err := rows.Scan(&rec.ID, &rec.MapName, &started, &rec.Duration, &rec.Winner, &rec.Players); err != nil {
			return nil, err
		}
		rec.StartedAt = time.Unix(started, 0)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// LoadArchive fetches and decodes one match's final state.
func (db *DB) LoadArchive(id string) (*MatchArchive, error) {
	var blob []byte
	err := db.conn.QueryRow(`SELECT archive FROM matches WHERE id = ?`, id).Scan(&blob)
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(lz4.NewReader(bytes.NewReader(blob)))
	if err != nil {
		return nil, fmt.Errorf("archive decompress: %w", err)
	}
	var arch MatchArchive
	if err := msgpack.Unmarshal(raw, &arch); err != nil {
		return nil, fmt.Errorf("archive unmarshal: %w", err)
	}
	return &arch, nil
}
