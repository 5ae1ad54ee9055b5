package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wricardo/adventure-games/game/engine"
	"github.com/wricardo/adventure-games/game/service"
	_ "modernc.org/sqlite"
)

// SQLitePersistence stores sessions in a SQLite database. Besides the
// session snapshot it keeps an append-only log of committed swaps.
type SQLitePersistence struct {
	db    *sql.DB
	codec codec
}

// SwapEvent is one row of the swap log
type SwapEvent struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	engine.SwapHistoryEntry
	RecordedAt time.Time `json:"recorded_at"`
}

// NewSQLitePersistence opens (or creates) the database at dbPath
func NewSQLitePersistence(dbPath string, configManager service.ConfigManager, opts ...engine.Option) (*SQLitePersistence, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// one writer keeps SQLITE_BUSY away
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	if err := createSchemas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schemas: %w", err)
	}

	return &SQLitePersistence{
		db:    db,
		codec: codec{configs: configManager, engineOpts: opts},
	}, nil
}

func createSchemas(db *sql.DB) error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			config_name TEXT NOT NULL,
			phase TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			last_accessed_at DATETIME NOT NULL,
			state_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS swap_events (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			swap_number INTEGER NOT NULL,
			tile_id INTEGER NOT NULL,
			target_id INTEGER NOT NULL,
			symbol TEXT NOT NULL,
			target_symbol TEXT NOT NULL,
			from_row INTEGER NOT NULL,
			from_col INTEGER NOT NULL,
			to_row INTEGER NOT NULL,
			to_col INTEGER NOT NULL,
			swapped_at INTEGER NOT NULL,
			recorded_at DATETIME NOT NULL,
			UNIQUE (session_id, swap_number),
			FOREIGN KEY (session_id) REFERENCES sessions(session_id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_swap_events_session_id ON swap_events(session_id);`,
	}

	for _, query := range schemas {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the database handle
func (sp *SQLitePersistence) Close() error {
	return sp.db.Close()
}

// Save upserts the session snapshot and appends swaps not yet logged
func (sp *SQLitePersistence) Save(session *service.Session) error {
	data, err := sp.codec.encode(session)
	if err != nil {
		return err
	}
	stateJSON, err := json.Marshal(data.GameState)
	if err != nil {
		return fmt.Errorf("failed to marshal game state: %w", err)
	}

	id := strings.ToLower(data.ID)
	tx, err := sp.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO sessions (session_id, config_name, phase, created_at, last_accessed_at, state_json)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			config_name = excluded.config_name,
			phase = excluded.phase,
			last_accessed_at = excluded.last_accessed_at,
			state_json = excluded.state_json`,
		id, data.ConfigName, string(data.GameState.Phase),
		data.CreatedAt.UTC(), data.LastAccessedAt.UTC(), string(stateJSON))
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	var logged int
	if err := tx.QueryRow(`SELECT COALESCE(MAX(swap_number), 0) FROM swap_events WHERE session_id = ?`, id).Scan(&logged); err != nil {
		return fmt.Errorf("failed to read swap log: %w", err)
	}

	now := time.Now().UTC()
	for _, swap := range data.GameState.SwapHistory {
		if swap.SwapNumber <= logged {
			continue
		}
		_, err := tx.Exec(`INSERT INTO swap_events (id, session_id, swap_number, tile_id, target_id, symbol, target_symbol,
				from_row, from_col, to_row, to_col, swapped_at, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), id, swap.SwapNumber, swap.TileID, swap.TargetID, swap.Symbol, swap.TargetSymbol,
			swap.FromCell.Row, swap.FromCell.Col, swap.ToCell.Row, swap.ToCell.Col, swap.Timestamp, now)
		if err != nil {
			return fmt.Errorf("failed to log swap %d: %w", swap.SwapNumber, err)
		}
	}

	return tx.Commit()
}

// Load rebuilds a session from its stored snapshot
func (sp *SQLitePersistence) Load(id string) (*service.Session, error) {
	var (
		data      PersistedSessionData
		stateJSON string
	)
	err := sp.db.QueryRow(`SELECT session_id, config_name, created_at, last_accessed_at, state_json
		FROM sessions WHERE session_id = ?`, strings.ToLower(id)).
		Scan(&data.ID, &data.ConfigName, &data.CreatedAt, &data.LastAccessedAt, &stateJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	var state engine.GameState
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game state: %w", err)
	}
	data.GameState = &state
	return sp.codec.decode(&data)
}

// Delete removes a session and its swap log
func (sp *SQLitePersistence) Delete(id string) error {
	id = strings.ToLower(id)
	tx, err := sp.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM swap_events WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete swap log: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM sessions WHERE session_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return tx.Commit()
}

// ListAll returns all persisted session IDs
func (sp *SQLitePersistence) ListAll() ([]string, error) {
	rows, err := sp.db.Query(`SELECT session_id FROM sessions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Exists checks if a session row exists
func (sp *SQLitePersistence) Exists(id string) bool {
	var one int
	err := sp.db.QueryRow(`SELECT 1 FROM sessions WHERE session_id = ?`, strings.ToLower(id)).Scan(&one)
	return err == nil
}

// SwapEvents returns the logged swaps of a session in commit order
func (sp *SQLitePersistence) SwapEvents(sessionID string) ([]SwapEvent, error) {
	rows, err := sp.db.Query(`SELECT id, session_id, swap_number, tile_id, target_id, symbol, target_symbol,
			from_row, from_col, to_row, to_col, swapped_at, recorded_at
		FROM swap_events WHERE session_id = ? ORDER BY swap_number`, strings.ToLower(sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to query swap log: %w", err)
	}
	defer rows.Close()

	var events []SwapEvent
	for rows.Next() {
		var ev SwapEvent
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.SwapNumber, &ev.TileID, &ev.TargetID, &ev.Symbol, &ev.TargetSymbol,
			&ev.FromCell.Row, &ev.FromCell.Col, &ev.ToCell.Row, &ev.ToCell.Col, &ev.Timestamp, &ev.RecordedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// PhaseCounts reports how many stored sessions sit in each phase
func (sp *SQLitePersistence) PhaseCounts() (map[engine.Phase]int, error) {
	rows, err := sp.db.Query(`SELECT phase, COUNT(*) FROM sessions GROUP BY phase`)
	if err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}
	defer rows.Close()

	counts := make(map[engine.Phase]int)
	for rows.Next() {
		var (
			phase string
			n     int
		)
		if err := rows.Scan(&phase, &n); err != nil {
			return nil, err
		}
		counts[engine.Phase(phase)] = n
	}
	return counts, rows.Err()
}
