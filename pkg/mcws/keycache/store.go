package keycache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/strefethen/mcws-go/pkg/mcws/endpoint"
)

// Conns supplies the reader and writer pools; *DBPair satisfies it.
type Conns interface {
	Reader() *sql.DB
	Writer() *sql.DB
}

// Store implements endpoint.StateStore on the resolved_keys table.
type Store struct {
	reader *sql.DB
	writer *sql.DB
	now    func() time.Time
}

var _ endpoint.StateStore = (*Store)(nil)

// NewStore returns a Store on conns.
func NewStore(conns Conns) *Store {
	return &Store{reader: conns.Reader(), writer: conns.Writer(), now: time.Now}
}

// Entry is a cached state with its access key.
type Entry struct {
	Key       string
	State     endpoint.State
	UpdatedAt time.Time
}

const selectColumns = `
	access_key, strategy, key_id, local_candidates_json, active_local, remote,
	port, https_port, hardware_ids_json, last_resolved_at, updated_at`

// Load returns the cached state for key.
func (s *Store) Load(ctx context.Context, key string) (endpoint.State, bool, error) {
	row := s.reader.QueryRowContext(ctx, `SELECT`+selectColumns+` FROM resolved_keys WHERE access_key = ?`, key)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return endpoint.State{}, false, nil
	}
	if err != nil {
		return endpoint.State{}, false, err
	}
	return entry.State, true, nil
}

// Save upserts the state for key.
func (s *Store) Save(ctx context.Context, key string, state endpoint.State) error {
	locals, err := json.Marshal(nonNil(state.LocalCandidates))
	if err != nil {
		return fmt.Errorf("encode local candidates: %w", err)
	}
	hardware, err := json.Marshal(nonNil(state.HardwareIDs))
	if err != nil {
		return fmt.Errorf("encode hardware ids: %w", err)
	}

	var lastResolved sql.NullString
	if !state.LastResolvedAt.IsZero() {
		lastResolved = sql.NullString{String: state.LastResolvedAt.UTC().Format(time.RFC3339Nano), Valid: true}
	}

	_, err = s.writer.ExecContext(ctx, `
		INSERT INTO resolved_keys (access_key, strategy, key_id, local_candidates_json, active_local, remote,
			port, https_port, hardware_ids_json, last_resolved_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(access_key) DO UPDATE SET
			strategy = excluded.strategy,
			key_id = excluded.key_id,
			local_candidates_json = excluded.local_candidates_json,
			active_local = excluded.active_local,
			remote = excluded.remote,
			port = excluded.port,
			https_port = excluded.https_port,
			hardware_ids_json = excluded.hardware_ids_json,
			last_resolved_at = excluded.last_resolved_at,
			updated_at = excluded.updated_at
	`, key, state.Strategy.String(), state.KeyID, string(locals), state.ActiveLocal, state.Remote,
		state.Port, state.HTTPSPort, string(hardware), lastResolved, s.now().UTC().Format(time.RFC3339Nano))
	return err
}

// Delete forgets key. Deleting an unknown key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.writer.ExecContext(ctx, `DELETE FROM resolved_keys WHERE access_key = ?`, key)
	return err
}

// List returns every cached entry, most recently updated first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.reader.QueryContext(ctx, `SELECT`+selectColumns+` FROM resolved_keys ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		entry                    Entry
		strategy                 string
		localsJSON, hardwareJSON string
		lastResolved             sql.NullString
		updatedAt                string
	)
	err := row.Scan(&entry.Key, &strategy, &entry.State.KeyID, &localsJSON, &entry.State.ActiveLocal,
		&entry.State.Remote, &entry.State.Port, &entry.State.HTTPSPort, &hardwareJSON, &lastResolved, &updatedAt)
	if err != nil {
		return Entry{}, err
	}

	entry.State.Strategy = endpoint.ParseStrategy(strategy)
	if err := json.Unmarshal([]byte(localsJSON), &entry.State.LocalCandidates); err != nil {
		return Entry{}, fmt.Errorf("decode local candidates: %w", err)
	}
	if err := json.Unmarshal([]byte(hardwareJSON), &entry.State.HardwareIDs); err != nil {
		return Entry{}, fmt.Errorf("decode hardware ids: %w", err)
	}
	if lastResolved.Valid {
		if t, err := time.Parse(time.RFC3339Nano, lastResolved.String); err == nil {
			entry.State.LastResolvedAt = t
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		entry.UpdatedAt = t
	}
	return entry, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
