// Package walletstore persists per-(pool, master public key) scan
// cursors: the opaque event-stream cursors, the last scan timestamp,
// and the ordered cache of (commitment, leaf index) pairs a wallet
// needs to resume scanning without replaying the whole event log.
package walletstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no cursor state exists yet for a
// (pool, mpk) pair — callers should treat this as "scan from genesis".
var ErrNotFound = errors.New("walletstore: not found")

// CachedCommitment is one entry in the ordered commitment cache.
type CachedCommitment struct {
	CommitmentHex string
	LeafIndex     uint64
}

// CursorState is everything persisted per (pool_id, master_public_key).
type CursorState struct {
	PoolID             string
	MasterPublicKey    string // hex
	LastShieldCursor   string
	LastTransferCursor string
	LastScanTime       time.Time
	CachedCommitments  []CachedCommitment
}

// Store is the persistence interface a wallet's scan loop depends on.
// Both PostgresStore and InMemoryStore implement it, so tests never
// need a live database.
type Store interface {
	LoadCursor(ctx context.Context, poolID, mpkHex string) (*CursorState, error)
	SaveCursor(ctx context.Context, state *CursorState) error
}

// Config holds PostgreSQL connection configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
}

// DefaultConfig returns the baseline connection configuration.
func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     5432,
		User:     "shield",
		Database: "shield",
		SSLMode:  "disable",
		MaxConns: 10,
	}
}

// PostgresStore implements Store over a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to PostgreSQL and verifies the connection.
func NewPostgresStore(ctx context.Context, cfg *Config) (*PostgresStore, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode, cfg.MaxConns,
	)
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("walletstore: connecting: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("walletstore: ping: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() { s.pool.Close() }

// LoadCursor fetches the persisted cursor state for (poolID, mpkHex).
func (s *PostgresStore) LoadCursor(ctx context.Context, poolID, mpkHex string) (*CursorState, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT pool_id, mpk_hex, last_shield_cursor, last_transfer_cursor, last_scan_time
		FROM wallet_cursors WHERE pool_id = $1 AND mpk_hex = $2`, poolID, mpkHex)

	state := &CursorState{}
	if err := row.Scan(&state.PoolID, &state.MasterPublicKey, &state.LastShieldCursor,
		&state.LastTransferCursor, &state.LastScanTime); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("walletstore: load cursor: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT commitment_hex, leaf_index FROM wallet_commitment_cache
		WHERE pool_id = $1 AND mpk_hex = $2 ORDER BY leaf_index ASC`, poolID, mpkHex)
	if err != nil {
		return nil, fmt.Errorf("walletstore: load commitment cache: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c CachedCommitment
		if err := rows.Scan(&c.CommitmentHex, &c.LeafIndex); err != nil {
			return nil, fmt.Errorf("walletstore: scan commitment cache: %w", err)
		}
		state.CachedCommitments = append(state.CachedCommitments, c)
	}
	return state, nil
}

// SaveCursor upserts the cursor row and replaces the commitment cache
// for (state.PoolID, state.MasterPublicKey).
func (s *PostgresStore) SaveCursor(ctx context.Context, state *CursorState) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("walletstore: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO wallet_cursors (pool_id, mpk_hex, last_shield_cursor, last_transfer_cursor, last_scan_time)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (pool_id, mpk_hex) DO UPDATE SET
			last_shield_cursor = EXCLUDED.last_shield_cursor,
			last_transfer_cursor = EXCLUDED.last_transfer_cursor,
			last_scan_time = EXCLUDED.last_scan_time`,
		state.PoolID, state.MasterPublicKey, state.LastShieldCursor, state.LastTransferCursor, state.LastScanTime)
	if err != nil {
		return fmt.Errorf("walletstore: upsert cursor: %w", err)
	}

	_, err = tx.Exec(ctx, `DELETE FROM wallet_commitment_cache WHERE pool_id = $1 AND mpk_hex = $2`,
		state.PoolID, state.MasterPublicKey)
	if err != nil {
		return fmt.Errorf("walletstore: clear commitment cache: %w", err)
	}
	for _, c := range state.CachedCommitments {
		_, err = tx.Exec(ctx, `
			INSERT INTO wallet_commitment_cache (pool_id, mpk_hex, commitment_hex, leaf_index)
			VALUES ($1, $2, $3, $4)`, state.PoolID, state.MasterPublicKey, c.CommitmentHex, c.LeafIndex)
		if err != nil {
			return fmt.Errorf("walletstore: insert commitment cache: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// InMemoryStore is a Store implementation backed by a map, used in
// tests and single-process deployments that do not need PostgreSQL.
type InMemoryStore struct {
	mu     sync.RWMutex
	states map[string]*CursorState
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{states: make(map[string]*CursorState)}
}

func storeKey(poolID, mpkHex string) string { return poolID + "|" + mpkHex }

func (s *InMemoryStore) LoadCursor(ctx context.Context, poolID, mpkHex string) (*CursorState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[storeKey(poolID, mpkHex)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *state
	cp.CachedCommitments = append([]CachedCommitment(nil), state.CachedCommitments...)
	return &cp, nil
}

func (s *InMemoryStore) SaveCursor(ctx context.Context, state *CursorState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *state
	cp.CachedCommitments = append([]CachedCommitment(nil), state.CachedCommitments...)
	s.states[storeKey(state.PoolID, state.MasterPublicKey)] = &cp
	return nil
}
