package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bladeScope/internal/model"
	"bladeScope/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS derived_records (
	network      TEXT        NOT NULL,
	collection   TEXT        NOT NULL,
	entity_id    BIGINT      NOT NULL,
	doc          JSONB       NOT NULL,
	tx_hash      TEXT        NOT NULL,
	block_number BIGINT      NOT NULL,
	processed_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (network, collection, entity_id)
);

CREATE TABLE IF NOT EXISTS cursors (
	network    TEXT        NOT NULL,
	stream     TEXT        NOT NULL,
	next_block BIGINT      NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (network, stream)
);
`

// Store provides Postgres persistence for derived records and cursors.
type Store struct {
	pool *pgxpool.Pool
}

var (
	_ storage.RecordStore = (*Store)(nil)
	_ storage.CursorStore = (*Store)(nil)
)

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// UpsertRecord replaces the record stored under (network, collection, id).
func (s *Store) UpsertRecord(ctx context.Context, record model.DerivedRecord) error {
	return s.UpsertRecords(ctx, []model.DerivedRecord{record})
}

// UpsertRecords replaces a batch of records in one round trip.
func (s *Store) UpsertRecords(ctx context.Context, records []model.DerivedRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, record := range records {
		doc, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal record %d: %w", record.EntityID, err)
		}
		batch.Queue(`
			INSERT INTO derived_records (
				network, collection, entity_id, doc, tx_hash, block_number, processed_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (network, collection, entity_id)
			DO UPDATE SET
				doc = EXCLUDED.doc,
				tx_hash = EXCLUDED.tx_hash,
				block_number = EXCLUDED.block_number,
				processed_at = EXCLUDED.processed_at
		`,
			record.Network,
			record.Collection(),
			int64(record.EntityID),
			doc,
			record.TxHash,
			int64(record.Block),
			record.ProcessedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert record: %w", err)
		}
	}
	return nil
}

// LoadRecord returns the stored document of a record.
func (s *Store) LoadRecord(ctx context.Context, network, collection string, id uint64) (model.DerivedRecord, bool, error) {
	var doc []byte
	row := s.pool.QueryRow(ctx, `
		SELECT doc FROM derived_records WHERE network=$1 AND collection=$2 AND entity_id=$3
	`, network, collection, int64(id))
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.DerivedRecord{}, false, nil
		}
		return model.DerivedRecord{}, false, err
	}
	var record model.DerivedRecord
	if err := json.Unmarshal(doc, &record); err != nil {
		return model.DerivedRecord{}, false, fmt.Errorf("unmarshal record: %w", err)
	}
	return record, true, nil
}

func (s *Store) LoadCursor(ctx context.Context, key model.CursorKey) (uint64, bool, error) {
	var next int64
	row := s.pool.QueryRow(ctx, `SELECT next_block FROM cursors WHERE network=$1 AND stream=$2`, key.Network, string(key.Stream))
	if err := row.Scan(&next); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(next), true, nil
}

func (s *Store) InsertCursor(ctx context.Context, key model.CursorKey, next uint64) error {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO cursors (network, stream, next_block, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (network, stream) DO NOTHING
	`, key.Network, string(key.Stream), int64(next))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s already exists", storage.ErrWriteConflict, key)
	}
	return nil
}

// AdvanceCursor moves the cursor from height to height+1, failing if it is not at height.
func (s *Store) AdvanceCursor(ctx context.Context, key model.CursorKey, height uint64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE cursors SET next_block = $4, updated_at = now()
		WHERE network = $1 AND stream = $2 AND next_block = $3
	`, key.Network, string(key.Stream), int64(height), int64(height+1))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s is not at %d", storage.ErrWriteConflict, key, height)
	}
	return nil
}
