package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/markdave123-py/mediasearch/internal/core"
	"github.com/markdave123-py/mediasearch/internal/models"
)

var _ core.VectorIndex = (*DatabaseClient)(nil)

// Upsert writes records in a single transaction, replacing rows with the same id.
func (c *DatabaseClient) Upsert(ctx context.Context, records []models.IndexRecord) error {
	if len(records) == 0 {
		return nil
	}
	for i := range records {
		if len(records[i].Values) != c.dim {
			return fmt.Errorf("record %s: embedding has %d dims, index expects %d", records[i].ID, len(records[i].Values), c.dim)
		}
	}

	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	q := fmt.Sprintf(`
		INSERT INTO %s (id, embedding, metadata)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (id) DO UPDATE
		SET embedding = EXCLUDED.embedding,
		    metadata = EXCLUDED.metadata,
		    updated_at = now()
	`, c.table)
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range records {
		rec := &records[i]
		meta, err := json.Marshal(rec.Metadata)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: encode metadata: %w", rec.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, rec.ID, pgvector.NewVector(rec.Values), string(meta)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", rec.ID, err)
		}
	}
	return tx.Commit()
}

// Query returns the topK nearest records by cosine distance. Score is 1 - distance.
func (c *DatabaseClient) Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]models.RawMatch, error) {
	metaCol := "'{}'::jsonb"
	if includeMetadata {
		metaCol = "metadata"
	}
	q := fmt.Sprintf(`
		SELECT id, 1 - (embedding <=> $1) AS score, %s
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2
	`, metaCol, c.table)

	rows, err := c.db.QueryContext(ctx, q, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RawMatch
	for rows.Next() {
		var (
			m   models.RawMatch
			raw []byte
		)
		if err := rows.Scan(&m.ID, &m.Score, &raw); err != nil {
			return nil, err
		}
		if err := decodeMetadata(raw, &m.Metadata); err != nil {
			return nil, fmt.Errorf("match %s: %w", m.ID, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListIDs pages through ids in ascending order, starting after afterID.
func (c *DatabaseClient) ListIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	q := fmt.Sprintf(`SELECT id FROM %s WHERE id > $1 ORDER BY id ASC LIMIT $2`, c.table)
	rows, err := c.db.QueryContext(ctx, q, afterID, limit)
	if err != nil {
		return nil, err
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

func (c *DatabaseClient) Fetch(ctx context.Context, ids []string) ([]models.IndexRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := fmt.Sprintf(`SELECT id, embedding, metadata FROM %s WHERE id = ANY($1) ORDER BY id ASC`, c.table)
	rows, err := c.db.QueryContext(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.IndexRecord
	for rows.Next() {
		var (
			rec models.IndexRecord
			emb pgvector.Vector
			raw []byte
		)
		if err := rows.Scan(&rec.ID, &emb, &raw); err != nil {
			return nil, err
		}
		rec.Values = emb.Slice()
		if err := decodeMetadata(raw, &rec.Metadata); err != nil {
			return nil, fmt.Errorf("record %s: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func decodeMetadata(raw []byte, m *models.Metadata) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, m); err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}
	return nil
}
