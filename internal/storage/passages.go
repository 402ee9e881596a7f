package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/aaeenbot/constitution-agent/internal/agent"
	"github.com/aaeenbot/constitution-agent/internal/processing"
)

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// PassageStore is the pgvector-backed knowledge store. Passages are
// append-only: rows are never updated or deleted, and a single INSERT is
// all a write ever issues, so readers see either the prior set or the
// full new set.
type PassageStore struct {
	pool     *pgxpool.Pool
	embedder Embedder
}

func NewPassageStore(pool *pgxpool.Pool, embedder Embedder) *PassageStore {
	return &PassageStore{pool: pool, embedder: embedder}
}

// Init creates the passages table and the pgvector extension.
func (p *PassageStore) Init(ctx context.Context) error {
	query := fmt.Sprintf(`
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS passages (
		id SERIAL PRIMARY KEY,
		content TEXT NOT NULL,
		source VARCHAR(50) NOT NULL DEFAULT 'original',
		embedding vector(%d) NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`, processing.EmbeddingDim)

	if _, err := p.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create passages table: %w", err)
	}
	return nil
}

// Search returns the k nearest passages to the query, closest first.
func (p *PassageStore) Search(ctx context.Context, query string, k int) ([]agent.Passage, error) {
	emb, err := p.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	rows, err := p.pool.Query(ctx,
		"SELECT id, content, embedding <-> $1 FROM passages ORDER BY embedding <-> $1 LIMIT $2",
		pgvector.NewVector(emb), k)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var results []agent.Passage
	for rows.Next() {
		var passage agent.Passage
		if err := rows.Scan(&passage.ChunkID, &passage.Content, &passage.Distance); err != nil {
			return nil, err
		}
		results = append(results, passage)
	}
	return results, rows.Err()
}

// Insert adds a passage with a pre-computed embedding, used by the bulk
// ingestion path.
func (p *PassageStore) Insert(ctx context.Context, content, source string, embedding []float32) error {
	_, err := p.pool.Exec(ctx,
		"INSERT INTO passages (content, source, embedding) VALUES ($1, $2, $3)",
		content, source, pgvector.NewVector(embedding))
	return err
}

// Append embeds and inserts a single new passage.
func (p *PassageStore) Append(ctx context.Context, content, source string) error {
	emb, err := p.embedder.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("embed passage: %w", err)
	}
	return p.Insert(ctx, content, source, emb)
}

func (p *PassageStore) IsEmpty(ctx context.Context) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM passages)").Scan(&exists)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// Count reports the number of stored passages, used by the metrics loop.
func (p *PassageStore) Count(ctx context.Context) (int, error) {
	var count int
	err := p.pool.QueryRow(ctx, "SELECT COUNT(*) FROM passages").Scan(&count)
	return count, err
}
