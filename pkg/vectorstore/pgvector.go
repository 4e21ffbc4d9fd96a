package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// FindingDocument is one archived finding with its embedding.
type FindingDocument struct {
	ID        string    `json:"id"`
	JobID     string    `json:"job_id"`
	Content   string    `json:"content"`
	SourceURL string    `json:"source_url"`
	Title     string    `json:"title"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// FindingStore archives research findings in pgvector so completed runs stay
// searchable by similarity.
type FindingStore struct {
	pool      *pgxpool.Pool
	tableName string
}

// isValidTableName validates that a table name contains only safe characters
// to prevent SQL injection attacks
func isValidTableName(name string) bool {
	// Only allow alphanumeric characters and underscores
	// Table names must start with a letter or underscore and be between 1-63 chars (PostgreSQL limit)
	matched, _ := regexp.MatchString(`^[a-z_][a-zA-Z0-9_]{0,62}$`, name)
	return matched
}

// NewFindingStore creates a findings archive backed by the given table.
func NewFindingStore(pool *pgxpool.Pool, tableName string) (*FindingStore, error) {
	if !isValidTableName(tableName) {
		return nil, fmt.Errorf("invalid table name: must contain only alphanumeric characters and underscores, start with a letter or underscore, and be 1-63 characters long")
	}
	return &FindingStore{
		pool:      pool,
		tableName: tableName,
	}, nil
}

// Add archives findings with their embeddings in one batch.
func (fs *FindingStore) Add(ctx context.Context, docs []FindingDocument) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (content, metadata, embedding)
		VALUES ($1, $2, $3)
	`, pgx.Identifier{fs.tableName}.Sanitize())

	batch := &pgx.Batch{}
	for _, doc := range docs {
		metadataJSON, err := json.Marshal(map[string]string{
			"job_id":     doc.JobID,
			"source_url": doc.SourceURL,
			"title":      doc.Title,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}

		embedding := pgvector.NewVector(doc.Embedding)
		batch.Queue(query, doc.Content, metadataJSON, embedding)
	}

	br := fs.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range docs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert finding: %w", err)
		}
	}

	return nil
}

// SearchResult is one archived finding with its similarity score.
type SearchResult struct {
	Document FindingDocument
	Score    float64
}

// Search returns the topK archived findings closest to the query embedding.
// When jobID is non-empty, results are scoped to that research job.
func (fs *FindingStore) Search(ctx context.Context, queryEmbedding []float32, topK int, jobID string) ([]SearchResult, error) {
	var query string
	var args []interface{}

	embedding := pgvector.NewVector(queryEmbedding)

	if jobID != "" {
		query = fmt.Sprintf(`
			SELECT id, content, metadata, 1 - (embedding <=> $1) as similarity
			FROM %s
			WHERE metadata->>'job_id' = $2
			ORDER BY embedding <=> $1
			LIMIT $3
		`, pgx.Identifier{fs.tableName}.Sanitize())
		args = []interface{}{embedding, jobID, topK}
	} else {
		query = fmt.Sprintf(`
			SELECT id, content, metadata, 1 - (embedding <=> $1) as similarity
			FROM %s
			ORDER BY embedding <=> $1
			LIMIT $2
		`, pgx.Identifier{fs.tableName}.Sanitize())
		args = []interface{}{embedding, topK}
	}

	rows, err := fs.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute similarity search: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var doc FindingDocument
		var metadataJSON []byte
		var score float64

		if err := rows.Scan(&doc.ID, &doc.Content, &metadataJSON, &score); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}

		var metadata map[string]string
		if err := json.Unmarshal(metadataJSON, &metadata); err == nil {
			doc.JobID = metadata["job_id"]
			doc.SourceURL = metadata["source_url"]
			doc.Title = metadata["title"]
		}

		results = append(results, SearchResult{Document: doc, Score: score})
	}

	return results, rows.Err()
}
