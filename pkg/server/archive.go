package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/TheStoneMX/Tech9-Evaluation/pkg/embeddings"
	"github.com/TheStoneMX/Tech9-Evaluation/pkg/state"
	"github.com/TheStoneMX/Tech9-Evaluation/pkg/vectorstore"
)

// Archiver embeds admitted findings and indexes them into pgvector so
// completed research stays searchable.
type Archiver struct {
	Embedder *embeddings.GoogleEmbedder
	Store    *vectorstore.FindingStore
	Logger   *slog.Logger
}

func NewArchiver(embedder *embeddings.GoogleEmbedder, store *vectorstore.FindingStore) *Archiver {
	return &Archiver{
		Embedder: embedder,
		Store:    store,
		Logger:   slog.Default(),
	}
}

// ArchiveFindings indexes all findings for a completed job.
func (a *Archiver) ArchiveFindings(ctx context.Context, jobID uuid.UUID, findings []state.Finding) error {
	if len(findings) == 0 {
		return nil
	}

	texts := make([]string, len(findings))
	for i, f := range findings {
		texts[i] = f.Content
	}

	vectors, err := a.Embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed findings: %w", err)
	}

	docs := make([]vectorstore.FindingDocument, len(findings))
	for i, f := range findings {
		docs[i] = vectorstore.FindingDocument{
			JobID:     jobID.String(),
			Content:   f.Content,
			SourceURL: f.SourceURL,
			Title:     f.SourceTitle,
			Embedding: vectors[i],
		}
	}

	if err := a.Store.Add(ctx, docs); err != nil {
		return fmt.Errorf("failed to index findings: %w", err)
	}

	a.Logger.Info("Findings archived", "job_id", jobID, "count", len(docs))
	return nil
}

// SearchFindings runs a similarity search over archived findings, optionally
// scoped to one job.
func (a *Archiver) SearchFindings(ctx context.Context, query string, topK int, jobID string) ([]vectorstore.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}

	embedding, err := a.Embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	return a.Store.Search(ctx, embedding, topK, jobID)
}
