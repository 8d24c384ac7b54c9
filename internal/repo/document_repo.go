package repo

import (
	"context"
	"database/sql"

	"github.com/pgvector/pgvector-go"

	"github.com/umt-ai/unibot/internal/model"
	appErr "github.com/umt-ai/unibot/internal/pkg/errors"
)

type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// Create persists a document together with its chunk embeddings in one
// transaction; a document never exists with only part of its chunks.
func (r *DocumentRepo) Create(ctx context.Context, doc *model.Document, chunks []*model.DocumentChunk) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const docQuery = `
		INSERT INTO documents (id, user_id, content, file_key, ctime)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.ExecContext(ctx, docQuery, doc.ID, doc.UserID, doc.Content, doc.FileKey, doc.Ctime); err != nil {
		return err
	}

	const chunkQuery = `
		INSERT INTO document_chunks (document_id, seq, embedding)
		VALUES ($1, $2, $3)
	`
	for _, chunk := range chunks {
		if _, err := tx.ExecContext(ctx, chunkQuery, chunk.DocumentID, chunk.Seq, pgvector.NewVector(chunk.Embedding)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetLatestByUser returns the user's most recently ingested document, the
// one consulted for grounding decisions.
func (r *DocumentRepo) GetLatestByUser(ctx context.Context, userID string) (*model.Document, error) {
	const query = `
		SELECT id, user_id, content, file_key, ctime
		FROM documents
		WHERE user_id = $1
		ORDER BY ctime DESC, id DESC
		LIMIT 1
	`
	var doc model.Document
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&doc.ID, &doc.UserID, &doc.Content, &doc.FileKey, &doc.Ctime)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepo) ListChunks(ctx context.Context, documentID string) ([]*model.DocumentChunk, error) {
	const query = `
		SELECT document_id, seq, embedding
		FROM document_chunks
		WHERE document_id = $1
		ORDER BY seq ASC
	`
	rows, err := r.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var chunks []*model.DocumentChunk
	for rows.Next() {
		var chunk model.DocumentChunk
		var embedding pgvector.Vector
		if err := rows.Scan(&chunk.DocumentID, &chunk.Seq, &embedding); err != nil {
			return nil, err
		}
		chunk.Embedding = embedding.Slice()
		chunks = append(chunks, &chunk)
	}
	return chunks, rows.Err()
}
