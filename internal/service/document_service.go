package service

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/umt-ai/unibot/internal/ai"
	"github.com/umt-ai/unibot/internal/filestore"
	"github.com/umt-ai/unibot/internal/model"
	appErr "github.com/umt-ai/unibot/internal/pkg/errors"
	"github.com/umt-ai/unibot/internal/pkg/parsing"
	"github.com/umt-ai/unibot/internal/pkg/timeutil"
	"github.com/umt-ai/unibot/internal/repo"
)

type DocumentService struct {
	users     *repo.UserRepo
	documents *repo.DocumentRepo
	embedder  ai.IEmbedder
	store     filestore.Store
	chunkSize int
}

func NewDocumentService(users *repo.UserRepo, documents *repo.DocumentRepo, embedder ai.IEmbedder, store filestore.Store, chunkSize int) *DocumentService {
	if chunkSize <= 0 {
		chunkSize = 8192
	}
	return &DocumentService{
		users:     users,
		documents: documents,
		embedder:  embedder,
		store:     store,
		chunkSize: chunkSize,
	}
}

// Ingest turns an uploaded file into the user's active document: extract
// text, chunk it, embed every chunk, persist the record and archive the
// raw upload. All embedding calls must succeed before anything is written.
func (s *DocumentService) Ingest(ctx context.Context, username, filename string, data []byte) (*model.Document, error) {
	if filename == "" || len(data) == 0 {
		return nil, appErr.ErrInvalid
	}
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	logger := logutil.GetLogger(ctx).With(zap.String("user", username), zap.String("filename", filename))

	content := string(data)
	if parsing.IsPDF(filename) {
		content, err = parsing.ExtractTextFromPDF(data)
		if err != nil {
			return nil, fmt.Errorf("extract pdf text: %w", err)
		}
	}

	doc := &model.Document{
		ID:      newID(),
		UserID:  user.ID,
		Content: content,
		Ctime:   timeutil.NowUnixMilli(),
	}

	pieces := ChunkText(content, s.chunkSize)
	chunks := make([]*model.DocumentChunk, 0, len(pieces))
	for i, piece := range pieces {
		embedding, err := s.embedder.Embed(ctx, piece, ai.TaskTypeDocument)
		if err != nil {
			return nil, fmt.Errorf("embed chunk %d: %w", i, err)
		}
		chunks = append(chunks, &model.DocumentChunk{
			DocumentID: doc.ID,
			Seq:        i,
			Embedding:  embedding,
		})
	}

	if s.store != nil {
		key := "doc_" + doc.ID
		reader := readSeekNopCloser{bytes.NewReader(data)}
		if err := s.store.Save(ctx, key, reader, int64(len(data))); err != nil {
			logger.Warn("failed to archive raw upload", zap.Error(err))
		} else {
			doc.FileKey = key
		}
	}

	if err := s.documents.Create(ctx, doc, chunks); err != nil {
		return nil, err
	}
	logger.Info("document ingested", zap.String("doc_id", doc.ID), zap.Int("chunks", len(chunks)))
	return doc, nil
}

// Latest resolves the user's active document, i.e. the most recently
// ingested one.
func (s *DocumentService) Latest(ctx context.Context, username string) (*model.Document, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.documents.GetLatestByUser(ctx, user.ID)
}

// ChunkText splits text into fixed-size non-overlapping rune windows; the
// final chunk may be shorter.
func ChunkText(text string, size int) []string {
	if size <= 0 || text == "" {
		return nil
	}
	runes := []rune(text)
	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

type readSeekNopCloser struct {
	*bytes.Reader
}

func (readSeekNopCloser) Close() error {
	return nil
}

var _ io.ReadSeeker = readSeekNopCloser{}
