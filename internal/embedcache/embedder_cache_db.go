package embedcache

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/umt-ai/unibot/internal/ai"
	"github.com/umt-ai/unibot/internal/model"
	"github.com/umt-ai/unibot/internal/repo"
)

// WrapDBCacheToEmbedder layers the persistent embedding cache behind the
// LRU; entries survive restarts and get aged out by the cleanup job.
func WrapDBCacheToEmbedder(e ai.IEmbedder, cacheRepo *repo.EmbeddingCacheRepo) ai.IEmbedder {
	if e == nil || cacheRepo == nil {
		return e
	}
	return &dbEmbedder{next: e, repo: cacheRepo}
}

type dbEmbedder struct {
	next ai.IEmbedder
	repo *repo.EmbeddingCacheRepo
}

func (d *dbEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	if d == nil || d.next == nil {
		return nil, nil
	}
	_, contentHash, modelName := buildCacheKey(d.next.ModelName(), taskType, text)
	values, ok, err := d.repo.Get(ctx, modelName, taskType, contentHash)
	if err != nil {
		return nil, err
	}
	if ok {
		logutil.GetLogger(ctx).Debug("embedding cache hit (db)", zap.String("task_type", taskType))
		return values, nil
	}
	res, err := d.next.Embed(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	if err := d.repo.Save(ctx, &model.EmbeddingCache{
		ModelName:   modelName,
		TaskType:    taskType,
		ContentHash: contentHash,
		Embedding:   res,
		Ctime:       time.Now().Unix(),
	}); err != nil {
		logutil.GetLogger(ctx).Warn("failed to cache embedding", zap.Error(err))
	}
	return res, nil
}

func (d *dbEmbedder) ModelName() string {
	if d == nil || d.next == nil {
		return ""
	}
	return d.next.ModelName()
}
