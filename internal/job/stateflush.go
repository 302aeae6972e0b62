package job

import (
	"context"

	"github.com/xxxsen/docqa/internal/embed"
	"github.com/xxxsen/docqa/internal/lexical"
)

// StateFlushJob periodically persists the embedding cache and the
// lexical index so a restart loses at most one flush interval of work.
type StateFlushJob struct {
	cache    *embed.Cache
	lexIndex *lexical.Index
}

func NewStateFlushJob(cache *embed.Cache, lexIndex *lexical.Index) *StateFlushJob {
	return &StateFlushJob{cache: cache, lexIndex: lexIndex}
}

func (j *StateFlushJob) Name() string {
	return "state_flush"
}

func (j *StateFlushJob) Run(ctx context.Context) error {
	if err := j.cache.Flush(ctx); err != nil {
		return err
	}
	return j.lexIndex.Flush(ctx)
}
