package repository

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// FailoverLabelRepository serves from the primary (redis) until it errors,
// then falls back to memory and probes the primary again after a minute.
type FailoverLabelRepository struct {
	primary   LabelRepository
	fallback  LabelRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverLabelRepository(primary, fallback LabelRepository, logger *zerolog.Logger) *FailoverLabelRepository {
	return &FailoverLabelRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverLabelRepository) markDown() {
	r.isDown.Store(true)
	r.lastCheck.Store(time.Now().UnixNano())
}

func (r *FailoverLabelRepository) shouldRetryPrimary() bool {
	return time.Since(time.Unix(0, r.lastCheck.Load())) > time.Minute
}

func (r *FailoverLabelRepository) GetLabel(ctx context.Context, itemID string, size int) ([]byte, error) {
	if !r.isDown.Load() || r.shouldRetryPrimary() {
		png, err := r.primary.GetLabel(ctx, itemID, size)
		if err == nil {
			r.isDown.Store(false)
			return png, nil
		}
		r.logger.Error().Err(err).Msg("Primary label repository failed, falling back to memory")
		r.markDown()
	}

	return r.fallback.GetLabel(ctx, itemID, size)
}

func (r *FailoverLabelRepository) SetLabel(ctx context.Context, itemID string, size int, png []byte) error {
	if !r.isDown.Load() {
		err := r.primary.SetLabel(ctx, itemID, size, png)
		if err == nil {
			return nil
		}
		r.logger.Error().Err(err).Msg("Primary label repository failed, falling back to memory")
		r.markDown()
	}

	return r.fallback.SetLabel(ctx, itemID, size, png)
}

func (r *FailoverLabelRepository) DeleteLabels(ctx context.Context, itemID string) error {
	// Both sides are purged: stale labels must not survive an item delete.
	var primaryErr error
	if !r.isDown.Load() {
		if primaryErr = r.primary.DeleteLabels(ctx, itemID); primaryErr != nil {
			r.logger.Error().Err(primaryErr).Msg("Primary label repository failed, falling back to memory")
			r.markDown()
		}
	}
	return r.fallback.DeleteLabels(ctx, itemID)
}
