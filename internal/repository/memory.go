package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	png       []byte
	expiresAt time.Time
}

// MemoryLabelRepository хранит отрендеренные этикетки в памяти процесса.
type MemoryLabelRepository struct {
	labels sync.Map
	ttl    time.Duration
}

func NewMemoryLabelRepository(ttl time.Duration) *MemoryLabelRepository {
	return &MemoryLabelRepository{ttl: ttl}
}

func labelKey(itemID string, size int) string {
	return fmt.Sprintf("label:%s:%d", itemID, size)
}

func (r *MemoryLabelRepository) GetLabel(ctx context.Context, itemID string, size int) ([]byte, error) {
	val, ok := r.labels.Load(labelKey(itemID, size))
	if !ok {
		return nil, nil
	}
	entry := val.(memoryEntry)
	if r.ttl > 0 && time.Now().After(entry.expiresAt) {
		r.labels.Delete(labelKey(itemID, size))
		return nil, nil
	}
	return entry.png, nil
}

func (r *MemoryLabelRepository) SetLabel(ctx context.Context, itemID string, size int, png []byte) error {
	r.labels.Store(labelKey(itemID, size), memoryEntry{
		png:       png,
		expiresAt: time.Now().Add(r.ttl),
	})
	return nil
}

func (r *MemoryLabelRepository) DeleteLabels(ctx context.Context, itemID string) error {
	prefix := fmt.Sprintf("label:%s:", itemID)
	r.labels.Range(func(key, _ any) bool {
		if strings.HasPrefix(key.(string), prefix) {
			r.labels.Delete(key)
		}
		return true
	})
	return nil
}
