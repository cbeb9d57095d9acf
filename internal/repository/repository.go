package repository

import "context"

// LabelRepository caches rendered label PNGs. Labels are requested at
// arbitrary print sizes, so the cache is keyed by identifier and size.
type LabelRepository interface {
	GetLabel(ctx context.Context, itemID string, size int) ([]byte, error)
	SetLabel(ctx context.Context, itemID string, size int, png []byte) error
	DeleteLabels(ctx context.Context, itemID string) error
}
