package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/merra2-etl/internal/domain"
)

// MultiLoader fans a batch out to several loaders in order. The first
// failure stops the fan-out, so offsets are only committed once every sink
// accepted the batch.
type MultiLoader []BatchLoader

// LoadBatch implements BatchLoader.
func (m MultiLoader) LoadBatch(ctx context.Context, profiles []domain.Profile) error {
	for i, l := range m {
		if err := l.LoadBatch(ctx, profiles); err != nil {
			return fmt.Errorf("loader %d: %w", i, err)
		}
	}
	return nil
}
