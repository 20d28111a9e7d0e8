package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/econodata/noticias-harvester/internal/domain"
)

// Watermark returns the newest stored PublishedAt of the source, or
// domain.WatermarkSentinel when nothing is stored yet.
func Watermark(ctx context.Context, store WatermarkReader, sourceID string) (time.Time, error) {
	maxAt, ok, err := store.MaxPublishedAt(ctx, sourceID)
	if err != nil {
		return time.Time{}, fmt.Errorf("read watermark for %q: %w", sourceID, err)
	}
	if !ok {
		return domain.WatermarkSentinel, nil
	}
	return maxAt.UTC(), nil
}
