package pipeline

import (
	"context"

	"github.com/lumosnap/synccore/internal/events"
)

// emitProgress re-derives image counts from the catalog and publishes a
// progress event, called after every meaningful per-image status
// transition and at batch boundaries per the post-transition reporting
// requirement.
func (p *Pipeline) emitProgress(ctx context.Context, albumID string) {
	stats, err := p.store.GetImageStats(ctx, albumID)
	if err != nil {
		p.logger.Warn("pipeline: querying image stats for progress", "album", albumID, "error", err)
		return
	}

	p.publish(events.UploadProgress(albumID, stats.Complete, stats.Total(), 0, 0))
}
