package opsconfig

import (
	"fmt"
	"time"
)

// Resolved is the fully-parsed, ready-to-wire form of Config: size and
// duration strings converted to their numeric types, after the four-layer
// override chain has been applied.
type Resolved struct {
	CompressWorkers   int
	MaxLongEdge       int
	QualityStart      int
	QualityMin        int
	QualityStep       int
	MaxBytes          int64
	MaxTolerance      int64
	ThumbnailLongEdge int
	ThumbnailQuality  int

	UploadWorkers int
	QueueCapacity int
	BatchSize     int

	DebounceWindow time.Duration

	LowStorageThreshold int64

	BandwidthLimit int64 // bytes/sec, 0 = unlimited
}

// resolve converts a Config's string-encoded sizes and durations into their
// numeric Resolved form.
func resolve(cfg *Config) (*Resolved, error) {
	maxBytes, err := parseSize(cfg.Compression.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("compression.max_bytes: %w", err)
	}

	maxTolerance, err := parseSize(cfg.Compression.MaxTolerance)
	if err != nil {
		return nil, fmt.Errorf("compression.max_tolerance: %w", err)
	}

	debounce, err := time.ParseDuration(cfg.Watcher.DebounceWindow)
	if err != nil {
		return nil, fmt.Errorf("watcher.debounce_window: %w", err)
	}

	lowStorage, err := parseSize(cfg.Storage.LowStorageThreshold)
	if err != nil {
		return nil, fmt.Errorf("storage.low_storage_threshold: %w", err)
	}

	bandwidth, err := parseSize(cfg.Network.BandwidthLimit)
	if err != nil {
		return nil, fmt.Errorf("network.bandwidth_limit: %w", err)
	}

	return &Resolved{
		CompressWorkers:     cfg.Compression.Workers,
		MaxLongEdge:         cfg.Compression.MaxLongEdge,
		QualityStart:        cfg.Compression.QualityStart,
		QualityMin:          cfg.Compression.QualityMin,
		QualityStep:         cfg.Compression.QualityStep,
		MaxBytes:            maxBytes,
		MaxTolerance:        maxTolerance,
		ThumbnailLongEdge:   cfg.Compression.ThumbnailLongEdge,
		ThumbnailQuality:    cfg.Compression.ThumbnailQuality,
		UploadWorkers:       cfg.Pipeline.UploadWorkers,
		QueueCapacity:       cfg.Pipeline.QueueCapacity,
		BatchSize:           cfg.Pipeline.BatchSize,
		DebounceWindow:      debounce,
		LowStorageThreshold: lowStorage,
		BandwidthLimit:      bandwidth,
	}, nil
}

// QualitySnapshot renders the compression tunables that determine a
// compressed artifact's bytes-on-disk into a stable string, for comparison
// against the catalog's persisted config_snapshot between runs. Tunables
// that don't affect the compressed output (worker counts, batching,
// bandwidth) are deliberately excluded.
func (r *Resolved) QualitySnapshot() string {
	return fmt.Sprintf("long_edge=%d;q_start=%d;q_min=%d;q_step=%d;max_bytes=%d;max_tolerance=%d;thumb_edge=%d;thumb_q=%d",
		r.MaxLongEdge, r.QualityStart, r.QualityMin, r.QualityStep,
		r.MaxBytes, r.MaxTolerance, r.ThumbnailLongEdge, r.ThumbnailQuality,
	)
}
