// Package opsconfig resolves the engine's tuning knobs — compression
// quality bounds, worker counts, debounce windows, storage and bandwidth
// thresholds — from a TOML file, layered under environment variable and CLI
// flag overrides. This is distinct from the user-facing app config (storage
// location, master folder, signed-in user, first-launch and tray settings)
// which is a fixed JSON contract handled by internal/appconfig.
package opsconfig

// Config is the top-level TOML structure.
type Config struct {
	Compression CompressionConfig `toml:"compression"`
	Pipeline    PipelineConfig    `toml:"pipeline"`
	Watcher     WatcherConfig     `toml:"watcher"`
	Storage     StorageConfig     `toml:"storage"`
	Network     NetworkConfig     `toml:"network"`
}

// CompressionConfig controls the worker pool and the adaptive WebP quality
// search.
type CompressionConfig struct {
	Workers           int    `toml:"workers"`
	MaxLongEdge       int    `toml:"max_long_edge"`
	QualityStart      int    `toml:"quality_start"`
	QualityMin        int    `toml:"quality_min"`
	QualityStep       int    `toml:"quality_step"`
	MaxBytes          string `toml:"max_bytes"`
	MaxTolerance      string `toml:"max_tolerance"`
	ThumbnailLongEdge int    `toml:"thumbnail_long_edge"`
	ThumbnailQuality  int    `toml:"thumbnail_quality"`
}

// PipelineConfig controls upload concurrency and batching.
type PipelineConfig struct {
	UploadWorkers int `toml:"upload_workers"`
	QueueCapacity int `toml:"queue_capacity"`
	BatchSize     int `toml:"batch_size"`
}

// WatcherConfig controls filesystem-event debouncing.
type WatcherConfig struct {
	DebounceWindow string `toml:"debounce_window"`
}

// StorageConfig controls the low-free-space warning threshold.
type StorageConfig struct {
	LowStorageThreshold string `toml:"low_storage_threshold"`
}

// NetworkConfig controls upload bandwidth shaping.
type NetworkConfig struct {
	BandwidthLimit string `toml:"bandwidth_limit"` // "0" or empty means unlimited
}
