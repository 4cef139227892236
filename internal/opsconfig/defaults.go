package opsconfig

// Default values — layer 0 of the four-layer override chain. Chosen to
// match the engine's built-in behavior absent any tuning.
const (
	defaultCompressWorkers     = 4
	defaultMaxLongEdge         = 2048
	defaultQualityStart        = 86
	defaultQualityMin          = 80
	defaultQualityStep         = 2
	defaultMaxBytes            = "800KiB"
	defaultMaxTolerance        = "50KiB"
	defaultThumbnailLongEdge   = 400
	defaultThumbnailQuality    = 80
	defaultUploadWorkers       = 5
	defaultQueueCapacity       = 200
	defaultBatchSize           = 100
	defaultDebounceWindow      = "100ms"
	defaultLowStorageThreshold = "10GiB"
	defaultBandwidthLimit      = "0"
)

// DefaultConfig returns a Config populated with all default values. Used
// both as the decode target (so unset TOML fields retain defaults) and as
// the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Compression: CompressionConfig{
			Workers:           defaultCompressWorkers,
			MaxLongEdge:       defaultMaxLongEdge,
			QualityStart:      defaultQualityStart,
			QualityMin:        defaultQualityMin,
			QualityStep:       defaultQualityStep,
			MaxBytes:          defaultMaxBytes,
			MaxTolerance:      defaultMaxTolerance,
			ThumbnailLongEdge: defaultThumbnailLongEdge,
			ThumbnailQuality:  defaultThumbnailQuality,
		},
		Pipeline: PipelineConfig{
			UploadWorkers: defaultUploadWorkers,
			QueueCapacity: defaultQueueCapacity,
			BatchSize:     defaultBatchSize,
		},
		Watcher: WatcherConfig{
			DebounceWindow: defaultDebounceWindow,
		},
		Storage: StorageConfig{
			LowStorageThreshold: defaultLowStorageThreshold,
		},
		Network: NetworkConfig{
			BandwidthLimit: defaultBandwidthLimit,
		},
	}
}
