package opsconfig

import "os"

// Environment variable names for overrides.
const (
	EnvConfig          = "LUMOSNAP_OPS_CONFIG"
	EnvCompressWorkers = "LUMOSNAP_COMPRESS_WORKERS"
	EnvUploadWorkers   = "LUMOSNAP_UPLOAD_WORKERS"
	EnvBandwidthLimit  = "LUMOSNAP_BANDWIDTH_LIMIT"
)

// EnvOverrides holds values derived from environment variables. Resolved by
// ReadEnvOverrides; callers apply the relevant fields in Resolve.
type EnvOverrides struct {
	ConfigPath      string // LUMOSNAP_OPS_CONFIG: override ops config file path
	CompressWorkers string // LUMOSNAP_COMPRESS_WORKERS
	UploadWorkers   string // LUMOSNAP_UPLOAD_WORKERS
	BandwidthLimit  string // LUMOSNAP_BANDWIDTH_LIMIT
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. Does not modify Config; callers apply the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:      os.Getenv(EnvConfig),
		CompressWorkers: os.Getenv(EnvCompressWorkers),
		UploadWorkers:   os.Getenv(EnvUploadWorkers),
		BandwidthLimit:  os.Getenv(EnvBandwidthLimit),
	}
}

// CLIOverrides holds values sourced from command-line flags. Pointers so the
// zero value (flag not passed) is distinguishable from an explicit zero.
type CLIOverrides struct {
	ConfigPath      string
	CompressWorkers *int
	UploadWorkers   *int
	BandwidthLimit  string
}
