package opsconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadEnvOverrides_AllSet(t *testing.T) {
	t.Setenv(EnvConfig, "/custom/ops.toml")
	t.Setenv(EnvCompressWorkers, "8")
	t.Setenv(EnvUploadWorkers, "10")
	t.Setenv(EnvBandwidthLimit, "5MiB")

	overrides := ReadEnvOverrides()
	assert.Equal(t, "/custom/ops.toml", overrides.ConfigPath)
	assert.Equal(t, "8", overrides.CompressWorkers)
	assert.Equal(t, "10", overrides.UploadWorkers)
	assert.Equal(t, "5MiB", overrides.BandwidthLimit)
}

func TestReadEnvOverrides_NoneSet(t *testing.T) {
	t.Setenv(EnvConfig, "")
	t.Setenv(EnvCompressWorkers, "")
	t.Setenv(EnvUploadWorkers, "")
	t.Setenv(EnvBandwidthLimit, "")

	overrides := ReadEnvOverrides()
	assert.Empty(t, overrides.ConfigPath)
	assert.Empty(t, overrides.CompressWorkers)
	assert.Empty(t, overrides.UploadWorkers)
	assert.Empty(t, overrides.BandwidthLimit)
}
