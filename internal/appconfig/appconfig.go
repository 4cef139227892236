// Package appconfig reads and writes the user-facing JSON configuration
// file: storage location, master folder path, first-launch flag, signed-in
// user id, and the minimize-to-tray preference. Unlike internal/opsconfig
// this schema is a fixed external contract consumed by the UI layer, so it
// is handled with plain encoding/json rather than a config library.
package appconfig

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// FileName is the app config's fixed name within its application-data
// directory.
const FileName = "config.json"

// Config is the on-disk app config format (spec.md §6).
type Config struct {
	StorageLocation  string  `json:"storageLocation"`
	MasterFolderPath *string `json:"masterFolderPath,omitempty"`
	IsFirstLaunch    bool    `json:"isFirstLaunch"`
	UserID           *string `json:"userId,omitempty"`
	MinimizeToTray   bool    `json:"minimizeToTray"`
}

// Path returns the app config path inside dataDir.
func Path(dataDir string) string {
	return filepath.Join(dataDir, FileName)
}

// Default returns the config used on a fresh install: the given storage
// location, first launch, no signed-in user, tray-minimize off.
func Default(storageLocation string) *Config {
	return &Config{
		StorageLocation: storageLocation,
		IsFirstLaunch:   true,
		MinimizeToTray:  false,
	}
}

// Load reads the app config from dataDir. A missing file returns Default
// with IsFirstLaunch set; a corrupt file is treated the same way so a
// damaged config never blocks startup.
func Load(dataDir, storageLocation string) (*Config, error) {
	data, err := os.ReadFile(Path(dataDir))
	if errors.Is(err, os.ErrNotExist) {
		return Default(storageLocation), nil
	}

	if err != nil {
		return nil, fmt.Errorf("appconfig: reading %s: %w", dataDir, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Default(storageLocation), nil
	}

	return &cfg, nil
}

// Save atomically writes cfg to dataDir (write-temp, rename), so a crash
// mid-write never leaves a half-written config.
func Save(dataDir string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("appconfig: encoding: %w", err)
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("appconfig: creating %s: %w", dataDir, err)
	}

	if err := atomic.WriteFile(Path(dataDir), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("appconfig: writing %s: %w", dataDir, err)
	}

	return nil
}
