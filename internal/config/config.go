/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	"pagecanvas/internal/domain"
)

// AppConfig is the user-editable configuration persisted to a YAML file in
// the user scope. Environment variables are read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// The storage password is never written to the file; it lives in the OS keychain.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	Editor        EditorConfig  `yaml:"editor"`
	Storage       StorageConfig `yaml:"storage"`
	Logging       LoggingConfig `yaml:"logging"`
}

type EditorConfig struct {
	ViewMode    string  `yaml:"view_mode"` // desktop | tablet | mobile
	Zoom        float64 `yaml:"zoom"`      // percent
	GridSize    float64 `yaml:"grid_size"`
	ShowGrid    bool    `yaml:"show_grid"`
	CanvasWidth float64 `yaml:"canvas_width"`
	// CanvasHeight 0 means auto.
	CanvasHeight float64 `yaml:"canvas_height"`
	UndoMaxBytes int     `yaml:"undo_max_bytes"`
	// RegistryFile optionally replaces the built-in widget set.
	RegistryFile string `yaml:"registry_file"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"` // sqlite | pgx
	DSN    string `yaml:"dsn"`
	User   string `yaml:"user"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Editor: EditorConfig{
			ViewMode:     string(domain.Desktop),
			Zoom:         100,
			GridSize:     20,
			ShowGrid:     true,
			CanvasWidth:  1200,
			UndoMaxBytes: 16 << 20,
		},
		Storage: StorageConfig{Driver: "sqlite", DSN: ""},
		Logging: LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Viewport parses the configured view mode.
func (e EditorConfig) Viewport() (domain.Viewport, error) {
	return domain.ParseViewport(e.ViewMode)
}

// Env var names used as overrides.
const (
	EnvViewMode      = "PCE_VIEW_MODE"
	EnvZoom          = "PCE_ZOOM"
	EnvGridSize      = "PCE_GRID_SIZE"
	EnvShowGrid      = "PCE_SHOW_GRID"
	EnvStorageDriver = "PCE_STORAGE_DRIVER"
	EnvStorageDSN    = "PCE_STORAGE_DSN"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "PCE_LOG_LEVEL"
	EnvLogFormat = "PCE_LOG_FORMAT"
	EnvLogSource = "PCE_LOG_SOURCE"
	EnvLogFile   = "PCE_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService  = "PageCanvas"
	keyringPassword = "storage_password"
)

// SecretStore abstracts the keyring so tests can stub it.
type SecretStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// secrets is the active store; tests swap it.
var secrets SecretStore = osKeyring{}

// osKeyring implements SecretStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error { return keyring.Delete(service, key) }

// SetSecretStore replaces the keyring backend and returns the previous one.
func SetSecretStore(s SecretStore) SecretStore {
	prev := secrets
	secrets = s
	return prev
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "PageCanvas")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "PageCanvas")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "pagecanvas")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// DataDir is where the default SQLite database lives, next to the config file.
func DataDir() (string, error) {
	p, err := ConfigPath()
	if err != nil {
		return "", err
	}
	return filepath.Dir(p), nil
}

// Load reads the user config file (if present), applies defaults and merges
// environment overrides. The storage password comes from the keyring and is
// returned separately.
func Load() (AppConfig, string, error) {
	path, err := ConfigPath()
	if err != nil {
		return Defaults(), "", err
	}
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit file path.
func LoadFrom(path string) (AppConfig, string, error) {
	cfg := Defaults()
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, "", fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	} else if !errors.Is(err, os.ErrNotExist) {
		return cfg, "", err
	}
	applyEnvOverrides(&cfg)
	// password from keyring; a missing entry is not an error
	pw, _ := secrets.Get(keyringService, keyringPassword)
	return cfg, pw, nil
}

// Save writes the user config YAML and persists the password into the OS
// keyring (if non-empty).
func Save(cfg AppConfig, password string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg, password)
}

// SaveTo is Save with an explicit file path.
func SaveTo(path string, cfg AppConfig, password string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if password != "" {
		if err := secrets.Set(keyringService, keyringPassword, password); err != nil {
			return err
		}
	}
	return nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if v := strings.TrimSpace(src.Editor.ViewMode); v != "" {
		dst.Editor.ViewMode = strings.ToLower(v)
	}
	if src.Editor.Zoom > 0 {
		dst.Editor.Zoom = src.Editor.Zoom
	}
	if src.Editor.GridSize > 0 {
		dst.Editor.GridSize = src.Editor.GridSize
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.Editor.ShowGrid = src.Editor.ShowGrid
	if src.Editor.CanvasWidth > 0 {
		dst.Editor.CanvasWidth = src.Editor.CanvasWidth
	}
	if src.Editor.CanvasHeight > 0 {
		dst.Editor.CanvasHeight = src.Editor.CanvasHeight
	}
	if src.Editor.UndoMaxBytes > 0 {
		dst.Editor.UndoMaxBytes = src.Editor.UndoMaxBytes
	}
	if v := strings.TrimSpace(src.Editor.RegistryFile); v != "" {
		dst.Editor.RegistryFile = v
	}
	// storage
	if v := strings.TrimSpace(src.Storage.Driver); v != "" {
		dst.Storage.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(src.Storage.DSN); v != "" {
		dst.Storage.DSN = v
	}
	if v := strings.TrimSpace(src.Storage.User); v != "" {
		dst.Storage.User = v
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(strings.TrimSpace(v))
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvViewMode)); v != "" {
		cfg.Editor.ViewMode = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvZoom)); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 {
			cfg.Editor.Zoom = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvGridSize)); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Editor.GridSize = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvShowGrid)); v != "" {
		cfg.Editor.ShowGrid = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorageDriver)); v != "" {
		cfg.Storage.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorageDSN)); v != "" {
		cfg.Storage.DSN = v
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var envKeys = map[string]string{
	"editor.view_mode": EnvViewMode,
	"editor.zoom":      EnvZoom,
	"editor.grid_size": EnvGridSize,
	"editor.show_grid": EnvShowGrid,
	"storage.driver":   EnvStorageDriver,
	"storage.dsn":      EnvStorageDSN,
	"logging.level":    EnvLogLevel,
	"logging.format":   EnvLogFormat,
	"logging.source":   EnvLogSource,
	"logging.file":     EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envKeys[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}
