/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
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

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	applog "oshicropper/internal/log"
	"oshicropper/internal/paper"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// Badge and photo layout defaults are fixed and intentionally not part of this file;
// the config only shapes the surfaces around them (sheet, DPI, export, caches, logging).
type AppConfig struct {
	ConfigVersion int            `yaml:"config_version"`
	General       GeneralConfig  `yaml:"general"`
	Logging       LoggingConfig  `yaml:"logging"`
	Previews      PreviewsConfig `yaml:"previews"`
}

type GeneralConfig struct {
	Mode    string   `yaml:"mode"`    // "badge" | "photo"
	Sheet   string   `yaml:"sheet"`   // paper name photos are printed onto
	DPI     int      `yaml:"dpi"`     // raster resolution for exports
	Formats []string `yaml:"formats"` // default export formats
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type PreviewsConfig struct {
	MaxBytes int64 `yaml:"max_bytes"`
	Edge     int   `yaml:"edge"` // thumbnail bounding box edge in px
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{Mode: "badge", Sheet: string(paper.A4), DPI: 300, Formats: []string{"pdf"}},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
		Previews:      PreviewsConfig{MaxBytes: 64 * 1024 * 1024, Edge: 256},
	}
}

// Env var names used as overrides.
const (
	EnvMode             = "OSC_MODE"
	EnvSheet            = "OSC_SHEET"
	EnvDPI              = "OSC_DPI"
	EnvPreviewsMaxBytes = "OSC_PREVIEWS_MAX_BYTES"
	EnvConfigFile       = "OSC_CONFIG"
)

// ConfigPath returns the per-user config file path. OSC_CONFIG wins when set.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigFile)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "OshiCropper")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "OshiCropper")
	default:
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			base = filepath.Join(x, "oshicropper")
		} else if h := os.Getenv("HOME"); h != "" {
			base = filepath.Join(h, ".config", "oshicropper")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// LoadDotEnv loads a .env file from the working directory when present.
// Variables already set in the process environment are not overwritten.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			applog.WithComponent("config").Warn("load .env failed", "path", p, "err", err)
		}
	}
}

// Load reads the user config file (if present), applies defaults and merges environment overrides.
// A malformed file is reported but does not prevent startup.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		applyEnvOverrides(&cfg)
		return cfg, err
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if uerr := yaml.Unmarshal(data, &fileCfg); uerr != nil {
			applyEnvOverrides(&cfg)
			return cfg, fmt.Errorf("parse %s: %w", path, uerr)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		applyEnvOverrides(&cfg)
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if v := normalizeMode(src.General.Mode); v != "" {
		dst.General.Mode = v
	}
	if _, ok := paper.Lookup(src.General.Sheet); ok {
		dst.General.Sheet = strings.ToLower(strings.TrimSpace(src.General.Sheet))
	}
	if src.General.DPI > 0 {
		dst.General.DPI = src.General.DPI
	}
	if len(src.General.Formats) > 0 {
		dst.General.Formats = append([]string(nil), src.General.Formats...)
	}
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
	if src.Previews.MaxBytes > 0 {
		dst.Previews.MaxBytes = src.Previews.MaxBytes
	}
	if src.Previews.Edge > 0 {
		dst.Previews.Edge = src.Previews.Edge
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := normalizeMode(os.Getenv(EnvMode)); v != "" {
		cfg.General.Mode = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvSheet)); v != "" {
		if _, ok := paper.Lookup(v); ok {
			cfg.General.Sheet = strings.ToLower(v)
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvDPI)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.General.DPI = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvPreviewsMaxBytes)); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Previews.MaxBytes = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(applog.EnvLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(applog.EnvFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(applog.EnvSource)); v != "" {
		lv := strings.ToLower(v)
		cfg.Logging.Source = lv == "1" || lv == "true" || lv == "on" || lv == "yes"
	}
	if v := strings.TrimSpace(os.Getenv(applog.EnvFile)); v != "" {
		cfg.Logging.File = v
	}
}

func normalizeMode(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "badge", "can", "canbadge":
		return "badge"
	case "photo", "bromide":
		return "photo"
	default:
		return ""
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	names := map[string]string{
		"general.mode":       EnvMode,
		"general.sheet":      EnvSheet,
		"general.dpi":        EnvDPI,
		"previews.max_bytes": EnvPreviewsMaxBytes,
		"logging.level":      applog.EnvLevel,
		"logging.format":     applog.EnvFormat,
		"logging.source":     applog.EnvSource,
		"logging.file":       applog.EnvFile,
	}
	env, ok := names[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}

// LogOptions converts the logging section into logger options.
func (c AppConfig) LogOptions() applog.Options {
	return applog.Options{Level: c.Logging.Level, Format: c.Logging.Format, AddSource: c.Logging.Source, File: c.Logging.File}
}
