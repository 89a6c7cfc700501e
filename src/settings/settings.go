// Package settings persists small user preferences, currently the widget
// position, as a YAML file in the user config directory.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const fileName = "settings.yaml"

// Settings are the persisted user preferences.
type Settings struct {
	WidgetX int `yaml:"widget_x"`
	WidgetY int `yaml:"widget_y"`
}

// Default places the widget near the top-left corner on first run.
func Default() Settings {
	return Settings{WidgetX: 24, WidgetY: 120}
}

// Store reads and writes the settings file for one application name. The
// zero value is not usable; construct with NewStore.
type Store struct {
	path string
}

// NewStore resolves the settings path under the user config directory.
// dirOverride, when non-empty, replaces the config directory entirely.
func NewStore(appName, dirOverride string) (*Store, error) {
	dir := dirOverride
	if dir == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve user config dir: %w", err)
		}
		dir = filepath.Join(configDir, appName)
	}
	return &Store{path: filepath.Join(dir, fileName)}, nil
}

// Path returns the resolved settings file location.
func (s *Store) Path() string { return s.path }

// Load reads the settings file. A missing file yields defaults without an
// error; a corrupt file yields defaults with the parse error.
func (s *Store) Load() (Settings, error) {
	settings := Default()

	rawData, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return settings, fmt.Errorf("read settings file: %w", err)
	}

	if err := yaml.Unmarshal(rawData, &settings); err != nil {
		return Default(), fmt.Errorf("parse settings yaml: %w", err)
	}
	return settings, nil
}

// Save writes the settings file, creating the directory if needed.
func (s *Store) Save(settings Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	serialized, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings yaml: %w", err)
	}

	if err := os.WriteFile(s.path, serialized, 0o644); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}
	return nil
}
