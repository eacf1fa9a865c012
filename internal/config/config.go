// Package config loads the optional .gridrelease.yaml project file.
// A missing file is not an error: every field has a default that matches
// the GridAPI project layout.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config filename looked up in the project directory.
const DefaultPath = ".gridrelease.yaml"

// ProjectConfig names the product being released.
type ProjectConfig struct {
	// Name is the distributed package and executable name.
	Name string `yaml:"name"`

	// MetadataFile holds the persisted version line.
	MetadataFile string `yaml:"metadata_file"`
}

// DirsConfig names the directories the pipeline creates and cleans.
type DirsConfig struct {
	Build         string `yaml:"build"`
	Dist          string `yaml:"dist"`
	ReleaseAssets string `yaml:"release_assets"`
	TestInstall   string `yaml:"test_install"`
}

// ToolsConfig names the external binaries the pipeline invokes.
type ToolsConfig struct {
	Python      string `yaml:"python"`
	Pip         string `yaml:"pip"`
	Twine       string `yaml:"twine"`
	PyInstaller string `yaml:"pyinstaller"`
	Git         string `yaml:"git"`
	GitHub      string `yaml:"github"`
}

// TimeoutsConfig bounds the waits the pipeline imposes. Only the smoke
// test is bounded by default; all other commands wait indefinitely unless
// a command timeout is set here.
type TimeoutsConfig struct {
	SmokeTest time.Duration `yaml:"smoke_test"`
	Command   time.Duration `yaml:"command"`
}

// UnmarshalYAML parses timeouts from duration strings ("10s", "2m").
func (t *TimeoutsConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		SmokeTest string `yaml:"smoke_test"`
		Command   string `yaml:"command"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.SmokeTest != "" {
		d, err := time.ParseDuration(raw.SmokeTest)
		if err != nil {
			return fmt.Errorf("timeouts.smoke_test: %w", err)
		}
		t.SmokeTest = d
	}
	if raw.Command != "" {
		d, err := time.ParseDuration(raw.Command)
		if err != nil {
			return fmt.Errorf("timeouts.command: %w", err)
		}
		t.Command = d
	}
	return nil
}

// Config is the full project configuration.
type Config struct {
	Project  ProjectConfig  `yaml:"project"`
	Dirs     DirsConfig     `yaml:"dirs"`
	Tools    ToolsConfig    `yaml:"tools"`
	Timeouts TimeoutsConfig `yaml:"timeouts"`
}

// Default returns the configuration for a stock GridAPI checkout.
func Default() *Config {
	return &Config{
		Project: ProjectConfig{
			Name:         "gridapi",
			MetadataFile: "pyproject.toml",
		},
		Dirs: DirsConfig{
			Build:         "build",
			Dist:          "dist",
			ReleaseAssets: "release-assets",
			TestInstall:   "test_install",
		},
		Tools: ToolsConfig{
			Python:      "python",
			Pip:         "pip",
			Twine:       "twine",
			PyInstaller: "pyinstaller",
			Git:         "git",
			GitHub:      "gh",
		},
		Timeouts: TimeoutsConfig{
			SmokeTest: 10 * time.Second,
		},
	}
}

// Load reads path from fs, overlaying the defaults. A missing file yields
// the defaults; a present but malformed file is an error.
func Load(fs afero.Fs, path string) (*Config, error) {
	cfg := Default()

	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, fmt.Errorf("stat config %s: %w", path, err)
	}
	if !exists {
		return cfg, nil
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Timeouts.SmokeTest <= 0 {
		cfg.Timeouts.SmokeTest = 10 * time.Second
	}
	return cfg, nil
}
