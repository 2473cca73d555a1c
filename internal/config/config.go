// Package config loads blockfsctl's configuration with the same layered
// precedence the teacher's tk CLI uses: defaults, then a global config file,
// then a project/explicit config file, then command-line flags. Config
// files are JSONC (JSON with comments and trailing commas) via
// [hujson.Standardize]; flags are parsed with [pflag].
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"
)

// ErrConfigInvalid marks a config file that failed to parse or validate.
var ErrConfigInvalid = errors.New("config: invalid")

// ErrConfigFileNotFound marks an explicitly named config file that does not
// exist.
var ErrConfigFileNotFound = errors.New("config: file not found")

// ErrConfigFileRead marks an I/O error reading an explicitly named config
// file that does exist.
var ErrConfigFileRead = errors.New("config: read failed")

// errImagePathEmpty is returned when a config file explicitly sets
// image_path to "", which would otherwise silently fall through to the
// default on the next merge.
var errImagePathEmpty = errors.New("image_path must not be empty")

// Config holds blockfsctl's configuration.
type Config struct {
	ImagePath string `json:"image_path"`
	BlockSize int    `json:"block_size,omitempty"`
	BlockCount int   `json:"block_count,omitempty"`
}

// Sources tracks which config files contributed to a loaded [Config].
type Sources struct {
	Global  string
	Project string
}

// ConfigFileName is the default project config file name, looked for in the
// working directory.
const ConfigFileName = ".blockfsctl.json"

const (
	defaultImagePath  = "blockfs.img"
	defaultBlockSize  = 512
	defaultBlockCount = 256
)

// Default returns blockfsctl's built-in configuration.
func Default() Config {
	return Config{
		ImagePath:  defaultImagePath,
		BlockSize:  defaultBlockSize,
		BlockCount: defaultBlockCount,
	}
}

func globalConfigPath(env []string) string {
	for _, e := range env {
		if after, ok := strings.CutPrefix(e, "XDG_CONFIG_HOME="); ok {
			return filepath.Join(after, "blockfsctl", "config.json")
		}
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "blockfsctl", "config.json")
	}
	home, err := os.UserHomeDir()
	if err == nil {
		return filepath.Join(home, ".config", "blockfsctl", "config.json")
	}
	return ""
}

// Load resolves the effective configuration with precedence (lowest to
// highest): built-in defaults, global config, project config (or an
// explicit configPath override), then cliOverrides for whichever fields the
// caller marks as set on the command line.
func Load(workDir, configPath string, cliOverrides Config, overrideSet map[string]bool, env []string) (Config, Sources, error) {
	cfg := Default()
	var sources Sources

	globalCfg, globalPath, err := loadGlobalConfig(env)
	if err != nil {
		return Config{}, Sources{}, err
	}
	sources.Global = globalPath
	cfg = merge(cfg, globalCfg)

	projectCfg, projectPath, err := loadProjectConfig(workDir, configPath)
	if err != nil {
		return Config{}, Sources{}, err
	}
	sources.Project = projectPath
	cfg = merge(cfg, projectCfg)

	if overrideSet["image_path"] {
		cfg.ImagePath = cliOverrides.ImagePath
	}
	if overrideSet["block_size"] {
		cfg.BlockSize = cliOverrides.BlockSize
	}
	if overrideSet["block_count"] {
		cfg.BlockCount = cliOverrides.BlockCount
	}

	if err := validate(cfg); err != nil {
		return Config{}, Sources{}, err
	}

	return cfg, sources, nil
}

func loadGlobalConfig(env []string) (Config, string, error) {
	path := globalConfigPath(env)
	if path == "" {
		return Config{}, "", nil
	}
	cfg, explicitEmpty, loaded, err := loadConfigFile(path, false)
	if err != nil {
		return Config{}, "", err
	}
	if !loaded {
		return Config{}, "", nil
	}
	if explicitEmpty["image_path"] {
		return Config{}, "", fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, errImagePathEmpty)
	}
	return cfg, path, nil
}

func loadProjectConfig(workDir, configPath string) (Config, string, error) {
	var cfgFile string
	var mustExist bool

	if configPath != "" {
		cfgFile = configPath
		if !filepath.IsAbs(cfgFile) {
			cfgFile = filepath.Join(workDir, cfgFile)
		}
		mustExist = true
		if _, err := os.Stat(cfgFile); err != nil {
			return Config{}, "", fmt.Errorf("%w: %s", ErrConfigFileNotFound, configPath)
		}
	} else {
		cfgFile = filepath.Join(workDir, ConfigFileName)
		mustExist = false
	}

	cfg, explicitEmpty, loaded, err := loadConfigFile(cfgFile, mustExist)
	if err != nil {
		return Config{}, "", err
	}
	if !loaded {
		return Config{}, "", nil
	}
	if explicitEmpty["image_path"] {
		return Config{}, "", fmt.Errorf("%w %s: %w", ErrConfigInvalid, cfgFile, errImagePathEmpty)
	}
	return cfg, cfgFile, nil
}

func loadConfigFile(path string, mustExist bool) (Config, map[string]bool, bool, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is intentionally user-controlled
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return Config{}, nil, false, nil
		}
		if mustExist {
			return Config{}, nil, false, fmt.Errorf("%w: %s", ErrConfigFileRead, path)
		}
		return Config{}, nil, false, nil
	}

	cfg, explicitEmpty, err := parse(data)
	if err != nil {
		return Config{}, nil, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}
	return cfg, explicitEmpty, true, nil
}

func parse(data []byte) (Config, map[string]bool, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, nil, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, nil, fmt.Errorf("invalid JSON: %w", err)
	}

	var raw map[string]any
	_ = json.Unmarshal(standardized, &raw)

	explicitEmpty := make(map[string]bool)
	if val, exists := raw["image_path"]; exists {
		if str, ok := val.(string); ok && str == "" {
			explicitEmpty["image_path"] = true
		}
	}

	return cfg, explicitEmpty, nil
}

func merge(base, overlay Config) Config {
	if overlay.ImagePath != "" {
		base.ImagePath = overlay.ImagePath
	}
	if overlay.BlockSize != 0 {
		base.BlockSize = overlay.BlockSize
	}
	if overlay.BlockCount != 0 {
		base.BlockCount = overlay.BlockCount
	}
	return base
}

func validate(cfg Config) error {
	if cfg.ImagePath == "" {
		return errImagePathEmpty
	}
	if cfg.BlockSize <= 0 {
		return fmt.Errorf("%w: block_size must be positive", ErrConfigInvalid)
	}
	if cfg.BlockCount <= 0 {
		return fmt.Errorf("%w: block_count must be positive", ErrConfigInvalid)
	}
	return nil
}

// Format renders cfg as indented JSON, for `blockfsctl config`.
func Format(cfg Config) (string, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to format config: %w", err)
	}
	return string(data), nil
}
