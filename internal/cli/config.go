package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tailscale/hujson"
)

// Config holds all configuration options.
type Config struct {
	// From config files (serialized)
	DB             string `json:"db"`
	FriendlyErrors bool   `json:"friendly_errors"`
	LogLevel       string `json:"log_level"`
	LogFormat      string `json:"log_format"`

	// Resolved paths (computed, not serialized)
	EffectiveCwd string `json:"-"` // Absolute working directory (from -C flag or os.Getwd)
	DBAbs        string `json:"-"` // Absolute path to the database file

	// Sources tracks which config files were loaded (for diagnostics)
	Sources ConfigSources `json:"-"`
}

// ConfigSources tracks which config files were loaded.
type ConfigSources struct {
	Global  string // Path to global config if loaded, empty otherwise
	Project string // Path to project config if loaded, empty otherwise
}

// fileConfig is one config file. Pointer fields tell "absent" from
// "explicitly set to the zero value".
type fileConfig struct {
	DB             *string `json:"db"`
	FriendlyErrors *bool   `json:"friendly_errors"`
	LogLevel       *string `json:"log_level"`
	LogFormat      *string `json:"log_format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		DB:        "tabledb.json",
		LogLevel:  "error",
		LogFormat: "text",
	}
}

// ConfigFileName is the default project config file name.
const ConfigFileName = ".tabledb.json"

// getGlobalConfigPath returns the path to the global config file.
// Uses $XDG_CONFIG_HOME/tabledb/config.json if set, otherwise
// ~/.config/tabledb/config.json. Returns empty string if neither is known.
func getGlobalConfigPath(env map[string]string) string {
	if xdgConfig := env["XDG_CONFIG_HOME"]; xdgConfig != "" {
		return filepath.Join(xdgConfig, "tabledb", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "tabledb", "config.json")
	}

	return ""
}

// LoadConfigInput holds the inputs for LoadConfig.
type LoadConfigInput struct {
	WorkDirOverride   string            // -C/--cwd flag value; if empty, os.Getwd() is used
	ConfigPath        string            // -c/--config flag value
	DBOverride        string            // --db flag value; empty means no override
	FriendlyOverride  *bool             // --friendly flag value when given
	LogLevelOverride  string            // --log-level flag value
	LogFormatOverride string            // --log-format flag value
	Env               map[string]string // environment variables
}

// LoadConfig loads configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config (~/.config/tabledb/config.json or $XDG_CONFIG_HOME/tabledb/config.json)
// 3. Project config file at default location (.tabledb.json, if exists)
// 4. Explicit config file via ConfigPath (replaces 3)
// 5. CLI overrides.
//
// All paths in the returned Config are resolved to absolute paths.
func LoadConfig(input LoadConfigInput) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	workDir, err := filepath.Abs(workDir)
	if err != nil {
		return Config{}, fmt.Errorf("resolving working directory: %w", err)
	}

	cfg := DefaultConfig()

	globalCfg, globalPath, err := loadGlobalConfig(input.Env)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Global = globalPath
	cfg = mergeConfig(cfg, globalCfg)

	projectCfg, projectPath, err := loadProjectConfig(workDir, input.ConfigPath)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Project = projectPath
	cfg = mergeConfig(cfg, projectCfg)

	// Apply CLI overrides
	if input.DBOverride != "" {
		cfg.DB = input.DBOverride
	}

	if input.FriendlyOverride != nil {
		cfg.FriendlyErrors = *input.FriendlyOverride
	}

	if input.LogLevelOverride != "" {
		cfg.LogLevel = input.LogLevelOverride
	}

	if input.LogFormatOverride != "" {
		cfg.LogFormat = input.LogFormatOverride
	}

	err = validateConfig(cfg)
	if err != nil {
		return Config{}, err
	}

	cfg.EffectiveCwd = workDir

	if filepath.IsAbs(cfg.DB) {
		cfg.DBAbs = cfg.DB
	} else {
		cfg.DBAbs = filepath.Join(workDir, cfg.DB)
	}

	return cfg, nil
}

// loadGlobalConfig loads the global user config file if it exists.
// Returns the config, the path if loaded, and any error.
func loadGlobalConfig(env map[string]string) (fileConfig, string, error) {
	globalCfgPath := getGlobalConfigPath(env)
	if globalCfgPath == "" {
		return fileConfig{}, "", nil
	}

	globalCfg, loaded, err := loadConfigFile(globalCfgPath, false)
	if err != nil {
		return fileConfig{}, "", err
	}

	if !loaded {
		return fileConfig{}, "", nil
	}

	return globalCfg, globalCfgPath, nil
}

// loadProjectConfig loads the project config file (.tabledb.json) or an
// explicit config file.
func loadProjectConfig(workDir, configPath string) (fileConfig, string, error) {
	var (
		cfgFile   string
		mustExist bool
	)

	if configPath != "" {
		// Explicit config file - must exist
		cfgFile = configPath
		if !filepath.IsAbs(cfgFile) {
			cfgFile = filepath.Join(workDir, cfgFile)
		}

		mustExist = true

		_, statErr := os.Stat(cfgFile)
		if statErr != nil {
			return fileConfig{}, "", fmt.Errorf("%w: %s", ErrConfigFileNotFound, configPath)
		}
	} else {
		cfgFile = filepath.Join(workDir, ConfigFileName)
	}

	fileCfg, loaded, err := loadConfigFile(cfgFile, mustExist)
	if err != nil {
		return fileConfig{}, "", err
	}

	if !loaded {
		return fileConfig{}, "", nil
	}

	return fileCfg, cfgFile, nil
}

// loadConfigFile loads a config file. If mustExist is false, missing files
// return a zero config. Returns whether the file was loaded.
func loadConfigFile(path string, mustExist bool) (fileConfig, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return fileConfig{}, false, nil
		}

		if mustExist {
			return fileConfig{}, false, fmt.Errorf("%w: %s", ErrConfigFileRead, path)
		}

		return fileConfig{}, false, nil
	}

	cfg, parseErr := parseConfig(data)
	if parseErr != nil {
		return fileConfig{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, parseErr)
	}

	return cfg, true, nil
}

func parseConfig(data []byte) (fileConfig, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fileConfig{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg fileConfig

	err = json.Unmarshal(standardized, &cfg)
	if err != nil {
		return fileConfig{}, fmt.Errorf("invalid JSON: %w", err)
	}

	if cfg.DB != nil && *cfg.DB == "" {
		return fileConfig{}, ErrDBPathEmpty
	}

	return cfg, nil
}

func mergeConfig(base Config, overlay fileConfig) Config {
	if overlay.DB != nil {
		base.DB = *overlay.DB
	}

	if overlay.FriendlyErrors != nil {
		base.FriendlyErrors = *overlay.FriendlyErrors
	}

	if overlay.LogLevel != nil {
		base.LogLevel = *overlay.LogLevel
	}

	if overlay.LogFormat != nil {
		base.LogFormat = *overlay.LogFormat
	}

	return base
}

func validateConfig(cfg Config) error {
	if cfg.DB == "" {
		return ErrDBPathEmpty
	}

	_, err := parseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	switch cfg.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: %q (want text or json)", ErrInvalidLogFormat, cfg.LogFormat)
	}

	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(s))
	if err != nil || strings.ContainsAny(s, "+-") {
		return 0, fmt.Errorf("%w: %q (want debug, info, warn or error)", ErrInvalidLogLevel, s)
	}

	return level, nil
}

// formatConfig renders cfg as key=value lines for print-config.
func formatConfig(cfg Config) []string {
	return []string{
		"effective_cwd=" + cfg.EffectiveCwd,
		"db=" + cfg.DBAbs,
		"friendly_errors=" + strconv.FormatBool(cfg.FriendlyErrors),
		"log_level=" + cfg.LogLevel,
		"log_format=" + cfg.LogFormat,
	}
}
