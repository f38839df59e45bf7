package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"takeoutmerge/internal/constants"
	"takeoutmerge/internal/models"
	"takeoutmerge/internal/security"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "TAKEOUTMERGE_"

var (
	ErrMissingInputDir  = models.ConfigError{Message: "missing input directory"}
	ErrMissingOutputDir = models.ConfigError{Message: "missing output directory"}
	ErrSameDirectories  = models.ConfigError{Message: "input and output directories must differ"}
)

// Default returns a configuration with every option at its default value
func Default() *models.Config {
	return &models.Config{
		Matching: models.MatchingConfig{
			SuffixLength: constants.DefaultSuffixLength,
		},
		LogLevel: "info",
		Tracing: models.TracingConfig{
			ServiceName: constants.DefaultServiceName,
			SampleRate:  constants.DefaultTracingSampleRate,
			UseStdout:   true,
		},
	}
}

// LoadConfig builds the configuration from defaults, an optional YAML or JSON
// file, an optional .env file and TAKEOUTMERGE_* environment variables.
// An empty path skips the file layer.
func LoadConfig(path string) (*models.Config, error) {
	cfg := Default()

	if path != "" {
		if err := security.ValidateFilePath(path); err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}

		file, err := os.ReadFile(path) // #nosec G304 - Path validated by security.ValidateFilePath above
		if err != nil {
			return nil, err
		}

		// YAML is a superset of JSON, so one decoder serves both formats
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := applyEnvironmentOverrides(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the final configuration (after CLI flags were applied) and
// normalizes derived settings
func Validate(c *models.Config) error {
	if c.InputDir == "" {
		return ErrMissingInputDir
	}
	if c.OutputDir == "" {
		return ErrMissingOutputDir
	}
	if err := security.ValidateFilePath(c.InputDir); err != nil {
		return models.ConfigError{Message: fmt.Sprintf("invalid input directory: %v", err)}
	}
	if err := security.ValidateFilePath(c.OutputDir); err != nil {
		return models.ConfigError{Message: fmt.Sprintf("invalid output directory: %v", err)}
	}
	if strings.TrimRight(c.InputDir, "/") == strings.TrimRight(c.OutputDir, "/") {
		return ErrSameDirectories
	}

	if c.Matching.SuffixLength < 0 {
		return models.ConfigError{Message: "suffix length cannot be negative"}
	}

	switch strings.ToLower(c.Matching.Strategy) {
	case "":
		c.Matching.Strategy = models.MatchExact
		if c.Matching.SuffixLength > 0 {
			c.Matching.Strategy = models.MatchSuffix
		}
	case models.MatchExact:
		c.Matching.Strategy = models.MatchExact
	case models.MatchSuffix:
		c.Matching.Strategy = models.MatchSuffix
		if c.Matching.SuffixLength <= 0 {
			// A suffix strategy without a length degrades to exact matching
			c.Matching.Strategy = models.MatchExact
		}
	default:
		return models.ConfigError{Message: fmt.Sprintf("unknown matching strategy: %s", c.Matching.Strategy)}
	}

	if c.Ignore.CallLogs && c.Ignore.OrphanCallLogs {
		c.Ignore.OrphanCallLogs = false
	}
	if c.Ignore.Voicemails && c.Ignore.OrphanVoicemails {
		c.Ignore.OrphanVoicemails = false
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return models.ConfigError{Message: "tracing sample rate must be between 0 and 1"}
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = constants.DefaultServiceName
	}

	return nil
}

func applyEnvironmentOverrides(c *models.Config) error {
	if v, ok := lookupEnv("INPUT_DIR"); ok {
		c.InputDir = v
	}
	if v, ok := lookupEnv("OUTPUT_DIR"); ok {
		c.OutputDir = v
	}
	if v, ok := lookupEnv("CONTACTS"); ok {
		c.ContactsPath = v
	}
	if v, ok := lookupEnv("OWNER_NUMBER"); ok {
		c.XML.OwnerNumber = v
	}
	if v, ok := lookupEnv("LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := lookupEnv("OTLP_ENDPOINT"); ok {
		c.Tracing.OTLPEndpoint = v
		c.Tracing.UseStdout = false
	}
	if v, ok := lookupEnv("SUFFIX_LENGTH"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return models.ConfigError{Message: fmt.Sprintf("invalid %sSUFFIX_LENGTH: %s", envPrefix, v)}
		}
		c.Matching.SuffixLength = n
	}
	if v, ok := lookupEnv("TRACING_ENABLED"); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return models.ConfigError{Message: fmt.Sprintf("invalid %sTRACING_ENABLED: %s", envPrefix, v)}
		}
		c.Tracing.Enabled = enabled
	}
	return nil
}

func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(envPrefix + key)
	if !ok {
		return "", false
	}
	trimmed := strings.TrimSpace(value)
	return trimmed, trimmed != ""
}
