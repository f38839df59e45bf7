package config

import (
	"os"
	"path/filepath"
	"testing"

	"takeoutmerge/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()

	yamlConfig := `
input_dir: /takeout/Voice/Calls
output_dir: /archive
contacts: /takeout/contacts.vcf
matching:
  suffix_length: 7
ignore:
  orphan_call_logs: true
output:
  generate_xml: true
  use_last_timestamp: true
xml:
  owner_number: "+15550000000"
  prepend_phone_numbers: "'"
`
	yamlPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(yamlConfig), 0644))

	jsonConfig := `{
		"input_dir": "/in",
		"output_dir": "/out",
		"matching": {"strategy": "exact"},
		"output": {"generate_csv": true, "index_db": "/out/index.db"}
	}`
	jsonPath := filepath.Join(tmpDir, "config.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(jsonConfig), 0644))

	brokenPath := filepath.Join(tmpDir, "broken.yaml")
	require.NoError(t, os.WriteFile(brokenPath, []byte("matching: [unterminated"), 0644))

	tests := []struct {
		name      string
		path      string
		setEnv    map[string]string
		wantError bool
		validate  func(*testing.T, *models.Config)
	}{
		{
			name: "yaml config",
			path: yamlPath,
			validate: func(t *testing.T, config *models.Config) {
				assert.Equal(t, "/takeout/Voice/Calls", config.InputDir)
				assert.Equal(t, "/archive", config.OutputDir)
				assert.Equal(t, "/takeout/contacts.vcf", config.ContactsPath)
				assert.Equal(t, 7, config.Matching.SuffixLength)
				assert.True(t, config.Ignore.OrphanCallLogs)
				assert.True(t, config.Output.GenerateXML)
				assert.True(t, config.Output.UseLastTimestamp)
				assert.Equal(t, "+15550000000", config.XML.OwnerNumber)
				assert.Equal(t, "'", config.XML.PrependPhoneNumbers)
				assert.Equal(t, "info", config.LogLevel)
			},
		},
		{
			name: "json config",
			path: jsonPath,
			validate: func(t *testing.T, config *models.Config) {
				assert.Equal(t, "/in", config.InputDir)
				assert.Equal(t, models.MatchExact, config.Matching.Strategy)
				assert.True(t, config.Output.GenerateCSV)
				assert.Equal(t, "/out/index.db", config.Output.IndexDB)
			},
		},
		{
			name: "no file uses defaults",
			path: "",
			validate: func(t *testing.T, config *models.Config) {
				assert.Empty(t, config.InputDir)
				assert.Equal(t, 0, config.Matching.SuffixLength)
				assert.Equal(t, "takeoutmerge", config.Tracing.ServiceName)
			},
		},
		{
			name: "environment overrides",
			path: yamlPath,
			setEnv: map[string]string{
				"TAKEOUTMERGE_INPUT_DIR":     "/env/in",
				"TAKEOUTMERGE_OUTPUT_DIR":    "/env/out",
				"TAKEOUTMERGE_OWNER_NUMBER":  "+15559999999",
				"TAKEOUTMERGE_SUFFIX_LENGTH": "10",
			},
			validate: func(t *testing.T, config *models.Config) {
				assert.Equal(t, "/env/in", config.InputDir)
				assert.Equal(t, "/env/out", config.OutputDir)
				assert.Equal(t, "+15559999999", config.XML.OwnerNumber)
				assert.Equal(t, 10, config.Matching.SuffixLength)
			},
		},
		{
			name:      "invalid suffix length in environment",
			path:      "",
			setEnv:    map[string]string{"TAKEOUTMERGE_SUFFIX_LENGTH": "seven"},
			wantError: true,
		},
		{
			name:      "unparseable file",
			path:      brokenPath,
			wantError: true,
		},
		{
			name:      "nonexistent file",
			path:      filepath.Join(tmpDir, "missing.yaml"),
			wantError: true,
		},
		{
			name:      "traversal path",
			path:      "../../etc/config.yaml",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.setEnv {
				t.Setenv(k, v)
			}

			config, err := LoadConfig(tt.path)
			if tt.wantError {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, config)

			if tt.validate != nil {
				tt.validate(t, config)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	config := Default()
	assert.Equal(t, ErrMissingInputDir, Validate(config))

	config.InputDir = "/in"
	assert.Equal(t, ErrMissingOutputDir, Validate(config))

	config.OutputDir = "/in/"
	assert.Equal(t, ErrSameDirectories, Validate(config))

	config.OutputDir = "/out"
	require.NoError(t, Validate(config))
	assert.Equal(t, models.MatchExact, config.Matching.Strategy)
}

func TestValidate_MatchingStrategy(t *testing.T) {
	tests := []struct {
		name         string
		strategy     string
		suffixLength int
		expected     string
		wantErr      bool
	}{
		{"inferred exact", "", 0, models.MatchExact, false},
		{"inferred suffix", "", 7, models.MatchSuffix, false},
		{"explicit exact ignores length", "exact", 7, models.MatchExact, false},
		{"suffix without length falls back", "suffix", 0, models.MatchExact, false},
		{"suffix with length", "SUFFIX", 10, models.MatchSuffix, false},
		{"unknown", "fuzzy", 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			config.InputDir = "/in"
			config.OutputDir = "/out"
			config.Matching.Strategy = tt.strategy
			config.Matching.SuffixLength = tt.suffixLength

			err := Validate(config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, config.Matching.Strategy)
		})
	}
}

func TestValidate_IgnoreFlagsCollapse(t *testing.T) {
	config := Default()
	config.InputDir = "/in"
	config.OutputDir = "/out"
	config.Ignore.CallLogs = true
	config.Ignore.OrphanCallLogs = true
	config.Ignore.Voicemails = true
	config.Ignore.OrphanVoicemails = true

	require.NoError(t, Validate(config))
	assert.False(t, config.Ignore.OrphanCallLogs)
	assert.False(t, config.Ignore.OrphanVoicemails)
}

func TestValidate_Rejects(t *testing.T) {
	config := Default()
	config.InputDir = "/in"
	config.OutputDir = "/out"

	config.Matching.SuffixLength = -1
	assert.Error(t, Validate(config))

	config.Matching.SuffixLength = 0
	config.Tracing.SampleRate = 2
	assert.Error(t, Validate(config))
}
