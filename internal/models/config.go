package models

// Match strategies
const (
	MatchExact  = "exact"
	MatchSuffix = "suffix"
)

// Config holds the application configuration
type Config struct {
	InputDir     string         `json:"input_dir" yaml:"input_dir"`
	OutputDir    string         `json:"output_dir" yaml:"output_dir"`
	ContactsPath string         `json:"contacts" yaml:"contacts"`
	Force        bool           `json:"force" yaml:"force"`
	Matching     MatchingConfig `json:"matching" yaml:"matching"`
	Ignore       IgnoreConfig   `json:"ignore" yaml:"ignore"`
	Output       OutputConfig   `json:"output" yaml:"output"`
	XML          XMLConfig      `json:"xml" yaml:"xml"`
	LogLevel     string         `json:"log_level" yaml:"log_level"`
	Tracing      TracingConfig  `json:"tracing" yaml:"tracing"`
}

// MatchingConfig selects how phone numbers are grouped into conversations
type MatchingConfig struct {
	Strategy     string `json:"strategy" yaml:"strategy"`
	SuffixLength int    `json:"suffix_length" yaml:"suffix_length"`
}

// IgnoreConfig lists record classes dropped before merging
type IgnoreConfig struct {
	CallLogs         bool `json:"call_logs" yaml:"call_logs"`
	OrphanCallLogs   bool `json:"orphan_call_logs" yaml:"orphan_call_logs"`
	Media            bool `json:"media" yaml:"media"`
	Voicemails       bool `json:"voicemails" yaml:"voicemails"`
	OrphanVoicemails bool `json:"orphan_voicemails" yaml:"orphan_voicemails"`
}

// OutputConfig controls which artifacts are written besides the HTML archive
type OutputConfig struct {
	GenerateCSV      bool   `json:"generate_csv" yaml:"generate_csv"`
	GenerateXML      bool   `json:"generate_xml" yaml:"generate_xml"`
	IndexDB          string `json:"index_db" yaml:"index_db"`
	UseLastTimestamp bool   `json:"use_last_timestamp" yaml:"use_last_timestamp"`
}

// XMLConfig holds SMS Backup & Restore export options
type XMLConfig struct {
	OwnerNumber               string `json:"owner_number" yaml:"owner_number"`
	AddContactNames           bool   `json:"add_contact_names" yaml:"add_contact_names"`
	PrependPhoneNumbers       string `json:"prepend_phone_numbers" yaml:"prepend_phone_numbers"`
	AppendPhoneNumbers        string `json:"append_phone_numbers" yaml:"append_phone_numbers"`
	ReplaceContactApostrophes string `json:"replace_contact_apostrophes" yaml:"replace_contact_apostrophes"`
}

// TracingConfig contains OpenTelemetry configuration
type TracingConfig struct {
	Enabled      bool    `json:"enabled" yaml:"enabled"`
	ServiceName  string  `json:"service_name" yaml:"service_name"`
	OTLPEndpoint string  `json:"otlp_endpoint" yaml:"otlp_endpoint"`
	SampleRate   float64 `json:"sample_rate" yaml:"sample_rate"`
	UseStdout    bool    `json:"use_stdout" yaml:"use_stdout"`
}

type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
