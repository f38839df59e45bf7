package constants

// Output layout
const (
	MediaDirName            = "media"
	GroupConversationPrefix = "Group Conversation"
	XMLFileName             = "sms.xml"
	CSVIndexFileName        = "index.csv"
	DefaultIndexDBFileName  = "index.db"
	OutputTimestampLayout   = "2006-01-02T15_04_05Z"
)

// Export naming
const (
	UnknownPhoneNumber = "+00000000000"
	SelfLabel          = "Me"
	NameSeparator      = " - "
)

// Identity matching
const (
	DefaultSuffixLength  = 0
	MinPhoneNumberLength = 3
	MaxPhoneNumberLength = 20
)

// Privacy settings
const (
	DefaultPhoneMaskLength = 4
)

// Tracing defaults
const (
	DefaultServiceName       = "takeoutmerge"
	DefaultTracingSampleRate = 1.0
)

// Index database retry
const (
	DefaultDatabaseRetryAttempts = 3
	DefaultRetryBackoffMs        = 100
	DefaultMaxBackoffMs          = 1000
)
