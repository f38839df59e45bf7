// Package entry models the records of a voice export and merges the records
// of one conversation into a single HTML artifact.
package entry

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"takeoutmerge/internal/constants"
	"takeoutmerge/internal/errors"

	"github.com/PuerkitoBio/goquery"
)

// Action is the kind of event an export file describes
type Action string

const (
	ActionReceived          Action = "Received"
	ActionPlaced            Action = "Placed"
	ActionMissed            Action = "Missed"
	ActionText              Action = "Text"
	ActionVoicemail         Action = "Voicemail"
	ActionRecorded          Action = "Recorded"
	ActionGroupConversation Action = "Group Conversation"
	ActionUnknown           Action = "Unknown"
)

// ParseAction maps the action segment of an export file name
func ParseAction(s string) Action {
	switch a := Action(strings.TrimSpace(s)); a {
	case ActionReceived, ActionPlaced, ActionMissed, ActionText,
		ActionVoicemail, ActionRecorded, ActionGroupConversation:
		return a
	default:
		return ActionUnknown
	}
}

// Format is the concrete file kind of an entry
type Format string

const (
	FormatJPG     Format = "JPG"
	FormatGIF     Format = "GIF"
	FormatMP3     Format = "MP3"
	FormatMP4     Format = "MP4"
	FormatThreeGP Format = "3GP"
	FormatAMR     Format = "AMR"
	FormatVCF     Format = "VCF"
	FormatHTML    Format = "HTML"
)

// FormatFromExt maps a file extension (with or without the dot) to a format
func FormatFromExt(ext string) (Format, bool) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "jpg", "jpeg":
		return FormatJPG, true
	case "gif":
		return FormatGIF, true
	case "mp3":
		return FormatMP3, true
	case "mp4":
		return FormatMP4, true
	case "3gp":
		return FormatThreeGP, true
	case "amr":
		return FormatAMR, true
	case "vcf":
		return FormatVCF, true
	case "html":
		return FormatHTML, true
	default:
		return "", false
	}
}

// Kind is the closed set of entry variants
type Kind int

const (
	KindHTML Kind = iota
	KindMedia
)

func (k Kind) String() string {
	switch k {
	case KindHTML:
		return "html"
	case KindMedia:
		return "media"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Meta is the classification the ingestion layer supplies for one file
type Meta struct {
	Action       Action
	Format       Format
	Name         string
	PhoneNumbers []string
	Timestamp    time.Time
	FullPath     string
	// Thread is the file stem of the HTML file the entry belongs to
	Thread string
}

// Entry is one export record: either an HTML conversation or a media attachment
type Entry struct {
	Action        Action
	Kind          Kind
	Format        Format
	Name          string
	PhoneNumbers  []string
	Timestamp     time.Time
	LastTimestamp time.Time
	FullPath      string
	Thread        string

	// Set by Persist
	SavedPath    string
	RelativePath string

	doc    *goquery.Document
	owners []string
}

func newEntry(kind Kind, meta Meta) *Entry {
	numbers := append([]string(nil), meta.PhoneNumbers...)
	sort.Strings(numbers)

	thread := meta.Thread
	if thread == "" {
		thread = Stem(meta.Name)
	}

	return &Entry{
		Action:        meta.Action,
		Kind:          kind,
		Format:        meta.Format,
		Name:          meta.Name,
		PhoneNumbers:  numbers,
		Timestamp:     meta.Timestamp,
		LastTimestamp: meta.Timestamp,
		FullPath:      meta.FullPath,
		Thread:        thread,
	}
}

// NewMediaEntry creates an attachment entry
func NewMediaEntry(meta Meta) (*Entry, error) {
	if meta.Format == FormatHTML || meta.Format == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("invalid media format %q for %s", meta.Format, meta.Name))
	}
	return newEntry(KindMedia, meta), nil
}

func (e *Entry) IsMedia() bool {
	return e.Kind == KindMedia
}

func (e *Entry) IsCallLog() bool {
	switch e.Action {
	case ActionRecorded, ActionReceived, ActionPlaced, ActionMissed:
		return true
	}
	return false
}

func (e *Entry) IsVoicemail() bool {
	return e.Action == ActionVoicemail
}

func (e *Entry) IsGroupConversation() bool {
	return e.Action == ActionGroupConversation
}

// HasUnknownPhoneNumber reports whether the export withheld the caller's number
func (e *Entry) HasUnknownPhoneNumber() bool {
	return len(e.PhoneNumbers) == 1 && e.PhoneNumbers[0] == constants.UnknownPhoneNumber
}

// SetPhoneNumbers replaces the participant set (kept sorted)
func (e *Entry) SetPhoneNumbers(numbers []string) {
	e.PhoneNumbers = append([]string(nil), numbers...)
	sort.Strings(e.PhoneNumbers)
}

// Owners returns the numbers the export labelled as the archive owner
func (e *Entry) Owners() []string {
	return append([]string(nil), e.owners...)
}

// Fold merges peer into e. Only HTML entries can receive peers.
func (e *Entry) Fold(peer *Entry) error {
	switch e.Kind {
	case KindHTML:
		if err := e.foldInto(peer); err != nil {
			return err
		}
		if peer.Timestamp.After(e.LastTimestamp) {
			e.LastTimestamp = peer.Timestamp
		}
		if peer.LastTimestamp.After(e.LastTimestamp) {
			e.LastTimestamp = peer.LastTimestamp
		}
		return nil
	case KindMedia:
		return errors.NewUnsupportedError("fold", e.Name)
	default:
		return errors.Newf(errors.ErrCodeInternalError, "unknown entry kind %s", e.Kind)
	}
}

// Persist writes the entry into the output directory
func (e *Entry) Persist(opts SaveOptions) error {
	switch e.Kind {
	case KindHTML:
		return e.persistHTML(opts)
	case KindMedia:
		return e.persistMedia(opts)
	default:
		return errors.Newf(errors.ErrCodeInternalError, "unknown entry kind %s", e.Kind)
	}
}

// SaveOptions controls where and how entries are persisted
type SaveOptions struct {
	OutputDir        string
	UseLastTimestamp bool
	// GroupIndex numbers the group conversation being persisted; it is
	// assigned by the Merger and ignored for other conversations
	GroupIndex int
}

// Directory returns the per-conversation output directory name for an entry
func (o SaveOptions) Directory(e *Entry) string {
	if e.IsGroupConversation() {
		return GroupConversationDir(o.GroupIndex)
	}
	return strings.Join(e.PhoneNumbers, ",")
}

// GroupConversationDir names the output directory of the n-th group conversation
func GroupConversationDir(n int) string {
	return fmt.Sprintf("%s %d", constants.GroupConversationPrefix, n)
}

// Stem returns a file name without its extension
func Stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
