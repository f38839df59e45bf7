package ingest

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"takeoutmerge/internal/constants"
	"takeoutmerge/internal/entry"
	"takeoutmerge/internal/errors"
)

// <name> - <Action> - <timestamp>[-N-N].<ext>
var fileNamePattern = regexp.MustCompile(
	`^(?:(.*) - (Received|Placed|Missed|Text|Voicemail|Recorded)|(Group Conversation)) - ` +
		`(\d{4}-\d{2}-\d{2}T\d{2}_\d{2}_\d{2}Z)(-\d+-\d+)?\.([A-Za-z0-9]+)$`)

// FileName is the classification encoded in an export file name
type FileName struct {
	Contact   string
	Action    entry.Action
	Timestamp time.Time
	Format    entry.Format
	// Attachment is the "-N-N" suffix carried by attachments, if any
	Attachment string
}

// ParseFileName classifies an export file by its base name
func ParseFileName(name string) (*FileName, error) {
	base := filepath.Base(name)
	m := fileNamePattern.FindStringSubmatch(base)
	if m == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "unrecognized file name").
			WithContext("file", base)
	}

	format, ok := entry.FormatFromExt(m[6])
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("unsupported extension %q", m[6])).
			WithContext("file", base)
	}

	ts, err := time.Parse(constants.OutputTimestampLayout, m[4])
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid timestamp").
			WithContext("file", base)
	}

	fn := &FileName{
		Contact:    strings.TrimSpace(m[1]),
		Action:     entry.ParseAction(m[2]),
		Timestamp:  ts.UTC(),
		Format:     format,
		Attachment: m[5],
	}
	if m[3] != "" {
		fn.Action = entry.ActionGroupConversation
	}
	return fn, nil
}
