// Package index records a summary row per merged conversation, as CSV and
// optionally in a SQLite database.
package index

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"
	"time"

	"takeoutmerge/internal/errors"
	"takeoutmerge/internal/security"
)

// Row summarizes one merged conversation
type Row struct {
	Directory    string
	PhoneNumbers []string
	Names        []string
	First        time.Time
	Last         time.Time
	Entries      int
	// Path of the merged HTML file relative to the output directory
	Path string
}

var csvHeader = []string{"directory", "phone_numbers", "names", "first", "last", "entries", "path"}

func (r Row) record() []string {
	return []string{
		r.Directory,
		strings.Join(r.PhoneNumbers, ","),
		strings.Join(r.Names, ","),
		r.First.UTC().Format(time.RFC3339),
		r.Last.UTC().Format(time.RFC3339),
		strconv.Itoa(r.Entries),
		r.Path,
	}
}

// WriteCSV writes rows to path, replacing any existing file
func WriteCSV(path string, rows []Row) error {
	if err := security.ValidateFilePath(path); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid index path")
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0640) // #nosec G304 - Path validated above
	if err != nil {
		return errors.NewIOError("create index", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return errors.NewIOError("write index", path, err)
	}
	for _, row := range rows {
		if err := w.Write(row.record()); err != nil {
			f.Close()
			return errors.NewIOError("write index", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return errors.NewIOError("write index", path, err)
	}
	if err := f.Close(); err != nil {
		return errors.NewIOError("close index", path, err)
	}
	return nil
}
