// Package ingest classifies the files of a voice export into entries.
package ingest

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"takeoutmerge/internal/constants"
	"takeoutmerge/internal/entry"
	"takeoutmerge/internal/errors"
	"takeoutmerge/internal/validation"

	"github.com/sirupsen/logrus"
)

// Scanner walks an export directory
type Scanner struct {
	logger *logrus.Logger
}

func NewScanner(logger *logrus.Logger) *Scanner {
	if logger == nil {
		logger = logrus.New()
	}
	return &Scanner{logger: logger}
}

type file struct {
	path string
	name *FileName
	// thread key: directory plus stem of the HTML file
	key string
}

// Scan classifies every export file below dir. HTML conversations are parsed
// and attachments are linked to the conversation they belong to. Files that
// are not part of the export, and attachments without a conversation, are
// skipped with a warning.
func (s *Scanner) Scan(ctx context.Context, dir string) ([]*entry.Entry, error) {
	var documents, media []file

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.NewIOError("scan", path, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		name, parseErr := ParseFileName(d.Name())
		if parseErr != nil {
			s.logger.WithFields(logrus.Fields{
				"file":  d.Name(),
				"error": parseErr.Error(),
			}).Warn("Skipping unrecognized file")
			return nil
		}

		f := file{path: path, name: name, key: filepath.Join(filepath.Dir(path), entry.Stem(d.Name()))}
		if name.Format == entry.FormatHTML {
			documents = append(documents, f)
		} else {
			media = append(media, f)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// WalkDir is lexical, but keep the result independent of it
	sort.Slice(documents, func(i, j int) bool { return documents[i].key < documents[j].key })
	sort.Slice(media, func(i, j int) bool { return media[i].path < media[j].path })

	entries := make([]*entry.Entry, 0, len(documents)+len(media))
	threads := make(map[string]*entry.Entry, len(documents))
	keys := make([]string, 0, len(documents))

	for _, f := range documents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		e, err := s.loadDocument(f)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
		threads[f.key] = e
		keys = append(keys, f.key)
	}

	for _, f := range media {
		thread := longestPrefix(keys, filepath.Join(filepath.Dir(f.path), entry.Stem(filepath.Base(f.path))))
		if thread == "" {
			s.logger.WithField("file", filepath.Base(f.path)).Warn("Skipping attachment without conversation")
			continue
		}
		parent := threads[thread]

		e, err := entry.NewMediaEntry(entry.Meta{
			Action:       f.name.Action,
			Format:       f.name.Format,
			Name:         filepath.Base(f.path),
			PhoneNumbers: parent.PhoneNumbers,
			Timestamp:    f.name.Timestamp,
			FullPath:     f.path,
			Thread:       parent.Thread,
		})
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	s.logger.WithFields(logrus.Fields{
		"documents": len(documents),
		"media":     len(entries) - len(documents),
	}).Info("Scanned export")

	return entries, nil
}

func (s *Scanner) loadDocument(f file) (*entry.Entry, error) {
	doc, err := entry.ParseHTMLFile(f.path)
	if err != nil {
		return nil, err
	}

	// Numbers must be read before construction replaces the "Me" labels
	var numbers []string
	if f.name.Action == entry.ActionGroupConversation {
		numbers, err = entry.GroupParticipants(doc)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStructuralParse, "unable to read group participants").
				WithContext("entry", filepath.Base(f.path))
		}
	} else if number, ok := nameNumber(f.name.Contact); ok {
		numbers = []string{number}
	} else {
		numbers = entry.ContactNumbers(doc)
	}

	for i, n := range numbers {
		numbers[i] = validation.NormalizePhoneNumber(n)
	}
	if len(numbers) == 0 {
		numbers = []string{constants.UnknownPhoneNumber}
	}

	return entry.NewHTMLEntry(entry.Meta{
		Action:       f.name.Action,
		Name:         filepath.Base(f.path),
		PhoneNumbers: numbers,
		Timestamp:    f.name.Timestamp,
		FullPath:     f.path,
	}, doc)
}

// longestPrefix returns the longest key that prefixes stem
func longestPrefix(keys []string, stem string) string {
	var best string
	for _, key := range keys {
		if strings.HasPrefix(stem, key) && len(key) > len(best) {
			best = key
		}
	}
	return best
}

// nameNumber returns the number a file is named after, if it is not named
// after a contact
func nameNumber(contact string) (string, bool) {
	if strings.ContainsFunc(contact, unicode.IsLetter) {
		return "", false
	}
	number := validation.NormalizePhoneNumber(contact)
	return number, validation.IsPhoneNumber(number)
}
