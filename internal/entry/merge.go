package entry

import (
	"slices"
	"sort"

	"takeoutmerge/internal/errors"

	"github.com/sirupsen/logrus"
)

// Merger folds the entries of one conversation into a single persisted entry.
// It numbers group conversations, so one Merger must be used for a whole run
// and must not be shared between goroutines.
type Merger struct {
	logger             *logrus.Logger
	groupConversations int
}

// NewMerger creates a merger with its group conversation counter at zero
func NewMerger(logger *logrus.Logger) *Merger {
	if logger == nil {
		logger = logrus.New()
	}
	return &Merger{logger: logger}
}

// GroupConversations returns how many group conversations were merged so far
func (m *Merger) GroupConversations() int {
	return m.groupConversations
}

// Merge merges entries that share one participant set and persists the result
// below opts.OutputDir. The first HTML entry in chronological order becomes the
// base; every later HTML entry is folded into it, then every media entry is
// persisted and folded, and finally the base is persisted. Nothing is written
// when the participant sets differ.
func (m *Merger) Merge(entries []*Entry, opts SaveOptions) (*Entry, error) {
	sorted := append([]*Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var documents, media []*Entry
	for _, e := range sorted {
		if first := sorted[0]; !slices.Equal(first.PhoneNumbers, e.PhoneNumbers) {
			return nil, errors.NewIdentityMismatchError(first.PhoneNumbers, e.PhoneNumbers)
		}

		// Media is handled after every document was folded
		if e.IsMedia() {
			media = append(media, e)
			continue
		}
		documents = append(documents, e)
	}

	if len(documents) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "unable to find the first entry")
	}
	base := documents[0]

	if m.logger.IsLevelEnabled(logrus.DebugLevel) {
		names := make([]string, 0, len(sorted))
		for _, e := range sorted {
			names = append(names, e.Name)
		}
		m.logger.WithField("entries", names).Debug("Merging entries")
	}

	if base.IsGroupConversation() {
		m.groupConversations++
		opts.GroupIndex = m.groupConversations
	}

	for _, peer := range documents[1:] {
		m.logger.WithFields(logrus.Fields{
			"base": base.Name,
			"peer": peer.Name,
		}).Debug("Folding entry")

		if err := base.Fold(peer); err != nil {
			return nil, err
		}
	}

	for _, attachment := range media {
		if attachment.Format == FormatAMR || attachment.Format == FormatThreeGP {
			m.logger.WithFields(logrus.Fields{
				"entry":  attachment.Name,
				"format": attachment.Format,
			}).Warn("HTML5 playback of this format isn't currently supported")
		}

		if err := attachment.Persist(opts); err != nil {
			return nil, err
		}
		if err := base.Fold(attachment); err != nil {
			return nil, err
		}
	}

	if err := base.Persist(opts); err != nil {
		return nil, err
	}

	m.logger.WithFields(logrus.Fields{
		"entry":   base.Name,
		"path":    base.SavedPath,
		"entries": len(sorted),
	}).Debug("Saved merged entry")

	return base, nil
}
