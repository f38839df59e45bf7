// Package service runs a complete merge of a voice export.
package service

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"takeoutmerge/internal/constants"
	"takeoutmerge/internal/entry"
	"takeoutmerge/internal/errors"
	"takeoutmerge/internal/index"
	"takeoutmerge/internal/ingest"
	"takeoutmerge/internal/metrics"
	"takeoutmerge/internal/models"
	"takeoutmerge/internal/phonebook"
	"takeoutmerge/internal/privacy"
	"takeoutmerge/internal/tracing"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// IndexStore persists the conversation index of a run
type IndexStore interface {
	SaveConversations(ctx context.Context, runID string, rows []index.Row) error
	Close() error
}

// IndexOpener opens the index store at path
type IndexOpener func(path string) (IndexStore, error)

func openSQLiteIndex(path string) (IndexStore, error) {
	return index.Open(path)
}

// MergeService merges every conversation of an export directory
type MergeService struct {
	cfg       *models.Config
	logger    *logrus.Logger
	metrics   *metrics.Registry
	masker    privacy.Masker
	openIndex IndexOpener
}

// Summary describes a completed run
type Summary struct {
	RunID              string
	Conversations      []index.Row
	GroupConversations int
	Messages           int
	Ignored            int
}

// conversation is one merged group
type conversation struct {
	merged  *entry.Entry
	entries int
	dir     string
}

func NewMergeService(cfg *models.Config, logger *logrus.Logger, registry *metrics.Registry) *MergeService {
	if logger == nil {
		logger = logrus.New()
	}
	if registry == nil {
		registry = metrics.NewRegistry()
	}
	return &MergeService{
		cfg:       cfg,
		logger:    logger,
		metrics:   registry,
		masker:    privacy.Masker{Verbose: logger.IsLevelEnabled(logrus.DebugLevel)},
		openIndex: openSQLiteIndex,
	}
}

// WithIndexOpener replaces the SQLite index store
func (s *MergeService) WithIndexOpener(open IndexOpener) *MergeService {
	s.openIndex = open
	return s
}

// Run performs the merge. It aborts on the first error; the output
// directory may then hold a partial result.
func (s *MergeService) Run(ctx context.Context) (*Summary, error) {
	runID := tracing.RunID(ctx)
	if runID == "" {
		runID = tracing.NewRunID()
		ctx = tracing.WithRunID(ctx, runID)
	}

	ctx, span := tracing.StartSpan(ctx, "merge.run",
		attribute.Bool("xml", s.cfg.Output.GenerateXML),
		attribute.String("matching", s.cfg.Matching.Strategy),
	)
	defer span.End()

	summary, err := s.run(ctx, runID)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}
	return summary, nil
}

func (s *MergeService) run(ctx context.Context, runID string) (*Summary, error) {
	log := LogWithContext(ctx, s.logger)
	start := time.Now()

	log.WithFields(logrus.Fields{
		"input_dir":  s.cfg.InputDir,
		"output_dir": s.cfg.OutputDir,
	}).Info("Starting merge")

	if err := s.prepareOutput(); err != nil {
		return nil, err
	}

	pb, err := s.loadPhoneBook()
	if err != nil {
		return nil, err
	}

	entries, err := ingest.NewScanner(s.logger).Scan(ctx, s.cfg.InputDir)
	if err != nil {
		return nil, err
	}
	s.metrics.AddToCounter(metrics.EntriesScanned, float64(len(entries)), nil)

	canonicalize(pb, entries)

	kept, ignored := s.filterEntries(ctx, entries)

	groups := groupEntries(kept)
	log.WithFields(logrus.Fields{
		LogFieldEntries: len(kept),
		LogFieldCount:   len(groups),
	}).Info("Grouped entries into conversations")

	merger := entry.NewMerger(s.logger)
	opts := entry.SaveOptions{
		OutputDir:        s.cfg.OutputDir,
		UseLastTimestamp: s.cfg.Output.UseLastTimestamp,
	}

	conversations := make([]*conversation, 0, len(groups))
	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		c, err := s.mergeGroup(ctx, merger, g, opts)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, c)
	}
	s.metrics.AddToCounter(metrics.GroupConversations, float64(merger.GroupConversations()), nil)

	summary := &Summary{
		RunID:              runID,
		GroupConversations: merger.GroupConversations(),
		Ignored:            ignored,
	}

	if s.cfg.Output.GenerateXML {
		n, err := s.exportXML(ctx, pb, conversations)
		if err != nil {
			return nil, err
		}
		summary.Messages = n
	}

	summary.Conversations = s.indexRows(pb, conversations)
	if err := s.writeIndex(ctx, runID, summary.Conversations); err != nil {
		return nil, err
	}

	s.metrics.RecordTimer("run", time.Since(start))
	log.WithFields(s.metrics.Fields()).Info("Merge completed")

	return summary, nil
}

// prepareOutput makes sure the output directory exists and is empty
func (s *MergeService) prepareOutput() error {
	info, err := os.Stat(s.cfg.InputDir)
	if err != nil {
		return errors.NewIOError("stat input directory", s.cfg.InputDir, err)
	}
	if !info.IsDir() {
		return errors.New(errors.ErrCodeInvalidInput, "input path is not a directory").
			WithContext("path", s.cfg.InputDir)
	}

	if !outsideOf(s.cfg.OutputDir, s.cfg.InputDir) {
		return errors.NewConfigError("output_dir", "output directory must not contain the input directory")
	}

	existing, err := os.ReadDir(s.cfg.OutputDir)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return errors.NewIOError(operationPrepareOutput, s.cfg.OutputDir, err)
	case len(existing) > 0 && !s.cfg.Force:
		return errors.New(errors.ErrCodeInvalidInput, "output directory is not empty, use force to overwrite it").
			WithContext("path", s.cfg.OutputDir)
	case len(existing) > 0:
		s.logger.WithField(LogFieldFilePath, s.cfg.OutputDir).Warn("Overwriting output directory")
		if err := os.RemoveAll(s.cfg.OutputDir); err != nil {
			return errors.NewIOError(operationPrepareOutput, s.cfg.OutputDir, err)
		}
	}

	if err := os.MkdirAll(s.cfg.OutputDir, 0750); err != nil {
		return errors.NewIOError(operationPrepareOutput, s.cfg.OutputDir, err)
	}
	return nil
}

// outsideOf reports whether dir lies outside of root. Paths that cannot be
// resolved count as inside.
func outsideOf(root, dir string) bool {
	root, err := resolvePath(root)
	if err != nil {
		return false
	}
	dir, err = resolvePath(dir)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return false
	}
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// resolvePath makes path absolute and resolves symlinks of its longest
// existing prefix
func resolvePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	var missing []string
	for existing := abs; ; existing = filepath.Dir(existing) {
		resolved, err := filepath.EvalSymlinks(existing)
		if err == nil {
			return filepath.Join(append([]string{resolved}, missing...)...), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return abs, nil
		}
		missing = append([]string{filepath.Base(existing)}, missing...)
	}
}

func (s *MergeService) loadPhoneBook() (*phonebook.PhoneBook, error) {
	var contacts []phonebook.Contact
	if s.cfg.ContactsPath != "" {
		var err error
		contacts, err = phonebook.LoadVCF(s.cfg.ContactsPath)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeIO, "failed to load contacts").
				WithContext(LogFieldOperation, operationLoadContacts)
		}
	}

	pb := phonebook.New(s.cfg.Matching, contacts)
	s.logger.WithFields(logrus.Fields{
		"strategy": pb.Strategy().String(),
		"contacts": pb.Len(),
	}).Info("Loaded phone book")
	return pb, nil
}

// canonicalize rewrites every participant set onto canonical numbers. All
// numbers are observed first so the result does not depend on entry order.
func canonicalize(pb *phonebook.PhoneBook, entries []*entry.Entry) {
	for _, e := range entries {
		pb.Observe(e.PhoneNumbers...)
	}
	for _, e := range entries {
		e.SetPhoneNumbers(pb.CanonicalSet(e.PhoneNumbers))
	}
}

type group struct {
	key     string
	first   time.Time
	entries []*entry.Entry
}

// groupEntries buckets entries by participant set. Every group conversation
// thread is its own bucket.
func groupEntries(entries []*entry.Entry) []*group {
	byKey := make(map[string]*group)
	for _, e := range entries {
		key := strings.Join(e.PhoneNumbers, ",")
		if e.IsGroupConversation() {
			key = constants.GroupConversationPrefix + ":" + e.Thread
		}

		g, ok := byKey[key]
		if !ok {
			g = &group{key: key, first: e.Timestamp}
			byKey[key] = g
		}
		if e.Timestamp.Before(g.first) {
			g.first = e.Timestamp
		}
		g.entries = append(g.entries, e)
	}

	groups := make([]*group, 0, len(byKey))
	for _, g := range byKey {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if !groups[i].first.Equal(groups[j].first) {
			return groups[i].first.Before(groups[j].first)
		}
		return groups[i].key < groups[j].key
	})
	return groups
}

func (s *MergeService) mergeGroup(ctx context.Context, merger *entry.Merger, g *group, opts entry.SaveOptions) (*conversation, error) {
	ctx, span := tracing.StartSpan(ctx, "merge.conversation", attribute.Int("entries", len(g.entries)))
	defer span.End()

	start := time.Now()
	merged, err := merger.Merge(g.entries, opts)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}
	s.metrics.RecordTimer(operationMergeConv, time.Since(start))
	s.metrics.IncrementCounter(metrics.ConversationsMerged, nil)

	for _, e := range g.entries {
		if e.IsMedia() {
			s.metrics.IncrementCounter(metrics.MediaCopied, nil)
		}
	}

	dir := filepath.Dir(merged.SavedPath)
	LogWithContext(ctx, s.logger).WithFields(logrus.Fields{
		LogFieldConversation: s.masker.Key(filepath.Base(dir)),
		LogFieldEntries:      len(g.entries),
	}).Debug("Merged conversation")

	return &conversation{merged: merged, entries: len(g.entries), dir: dir}, nil
}

func (s *MergeService) indexRows(pb *phonebook.PhoneBook, conversations []*conversation) []index.Row {
	rows := make([]index.Row, 0, len(conversations))
	for _, c := range conversations {
		var names []string
		for _, number := range c.merged.PhoneNumbers {
			if name, ok := pb.DisplayName(number); ok {
				names = append(names, name)
			}
		}

		path, err := filepath.Rel(s.cfg.OutputDir, c.merged.SavedPath)
		if err != nil {
			path = c.merged.SavedPath
		}

		rows = append(rows, index.Row{
			Directory:    filepath.Base(c.dir),
			PhoneNumbers: c.merged.PhoneNumbers,
			Names:        names,
			First:        c.merged.Timestamp,
			Last:         c.merged.LastTimestamp,
			Entries:      c.entries,
			Path:         filepath.ToSlash(path),
		})
	}
	return rows
}

func (s *MergeService) writeIndex(ctx context.Context, runID string, rows []index.Row) error {
	if s.cfg.Output.GenerateCSV {
		path := filepath.Join(s.cfg.OutputDir, constants.CSVIndexFileName)
		if err := index.WriteCSV(path, rows); err != nil {
			return err
		}
		s.logger.WithField(LogFieldFilePath, path).Info("Wrote CSV index")
	}

	if s.cfg.Output.IndexDB == "" {
		return nil
	}

	ctx, span := tracing.StartSpan(ctx, "merge.index", attribute.Int("rows", len(rows)))
	defer span.End()

	path := s.cfg.Output.IndexDB
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.cfg.OutputDir, path)
	}

	store, err := s.openIndex(path)
	if err != nil {
		return errors.Wrap(err, errors.GetCode(err), "failed to open index database").
			WithContext(LogFieldOperation, operationWriteIndex)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			errors.WrapLogger(s.logger).LogWarn(closeErr, "Failed to close index database",
				logrus.Fields{LogFieldFilePath: path})
		}
	}()

	if err := store.SaveConversations(ctx, runID, rows); err != nil {
		tracing.RecordError(ctx, err)
		return err
	}
	s.logger.WithField(LogFieldFilePath, path).Info("Wrote index database")
	return nil
}
