package service

import (
	"context"
	"strings"

	"takeoutmerge/internal/entry"
	"takeoutmerge/internal/metrics"

	"github.com/sirupsen/logrus"
)

// filterEntries drops the record classes the configuration ignores. Orphans
// are call logs and voicemails whose participants have no text or group
// conversation; they are judged on canonical numbers.
func (s *MergeService) filterEntries(ctx context.Context, entries []*entry.Entry) ([]*entry.Entry, int) {
	ignore := s.cfg.Ignore

	conversations := make(map[string]bool)
	for _, e := range entries {
		if !e.IsCallLog() && !e.IsVoicemail() {
			conversations[strings.Join(e.PhoneNumbers, ",")] = true
		}
	}

	kept := make([]*entry.Entry, 0, len(entries))
	ignored := 0
	for _, e := range entries {
		orphan := !conversations[strings.Join(e.PhoneNumbers, ",")]

		var reason string
		switch {
		case ignore.CallLogs && e.IsCallLog():
			reason = ReasonCallLog
		case ignore.OrphanCallLogs && e.IsCallLog() && orphan:
			reason = ReasonOrphanCallLog
		case ignore.Voicemails && e.IsVoicemail():
			reason = ReasonVoicemail
		case ignore.OrphanVoicemails && e.IsVoicemail() && orphan:
			reason = ReasonOrphanVoicemail
		case ignore.Media && e.IsMedia():
			reason = ReasonMedia
		}

		if reason == "" {
			kept = append(kept, e)
			continue
		}

		ignored++
		s.metrics.IncrementCounter(metrics.EntriesIgnored, map[string]string{LogFieldReason: reason})
		LogWithContext(ctx, s.logger).WithFields(logrus.Fields{
			LogFieldEntry:  e.Name,
			LogFieldReason: reason,
		}).Debug("Ignoring entry")
	}
	return kept, ignored
}
