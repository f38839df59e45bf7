package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"takeoutmerge/internal/index"
	"takeoutmerge/internal/metrics"
	"takeoutmerge/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	alice = "+15551234567"
	bob   = "+15557654321"
	carol = "+15559999999"
	me    = "+15550000000"
)

type mockIndexStore struct {
	mock.Mock
}

func (m *mockIndexStore) SaveConversations(ctx context.Context, runID string, rows []index.Row) error {
	args := m.Called(ctx, runID, rows)
	return args.Error(0)
}

func (m *mockIndexStore) Close() error {
	return m.Called().Error(0)
}

type chatLine struct {
	time   string
	sender string
	label  string
	text   string
	extra  string
}

func chatHTML(lines ...chatLine) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><head><title>Conversation</title></head><body><div class="hChatLog hfeed">`)
	for _, m := range lines {
		label := fmt.Sprintf(`<span class="fn">%s</span>`, m.label)
		if m.label == "Me" {
			label = `<abbr class="fn" title="">Me</abbr>`
		}
		fmt.Fprintf(&b, `<div class="message"><abbr class="dt" title="%s">x</abbr>:
<cite class="sender vcard"><a class="tel" href="tel:%s">%s</a></cite>:
<q>%s</q>%s</div>`, m.time, m.sender, label, m.text, m.extra)
	}
	b.WriteString(`</div><div class="tags">Labels: Text</div></body></html>`)
	return b.String()
}

func groupChatHTML(text string, participants ...string) string {
	var header strings.Builder
	for _, p := range participants {
		fmt.Fprintf(&header, `<cite class="sender vcard"><a class="tel" href="tel:%s"><span class="fn"></span></a></cite>`, p)
	}
	return fmt.Sprintf(`<!DOCTYPE html><html><head></head><body>
<div class="participants">Group conversation with: %s</div>
<div class="hChatLog hfeed"><div class="message"><abbr class="dt" title="2020-06-01T12:00:00.000Z">x</abbr>:
<cite class="sender vcard"><a class="tel" href="tel:%s"><span class="fn">Bob</span></a></cite>:
<q>%s</q></div></div></body></html>`, header.String(), participants[0], text)
}

func callHTML(number, kind string) string {
	return fmt.Sprintf(`<!DOCTYPE html><html><head></head><body><div class="haudio">
<span class="fn">%s</span>
<div class="contributor vcard"><a class="tel" href="tel:%s"><span class="fn">Caller</span></a></div>
<abbr class="published" title="2020-05-03T12:00:00.000Z">x</abbr>
<abbr class="duration" title="PT5S">(00:00:05)</abbr>
</div></body></html>`, kind, number)
}

// writeExport lays out a small export:
//   - two text threads with Alice, spelled with and without country code,
//     one with a photo
//   - a missed call from Alice
//   - a voicemail (with recording) from Carol, who never texted
//   - two group threads with Bob and Alice
func writeExport(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeExportTo(t, dir)
	return dir
}

func writeExportTo(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0750))

	files := map[string]string{
		alice + " - Text - 2020-05-01T19_04_48Z.html": chatHTML(
			chatLine{"2020-05-01T19:04:48.000Z", alice, "Alice", "Look at this", `<img src="` + alice + ` - Text - 2020-05-01T19_04_48Z-1-1" alt="Image MMS Attachment"/>`},
			chatLine{"2020-05-01T19:05:00.000Z", me, "Me", "Nice", ""},
		),
		alice + " - Text - 2020-05-01T19_04_48Z-1-1.jpg": "jpeg-bytes",
		"5551234567 - Text - 2020-05-02T19_04_48Z.html": chatHTML(
			chatLine{"2020-05-02T19:04:48.000Z", "5551234567", "Alice", "Again", ""},
			chatLine{"2020-05-02T19:05:00.000Z", me, "Me", "It's me", ""},
		),
		alice + " - Missed - 2020-05-03T12_00_00Z.html":    callHTML(alice, "Missed call from"),
		carol + " - Voicemail - 2020-05-04T12_00_00Z.html": callHTML(carol, "Voicemail from"),
		carol + " - Voicemail - 2020-05-04T12_00_00Z.mp3":  "mp3-bytes",
		"Group Conversation - 2020-06-01T12_00_00Z.html":   groupChatHTML("first group", bob, alice),
		"Group Conversation - 2020-06-02T12_00_00Z.html":   groupChatHTML("second group", bob, alice),
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
}

func testConfig(t *testing.T, input string) *models.Config {
	t.Helper()
	return &models.Config{
		InputDir:  input,
		OutputDir: filepath.Join(t.TempDir(), "out"),
		Matching:  models.MatchingConfig{Strategy: models.MatchSuffix, SuffixLength: 10},
	}
}

func newTestService(cfg *models.Config) (*MergeService, *test.Hook, *metrics.Registry) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	registry := metrics.NewRegistry()
	return NewMergeService(cfg, logger, registry), hook, registry
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
