package entry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	alice = "+15551234567"
	owner = "+15550000000"
)

var baseTime = time.Date(2020, 5, 1, 19, 4, 48, 0, time.UTC)

// textHTML renders an export text conversation with one incoming message
// carrying the given body and one outgoing reply; extra markup is added to
// the incoming message.
func textHTML(body string, extra ...string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html><head><title>Alice</title></head>
<body>
<div class="hChatLog hfeed">
<div class="message"><abbr class="dt" title="2020-05-01T15:04:48.000-04:00">May 1</abbr>:
<cite class="sender vcard"><a class="tel" href="tel:%s"><span class="fn">Alice</span></a></cite>:
<q>%s</q>
%s
</div>
<div class="message"><abbr class="dt" title="2020-05-01T15:05:00.000-04:00">May 1</abbr>:
<cite class="sender vcard"><a class="tel" href="tel:%s"><abbr class="fn" title="">Me</abbr></a></cite>:
<q>Reply to %s</q>
</div>
</div>
<div class="tags">Labels: <a rel="tag" href="http://www.google.com/voice#sms">Text</a></div>
<div class="deletedStatusContainer">Deleted</div>
</body></html>`, alice, body, strings.Join(extra, "\n"), owner, body)
}

func voicemailHTML() string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html><head><title>Voicemail</title></head>
<body>
<div class="haudio">
<span class="fn">Voicemail from</span>
<div class="contributor vcard"><a class="tel" href="tel:%s"><span class="fn">Alice</span></a></div>
<abbr class="published" title="2020-05-02T10:00:00.000-04:00">May 2</abbr>
<abbr class="duration" title="PT12S">(00:00:12)</abbr>
<span class="full-text">Call me back</span>
</div>
</body></html>`, alice)
}

func groupHTML(body string, numbers ...string) string {
	var participants []string
	for _, n := range numbers {
		participants = append(participants,
			fmt.Sprintf(`<cite class="sender vcard"><a class="tel" href="tel:%s"><span class="fn"></span></a></cite>`, n))
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html><head><title>Group Conversation</title></head>
<body>
<div class="participants">Group conversation with: %s</div>
<div class="hChatLog hfeed">
<div class="message"><abbr class="dt" title="2020-05-01T15:04:48.000-04:00">May 1</abbr>:
<cite class="sender vcard"><a class="tel" href="tel:%s"><span class="fn">Alice</span></a></cite>:
<q>%s</q>
</div>
</div>
</body></html>`, strings.Join(participants, ", "), numbers[0], body)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newHTML(t *testing.T, dir, name string, action Action, ts time.Time, content string, numbers ...string) *Entry {
	t.Helper()
	e, err := LoadHTMLEntry(Meta{
		Action:       action,
		Name:         name,
		PhoneNumbers: numbers,
		Timestamp:    ts,
		FullPath:     writeFile(t, dir, name, content),
	})
	require.NoError(t, err)
	return e
}

func newMedia(t *testing.T, dir, name string, action Action, ts time.Time, thread string, numbers ...string) *Entry {
	t.Helper()
	format, ok := FormatFromExt(filepath.Ext(name))
	require.True(t, ok)
	e, err := NewMediaEntry(Meta{
		Action:       action,
		Format:       format,
		Name:         name,
		PhoneNumbers: numbers,
		Timestamp:    ts,
		FullPath:     writeFile(t, dir, name, "payload:"+name),
		Thread:       thread,
	})
	require.NoError(t, err)
	return e
}

func readOutput(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
