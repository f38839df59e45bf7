package entry

import (
	"strings"
	"testing"
	"time"

	"takeoutmerge/internal/errors"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, content string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	require.NoError(t, err)
	return doc
}

func TestNewHTMLEntry_Normalizes(t *testing.T) {
	e, err := NewHTMLEntry(Meta{
		Action:       ActionText,
		Name:         "Alice - Text - 2020-05-01T19_04_48Z.html",
		PhoneNumbers: []string{alice},
		Timestamp:    baseTime,
	}, parse(t, textHTML("hello")))
	require.NoError(t, err)

	assert.Equal(t, KindHTML, e.Kind)
	assert.Equal(t, FormatHTML, e.Format)
	assert.Equal(t, 0, e.doc.Find(".tags").Length())
	assert.Equal(t, 0, e.doc.Find(".deletedStatusContainer").Length())
	assert.Equal(t, []string{owner}, e.Owners())

	var labels []string
	e.doc.Find("a.tel .fn").Each(func(_ int, s *goquery.Selection) {
		labels = append(labels, s.Text())
	})
	assert.Equal(t, []string{"Alice", owner}, labels)
}

func TestNewHTMLEntry_BlankLabelBecomesNumber(t *testing.T) {
	e, err := NewHTMLEntry(Meta{
		Action:    ActionGroupConversation,
		Name:      "Group Conversation - 2020-05-01T19_04_48Z.html",
		Timestamp: baseTime,
	}, parse(t, groupHTML("hi all", alice, "+15557654321")))
	require.NoError(t, err)

	text := e.doc.Find(".participants").Text()
	assert.Contains(t, text, alice)
	assert.Contains(t, text, "+15557654321")
	assert.Empty(t, e.Owners())
}

func TestNewHTMLEntry_Errors(t *testing.T) {
	tests := []struct {
		name     string
		meta     Meta
		content  string
		expected errors.ErrorCode
	}{
		{
			name:     "missing phone numbers",
			meta:     Meta{Action: ActionText, Name: "x.html"},
			content:  textHTML("hi"),
			expected: errors.ErrCodeInvalidInput,
		},
		{
			name:     "sender without label",
			meta:     Meta{Action: ActionText, Name: "x.html", PhoneNumbers: []string{alice}},
			content:  `<html><body><cite><a class="tel" href="tel:+1555"></a></cite></body></html>`,
			expected: errors.ErrCodeStructuralParse,
		},
		{
			name:     "blank label without number",
			meta:     Meta{Action: ActionText, Name: "x.html", PhoneNumbers: []string{alice}},
			content:  `<html><body><cite><a class="tel" href="#"><span class="fn"></span></a></cite></body></html>`,
			expected: errors.ErrCodeStructuralParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewHTMLEntry(tt.meta, parse(t, tt.content))
			require.Error(t, err)
			assert.Equal(t, tt.expected, errors.GetCode(err))
		})
	}
}

func TestContactNumbers(t *testing.T) {
	numbers := ContactNumbers(parse(t, textHTML("hi")))
	assert.Equal(t, []string{alice}, numbers)
}

func TestGroupParticipants(t *testing.T) {
	numbers, err := GroupParticipants(parse(t, groupHTML("hi", "+15557654321", alice)))
	require.NoError(t, err)
	assert.Equal(t, []string{alice, "+15557654321"}, numbers)

	_, err = GroupParticipants(parse(t, textHTML("hi")))
	assert.Equal(t, errors.ErrCodeStructuralParse, errors.GetCode(err))
}

func TestFold_HTMLAppendsBodyAndStyleOnce(t *testing.T) {
	dir := t.TempDir()
	base := newHTML(t, dir, "a.html", ActionText, baseTime, textHTML("first"), alice)
	second := newHTML(t, dir, "b.html", ActionText, baseTime.Add(time.Hour), textHTML("second"), alice)
	third := newHTML(t, dir, "c.html", ActionText, baseTime.Add(2*time.Hour), textHTML("third"), alice)

	require.NoError(t, base.Fold(second))
	require.NoError(t, base.Fold(third))

	assert.Equal(t, 1, base.doc.Find("style#"+styleID).Length())
	assert.Equal(t, 2, base.doc.Find("body hr").Length())
	assert.Equal(t, 3, base.doc.Find(".hChatLog").Length())
	assert.Equal(t, baseTime.Add(2*time.Hour), base.LastTimestamp)
	assert.Nil(t, second.doc)

	quotes := base.doc.Find("q").Map(func(_ int, s *goquery.Selection) string { return s.Text() })
	assert.Equal(t, []string{"first", "Reply to first", "second", "Reply to second", "third", "Reply to third"}, quotes)
}

func TestFold_Media(t *testing.T) {
	const stem = "Alice - Text - 2020-05-01T19_04_48Z-1-1"

	tests := []struct {
		name        string
		placeholder string
		mediaName   string
		selector    string
		attr        string
	}{
		{"jpg", `<img src="` + stem + `" alt="Image MMS Attachment"/>`, stem + ".jpg", "img", "src"},
		{"gif", `<img src="` + stem + `" alt="Image MMS Attachment"/>`, stem + ".gif", "img", "src"},
		{"mp3", `<audio src="` + stem + `.mp3"></audio>`, stem + ".mp3", "audio", "src"},
		{"amr", `<audio src="` + stem + `"></audio>`, stem + ".amr", "audio", "src"},
		{"mp4", `<a class="video" href="` + stem + `">Video</a>`, stem + ".mp4", "video", "src"},
		{"3gp", `<a class="video" href="` + stem + `">Video</a>`, stem + ".3gp", "video", "src"},
		{"vcf", `<a class="vcard" href="` + stem + `">Contact card</a>`, stem + ".vcf", "a.vcard", "href"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, out := t.TempDir(), t.TempDir()
			base := newHTML(t, in, "Alice - Text - 2020-05-01T19_04_48Z.html", ActionText, baseTime, textHTML("look", tt.placeholder), alice)
			media := newMedia(t, in, tt.mediaName, ActionText, baseTime, "", alice)

			require.NoError(t, media.Persist(SaveOptions{OutputDir: out}))
			require.NoError(t, base.Fold(media))

			ref, ok := base.doc.Find(tt.selector).First().Attr(tt.attr)
			require.True(t, ok)
			assert.Equal(t, "media/"+tt.mediaName, ref)

			// The placeholder is gone
			_, err := base.findUnique(tt.selector, tt.attr, stem)
			assert.Error(t, err)
		})
	}
}

func TestFold_MediaErrors(t *testing.T) {
	const stem = "photo"

	t.Run("not persisted", func(t *testing.T) {
		in := t.TempDir()
		base := newHTML(t, in, "a.html", ActionText, baseTime, textHTML("look", `<img src="photo"/>`), alice)
		media := newMedia(t, in, "photo.jpg", ActionText, baseTime, "", alice)

		err := base.Fold(media)
		assert.Equal(t, errors.ErrCodeOrderingViolation, errors.GetCode(err))
	})

	t.Run("missing placeholder", func(t *testing.T) {
		in, out := t.TempDir(), t.TempDir()
		base := newHTML(t, in, "a.html", ActionText, baseTime, textHTML("look"), alice)
		media := newMedia(t, in, stem+".jpg", ActionText, baseTime, "", alice)
		require.NoError(t, media.Persist(SaveOptions{OutputDir: out}))

		err := base.Fold(media)
		assert.Equal(t, errors.ErrCodeStructuralParse, errors.GetCode(err))
	})

	t.Run("duplicate placeholder", func(t *testing.T) {
		in, out := t.TempDir(), t.TempDir()
		base := newHTML(t, in, "a.html", ActionText, baseTime, textHTML("look", `<img src="photo"/>`, `<img src="photo"/>`), alice)
		media := newMedia(t, in, stem+".jpg", ActionText, baseTime, "", alice)
		require.NoError(t, media.Persist(SaveOptions{OutputDir: out}))

		err := base.Fold(media)
		assert.Equal(t, errors.ErrCodeStructuralParse, errors.GetCode(err))
	})
}

func TestFold_VoicemailKeepsDuration(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	const first = "Alice - Voicemail - 2020-05-02T14_00_00Z"
	const second = "Alice - Voicemail - 2020-05-03T14_00_00Z"

	base := newHTML(t, in, first+".html", ActionVoicemail, baseTime, voicemailHTML(), alice)
	peer := newHTML(t, in, second+".html", ActionVoicemail, baseTime.Add(24*time.Hour), voicemailHTML(), alice)
	require.NoError(t, base.Fold(peer))

	recording := newMedia(t, in, second+".mp3", ActionVoicemail, baseTime.Add(24*time.Hour), "", alice)
	require.NoError(t, recording.Persist(SaveOptions{OutputDir: out}))
	require.NoError(t, base.Fold(recording))

	durations := base.doc.Find("abbr.duration")
	require.Equal(t, 2, durations.Length())

	// Only the second voicemail received the recording
	assert.Equal(t, 0, durations.Eq(0).PrevFiltered("audio").Length())
	audio := durations.Eq(1).Prev()
	assert.True(t, audio.Is("audio"))
	src, _ := audio.Attr("src")
	assert.Equal(t, "media/"+second+".mp3", src)
}

func TestPersistHTML(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	e := newHTML(t, in, "a.html", ActionText, baseTime, textHTML("hi"), alice)
	e.LastTimestamp = baseTime.Add(time.Hour)

	require.NoError(t, e.Persist(SaveOptions{OutputDir: out}))
	assert.Equal(t, out+"/"+alice+"/"+alice+" - 2020-05-01T19_04_48Z.html", e.SavedPath)
	assert.Contains(t, readOutput(t, e.SavedPath), "Reply to hi")

	require.NoError(t, e.Persist(SaveOptions{OutputDir: out, UseLastTimestamp: true}))
	assert.Equal(t, out+"/"+alice+"/"+alice+" - 2020-05-01T20_04_48Z.html", e.SavedPath)
}

func TestPersistMedia(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	media := newMedia(t, in, "photo.jpg", ActionText, baseTime, "", alice)

	require.NoError(t, media.Persist(SaveOptions{OutputDir: out}))
	assert.Equal(t, "media/photo.jpg", media.RelativePath)
	assert.Equal(t, "payload:photo.jpg", readOutput(t, media.SavedPath))
}

func TestMessages(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	base := newHTML(t, in, "a.html", ActionText, baseTime, textHTML("look", `<img src="photo"/>`), alice)
	media := newMedia(t, in, "photo.jpg", ActionText, baseTime, "", alice)
	require.NoError(t, media.Persist(SaveOptions{OutputDir: out}))
	require.NoError(t, base.Fold(media))

	messages, err := base.Messages()
	require.NoError(t, err)
	require.Len(t, messages, 2)

	assert.Equal(t, alice, messages[0].Sender)
	assert.Equal(t, "look", messages[0].Text)
	assert.Equal(t, []string{"media/photo.jpg"}, messages[0].Attachments)
	assert.True(t, messages[0].Time.Equal(baseTime))

	assert.Equal(t, owner, messages[1].Sender)
	assert.Equal(t, "Reply to look", messages[1].Text)
	assert.Empty(t, messages[1].Attachments)
}
