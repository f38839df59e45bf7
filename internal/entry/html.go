package entry

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"takeoutmerge/internal/constants"
	"takeoutmerge/internal/errors"
	"takeoutmerge/internal/security"

	"github.com/PuerkitoBio/goquery"
)

const threadAttr = "data-thread"

// ParseHTMLFile loads an export HTML file into a document tree
func ParseHTMLFile(path string) (*goquery.Document, error) {
	if err := security.ValidateFilePath(path); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid entry path")
	}

	f, err := os.Open(path) // #nosec G304 - Path validated by security.ValidateFilePath above
	if err != nil {
		return nil, errors.NewIOError("open entry", path, err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStructuralParse, "unable to parse entry HTML").
			WithContext("entry", filepath.Base(path))
	}
	return doc, nil
}

// NewHTMLEntry creates a conversation entry from an already parsed document
// and normalizes it: decoration containers are dropped and blank or "Me"
// sender labels are replaced by the sender's number.
func NewHTMLEntry(meta Meta, doc *goquery.Document) (*Entry, error) {
	if doc == nil {
		return nil, errors.NewStructuralError(meta.Name, "missing document")
	}
	if meta.Action != ActionGroupConversation && len(meta.PhoneNumbers) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "unexpected empty phone numbers").
			WithContext("entry", meta.Name)
	}

	meta.Format = FormatHTML
	e := newEntry(KindHTML, meta)
	e.doc = doc

	if err := e.normalize(); err != nil {
		return nil, err
	}
	return e, nil
}

// LoadHTMLEntry parses path and creates a conversation entry from it
func LoadHTMLEntry(meta Meta) (*Entry, error) {
	doc, err := ParseHTMLFile(meta.FullPath)
	if err != nil {
		return nil, err
	}
	return NewHTMLEntry(meta, doc)
}

// ContactNumbers returns the numbers of every non-owner sender or contributor
// linked from the document
func ContactNumbers(doc *goquery.Document) []string {
	seen := make(map[string]bool)
	var numbers []string
	doc.Find("a.tel").Each(func(_ int, tel *goquery.Selection) {
		label := strings.TrimSpace(tel.Find(".fn").First().Text())
		if label == constants.SelfLabel {
			return
		}
		number := telNumber(tel)
		if number == "" || seen[number] {
			return
		}
		seen[number] = true
		numbers = append(numbers, number)
	})
	sort.Strings(numbers)
	return numbers
}

// GroupParticipants returns the numbers listed in a group conversation header
func GroupParticipants(doc *goquery.Document) ([]string, error) {
	senders := doc.Find(".participants .sender.vcard a")
	if senders.Length() == 0 {
		return nil, errors.New(errors.ErrCodeStructuralParse, "unable to find any senders in the entry")
	}

	var numbers []string
	senders.Each(func(_ int, a *goquery.Selection) {
		if number := telNumber(a); number != "" {
			numbers = append(numbers, number)
		}
	})
	if len(numbers) == 0 {
		return nil, errors.New(errors.ErrCodeStructuralParse,
			"unable to parse phone numbers from the senders in the entry")
	}
	sort.Strings(numbers)
	return numbers, nil
}

func telNumber(s *goquery.Selection) string {
	href, _ := s.Attr("href")
	_, number, found := strings.Cut(href, "tel:")
	if !found {
		return ""
	}
	return strings.TrimSpace(number)
}

func (e *Entry) normalize() error {
	e.doc.Find(".tags").Remove()
	e.doc.Find(".deletedStatusContainer").Remove()

	// Tag duration indicators so a voicemail recording can find its own
	// indicator after several voicemails were merged into one document
	e.doc.Find("abbr.duration").SetAttr(threadAttr, e.Thread)

	var err error
	owners := make(map[string]bool)
	e.doc.Find("a.tel").EachWithBreak(func(_ int, tel *goquery.Selection) bool {
		label := tel.Find("span.fn")
		if label.Length() == 0 {
			label = tel.Find("abbr.fn")
		}
		if label.Length() == 0 {
			err = errors.NewStructuralError(e.Name, "unable to parse sender entry")
			return false
		}
		label = label.First()

		text := strings.TrimSpace(label.Text())
		if text != "" && text != constants.SelfLabel {
			return true
		}

		number := telNumber(tel)
		if number == "" {
			err = errors.NewStructuralError(e.Name, "unable to retrieve the phone number from the sender entry")
			return false
		}
		if text == constants.SelfLabel {
			owners[number] = true
		}
		label.ReplaceWithHtml(fmt.Sprintf(`<span class="fn">%s</span>`, html.EscapeString(number)))
		return true
	})
	if err != nil {
		return err
	}

	for number := range owners {
		e.owners = append(e.owners, number)
	}
	sort.Strings(e.owners)
	return nil
}

func (e *Entry) body() (*goquery.Selection, error) {
	if e.doc == nil {
		return nil, errors.Newf(errors.ErrCodeInternalError, "entry %s has no document", e.Name)
	}
	body := e.doc.Find("body").First()
	if body.Length() == 0 {
		return nil, errors.NewStructuralError(e.Name, fmt.Sprintf("unable to get the body of entry=%s", e.Name))
	}
	return body, nil
}

func (e *Entry) foldInto(peer *Entry) error {
	if peer.IsMedia() {
		return e.foldMedia(peer)
	}
	return e.foldHTML(peer)
}

func (e *Entry) foldHTML(peer *Entry) error {
	body, err := e.body()
	if err != nil {
		return err
	}
	peerBody, err := peer.body()
	if err != nil {
		return err
	}

	e.ensureStyle()

	content, err := peerBody.Html()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStructuralParse, "unable to render peer body").
			WithContext("entry", peer.Name)
	}

	body.AppendHtml("<hr/>")
	body.AppendHtml(content)

	e.owners = mergeSorted(e.owners, peer.owners)

	// The peer is consumed
	peer.doc = nil
	return nil
}

// ensureStyle installs the shared style block exactly once
func (e *Entry) ensureStyle() {
	if e.doc.Find("style#" + styleID).Length() > 0 {
		return
	}
	if head := e.doc.Find("head").First(); head.Length() > 0 {
		head.AppendHtml(Style)
		return
	}
	e.doc.Find("body").First().BeforeHtml(Style)
}

func (e *Entry) foldMedia(media *Entry) error {
	if media.SavedPath == "" || media.RelativePath == "" {
		return errors.NewOrderingError(media.Name)
	}

	stem := Stem(media.Name)
	path := media.RelativePath

	switch media.Format {
	case FormatJPG, FormatGIF:
		return e.replacePlaceholder("img", "src", stem, imageElement(path), "image")

	case FormatMP3:
		if media.IsVoicemail() {
			duration, err := e.findUnique(fmt.Sprintf("abbr.duration[%s]", threadAttr), threadAttr, media.Thread)
			if err != nil {
				return errors.NewStructuralError(e.Name,
					fmt.Sprintf("unable to find the duration element for %q: %v", media.Name, err))
			}
			duration.BeforeHtml(audioElement(path))
			return nil
		}
		return e.replacePlaceholder("audio", "src", stem+".mp3", audioElement(path), "audio")

	case FormatAMR:
		return e.replacePlaceholder("audio", "src", stem, audioElement(path), "audio")

	case FormatMP4, FormatThreeGP:
		return e.replacePlaceholder("a.video", "href", stem, videoElement(path), "video")

	case FormatVCF:
		return e.replacePlaceholder("a.vcard", "href", stem, vcardElement(path), "vcard")

	default:
		return errors.NewStructuralError(e.Name, fmt.Sprintf("unknown media format: %s", media.Format))
	}
}

func (e *Entry) replacePlaceholder(selector, attr, value, replacement, kind string) error {
	placeholder, err := e.findUnique(selector, attr, value)
	if err != nil {
		return errors.NewStructuralError(e.Name,
			fmt.Sprintf("unable to find %s element for %q: %v", kind, value, err)).
			WithContext("placeholder", value)
	}
	placeholder.ReplaceWithHtml(replacement)
	return nil
}

// findUnique returns the single element matching selector whose attr equals value
func (e *Entry) findUnique(selector, attr, value string) (*goquery.Selection, error) {
	matches := e.doc.Find(selector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		v, ok := s.Attr(attr)
		return ok && v == value
	})
	switch n := matches.Length(); n {
	case 1:
		return matches, nil
	case 0:
		return nil, fmt.Errorf("no match")
	default:
		return nil, fmt.Errorf("%d matches", n)
	}
}

func (e *Entry) persistHTML(opts SaveOptions) error {
	if e.doc == nil {
		return errors.Newf(errors.ErrCodeInternalError, "entry %s has no document", e.Name)
	}

	dir := opts.Directory(e)
	if err := security.ValidateFileName(dir); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid conversation directory")
	}

	ts := e.Timestamp
	if opts.UseLastTimestamp {
		ts = e.LastTimestamp
	}
	fileName := fmt.Sprintf("%s%s%s.html", dir, constants.NameSeparator, ts.UTC().Format(constants.OutputTimestampLayout))

	outputDir := filepath.Join(opts.OutputDir, dir)
	outputPath := filepath.Join(outputDir, fileName)

	content, err := e.doc.Html()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStructuralParse, "unable to render entry").
			WithContext("entry", e.Name)
	}

	if err := os.MkdirAll(outputDir, 0750); err != nil {
		return errors.NewIOError("create conversation directory", outputDir, err)
	}
	if err := os.WriteFile(outputPath, []byte(content), 0640); err != nil {
		return errors.NewIOError("write conversation", outputPath, err)
	}

	e.SavedPath = outputPath
	return nil
}

// Message is one chat line extracted from a merged conversation
type Message struct {
	Time        time.Time
	Sender      string
	Text        string
	Attachments []string
}

// Messages extracts every chat line of the document in document order.
// Attachment paths are relative to the conversation directory.
func (e *Entry) Messages() ([]Message, error) {
	if e.doc == nil {
		return nil, errors.Newf(errors.ErrCodeInternalError, "entry %s has no document", e.Name)
	}

	var messages []Message
	var err error
	e.doc.Find(".hChatLog .message").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		title, ok := s.Find("abbr.dt").First().Attr("title")
		if !ok {
			err = errors.NewStructuralError(e.Name, "message without timestamp")
			return false
		}
		ts, parseErr := time.Parse(time.RFC3339, strings.TrimSpace(title))
		if parseErr != nil {
			err = errors.Wrap(parseErr, errors.ErrCodeStructuralParse, "invalid message timestamp").
				WithContext("entry", e.Name)
			return false
		}

		sender := telNumber(s.Find("cite a.tel").First())
		if sender == "" {
			err = errors.NewStructuralError(e.Name, "message without sender")
			return false
		}

		msg := Message{
			Time:   ts,
			Sender: sender,
			Text:   strings.TrimSpace(s.Find("q").First().Text()),
		}
		s.Find("img[src], audio[src], video[src], a.vcard[href]").Each(func(_ int, a *goquery.Selection) {
			ref, ok := a.Attr("src")
			if !ok {
				ref, _ = a.Attr("href")
			}
			if strings.HasPrefix(ref, constants.MediaDirName+"/") {
				msg.Attachments = append(msg.Attachments, ref)
			}
		})
		messages = append(messages, msg)
		return true
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func imageElement(path string) string {
	return fmt.Sprintf(`<img src="%s" alt="Image MMS Attachment" width="50%%"/>`, html.EscapeString(path))
}

func audioElement(path string) string {
	p := html.EscapeString(path)
	return fmt.Sprintf(`<audio controls="controls" src="%s"><a rel="enclosure" href="%s">Audio</a></audio>`, p, p)
}

func videoElement(path string) string {
	p := html.EscapeString(path)
	return fmt.Sprintf(`<video controls="controls" src="%s" width="50%%"><a rel="enclosure" href="%s">Video</a></video>`, p, p)
}

func vcardElement(path string) string {
	return fmt.Sprintf(`<a class="vcard" href="%s">Contact card attachment</a>`, html.EscapeString(path))
}

func mergeSorted(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, s := range append(append([]string(nil), a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
