package service

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"takeoutmerge/internal/constants"
	"takeoutmerge/internal/errors"
	"takeoutmerge/internal/message"
	"takeoutmerge/internal/metrics"
	"takeoutmerge/internal/phonebook"
	"takeoutmerge/internal/security"
	"takeoutmerge/internal/tracing"
	"takeoutmerge/internal/validation"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// exportXML writes every chat line of the merged conversations into sms.xml
// and returns the number of records written
func (s *MergeService) exportXML(ctx context.Context, pb *phonebook.PhoneBook, conversations []*conversation) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "merge.xml", attribute.Int("conversations", len(conversations)))
	defer span.End()

	var doc message.Document
	for _, c := range conversations {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := s.addConversation(&doc, pb, c); err != nil {
			tracing.RecordError(ctx, err)
			return 0, errors.Wrap(err, errors.GetCode(err), "failed to export conversation").
				WithContext(LogFieldConversation, s.masker.Key(filepath.Base(c.dir))).
				WithContext(LogFieldOperation, operationExportXML)
		}
	}

	xmlPath := filepath.Join(s.cfg.OutputDir, constants.XMLFileName)
	if err := doc.WriteFile(xmlPath); err != nil {
		return 0, err
	}

	s.metrics.AddToCounter(metrics.MessagesExported, float64(doc.Len()), nil)
	LogWithContext(ctx, s.logger).WithFields(logrus.Fields{
		LogFieldFilePath: xmlPath,
		LogFieldCount:    doc.Len(),
	}).Info("Wrote XML export")

	return doc.Len(), nil
}

func (s *MergeService) addConversation(doc *message.Document, pb *phonebook.PhoneBook, c *conversation) error {
	chat, err := c.merged.Messages()
	if err != nil {
		return err
	}
	if len(chat) == 0 {
		return nil
	}

	numbers := c.merged.PhoneNumbers
	me, err := s.owner(pb, c)
	if err != nil {
		return err
	}
	isGroup := c.merged.IsGroupConversation() || len(numbers) > 1

	participants := make([]message.Participant, 0, len(numbers)+1)
	for _, number := range numbers {
		participants = append(participants, message.Participant{
			PhoneNumber: number,
			Name:        s.contactName(pb, number),
		})
	}
	if me != "" && !slices.Contains(numbers, me) {
		participants = append(participants, message.Participant{PhoneNumber: me})
	}

	for _, line := range chat {
		sender := pb.Canonical(validation.NormalizePhoneNumber(line.Sender))

		media, err := s.loadMedia(c.dir, line.Attachments)
		if err != nil {
			return err
		}

		params := message.Params{
			Type:                message.TypeReceived,
			Sender:              sender,
			Me:                  me,
			Participants:        participants,
			UnixTime:            line.Time.UnixMilli(),
			Text:                line.Text,
			Media:               media,
			IsGroupConversation: isGroup,
			Prepend:             s.cfg.XML.PrependPhoneNumbers,
			Append:              s.cfg.XML.AppendPhoneNumbers,
		}
		if message.IsSentByOwner(sender, me, participants) {
			params.Type = message.TypeSent
		}
		if !isGroup {
			params.Target = numbers[0]
			params.TargetName = s.contactName(pb, numbers[0])
		}

		msg, err := message.New(params)
		if err != nil {
			return err
		}
		if err := doc.Add(msg); err != nil {
			return err
		}
	}
	return nil
}

// owner returns the archive owner's number: the configured one, else the
// single number the conversation labelled "Me". Unknown owners are inferred
// per message from the participant list; several labelled numbers are an error.
func (s *MergeService) owner(pb *phonebook.PhoneBook, c *conversation) (string, error) {
	if s.cfg.XML.OwnerNumber != "" {
		return pb.Canonical(validation.NormalizePhoneNumber(s.cfg.XML.OwnerNumber)), nil
	}

	owners := pb.CanonicalSet(c.merged.Owners())
	switch len(owners) {
	case 0:
		return "", nil
	case 1:
		return owners[0], nil
	default:
		return "", errors.NewAmbiguousOwnerError(owners)
	}
}

func (s *MergeService) contactName(pb *phonebook.PhoneBook, number string) string {
	if !s.cfg.XML.AddContactNames {
		return ""
	}
	name, ok := pb.DisplayName(number)
	if !ok {
		return ""
	}
	if s.cfg.XML.ReplaceContactApostrophes != "" {
		name = strings.ReplaceAll(name, "'", s.cfg.XML.ReplaceContactApostrophes)
	}
	return name
}

// loadMedia reads the attachments of one chat line from the conversation directory
func (s *MergeService) loadMedia(dir string, attachments []string) ([]message.Media, error) {
	media := make([]message.Media, 0, len(attachments))
	for _, rel := range attachments {
		if err := security.ValidateFilePathWithBase(filepath.FromSlash(rel), dir); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid attachment reference").
				WithContext("attachment", rel)
		}

		full := filepath.Join(dir, filepath.FromSlash(rel))
		data, err := os.ReadFile(full) // #nosec G304 - Path validated against the conversation directory
		if err != nil {
			return nil, errors.NewIOError("read attachment", full, err)
		}

		contentType, ok := constants.MimeTypes[strings.ToLower(path.Ext(rel))]
		if !ok {
			contentType = constants.DefaultMimeType
		}

		media = append(media, message.Media{
			ContentType: contentType,
			Name:        path.Base(rel),
			Data:        data,
		})
	}
	return media, nil
}
