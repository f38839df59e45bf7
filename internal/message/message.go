// Package message builds SMS Backup & Restore records from merged
// conversations.
package message

import (
	"encoding/base64"
	"fmt"
	"strings"

	"takeoutmerge/internal/errors"
)

// Participant is a conversation member as it appears in an MMS record
type Participant struct {
	PhoneNumber string
	Name        string
}

// Media is an attachment embedded in an MMS record
type Media struct {
	ContentType string
	Name        string
	Data        []byte
}

// Params describes one logical message
type Params struct {
	Type       Type
	Target     string
	TargetName string
	Sender     string
	// Me is the archive owner's number, empty when unknown
	Me                  string
	Participants        []Participant
	UnixTime            int64
	Text                string
	Media               []Media
	IsGroupConversation bool
	Prepend             string
	Append              string
}

// Message is a validated logical message
type Message struct {
	p Params
}

// New validates params. A message needs a target unless it belongs to a
// group conversation.
func New(p Params) (*Message, error) {
	if p.Target == "" && !p.IsGroupConversation {
		return nil, errors.New(errors.ErrCodeInvalidInput, "missing target").
			WithContext("sender", p.Sender)
	}
	return &Message{p: p}, nil
}

// IsMMS reports whether the message is written as an mms element
func (m *Message) IsMMS() bool {
	return m.p.IsGroupConversation || len(m.p.Media) > 0
}

// SentByMe reports whether the owner sent the message
func (m *Message) SentByMe() bool {
	return IsSentByOwner(m.p.Sender, m.p.Me, m.p.Participants)
}

// IsSentByOwner decides the direction of a message. Without a known owner any
// sender that is not a participant is assumed to be the owner.
func IsSentByOwner(sender, me string, participants []Participant) bool {
	if me != "" {
		return sender == me
	}
	for _, participant := range participants {
		if participant.PhoneNumber == sender {
			return false
		}
	}
	return true
}

// Element returns the *SMS or *MMS record for the message
func (m *Message) Element() (any, error) {
	if m.IsMMS() {
		return m.MMS()
	}
	return m.SMS(), nil
}

// SMS renders the message as a plain text record
func (m *Message) SMS() *SMS {
	return &SMS{
		Address:       m.decorate(m.p.Target),
		Body:          m.p.Text,
		Date:          m.p.UnixTime,
		Protocol:      smsProtocol,
		Read:          readStatusRead,
		ScToa:         null,
		ServiceCenter: null,
		Status:        statusComplete,
		Subject:       null,
		Toa:           null,
		Type:          m.p.Type,
		ContactName:   m.p.TargetName,
	}
}

// MMS renders the message as a multimedia record
func (m *Message) MMS() (*MMS, error) {
	sentByMe := m.SentByMe()

	msgBox, mType := TypeReceived, mmsTypeReceived
	if sentByMe {
		msgBox, mType = TypeSent, mmsTypeSent
	}

	var owner string
	addrs := make([]Addr, 0, len(m.p.Participants))
	for _, participant := range m.p.Participants {
		number := participant.PhoneNumber
		isSender := number == m.p.Sender
		isMe := m.p.Me != "" && number == m.p.Me

		if isMe {
			if owner != "" {
				numbers := make([]string, 0, len(m.p.Participants))
				for _, p := range m.p.Participants {
					numbers = append(numbers, p.PhoneNumber)
				}
				return nil, errors.NewAmbiguousOwnerError(numbers)
			}
			owner = number
		}

		addr := Addr{
			Address: m.decorate(number),
			Charset: charsetUTF8,
			Type:    AddressTo,
		}
		if isSender {
			addr.Address = number
		}
		if isSender || isMe {
			addr.Type = AddressFrom
		}
		addrs = append(addrs, addr)
	}

	parts := []Part{{
		ContentType: textPartType,
		Seq:         0,
		Text:        m.p.Text,
	}}
	for i, media := range m.p.Media {
		parts = append(parts, Part{
			ContentDisposition: null,
			Charset:            null,
			ContentID:          fmt.Sprintf("<%s>", media.Name),
			ContentLocation:    media.Name,
			ContentType:        media.ContentType,
			ContentTypeStart:   null,
			ContentTypeType:    null,
			Data:               base64.StdEncoding.EncodeToString(media.Data),
			FileName:           null,
			Name:               media.Name,
			Seq:                i + 1,
			Text:               null,
		})
	}

	addresses := make([]string, 0, len(m.p.Participants))
	for _, participant := range m.p.Participants {
		display := m.decorate(participant.PhoneNumber)
		if owner != "" && participant.PhoneNumber == owner {
			display = owner
		}
		if participant.Name != "" {
			display = fmt.Sprintf("%s (%s)", participant.Name, display)
		}
		addresses = append(addresses, display)
	}

	return &MMS{
		Address:     strings.Join(addresses, "~"),
		ContentType: mmsContentType,
		Date:        m.p.UnixTime,
		MessageType: mType,
		MessageBox:  msgBox,
		Read:        readStatusRead,
		ReadReport:  readReport,
		Seen:        1,
		SubID:       1,
		TextOnly:    1,
		Parts:       parts,
		Addrs:       addrs,
	}, nil
}

func (m *Message) decorate(number string) string {
	return m.p.Prepend + number + m.p.Append
}
