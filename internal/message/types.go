package message

import "encoding/xml"

// Type is the direction of a message as SMS Backup & Restore stores it
type Type int

const (
	TypeReceived Type = 1
	TypeSent     Type = 2
	TypeDraft    Type = 3
	TypeOutbox   Type = 4
)

// MMS m_type values
const (
	mmsTypeSent     = 128
	mmsTypeReceived = 132
)

// AddressType is the role of an MMS participant
type AddressType int

const (
	AddressBCC  AddressType = 129
	AddressCC   AddressType = 130
	AddressFrom AddressType = 137
	AddressTo   AddressType = 151
)

const (
	null           = "null"
	smsProtocol    = 0
	statusComplete = 0
	readStatusRead = 1
	charsetUTF8    = 106
	readReport     = 129
	mmsContentType = "application/vnd.wap.multipart.related"
	textPartType   = "text/plain"
)

// SMS is a single text message. Attribute order is significant to some
// importers and follows struct field order.
type SMS struct {
	XMLName       xml.Name `xml:"sms"`
	Address       string   `xml:"address,attr"`
	Body          string   `xml:"body,attr"`
	Date          int64    `xml:"date,attr"`
	Protocol      int      `xml:"protocol,attr"`
	Read          int      `xml:"read,attr"`
	ScToa         string   `xml:"sc_toa,attr"`
	ServiceCenter string   `xml:"service_center,attr"`
	Status        int      `xml:"status,attr"`
	Subject       string   `xml:"subject,attr"`
	Toa           string   `xml:"toa,attr"`
	Type          Type     `xml:"type,attr"`
	ContactName   string   `xml:"contact_name,attr,omitempty"`
}

// MMS is a multimedia or group message
type MMS struct {
	XMLName     xml.Name `xml:"mms"`
	Address     string   `xml:"address,attr"`
	ContentType string   `xml:"ct_t,attr"`
	Date        int64    `xml:"date,attr"`
	MessageType int      `xml:"m_type,attr"`
	MessageBox  Type     `xml:"msg_box,attr"`
	Read        int      `xml:"read,attr"`
	ReadReport  int      `xml:"rr,attr"`
	Seen        int      `xml:"seen,attr"`
	SubID       int      `xml:"sub_id,attr"`
	TextOnly    int      `xml:"text_only,attr"`
	Parts       []Part   `xml:"parts>part"`
	Addrs       []Addr   `xml:"addrs>addr"`
}

// Part is one MMS body part. The text part only carries ct, seq and text.
type Part struct {
	ContentDisposition string `xml:"cd,attr,omitempty"`
	Charset            string `xml:"chset,attr,omitempty"`
	ContentID          string `xml:"cid,attr,omitempty"`
	ContentLocation    string `xml:"cl,attr,omitempty"`
	ContentType        string `xml:"ct,attr"`
	ContentTypeStart   string `xml:"ctt_s,attr,omitempty"`
	ContentTypeType    string `xml:"ctt_t,attr,omitempty"`
	Data               string `xml:"data,attr,omitempty"`
	FileName           string `xml:"fn,attr,omitempty"`
	Name               string `xml:"name,attr,omitempty"`
	Seq                int    `xml:"seq,attr"`
	Text               string `xml:"text,attr"`
}

// Addr is one MMS participant
type Addr struct {
	Address string      `xml:"address,attr"`
	Charset int         `xml:"charset,attr"`
	Type    AddressType `xml:"type,attr"`
}
