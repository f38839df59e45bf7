package message

import (
	"encoding/xml"
	"io"
	"os"
	"strconv"

	"takeoutmerge/internal/errors"
)

// Header is the XML declaration SMS Backup & Restore writes
const Header = `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>`

// Document collects rendered records for one smses file
type Document struct {
	elements []any
}

// Add renders m and appends it to the document
func (d *Document) Add(m *Message) error {
	element, err := m.Element()
	if err != nil {
		return err
	}
	d.elements = append(d.elements, element)
	return nil
}

// Len returns the number of records in the document
func (d *Document) Len() int {
	return len(d.elements)
}

// Encode writes the declaration and the smses element to w
func (d *Document) Encode(w io.Writer) error {
	if _, err := io.WriteString(w, Header+"\n"); err != nil {
		return err
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")

	root := xml.StartElement{
		Name: xml.Name{Local: "smses"},
		Attr: []xml.Attr{{Name: xml.Name{Local: "count"}, Value: strconv.Itoa(len(d.elements))}},
	}
	if err := enc.EncodeToken(root); err != nil {
		return err
	}
	for _, element := range d.elements {
		if err := enc.Encode(element); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternalError, "unable to encode message")
		}
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return err
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// WriteFile encodes the document into path
func (d *Document) WriteFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0640) // #nosec G304 - Output path chosen by the operator
	if err != nil {
		return errors.NewIOError("create xml", path, err)
	}
	if err := d.Encode(f); err != nil {
		f.Close()
		return errors.NewIOError("write xml", path, err)
	}
	if err := f.Close(); err != nil {
		return errors.NewIOError("close xml", path, err)
	}
	return nil
}
