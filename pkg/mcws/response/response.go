// Package response decodes the XML reply shapes MCWS uses: flat
// attributes, flat lists, numbered groups and MPL item lists.
package response

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/strefethen/mcws-go/pkg/mcws/mcwserr"
	"github.com/strefethen/mcws-go/pkg/mcws/record"
	"github.com/strefethen/mcws-go/pkg/mcws/schema"
)

// Entry is one Name/text pair of a flat reply.
type Entry struct {
	Name  string
	Value string
}

// Attributes is a flat reply in document order.
type Attributes []Entry

// Get returns the first entry named name.
func (a Attributes) Get(name string) (string, bool) {
	for _, e := range a {
		if e.Name == name {
			return e.Value, true
		}
	}
	return "", false
}

// Map returns the entries as a map; later duplicates win.
func (a Attributes) Map() map[string]string {
	out := make(map[string]string, len(a))
	for _, e := range a {
		out[e.Name] = e.Value
	}
	return out
}

// TypedEntry is an entry whose value was cast to an integer when possible.
type TypedEntry struct {
	Name  string
	Value schema.Value
}

// Typed casts every value that parses as an integer to schema.Integer and
// leaves the rest as text.
func (a Attributes) Typed() []TypedEntry {
	out := make([]TypedEntry, 0, len(a))
	for _, e := range a {
		v := schema.Text(e.Value)
		if n, err := strconv.ParseInt(strings.TrimSpace(e.Value), 10, 64); err == nil {
			v = schema.Integer(n)
		}
		out = append(out, TypedEntry{Name: e.Name, Value: v})
	}
	return out
}

// Grouped is a header followed by fixed-size groups of numbered keys.
type Grouped struct {
	Header Attributes
	Groups []Attributes
}

// ParseAttributes decodes a flat <Item Name="..">text</Item> reply.
func ParseAttributes(body []byte) (Attributes, error) {
	var out Attributes
	err := walk(body, "attributes", func(d *xml.Decoder, se xml.StartElement) error {
		var text string
		if err := d.DecodeElement(&text, &se); err != nil {
			return err
		}
		out = append(out, Entry{Name: attrValue(se, "Name"), Value: text})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ParseList decodes the text of every top-level element in order.
func ParseList(body []byte) ([]string, error) {
	out := []string{}
	err := walk(body, "list", func(d *xml.Decoder, se xml.StartElement) error {
		var text string
		if err := d.DecodeElement(&text, &se); err != nil {
			return err
		}
		out = append(out, text)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ParseGrouped takes the first header entries as the header and splits the
// rest into groups of size entries. Inside group i a key loses its prefix
// and group number, so "Library0Name" becomes "Name"; a key that is only
// prefix and number becomes prefix.
func ParseGrouped(body []byte, header int, prefix string, size int) (Grouped, error) {
	if header < 0 || size <= 0 {
		return Grouped{}, &mcwserr.DecodeError{What: "grouped reply", Err: errors.New("invalid header or group size")}
	}
	entries, err := ParseAttributes(body)
	if err != nil {
		return Grouped{}, err
	}

	if header > len(entries) {
		header = len(entries)
	}
	out := Grouped{Header: entries[:header], Groups: []Attributes{}}

	rest := entries[header:]
	for i := 0; len(rest) > 0; i++ {
		n := size
		if n > len(rest) {
			n = len(rest)
		}
		group := make(Attributes, 0, n)
		for _, e := range rest[:n] {
			group = append(group, Entry{Name: stripGroupKey(e.Name, prefix, i), Value: e.Value})
		}
		out.Groups = append(out.Groups, group)
		rest = rest[n:]
	}
	return out, nil
}

func stripGroupKey(name, prefix string, index int) string {
	residual, ok := strings.CutPrefix(name, prefix+strconv.Itoa(index))
	if !ok {
		residual = strings.TrimPrefix(name, prefix)
		residual = strings.TrimLeft(residual, "0123456789")
	}
	if residual == "" {
		return prefix
	}
	return residual
}

// ParseItems decodes an MPL reply into records, decoding each field with s.
func ParseItems(body []byte, s *schema.Schema) ([]*record.Record, error) {
	records := []*record.Record{}
	err := walk(body, "items", func(d *xml.Decoder, se xml.StartElement) error {
		var item struct {
			Fields []struct {
				Name  string `xml:"Name,attr"`
				Value string `xml:",chardata"`
			} `xml:"Field"`
		}
		if err := d.DecodeElement(&item, &se); err != nil {
			return err
		}

		raw := make([]record.Raw, 0, len(item.Fields))
		for _, f := range item.Fields {
			raw = append(raw, record.Raw{Name: f.Name, Value: f.Value})
		}
		rec, err := record.New(s, raw)
		if err != nil {
			return err
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// CheckStatus returns a FailureError if the reply root says Status="Failure".
func CheckStatus(body []byte) error {
	return walk(body, "reply", func(d *xml.Decoder, se xml.StartElement) error {
		return d.Skip()
	})
}

// walk checks the root status and calls fn for each direct child of the
// root. fn must consume the element.
func walk(body []byte, what string, fn func(*xml.Decoder, xml.StartElement) error) error {
	decoder := xml.NewDecoder(bytes.NewReader(body))
	sawRoot := false

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return &mcwserr.DecodeError{What: what, Err: err}
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if !sawRoot {
			sawRoot = true
			if strings.EqualFold(attrValue(se, "Status"), "Failure") {
				return &mcwserr.FailureError{Information: attrValue(se, "Information")}
			}
			continue
		}

		if err := fn(decoder, se); err != nil {
			var decodeErr *mcwserr.DecodeError
			if errors.As(err, &decodeErr) {
				return err
			}
			return &mcwserr.DecodeError{What: what, Err: err}
		}
	}

	if !sawRoot {
		return &mcwserr.DecodeError{What: what, Err: errors.New("empty document")}
	}
	return nil
}

func attrValue(se xml.StartElement, name string) string {
	for _, a := range se.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
