// Package schema holds the server's field catalogue and the typed codecs
// that convert field text to Values and back.
package schema

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/strefethen/mcws-go/pkg/mcws/mcwserr"
)

const (
	// KeyField is the immutable integer file key.
	KeyField = "Key"
	// DisplayDateField is the read-only textual date the server renders.
	DisplayDateField = "Date (readable)"

	notEditable = "Not editable"
)

// Descriptor describes one field as advertised by the server.
type Descriptor struct {
	Name       string
	Type       DataType
	RawType    string
	EditType   string
	Expression string
	Editable   bool
	Synthetic  bool
}

// Decode converts raw field text to a Value.
func (d Descriptor) Decode(raw string) (Value, error) {
	v, err := Decode(d.Type, raw)
	if err != nil {
		return Value{}, &mcwserr.DecodeError{What: "field " + d.Name, Err: err}
	}
	return v, nil
}

// Encode converts v to the text the server expects for this field.
func (d Descriptor) Encode(v Value) (string, error) {
	s, err := Encode(d.Type, v)
	if err != nil {
		return "", &mcwserr.EncodeError{Field: d.Name, Err: err}
	}
	return s, nil
}

func syntheticDescriptors() []Descriptor {
	return []Descriptor{
		{Name: KeyField, Type: TypeInteger, RawType: "Integer", EditType: notEditable, Synthetic: true},
		{Name: DisplayDateField, Type: TypeString, RawType: "String", EditType: notEditable, Synthetic: true},
	}
}

// Schema is an immutable, ordered field catalogue.
type Schema struct {
	order  []string
	byName map[string]Descriptor
	log    zerolog.Logger
}

// New builds a schema from descriptors. The synthetic Key and display date
// descriptors come first unless descs redefine them, in which case the
// supplied definition wins.
func New(logger zerolog.Logger, descs ...Descriptor) *Schema {
	s := &Schema{byName: make(map[string]Descriptor, len(descs)+2), log: logger}
	for _, d := range syntheticDescriptors() {
		s.add(d)
	}
	for _, d := range descs {
		s.add(d)
	}
	return s
}

func (s *Schema) add(d Descriptor) {
	if _, exists := s.byName[d.Name]; !exists {
		s.order = append(s.order, d.Name)
	}
	s.byName[d.Name] = d
}

// Lookup returns the descriptor for name.
func (s *Schema) Lookup(name string) (Descriptor, bool) {
	d, ok := s.byName[name]
	return d, ok
}

// Descriptor returns the descriptor for name, or an identity text
// descriptor when the catalogue does not list it.
func (s *Schema) Descriptor(name string) Descriptor {
	if d, ok := s.byName[name]; ok {
		return d
	}
	s.log.Debug().Str("field", name).Msg("field not in catalogue, using identity codec")
	return Descriptor{Name: name, Type: TypeUnknown, Editable: true}
}

// Names returns field names in catalogue order.
func (s *Schema) Names() []string {
	return append([]string(nil), s.order...)
}

// Len returns the number of descriptors, synthetic ones included.
func (s *Schema) Len() int {
	return len(s.order)
}

// Decode decodes raw with the named field's descriptor.
func (s *Schema) Decode(name, raw string) (Value, error) {
	return s.Descriptor(name).Decode(raw)
}

// Encode encodes v with the named field's descriptor.
func (s *Schema) Encode(name string, v Value) (string, error) {
	return s.Descriptor(name).Encode(v)
}

// Parse reads a Library/Fields reply.
func Parse(payload []byte, logger zerolog.Logger) (*Schema, error) {
	decoder := xml.NewDecoder(bytes.NewReader(payload))
	var descs []Descriptor
	sawRoot := false

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &mcwserr.DecodeError{What: "field catalogue", Err: err}
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if !sawRoot {
			sawRoot = true
			if status := attr(se, "Status"); strings.EqualFold(status, "Failure") {
				return nil, &mcwserr.FailureError{Information: attr(se, "Information")}
			}
			continue
		}
		if se.Name.Local != "Field" {
			if err := decoder.Skip(); err != nil {
				return nil, &mcwserr.DecodeError{What: "field catalogue", Err: err}
			}
			continue
		}

		name := attr(se, "Name")
		if name == "" {
			return nil, &mcwserr.DecodeError{What: "field catalogue", Err: errors.New("field without a name")}
		}
		rawType := attr(se, "DataType")
		dataType := ParseDataType(rawType)
		if dataType == TypeUnknown {
			logger.Warn().Str("field", name).Str("data_type", rawType).Msg("unrecognized data type, using identity codec")
		}
		editType := attr(se, "EditType")
		descs = append(descs, Descriptor{
			Name:       name,
			Type:       dataType,
			RawType:    rawType,
			EditType:   editType,
			Expression: attr(se, "Expression"),
			Editable:   !strings.EqualFold(editType, notEditable),
		})
		if err := decoder.Skip(); err != nil {
			return nil, &mcwserr.DecodeError{What: "field catalogue", Err: err}
		}
	}

	if !sawRoot {
		return nil, &mcwserr.DecodeError{What: "field catalogue", Err: errors.New("empty document")}
	}
	return New(logger, descs...), nil
}

func attr(se xml.StartElement, name string) string {
	for _, a := range se.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
