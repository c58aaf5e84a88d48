// Package record implements a media file's tag set with per-field change
// tracking, so only edited fields are written back to the server.
package record

import (
	"strconv"
	"strings"

	"github.com/strefethen/mcws-go/pkg/mcws/endpoint"
	"github.com/strefethen/mcws-go/pkg/mcws/schema"
)

// Raw is one field as it appears on the wire.
type Raw struct {
	Name  string
	Value string
}

// Field is one decoded field.
type Field struct {
	Name  string
	Value schema.Value
}

// Record is an ordered field set. A field becomes dirty when Set stores a
// value different from the current one and stays dirty until deleted, even
// if the original value is set back.
//
// Deleting a field only hides it locally; nothing is removed on the server.
type Record struct {
	order  []string
	values map[string]schema.Value
	dirty  map[string]bool
}

// New decodes raw with s. The record starts clean.
func New(s *schema.Schema, raw []Raw) (*Record, error) {
	r := &Record{
		order:  make([]string, 0, len(raw)),
		values: make(map[string]schema.Value, len(raw)),
		dirty:  make(map[string]bool),
	}
	for _, field := range raw {
		v, err := s.Decode(field.Name, field.Value)
		if err != nil {
			return nil, err
		}
		if _, exists := r.values[field.Name]; !exists {
			r.order = append(r.order, field.Name)
		}
		r.values[field.Name] = v
	}
	return r, nil
}

// Get returns the decoded value of a field.
func (r *Record) Get(name string) (schema.Value, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Has reports whether the field is present.
func (r *Record) Has(name string) bool {
	_, ok := r.values[name]
	return ok
}

// Set stores v and marks the field dirty if it differs from the current
// value. Setting an absent field adds it at the end.
func (r *Record) Set(name string, v schema.Value) {
	current, exists := r.values[name]
	if exists && current.Equal(v) {
		return
	}
	if !exists {
		r.order = append(r.order, name)
	}
	r.values[name] = v
	r.dirty[name] = true
}

// Delete forgets the field and its dirty mark.
func (r *Record) Delete(name string) {
	if _, ok := r.values[name]; !ok {
		return
	}
	delete(r.values, name)
	delete(r.dirty, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Names returns the field names in order.
func (r *Record) Names() []string {
	return append([]string(nil), r.order...)
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return len(r.order)
}

// IsDirty reports whether the field changed since construction.
func (r *Record) IsDirty(name string) bool {
	return r.dirty[name]
}

// Fields returns every field in order.
func (r *Record) Fields() []Field {
	out := make([]Field, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, Field{Name: name, Value: r.values[name]})
	}
	return out
}

// ChangedFields returns the dirty fields in original order.
func (r *Record) ChangedFields() []Field {
	var out []Field
	for _, name := range r.order {
		if r.dirty[name] {
			out = append(out, Field{Name: name, Value: r.values[name]})
		}
	}
	return out
}

// Key returns the file key, if the record carries one.
func (r *Record) Key() (int64, bool) {
	v, ok := r.values[schema.KeyField]
	if !ok {
		return 0, false
	}
	if key, ok := v.AsInteger(); ok {
		return key, true
	}
	if s, ok := v.AsText(); ok {
		key, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		return key, err == nil
	}
	return 0, false
}

// Changes is the encoded subset of dirty fields to write back.
type Changes struct {
	Names  []string
	Values []string
}

// Empty reports whether no field was selected.
func (c Changes) Empty() bool {
	return len(c.Names) == 0
}

// Changes encodes the dirty fields with s. When filter is non-empty only
// dirty fields named in it are included.
func (r *Record) Changes(s *schema.Schema, filter ...string) (Changes, error) {
	var allowed map[string]bool
	if len(filter) > 0 {
		allowed = make(map[string]bool, len(filter))
		for _, name := range filter {
			allowed[name] = true
		}
	}

	var c Changes
	for _, field := range r.ChangedFields() {
		if allowed != nil && !allowed[field.Name] {
			continue
		}
		encoded, err := s.Encode(field.Name, field.Value)
		if err != nil {
			return Changes{}, err
		}
		c.Names = append(c.Names, field.Name)
		c.Values = append(c.Values, encoded)
	}
	return c, nil
}

// Params builds the File/SetInfo payload for the file with key.
func (c Changes) Params(key int64) endpoint.Params {
	params := endpoint.Params{
		"File":     key,
		"FileType": "Key",
		"Field":    strings.Join(c.Names, ","),
		"Value":    strings.Join(c.Values, ","),
	}
	if len(c.Names) > 1 {
		params["List"] = "CSV"
	}
	return params
}
