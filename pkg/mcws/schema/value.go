package schema

import (
	"strconv"
	"strings"
	"time"
)

// Kind identifies which member of a Value is populated.
type Kind int

const (
	KindText Kind = iota
	KindInteger
	KindDecimal
	KindBoolean
	KindDate
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInteger:
		return "integer"
	case KindDecimal:
		return "decimal"
	case KindBoolean:
		return "boolean"
	case KindDate:
		return "date"
	case KindList:
		return "list"
	default:
		return "invalid"
	}
}

// Value is the decoded form of a field. The zero Value is empty text.
type Value struct {
	kind    Kind
	text    string
	integer int64
	decimal float64
	boolean bool
	date    time.Time
	list    []string
}

// Text returns a text Value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Integer returns an integer Value.
func Integer(i int64) Value { return Value{kind: KindInteger, integer: i} }

// Decimal returns a decimal Value.
func Decimal(f float64) Value { return Value{kind: KindDecimal, decimal: f} }

// Boolean returns a boolean Value.
func Boolean(b bool) Value { return Value{kind: KindBoolean, boolean: b} }

// Date returns a date Value. The instant is kept; the zone only affects
// display.
func Date(t time.Time) Value { return Value{kind: KindDate, date: t} }

// List returns a list Value holding a copy of items.
func List(items ...string) Value { return Value{kind: KindList, list: append([]string(nil), items...)} }

// Kind reports which member is populated.
func (v Value) Kind() Kind { return v.kind }

// AsText returns the text and whether v is text.
func (v Value) AsText() (string, bool) { return v.text, v.kind == KindText }

// AsInteger returns the integer and whether v is an integer.
func (v Value) AsInteger() (int64, bool) { return v.integer, v.kind == KindInteger }

// AsDecimal returns the number as a float. Integers convert.
func (v Value) AsDecimal() (float64, bool) {
	switch v.kind {
	case KindDecimal:
		return v.decimal, true
	case KindInteger:
		return float64(v.integer), true
	default:
		return 0, false
	}
}

// AsBoolean returns the flag and whether v is a boolean.
func (v Value) AsBoolean() (bool, bool) { return v.boolean, v.kind == KindBoolean }

// AsDate returns the time and whether v is a date.
func (v Value) AsDate() (time.Time, bool) { return v.date, v.kind == KindDate }

// AsList returns a copy of the list items.
func (v Value) AsList() ([]string, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return append([]string(nil), v.list...), true
}

// Equal reports whether both values have the same kind and payload.
// Dates compare by instant.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindText:
		return v.text == other.text
	case KindInteger:
		return v.integer == other.integer
	case KindDecimal:
		return v.decimal == other.decimal
	case KindBoolean:
		return v.boolean == other.boolean
	case KindDate:
		return v.date.Equal(other.date)
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != other.list[i] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String renders the value for display; lists are joined with ";".
func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.integer, 10)
	case KindDecimal:
		return strconv.FormatFloat(v.decimal, 'f', -1, 64)
	case KindBoolean:
		if v.boolean {
			return "1"
		}
		return "0"
	case KindDate:
		return v.date.Format(time.RFC3339)
	case KindList:
		return strings.Join(v.list, listSeparator)
	default:
		return v.text
	}
}
