package schema

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const listSeparator = ";"

// dayEpoch is day zero for TypeDateFloat values. Only its calendar date is
// used; day counts carry no zone.
var dayEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// dayCountLocation is the zone day counts are read and written in. The
// server stores local wall clock time.
var dayCountLocation = time.Local

var errEmpty = errors.New("empty value")

// Decode converts the raw wire text of a field of type t to a Value.
func Decode(t DataType, raw string) (Value, error) {
	switch t {
	case TypeString, TypePath, TypeUser, TypeImageFile:
		return Text(raw), nil

	case TypeInteger, TypeFileSize:
		s := strings.TrimSpace(raw)
		if s == "" {
			return Value{}, errEmpty
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, err
		}
		return Integer(n), nil

	case TypeDecimal, TypePercentage, TypeTime:
		f, err := parseDecimal(raw)
		if err != nil {
			return Value{}, err
		}
		return Decimal(f), nil

	case TypeList:
		return List(splitList(raw)...), nil

	case TypeDateFloat:
		days, err := parseDecimal(raw)
		if err != nil {
			return Value{}, err
		}
		return Date(fromDayCount(days)), nil

	case TypeDate:
		secs, err := parseUnixSeconds(raw)
		if err != nil {
			return Value{}, err
		}
		return Date(time.Unix(secs, 0).UTC()), nil

	default:
		return Text(raw), nil
	}
}

// Encode converts v to the wire text expected for a field of type t.
func Encode(t DataType, v Value) (string, error) {
	switch t {
	case TypeString, TypePath, TypeUser, TypeImageFile:
		s, ok := v.AsText()
		if !ok {
			return "", kindMismatch(t, v)
		}
		return `"` + s + `"`, nil

	case TypeInteger, TypeFileSize:
		n, ok := v.AsInteger()
		if !ok {
			return "", kindMismatch(t, v)
		}
		return strconv.FormatInt(n, 10), nil

	case TypeDecimal, TypePercentage, TypeTime:
		f, ok := v.AsDecimal()
		if !ok {
			return "", kindMismatch(t, v)
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil

	case TypeList:
		items, ok := v.AsList()
		if !ok {
			return "", kindMismatch(t, v)
		}
		return `"` + strings.Join(items, listSeparator) + `"`, nil

	case TypeDateFloat:
		d, ok := v.AsDate()
		if !ok {
			return "", kindMismatch(t, v)
		}
		return strconv.FormatFloat(toDayCount(d), 'f', -1, 64), nil

	case TypeDate:
		d, ok := v.AsDate()
		if !ok {
			return "", kindMismatch(t, v)
		}
		return strconv.FormatInt(d.Unix(), 10), nil

	default:
		return v.String(), nil
	}
}

func kindMismatch(t DataType, v Value) error {
	return fmt.Errorf("%s value cannot be stored in a %s field", v.Kind(), t)
}

// parseDecimal accepts both "." and "," as the decimal separator.
func parseDecimal(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, errEmpty
	}
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}

func parseUnixSeconds(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, errEmpty
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := parseDecimal(s)
	if err != nil {
		return 0, err
	}
	return int64(math.Floor(f)), nil
}

// splitList tolerates the quoting Encode applies. An empty string is an
// empty list.
func splitList(raw string) []string {
	if len(raw) >= 2 && strings.HasPrefix(raw, `"`) && strings.HasSuffix(raw, `"`) {
		raw = raw[1 : len(raw)-1]
	}
	if raw == "" {
		return nil
	}
	return strings.Split(raw, listSeparator)
}

// fromDayCount returns the wall clock time days after the epoch in
// dayCountLocation. Whole days and the fraction are handled separately so
// dates far from the epoch do not overflow time.Duration. The time of day is
// rounded to the microsecond and applied as wall clock, so a time skipped by
// a DST change normalizes forward.
func fromDayCount(days float64) time.Time {
	whole := math.Floor(days)
	us := int64(math.Round((days - whole) * 86400 * 1e6))
	day := dayEpoch.AddDate(0, 0, int(whole))
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, int(us*1000), dayCountLocation)
}

// toDayCount converts t to dayCountLocation and counts days from the epoch
// using that wall clock.
func toDayCount(t time.Time) float64 {
	t = t.In(dayCountLocation)
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	days := (midnight.Unix() - dayEpoch.Unix()) / 86400
	secs := float64(t.Hour()*3600+t.Minute()*60+t.Second()) + float64(t.Nanosecond())/1e9
	return float64(days) + secs/86400
}
