package schema

import "strings"

// DataType is the server-declared type of a field. Names outside the known
// set parse as TypeUnknown and use the identity codec.
type DataType int

const (
	TypeUnknown DataType = iota
	TypeString
	TypePath
	TypeUser
	TypeImageFile
	TypeInteger
	TypeFileSize
	TypeDecimal
	TypePercentage
	TypeTime
	TypeList
	TypeDateFloat
	TypeDate
)

var dataTypeNames = map[DataType]string{
	TypeString:     "String",
	TypePath:       "Path",
	TypeUser:       "User",
	TypeImageFile:  "Image File",
	TypeInteger:    "Integer",
	TypeFileSize:   "File Size",
	TypeDecimal:    "Decimal",
	TypePercentage: "Percentage",
	TypeTime:       "Time",
	TypeList:       "List",
	TypeDateFloat:  "Date (float)",
	TypeDate:       "Date",
}

var dataTypesByName = func() map[string]DataType {
	out := make(map[string]DataType, len(dataTypeNames))
	for t, name := range dataTypeNames {
		out[strings.ToLower(name)] = t
	}
	return out
}()

// ParseDataType maps a server type name to a DataType, case-insensitively.
func ParseDataType(name string) DataType {
	if t, ok := dataTypesByName[strings.ToLower(strings.TrimSpace(name))]; ok {
		return t
	}
	return TypeUnknown
}

func (t DataType) String() string {
	if name, ok := dataTypeNames[t]; ok {
		return name
	}
	return "Unknown"
}

// Kind returns the Value kind produced by decoding this type.
func (t DataType) Kind() Kind {
	switch t {
	case TypeInteger, TypeFileSize:
		return KindInteger
	case TypeDecimal, TypePercentage, TypeTime:
		return KindDecimal
	case TypeList:
		return KindList
	case TypeDateFloat, TypeDate:
		return KindDate
	default:
		return KindText
	}
}
