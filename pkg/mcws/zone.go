package mcws

import (
	"strconv"

	"github.com/strefethen/mcws-go/pkg/mcws/endpoint"
)

// CurrentZoneID addresses the zone selected in the Media Center UI.
const CurrentZoneID = "-1"

// Zone is a playback target. Only one identifier is needed; ID is
// preferred over Name, then Index.
type Zone struct {
	ID    string
	Name  string
	Index *int
	GUID  string
	DLNA  bool
}

// ZoneByName targets a zone by its display name.
func ZoneByName(name string) *Zone {
	return &Zone{Name: name}
}

// ZoneByIndex targets a zone by its position in the zone list.
func ZoneByIndex(index int) *Zone {
	return &Zone{Index: &index}
}

// Identifier returns the best identifier and its ZoneType. A nil or empty
// zone is the current zone.
func (z *Zone) Identifier() (value, zoneType string) {
	switch {
	case z == nil:
		return CurrentZoneID, "ID"
	case z.ID != "":
		return z.ID, "ID"
	case z.Name != "":
		return z.Name, "Name"
	case z.Index != nil:
		return strconv.Itoa(*z.Index), "Index"
	default:
		return CurrentZoneID, "ID"
	}
}

func (z *Zone) String() string {
	if z == nil {
		return "current zone"
	}
	if z.Name != "" {
		return z.Name
	}
	value, _ := z.Identifier()
	return value
}

// apply adds Zone and ZoneType to params.
func (z *Zone) apply(params endpoint.Params) endpoint.Params {
	value, zoneType := z.Identifier()
	params["Zone"] = value
	params["ZoneType"] = zoneType
	return params
}
