package mcws

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/strefethen/mcws-go/pkg/mcws/endpoint"
	"github.com/strefethen/mcws-go/pkg/mcws/mcwserr"
	"github.com/strefethen/mcws-go/pkg/mcws/record"
	"github.com/strefethen/mcws-go/pkg/mcws/response"
	"github.com/strefethen/mcws-go/pkg/mcws/schema"
)

const (
	libraryListHeader    = 2
	libraryListPrefix    = "Library"
	libraryListGroupSize = 3
)

// LibraryAPI covers the Library/* calls.
type LibraryAPI struct {
	core *core
}

// Library is one entry of Library/List. ID is its position in the list.
type Library struct {
	ID         int
	Name       string
	Loaded     bool
	Attributes response.Attributes
}

// LibraryList is Library/List with its header decoded.
type LibraryList struct {
	DefaultID int
	Libraries []Library
}

// List returns the libraries known to the server.
func (l *LibraryAPI) List(ctx context.Context) (LibraryList, error) {
	resp, err := l.core.send(ctx, "Library/List", nil)
	if err != nil {
		return LibraryList{}, err
	}
	grouped, err := response.ParseGrouped(resp.Body, libraryListHeader, libraryListPrefix, libraryListGroupSize)
	if err != nil {
		return LibraryList{}, err
	}

	out := LibraryList{DefaultID: -1, Libraries: make([]Library, 0, len(grouped.Groups))}
	if raw, ok := grouped.Header.Get("DefaultLibrary"); ok {
		id, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return LibraryList{}, &mcwserr.DecodeError{What: "library list", Err: err}
		}
		out.DefaultID = id
	}

	for i, group := range grouped.Groups {
		lib := Library{ID: i, Attributes: group}
		if name, ok := group.Get("Name"); ok {
			lib.Name = name
		} else if name, ok := group.Get(libraryListPrefix); ok {
			lib.Name = name
		}
		loaded, _ := group.Get("Loaded")
		lib.Loaded = loaded == "1"
		out.Libraries = append(out.Libraries, lib)
	}
	return out, nil
}

// Default returns the library the server marks as default.
func (l *LibraryAPI) Default(ctx context.Context) (Library, error) {
	list, err := l.List(ctx)
	if err != nil {
		return Library{}, err
	}
	if list.DefaultID < 0 || list.DefaultID >= len(list.Libraries) {
		return Library{}, &mcwserr.DecodeError{
			What: "library list",
			Err:  fmt.Errorf("default library %d not in list of %d", list.DefaultID, len(list.Libraries)),
		}
	}
	return list.Libraries[list.DefaultID], nil
}

// Loaded returns the currently loaded library, reporting false when none is.
func (l *LibraryAPI) Loaded(ctx context.Context) (Library, bool, error) {
	list, err := l.List(ctx)
	if err != nil {
		return Library{}, false, err
	}
	for _, lib := range list.Libraries {
		if lib.Loaded {
			return lib, true, nil
		}
	}
	return Library{}, false, nil
}

// Fields returns the cached field catalogue.
func (l *LibraryAPI) Fields(ctx context.Context) (*schema.Schema, error) {
	return l.core.registry.Schema(ctx)
}

// RefreshFields re-fetches the field catalogue.
func (l *LibraryAPI) RefreshFields(ctx context.Context) (*schema.Schema, error) {
	return l.core.registry.Refresh(ctx)
}

// CreateField adds a library field. An empty dataType means "string"; an
// expression makes it a calculated field. The cached catalogue is dropped
// so the new field is picked up on next use.
func (l *LibraryAPI) CreateField(ctx context.Context, name, dataType, expression string) error {
	if dataType == "" {
		dataType = "string"
	}
	params := endpoint.Params{"Name": name, "Type": dataType}
	if expression != "" {
		params["Expression"] = expression
	}
	if err := l.core.call(ctx, "Library/CreateField", params); err != nil {
		return err
	}
	l.core.registry.Invalidate()
	return nil
}

// ValuesQuery selects distinct field values. Zero fields are omitted.
type ValuesQuery struct {
	// Filter matches values in any of Fields.
	Filter string
	// Fields defaults to the server's default fields.
	Fields []string
	// Files is a search restricting the files values come from.
	Files   string
	Limit   int
	Version int
}

// Values returns distinct values such as artists or albums.
func (l *LibraryAPI) Values(ctx context.Context, q ValuesQuery) ([]string, error) {
	version := q.Version
	if version == 0 {
		version = 2
	}
	params := endpoint.Params{"Version": version}
	if q.Filter != "" {
		params["Filter"] = q.Filter
	}
	if len(q.Fields) > 0 {
		params["Field"] = strings.Join(q.Fields, ",")
	}
	if q.Files != "" {
		params["Files"] = q.Files
	}
	if q.Limit > 0 {
		params["Limit"] = q.Limit
	}
	return l.core.list(ctx, "Library/Values", params)
}

// CreateFile creates an empty library file and returns it as a clean
// record. Set at least "Media Type" before saving or it will not show up.
func (l *LibraryAPI) CreateFile(ctx context.Context) (*record.Record, error) {
	s, err := l.core.registry.Schema(ctx)
	if err != nil {
		return nil, err
	}
	attrs, err := l.core.attributes(ctx, "Library/CreateFile", nil)
	if err != nil {
		return nil, err
	}
	raw := make([]record.Raw, 0, len(attrs))
	for _, a := range attrs {
		raw = append(raw, record.Raw{Name: a.Name, Value: a.Value})
	}
	return record.New(s, raw)
}
