package mcws

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/strefethen/mcws-go/pkg/mcws/endpoint"
	"github.com/strefethen/mcws-go/pkg/mcws/mcwserr"
	"github.com/strefethen/mcws-go/pkg/mcws/record"
	"github.com/strefethen/mcws-go/pkg/mcws/schema"
)

// FileAPI covers calls on a single file.
type FileAPI struct {
	core *core
}

// SetInfo writes the changed fields of rec back to the server. With a
// filter, only changed fields named in it are written. It reports whether
// a request was sent; nothing is sent when no selected field changed.
func (f *FileAPI) SetInfo(ctx context.Context, rec *record.Record, filter ...string) (bool, error) {
	key, ok := rec.Key()
	if !ok {
		return false, &mcwserr.EncodeError{Field: schema.KeyField, Err: errors.New("record has no file key")}
	}
	s, err := f.core.registry.Schema(ctx)
	if err != nil {
		return false, err
	}
	changes, err := rec.Changes(s, filter...)
	if err != nil {
		return false, err
	}
	if changes.Empty() {
		f.core.log.Debug().Int64("file", key).Msg("no changed fields to save")
		return false, nil
	}
	if err := f.core.call(ctx, "File/SetInfo", changes.Params(key)); err != nil {
		return false, err
	}
	f.core.log.Debug().Int64("file", key).Strs("fields", changes.Names).Msg("file info saved")
	return true, nil
}

// FilesAPI covers Files/Search and File/GetImage.
type FilesAPI struct {
	core *core
}

// SearchOptions tune Files/Search. Zone is only sent when set.
type SearchOptions struct {
	Fields           []string
	PlayDoctor       bool
	Shuffle          bool
	NoLocalFilenames bool
	Zone             *Zone
}

func (o SearchOptions) params(action, query string) endpoint.Params {
	params := endpoint.Params{
		"Action":           action,
		"Query":            query,
		"NoLocalFilenames": o.NoLocalFilenames,
		"PlayDoctor":       o.PlayDoctor,
		"Shuffle":          o.Shuffle,
	}
	if len(o.Fields) > 0 {
		params["Fields"] = strings.Join(o.Fields, ",")
	}
	if o.Zone != nil {
		o.Zone.apply(params)
	}
	return params
}

// Search returns the files matching query as records.
func (f *FilesAPI) Search(ctx context.Context, query string, opts SearchOptions) ([]*record.Record, error) {
	return f.core.records(ctx, "Files/Search", opts.params("MPL", query))
}

// SearchAction runs Files/Search with an action other than MPL, such as
// "Play", and returns the raw reply.
func (f *FilesAPI) SearchAction(ctx context.Context, action, query string, opts SearchOptions) (*endpoint.Response, error) {
	return f.core.send(ctx, "Files/Search", opts.params(action, query))
}

// ImageOptions tune File/GetImage. Zero values are omitted, except Type
// ("Thumbnail") and Format ("jpg").
type ImageOptions struct {
	// Type is Thumbnail, Full or ThumbnailsBinary.
	Type string
	// ThumbnailSize is Small, Medium or Large.
	ThumbnailSize string
	Width         int
	Height        int
	// FillTransparency is a hex color.
	FillTransparency string
	Square           bool
	Pad              bool
	// Format is jpg or png.
	Format string
}

func (o ImageOptions) params(rec *record.Record) (endpoint.Params, error) {
	params := endpoint.Params{
		"Type":   firstNonEmpty(o.Type, "Thumbnail"),
		"Format": firstNonEmpty(o.Format, "jpg"),
		"Square": o.Square,
		"Pad":    o.Pad,
	}
	if o.ThumbnailSize != "" {
		params["ThumbnailSize"] = o.ThumbnailSize
	}
	if o.Width > 0 {
		params["Width"] = o.Width
	}
	if o.Height > 0 {
		params["Height"] = o.Height
	}
	if o.FillTransparency != "" {
		params["FillTransparency"] = o.FillTransparency
	}

	if key, ok := rec.Key(); ok {
		params["File"] = key
		params["FileType"] = "Key"
		return params, nil
	}
	if v, ok := rec.Get("Filename"); ok {
		if name, ok := v.AsText(); ok && name != "" {
			params["File"] = name
			params["FileType"] = "Filename"
			return params, nil
		}
	}
	return nil, &mcwserr.EncodeError{Field: schema.KeyField, Err: errors.New("record has neither key nor filename")}
}

// GetImage downloads the cover art of rec. A file without art yields a nil
// slice and no error.
func (f *FilesAPI) GetImage(ctx context.Context, rec *record.Record, opts ImageOptions) ([]byte, error) {
	params, err := opts.params(rec)
	if err != nil {
		return nil, err
	}
	resp, err := f.core.resolver.Do(ctx, endpoint.Request{
		Extension:   "File/GetImage",
		Params:      params,
		AllowStatus: []int{http.StatusInternalServerError},
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusInternalServerError {
		return nil, nil
	}
	return resp.Body, nil
}

// ImageURL returns the GetImage URL for rec without fetching it. The URL
// does not carry credentials.
func (f *FilesAPI) ImageURL(ctx context.Context, rec *record.Record, opts ImageOptions) (string, error) {
	params, err := opts.params(rec)
	if err != nil {
		return "", err
	}
	if err := f.core.resolver.EnsureAddress(ctx); err != nil {
		return "", err
	}
	return f.core.resolver.BaseURL() + "File/GetImage?" + params.Encode(), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
