package mcws

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/strefethen/mcws-go/pkg/mcws/mcwserr"
	"github.com/strefethen/mcws-go/pkg/mcws/record"
	"github.com/strefethen/mcws-go/pkg/mcws/response"
	"github.com/strefethen/mcws-go/pkg/mcws/schema"
)

// queryEscaper prefixes the characters reserved in search expressions
// with '/'.
var queryEscaper = strings.NewReplacer(
	`"`, `/"`,
	`^`, `/^`,
	`[`, `/[`,
	`]`, `/]`,
)

// EscapeQuery escapes a literal value, such as an album name, for use
// inside a search expression. Do not pass whole queries.
func EscapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

// fileListVersion is the only serialization version servers accept.
const fileListVersion = "2"

// SerializeFileList encodes keys in the "2;count;active;key;..." form used
// by playlist calls. active is the index of the active file or -1.
func SerializeFileList(keys []int64, active int) string {
	var b strings.Builder
	b.WriteString(fileListVersion)
	b.WriteByte(';')
	b.WriteString(strconv.Itoa(len(keys)))
	b.WriteByte(';')
	b.WriteString(strconv.Itoa(active))
	for _, key := range keys {
		b.WriteByte(';')
		b.WriteString(strconv.FormatInt(key, 10))
	}
	return b.String()
}

// PathStyle selects the separator TransformPaths converts to.
type PathStyle int

const (
	PathKeep PathStyle = iota
	PathUnix
	PathWindows
)

// TransformPaths rewrites file paths reported by a server on another OS:
// searchFor is replaced with replaceWith (e.g. a drive letter with a mount
// point), then separators are converted per style. It returns a new slice.
func TransformPaths(paths []string, searchFor, replaceWith string, style PathStyle) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		if searchFor != "" {
			p = strings.ReplaceAll(p, searchFor, replaceWith)
		}
		switch style {
		case PathUnix:
			p = strings.ReplaceAll(p, `\`, "/")
		case PathWindows:
			p = strings.ReplaceAll(p, "/", `\`)
		}
		out[i] = p
	}
	return out
}

// FileKeys collects the file keys of files, failing on the first without one.
func FileKeys(files []*record.Record) ([]int64, error) {
	keys := make([]int64, 0, len(files))
	for i, rec := range files {
		key, ok := rec.Key()
		if !ok {
			return nil, &mcwserr.EncodeError{Field: schema.KeyField, Err: fmt.Errorf("file %d has no key", i)}
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func albumQuery(albumArtist, album string) string {
	return "[Album Artist]=[" + EscapeQuery(albumArtist) + "] [Album]=[" + EscapeQuery(album) + "] ~sort=[Disc #],[Track #]"
}

func keywordQuery(keyword string, sortBy ...string) string {
	query := "[keywords]=[" + EscapeQuery(keyword) + "]"
	if len(sortBy) > 0 {
		criteria := make([]string, 0, len(sortBy))
		for _, field := range sortBy {
			criteria = append(criteria, "["+field+"]")
		}
		query += " ~sort=" + strings.Join(criteria, ",")
	}
	return query
}

// RecipesAPI combines searches and playback settings into common tasks.
type RecipesAPI struct {
	playback *PlaybackAPI
	files    *FilesAPI
}

// AlbumOptions tune PlayAlbum.
type AlbumOptions struct {
	// Shuffle shuffles the queued album. When false, shuffle is switched off
	// so the album plays in order.
	Shuffle    bool
	PlayDoctor bool
	// Repeat switches playlist repeat on or off; nil leaves it alone.
	Repeat *bool
	Zone   *Zone
}

// PlayAlbum plays an album by an album artist in disc and track order.
func (r *RecipesAPI) PlayAlbum(ctx context.Context, albumArtist, album string, opts AlbumOptions) error {
	if !opts.Shuffle {
		if _, err := r.playback.Shuffle(ctx, opts.Zone, ShuffleOff); err != nil {
			return err
		}
	}
	err := r.play(ctx, albumQuery(albumArtist, album), SearchOptions{
		Shuffle:    opts.Shuffle,
		PlayDoctor: opts.PlayDoctor,
		Zone:       opts.Zone,
	})
	if err != nil {
		return err
	}
	if opts.Repeat != nil {
		mode := RepeatOff
		if *opts.Repeat {
			mode = RepeatPlaylist
		}
		if _, err := r.playback.Repeat(ctx, opts.Zone, mode); err != nil {
			return err
		}
	}
	return nil
}

// KeywordOptions tune PlayKeyword.
type KeywordOptions struct {
	PlayDoctor bool
	Shuffle    bool
	Zone       *Zone
}

// PlayKeyword plays the files tagged with keyword.
func (r *RecipesAPI) PlayKeyword(ctx context.Context, keyword string, opts KeywordOptions) error {
	return r.play(ctx, keywordQuery(keyword), SearchOptions{
		Shuffle:    opts.Shuffle,
		PlayDoctor: opts.PlayDoctor,
		Zone:       opts.Zone,
	})
}

func (r *RecipesAPI) play(ctx context.Context, query string, opts SearchOptions) error {
	resp, err := r.files.SearchAction(ctx, "Play", query, opts)
	if err != nil {
		return err
	}
	return response.CheckStatus(resp.Body)
}

// QueryAlbum returns the files of an album in disc and track order.
func (r *RecipesAPI) QueryAlbum(ctx context.Context, albumArtist, album string) ([]*record.Record, error) {
	return r.files.Search(ctx, albumQuery(albumArtist, album), SearchOptions{})
}

// QueryKeyword returns the files tagged with keyword, sorted by the given
// fields.
func (r *RecipesAPI) QueryKeyword(ctx context.Context, keyword string, sortBy ...string) ([]*record.Record, error) {
	return r.files.Search(ctx, keywordQuery(keyword, sortBy...), SearchOptions{})
}
