package record

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/strefethen/mcws-go/internal/mcwstest"
	"github.com/strefethen/mcws-go/pkg/mcws/mcwserr"
	"github.com/strefethen/mcws-go/pkg/mcws/schema"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.Parse([]byte(mcwstest.Fields(
		mcwstest.FieldDef{Name: "Name", DataType: "String"},
		mcwstest.FieldDef{Name: "Artist", DataType: "String"},
		mcwstest.FieldDef{Name: "Rating", DataType: "Integer"},
		mcwstest.FieldDef{Name: "Genre", DataType: "List"},
	)), zerolog.Nop())
	require.NoError(t, err)
	return s
}

func newRecord(t *testing.T) *Record {
	t.Helper()
	r, err := New(testSchema(t), []Raw{
		{Name: "Key", Value: "1234"},
		{Name: "Name", Value: "A"},
		{Name: "Artist", Value: "Miles Davis"},
		{Name: "Rating", Value: "3"},
		{Name: "Genre", Value: "Jazz;Modal"},
	})
	require.NoError(t, err)
	return r
}

func TestNewDecodesEagerly(t *testing.T) {
	r := newRecord(t)

	require.Equal(t, []string{"Key", "Name", "Artist", "Rating", "Genre"}, r.Names())
	require.Equal(t, 5, r.Len())
	require.Empty(t, r.ChangedFields())

	rating, ok := r.Get("Rating")
	require.True(t, ok)
	require.True(t, schema.Integer(3).Equal(rating))

	genre, _ := r.Get("Genre")
	require.True(t, schema.List("Jazz", "Modal").Equal(genre))

	key, ok := r.Key()
	require.True(t, ok)
	require.Equal(t, int64(1234), key)
}

func TestNewRejectsUndecodableField(t *testing.T) {
	_, err := New(testSchema(t), []Raw{{Name: "Rating", Value: "five"}})
	require.Equal(t, mcwserr.ErrorCodeDecode, mcwserr.CodeOf(err))
}

func TestSetTracksChanges(t *testing.T) {
	r := newRecord(t)

	r.Set("Name", schema.Text("A"))
	require.Empty(t, r.ChangedFields())
	require.False(t, r.IsDirty("Name"))

	r.Set("Name", schema.Text("B"))
	require.Equal(t, []Field{{Name: "Name", Value: schema.Text("B")}}, r.ChangedFields())

	r.Set("Name", schema.Text("A"))
	require.True(t, r.IsDirty("Name"))

	r.Delete("Name")
	require.Empty(t, r.ChangedFields())
	require.False(t, r.Has("Name"))
	_, ok := r.Get("Name")
	require.False(t, ok)
}

func TestChangedFieldsKeepOriginalOrder(t *testing.T) {
	r := newRecord(t)

	r.Set("Genre", schema.List("Jazz"))
	r.Set("Name", schema.Text("So What"))
	r.Set("Comment", schema.Text("new"))

	var names []string
	for _, f := range r.ChangedFields() {
		names = append(names, f.Name)
	}
	require.Equal(t, []string{"Name", "Genre", "Comment"}, names)
	require.Equal(t, "Comment", r.Names()[r.Len()-1])
}

func TestChangesParams(t *testing.T) {
	s := testSchema(t)
	r := newRecord(t)

	r.Set("Name", schema.Text("So What"))
	r.Set("Rating", schema.Integer(5))

	changes, err := r.Changes(s)
	require.NoError(t, err)
	require.Equal(t, []string{"Name", "Rating"}, changes.Names)
	require.Equal(t, []string{`"So What"`, "5"}, changes.Values)

	key, _ := r.Key()
	params := changes.Params(key)
	require.Equal(t, int64(1234), params["File"])
	require.Equal(t, "Key", params["FileType"])
	require.Equal(t, "Name,Rating", params["Field"])
	require.Equal(t, `"So What",5`, params["Value"])
	require.Equal(t, "CSV", params["List"])
}

func TestChangesFilter(t *testing.T) {
	s := testSchema(t)
	r := newRecord(t)

	r.Set("Name", schema.Text("So What"))
	r.Set("Rating", schema.Integer(5))

	changes, err := r.Changes(s, "Rating", "Artist")
	require.NoError(t, err)
	require.Equal(t, []string{"Rating"}, changes.Names)

	params := changes.Params(1234)
	_, hasList := params["List"]
	require.False(t, hasList)
	require.Equal(t, "Rating", params["Field"])
	require.Equal(t, "5", params["Value"])

	changes, err = r.Changes(s, "Artist")
	require.NoError(t, err)
	require.True(t, changes.Empty())
}

func TestChangesEncodeError(t *testing.T) {
	s := testSchema(t)
	r := newRecord(t)

	r.Set("Rating", schema.Text("five"))
	_, err := r.Changes(s)
	require.Equal(t, mcwserr.ErrorCodeEncode, mcwserr.CodeOf(err))
}

func TestKeyFromText(t *testing.T) {
	r := &Record{values: map[string]schema.Value{"Key": schema.Text(" 77 ")}}
	key, ok := r.Key()
	require.True(t, ok)
	require.Equal(t, int64(77), key)

	empty := &Record{values: map[string]schema.Value{}}
	_, ok = empty.Key()
	require.False(t, ok)
}

func TestSetDateFromOtherZoneStaysClean(t *testing.T) {
	s, err := schema.Parse([]byte(mcwstest.Fields(
		mcwstest.FieldDef{Name: "Last Played", DataType: "Date (float)"},
	)), zerolog.Nop())
	require.NoError(t, err)

	played := time.Date(2020, 1, 1, 12, 0, 0, 0, time.FixedZone("UTC+1", 3600))
	raw, err := s.Encode("Last Played", schema.Date(played))
	require.NoError(t, err)

	r, err := New(s, []Raw{{Name: "Key", Value: "7"}, {Name: "Last Played", Value: raw}})
	require.NoError(t, err)

	r.Set("Last Played", schema.Date(played))
	require.False(t, r.IsDirty("Last Played"))
	r.Set("Last Played", schema.Date(played.UTC()))
	require.Empty(t, r.ChangedFields())

	r.Set("Last Played", schema.Date(played.Add(time.Hour)))
	require.True(t, r.IsDirty("Last Played"))
}
