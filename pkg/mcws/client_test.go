package mcws

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strefethen/mcws-go/internal/mcwstest"
	"github.com/strefethen/mcws-go/pkg/mcws/endpoint"
	"github.com/strefethen/mcws-go/pkg/mcws/mcwserr"
	"github.com/strefethen/mcws-go/pkg/mcws/schema"
)

const testKey = "ABC123"

func newTestServer(t *testing.T) (*Server, *mcwstest.Server) {
	t.Helper()

	fake := mcwstest.NewServer(t)
	fake.Reply("Library/Fields", mcwstest.Fields(
		mcwstest.FieldDef{Name: "Name", DataType: "String"},
		mcwstest.FieldDef{Name: "Artist", DataType: "String"},
		mcwstest.FieldDef{Name: "Rating", DataType: "Integer"},
		mcwstest.FieldDef{Name: "Genre", DataType: "List"},
		mcwstest.FieldDef{Name: "Filename", DataType: "Path", EditType: "Not editable"},
	))
	lookup := mcwstest.NewLookupServer(t, mcwstest.LookupReply(
		testKey, fake.Host(), fake.Port(), []string{fake.Host()}, "", nil,
	))

	return New(testKey, "", "", endpoint.WithLookupURL(lookup.LookupURL())), fake
}

func tracks() string {
	return mcwstest.MPL(
		[]mcwstest.Item{
			{Name: "Key", Value: "42"},
			{Name: "Name", Value: "So What"},
			{Name: "Artist", Value: "Miles Davis"},
			{Name: "Rating", Value: "4"},
			{Name: "Genre", Value: "Jazz;Modal"},
		},
		[]mcwstest.Item{
			{Name: "Key", Value: "43"},
			{Name: "Name", Value: "Freddie Freeloader"},
		},
	)
}

func TestAlive(t *testing.T) {
	srv, _ := newTestServer(t)

	attrs, err := srv.Alive(context.Background())
	require.NoError(t, err)
	name, ok := attrs.Get("FriendlyName")
	require.True(t, ok)
	require.Equal(t, "Office", name)
	require.Equal(t, endpoint.StrategyLocal, srv.Resolver().State().Strategy)
}

func TestSearchAndSetInfo(t *testing.T) {
	srv, fake := newTestServer(t)
	fake.Reply("Files/Search", tracks())
	fake.Reply("File/SetInfo", mcwstest.Response("OK"))
	ctx := context.Background()

	files, err := srv.Files.Search(ctx, "[Artist]=[Miles Davis]", SearchOptions{Fields: []string{"Name", "Rating"}})
	require.NoError(t, err)
	require.Len(t, files, 2)

	query := fake.LastQuery("Files/Search")
	require.Equal(t, "MPL", query.Get("Action"))
	require.Equal(t, "[Artist]=[Miles Davis]", query.Get("Query"))
	require.Equal(t, "Name,Rating", query.Get("Fields"))
	require.Equal(t, "0", query.Get("Shuffle"))
	require.Empty(t, query.Get("Zone"))

	rec := files[0]
	rating, _ := rec.Get("Rating")
	require.True(t, schema.Integer(4).Equal(rating))

	sent, err := srv.File.SetInfo(ctx, rec)
	require.NoError(t, err)
	require.False(t, sent)
	require.Equal(t, 0, fake.Hits("File/SetInfo"))

	rec.Set("Name", schema.Text("So What (Live)"))
	rec.Set("Rating", schema.Integer(5))

	sent, err = srv.File.SetInfo(ctx, rec)
	require.NoError(t, err)
	require.True(t, sent)

	query = fake.LastQuery("File/SetInfo")
	require.Equal(t, "42", query.Get("File"))
	require.Equal(t, "Key", query.Get("FileType"))
	require.Equal(t, "Name,Rating", query.Get("Field"))
	require.Equal(t, `"So What (Live)",5`, query.Get("Value"))
	require.Equal(t, "CSV", query.Get("List"))

	sent, err = srv.File.SetInfo(ctx, rec, "Rating")
	require.NoError(t, err)
	require.True(t, sent)
	query = fake.LastQuery("File/SetInfo")
	require.Equal(t, "Rating", query.Get("Field"))
	require.Equal(t, "5", query.Get("Value"))
	require.Empty(t, query.Get("List"))

	sent, err = srv.File.SetInfo(ctx, rec, "Artist")
	require.NoError(t, err)
	require.False(t, sent)
	require.Equal(t, 2, fake.Hits("File/SetInfo"))

	require.Equal(t, 1, fake.Hits("Library/Fields"))
}

func TestSetInfoFailure(t *testing.T) {
	srv, fake := newTestServer(t)
	fake.Reply("Files/Search", tracks())
	fake.Reply("File/SetInfo", mcwstest.Failure("Read only"))
	ctx := context.Background()

	files, err := srv.Files.Search(ctx, "x", SearchOptions{})
	require.NoError(t, err)
	files[0].Set("Name", schema.Text("New"))

	_, err = srv.File.SetInfo(ctx, files[0])
	require.Equal(t, mcwserr.ErrorCodeServerFailure, mcwserr.CodeOf(err))
}

func TestPlaybackCommands(t *testing.T) {
	srv, fake := newTestServer(t)
	for _, ext := range []string{"Playback/Play", "Playback/Pause", "Playback/StopAll", "Playback/Next"} {
		fake.Reply(ext, mcwstest.Response("OK"))
	}
	ctx := context.Background()

	require.NoError(t, srv.Playback.Play(ctx, nil))
	query := fake.LastQuery("Playback/Play")
	require.Equal(t, CurrentZoneID, query.Get("Zone"))
	require.Equal(t, "ID", query.Get("ZoneType"))

	require.NoError(t, srv.Playback.Pause(ctx, ZoneByName("Kitchen")))
	query = fake.LastQuery("Playback/Pause")
	require.Equal(t, "Kitchen", query.Get("Zone"))
	require.Equal(t, "Name", query.Get("ZoneType"))

	require.NoError(t, srv.Playback.Next(ctx, ZoneByIndex(2)))
	query = fake.LastQuery("Playback/Next")
	require.Equal(t, "2", query.Get("Zone"))
	require.Equal(t, "Index", query.Get("ZoneType"))

	require.NoError(t, srv.Playback.StopAll(ctx))
	query = fake.LastQuery("Playback/StopAll")
	_, hasZone := query["Zone"]
	require.False(t, hasZone)

	err := srv.Playback.Stop(ctx, nil)
	require.Equal(t, mcwserr.ErrorCodeTransport, mcwserr.CodeOf(err))
}

func TestZones(t *testing.T) {
	srv, fake := newTestServer(t)
	fake.Reply("Playback/Zones", mcwstest.Response("OK",
		mcwstest.Item{Name: "NumberZones", Value: "2"},
		mcwstest.Item{Name: "CurrentZoneID", Value: "10001"},
		mcwstest.Item{Name: "ZoneName0", Value: "Player"},
		mcwstest.Item{Name: "ZoneID0", Value: "10001"},
		mcwstest.Item{Name: "ZoneGUID0", Value: "{A}"},
		mcwstest.Item{Name: "ZoneDLNA0", Value: "0"},
		mcwstest.Item{Name: "ZoneName1", Value: "Kitchen"},
		mcwstest.Item{Name: "ZoneID1", Value: "10002"},
		mcwstest.Item{Name: "ZoneGUID1", Value: "{B}"},
		mcwstest.Item{Name: "ZoneDLNA1", Value: "1"},
	))

	zones, err := srv.Playback.Zones(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, zones, 2)
	require.Equal(t, "1", fake.LastQuery("Playback/Zones").Get("Hidden"))

	assert.Equal(t, "10002", zones[1].ID)
	assert.Equal(t, "Kitchen", zones[1].Name)
	assert.True(t, zones[1].DLNA)
	assert.False(t, zones[0].DLNA)
	require.NotNil(t, zones[1].Index)
	assert.Equal(t, 1, *zones[1].Index)

	value, zoneType := zones[1].Identifier()
	assert.Equal(t, "10002", value)
	assert.Equal(t, "ID", zoneType)
}

func TestVolumeAndMute(t *testing.T) {
	srv, fake := newTestServer(t)
	fake.Reply("Playback/Volume", mcwstest.Response("OK",
		mcwstest.Item{Name: "Level", Value: "0,5"},
		mcwstest.Item{Name: "Display", Value: "50%"},
	))
	fake.Reply("Playback/Info", mcwstest.Response("OK",
		mcwstest.Item{Name: "State", Value: "2"},
		mcwstest.Item{Name: "VolumeDisplay", Value: "Muted"},
	))
	fake.Reply("Playback/Mute", mcwstest.Response("OK", mcwstest.Item{Name: "State", Value: "0"}))
	ctx := context.Background()

	vol, err := srv.Playback.SetVolume(ctx, nil, 0.5, false)
	require.NoError(t, err)
	require.Equal(t, Volume{Level: 0.5, Display: "50%"}, vol)
	query := fake.LastQuery("Playback/Volume")
	require.Equal(t, "0.5", query.Get("Level"))
	require.Equal(t, "0", query.Get("Relative"))

	muted, err := srv.Playback.Mute(ctx, nil)
	require.NoError(t, err)
	require.True(t, muted)

	muted, err = srv.Playback.SetMute(ctx, nil, false)
	require.NoError(t, err)
	require.False(t, muted)
	require.Equal(t, "0", fake.LastQuery("Playback/Mute").Get("Set"))

	info, err := srv.Playback.Info(ctx, nil)
	require.NoError(t, err)
	require.True(t, schema.Integer(2).Equal(info.Typed()[0].Value))
}

func TestPositionRepeatShuffle(t *testing.T) {
	srv, fake := newTestServer(t)
	fake.Reply("Playback/Position", mcwstest.Response("OK", mcwstest.Item{Name: "Position", Value: "61000"}))
	fake.Reply("Playback/Repeat", mcwstest.Response("OK", mcwstest.Item{Name: "Mode", Value: "Playlist"}))
	fake.Reply("Playback/Shuffle", mcwstest.Response("OK", mcwstest.Item{Name: "Mode", Value: "Off"}))
	ctx := context.Background()

	pos, err := srv.Playback.Position(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, 61000, pos)
	_, hasPosition := fake.LastQuery("Playback/Position")["Position"]
	require.False(t, hasPosition)

	_, err = srv.Playback.Seek(ctx, nil, 10000, 1)
	require.NoError(t, err)
	query := fake.LastQuery("Playback/Position")
	require.Equal(t, "10000", query.Get("Position"))
	require.Equal(t, "1", query.Get("Relative"))

	mode, err := srv.Playback.Repeat(ctx, nil, "")
	require.NoError(t, err)
	require.Equal(t, "Playlist", mode)
	_, hasMode := fake.LastQuery("Playback/Repeat")["Mode"]
	require.False(t, hasMode)

	mode, err = srv.Playback.Shuffle(ctx, nil, ShuffleOff)
	require.NoError(t, err)
	require.Equal(t, "Off", mode)
	require.Equal(t, "Off", fake.LastQuery("Playback/Shuffle").Get("Mode"))
}

func TestPlaylist(t *testing.T) {
	srv, fake := newTestServer(t)
	fake.Reply("Playback/Playlist", tracks())
	fake.Reply("Playback/SetPlaylist", mcwstest.Response("OK"))
	fake.Reply("Playback/LoadDSPPreset", mcwstest.Response("OK"))
	ctx := context.Background()

	files, err := srv.Playback.Playlist(ctx, nil, PlaylistOptions{})
	require.NoError(t, err)
	require.Len(t, files, 2)
	query := fake.LastQuery("Playback/Playlist")
	require.Equal(t, "MPL", query.Get("Action"))
	require.Equal(t, "-1", query.Get("ActiveFile"))

	require.NoError(t, srv.Playback.SetPlaylist(ctx, nil, files, 1))
	require.Equal(t, "2;2;1;42;43", fake.LastQuery("Playback/SetPlaylist").Get("Playlist"))

	require.NoError(t, srv.Playback.LoadDSPPreset(ctx, ZoneByName("Kitchen"), "Night"))
	require.Equal(t, "Night", fake.LastQuery("Playback/LoadDSPPreset").Get("Name"))
}

func TestGetImage(t *testing.T) {
	srv, fake := newTestServer(t)
	fake.Reply("Files/Search", tracks())
	ctx := context.Background()

	files, err := srv.Files.Search(ctx, "x", SearchOptions{})
	require.NoError(t, err)

	fake.Fail("File/GetImage", http.StatusInternalServerError)
	image, err := srv.Files.GetImage(ctx, files[0], ImageOptions{})
	require.NoError(t, err)
	require.Nil(t, image)
	require.Equal(t, 1, fake.Hits("File/GetImage"))

	query := fake.LastQuery("File/GetImage")
	require.Equal(t, "42", query.Get("File"))
	require.Equal(t, "Key", query.Get("FileType"))
	require.Equal(t, "Thumbnail", query.Get("Type"))
	require.Equal(t, "jpg", query.Get("Format"))

	url, err := srv.Files.ImageURL(ctx, files[1], ImageOptions{Type: "Full", Width: 300})
	require.NoError(t, err)
	require.Contains(t, url, srv.Resolver().BaseURL()+"File/GetImage?")
	require.Contains(t, url, "File=43&FileType=Key")
	require.Contains(t, url, "Width=300")
}

func TestGetImageBytes(t *testing.T) {
	srv, fake := newTestServer(t)
	fake.Reply("Files/Search", tracks())
	fake.Handle("File/GetImage", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte{0xff, 0xd8, 0xff})
	})
	ctx := context.Background()

	files, err := srv.Files.Search(ctx, "x", SearchOptions{})
	require.NoError(t, err)

	image, err := srv.Files.GetImage(ctx, files[0], ImageOptions{Square: true})
	require.NoError(t, err)
	require.Equal(t, []byte{0xff, 0xd8, 0xff}, image)
	require.Equal(t, "1", fake.LastQuery("File/GetImage").Get("Square"))
}

func TestLibrary(t *testing.T) {
	srv, fake := newTestServer(t)
	fake.Reply("Library/List", mcwstest.Response("OK",
		mcwstest.Item{Name: "NumberOfLibraries", Value: "2"},
		mcwstest.Item{Name: "DefaultLibrary", Value: "1"},
		mcwstest.Item{Name: "Library0Name", Value: "Main"},
		mcwstest.Item{Name: "Library0Loaded", Value: "0"},
		mcwstest.Item{Name: "Library0Path", Value: `C:\Main`},
		mcwstest.Item{Name: "Library1Name", Value: "Office"},
		mcwstest.Item{Name: "Library1Loaded", Value: "1"},
		mcwstest.Item{Name: "Library1Path", Value: `D:\Office`},
	))
	fake.Reply("Library/Values", `<Response Status="OK"><Item>Miles Davis</Item><Item>John Coltrane</Item></Response>`)
	fake.Reply("Library/CreateFile", mcwstest.Response("OK", mcwstest.Item{Name: "Key", Value: "99"}))
	fake.Reply("Library/CreateField", mcwstest.Response("OK"))
	ctx := context.Background()

	list, err := srv.Library.List(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, list.DefaultID)
	require.Len(t, list.Libraries, 2)
	require.Equal(t, "Main", list.Libraries[0].Name)
	path, _ := list.Libraries[1].Attributes.Get("Path")
	require.Equal(t, `D:\Office`, path)

	def, err := srv.Library.Default(ctx)
	require.NoError(t, err)
	require.Equal(t, "Office", def.Name)

	loaded, ok, err := srv.Library.Loaded(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, loaded.ID)

	values, err := srv.Library.Values(ctx, ValuesQuery{Fields: []string{"Artist"}, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, []string{"Miles Davis", "John Coltrane"}, values)
	query := fake.LastQuery("Library/Values")
	require.Equal(t, "Artist", query.Get("Field"))
	require.Equal(t, "10", query.Get("Limit"))
	require.Equal(t, "2", query.Get("Version"))

	rec, err := srv.Library.CreateFile(ctx)
	require.NoError(t, err)
	key, ok := rec.Key()
	require.True(t, ok)
	require.Equal(t, int64(99), key)

	require.NoError(t, srv.Library.CreateField(ctx, "Mood", "", ""))
	require.Equal(t, "string", fake.LastQuery("Library/CreateField").Get("Type"))
	require.Nil(t, srv.Registry().Cached())
}

func TestRecipes(t *testing.T) {
	srv, fake := newTestServer(t)
	fake.Reply("Playback/Shuffle", mcwstest.Response("OK", mcwstest.Item{Name: "Mode", Value: "Off"}))
	fake.Reply("Playback/Repeat", mcwstest.Response("OK", mcwstest.Item{Name: "Mode", Value: "Playlist"}))
	fake.Reply("Files/Search", mcwstest.Response("OK"))
	ctx := context.Background()

	repeat := true
	err := srv.Recipes.PlayAlbum(ctx, "Miles Davis", "Kind of Blue [Legacy]", AlbumOptions{Repeat: &repeat})
	require.NoError(t, err)

	require.Equal(t, "Off", fake.LastQuery("Playback/Shuffle").Get("Mode"))
	require.Equal(t, "Playlist", fake.LastQuery("Playback/Repeat").Get("Mode"))
	query := fake.LastQuery("Files/Search")
	require.Equal(t, "Play", query.Get("Action"))
	require.Equal(t, "[Album Artist]=[Miles Davis] [Album]=[Kind of Blue /[Legacy/]] ~sort=[Disc #],[Track #]", query.Get("Query"))

	require.NoError(t, srv.Recipes.PlayKeyword(ctx, "Party", KeywordOptions{Shuffle: true}))
	query = fake.LastQuery("Files/Search")
	require.Equal(t, "[keywords]=[Party]", query.Get("Query"))
	require.Equal(t, "1", query.Get("Shuffle"))
	require.Equal(t, 1, fake.Hits("Playback/Shuffle"))
}

func TestQueryKeyword(t *testing.T) {
	srv, fake := newTestServer(t)
	fake.Reply("Files/Search", tracks())

	files, err := srv.Recipes.QueryKeyword(context.Background(), "Favorites", "Artist", "Name")
	require.NoError(t, err)
	require.Len(t, files, 2)
	require.Equal(t, "[keywords]=[Favorites] ~sort=[Artist],[Name]", fake.LastQuery("Files/Search").Get("Query"))
}

func TestEscapeQuery(t *testing.T) {
	require.Equal(t, `AC/DC`, EscapeQuery(`AC/DC`))
	require.Equal(t, `/"Live/" /[1977/] /^`, EscapeQuery(`"Live" [1977] ^`))
}

func TestSerializeFileList(t *testing.T) {
	require.Equal(t, "2;0;-1", SerializeFileList(nil, -1))
	require.Equal(t, "2;3;0;1;2;3", SerializeFileList([]int64{1, 2, 3}, 0))
}

func TestZoneIdentifier(t *testing.T) {
	var current *Zone
	value, zoneType := current.Identifier()
	require.Equal(t, CurrentZoneID, value)
	require.Equal(t, "ID", zoneType)

	index := 3
	value, zoneType = (&Zone{Name: "Den", Index: &index}).Identifier()
	require.Equal(t, "Den", value)
	require.Equal(t, "Name", zoneType)

	value, zoneType = (&Zone{}).Identifier()
	require.Equal(t, CurrentZoneID, value)
	require.Equal(t, "ID", zoneType)
}

func TestTransformPaths(t *testing.T) {
	in := []string{`M:\Jazz\Kind of Blue\01.flac`, `M:\Rock/mixed.mp3`}

	unix := TransformPaths(in, `M:`, "/mnt/music", PathUnix)
	require.Equal(t, []string{"/mnt/music/Jazz/Kind of Blue/01.flac", "/mnt/music/Rock/mixed.mp3"}, unix)
	require.Equal(t, `M:\Jazz\Kind of Blue\01.flac`, in[0])

	win := TransformPaths(unix, "/mnt/music", `M:`, PathWindows)
	require.Equal(t, []string{`M:\Jazz\Kind of Blue\01.flac`, `M:\Rock\mixed.mp3`}, win)

	kept := TransformPaths([]string{"/a/b"}, "", "", PathKeep)
	require.Equal(t, []string{"/a/b"}, kept)
}
