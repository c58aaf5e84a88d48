package mcws

import (
	"context"
	"strconv"
	"strings"

	"github.com/strefethen/mcws-go/pkg/mcws/endpoint"
	"github.com/strefethen/mcws-go/pkg/mcws/mcwserr"
	"github.com/strefethen/mcws-go/pkg/mcws/record"
	"github.com/strefethen/mcws-go/pkg/mcws/response"
)

// Playback commands accepted by Command.
const (
	CommandPlay      = "Play"
	CommandPause     = "Pause"
	CommandPlayPause = "PlayPause"
	CommandStop      = "Stop"
	CommandStopAll   = "StopAll"
	CommandNext      = "Next"
	CommandPrevious  = "Previous"
)

// Repeat modes.
const (
	RepeatOff      = "Off"
	RepeatPlaylist = "Playlist"
	RepeatTrack    = "Track"
	RepeatStop     = "Stop"
	RepeatToggle   = "Toggle"
)

// Shuffle modes.
const (
	ShuffleOff       = "Off"
	ShuffleOn        = "On"
	ShuffleAutomatic = "Automatic"
	ShuffleToggle    = "Toggle"
	ShuffleReshuffle = "Reshuffle"
)

const mutedDisplay = "Muted"

// PlaybackAPI covers the Playback/* calls. A nil *Zone targets the zone
// selected in the Media Center UI.
type PlaybackAPI struct {
	core *core
}

// Command sends a transport command such as CommandPlay to zone.
// CommandStopAll ignores zone.
func (p *PlaybackAPI) Command(ctx context.Context, command string, zone *Zone) error {
	params := endpoint.Params{}
	if command != CommandStopAll {
		zone.apply(params)
	}
	return p.core.call(ctx, "Playback/"+command, params)
}

// Play starts playback in zone.
func (p *PlaybackAPI) Play(ctx context.Context, zone *Zone) error {
	return p.Command(ctx, CommandPlay, zone)
}

// Pause pauses zone.
func (p *PlaybackAPI) Pause(ctx context.Context, zone *Zone) error {
	return p.Command(ctx, CommandPause, zone)
}

func (p *PlaybackAPI) PlayPause(ctx context.Context, zone *Zone) error {
	return p.Command(ctx, CommandPlayPause, zone)
}

func (p *PlaybackAPI) Stop(ctx context.Context, zone *Zone) error {
	return p.Command(ctx, CommandStop, zone)
}

// StopAll stops every zone.
func (p *PlaybackAPI) StopAll(ctx context.Context) error {
	return p.Command(ctx, CommandStopAll, nil)
}

func (p *PlaybackAPI) Next(ctx context.Context, zone *Zone) error {
	return p.Command(ctx, CommandNext, zone)
}

func (p *PlaybackAPI) Previous(ctx context.Context, zone *Zone) error {
	return p.Command(ctx, CommandPrevious, zone)
}

// Zones lists playback zones, including hidden ones when asked.
func (p *PlaybackAPI) Zones(ctx context.Context, includeHidden bool) ([]Zone, error) {
	attrs, err := p.core.attributes(ctx, "Playback/Zones", endpoint.Params{"Hidden": includeHidden})
	if err != nil {
		return nil, err
	}

	raw, _ := attrs.Get("NumberZones")
	count, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil, &mcwserr.DecodeError{What: "zone list", Err: err}
	}

	values := attrs.Map()
	zones := make([]Zone, 0, count)
	for i := 0; i < count; i++ {
		suffix := strconv.Itoa(i)
		index := i
		zones = append(zones, Zone{
			ID:    values["ZoneID"+suffix],
			Name:  values["ZoneName"+suffix],
			Index: &index,
			GUID:  values["ZoneGUID"+suffix],
			DLNA:  values["ZoneDLNA"+suffix] == "1",
		})
	}
	return zones, nil
}

// Position returns the playback position in milliseconds.
func (p *PlaybackAPI) Position(ctx context.Context, zone *Zone) (int, error) {
	return p.position(ctx, zone.apply(endpoint.Params{}))
}

// Seek moves to positionMS. With relative 1 or -1 the position is added
// to or subtracted from the current one; a position of -1 jumps by the
// default amount for the media type. It returns the new position.
func (p *PlaybackAPI) Seek(ctx context.Context, zone *Zone, positionMS int, relative int) (int, error) {
	params := zone.apply(endpoint.Params{"Position": positionMS})
	if relative != 0 {
		params["Relative"] = relative
	}
	return p.position(ctx, params)
}

func (p *PlaybackAPI) position(ctx context.Context, params endpoint.Params) (int, error) {
	attrs, err := p.core.attributes(ctx, "Playback/Position", params)
	if err != nil {
		return 0, err
	}
	return intAttribute(attrs, "Position", "position")
}

// Volume is a zone's volume as a 0..1 level and as displayed.
type Volume struct {
	Level   float64
	Display string
}

// Volume returns the current volume.
func (p *PlaybackAPI) Volume(ctx context.Context, zone *Zone) (Volume, error) {
	return p.volume(ctx, zone.apply(endpoint.Params{}))
}

// SetVolume sets the level (0..1), or adjusts it by level when relative.
func (p *PlaybackAPI) SetVolume(ctx context.Context, zone *Zone, level float64, relative bool) (Volume, error) {
	return p.volume(ctx, zone.apply(endpoint.Params{"Level": level, "Relative": relative}))
}

func (p *PlaybackAPI) volume(ctx context.Context, params endpoint.Params) (Volume, error) {
	attrs, err := p.core.attributes(ctx, "Playback/Volume", params)
	if err != nil {
		return Volume{}, err
	}
	raw, _ := attrs.Get("Level")
	level, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(raw), ",", "."), 64)
	if err != nil {
		return Volume{}, &mcwserr.DecodeError{What: "volume", Err: err}
	}
	display, _ := attrs.Get("Display")
	return Volume{Level: level, Display: display}, nil
}

// Mute reports whether zone is muted without changing it.
func (p *PlaybackAPI) Mute(ctx context.Context, zone *Zone) (bool, error) {
	info, err := p.Info(ctx, zone)
	if err != nil {
		return false, err
	}
	display, _ := info.Get("VolumeDisplay")
	return display == mutedDisplay, nil
}

// SetMute sets the mute state and returns the state after the change.
func (p *PlaybackAPI) SetMute(ctx context.Context, zone *Zone, muted bool) (bool, error) {
	attrs, err := p.core.attributes(ctx, "Playback/Mute", zone.apply(endpoint.Params{"Set": muted}))
	if err != nil {
		return false, err
	}
	state, _ := attrs.Get("State")
	return state == "1", nil
}

// Repeat sets the repeat mode, or only reads it when mode is empty, and
// returns the mode in effect.
func (p *PlaybackAPI) Repeat(ctx context.Context, zone *Zone, mode string) (string, error) {
	return p.mode(ctx, "Playback/Repeat", zone, mode)
}

// Shuffle sets the shuffle mode, or only reads it when mode is empty, and
// returns the mode in effect.
func (p *PlaybackAPI) Shuffle(ctx context.Context, zone *Zone, mode string) (string, error) {
	return p.mode(ctx, "Playback/Shuffle", zone, mode)
}

func (p *PlaybackAPI) mode(ctx context.Context, extension string, zone *Zone, mode string) (string, error) {
	params := zone.apply(endpoint.Params{})
	if mode != "" {
		params["Mode"] = mode
	}
	attrs, err := p.core.attributes(ctx, extension, params)
	if err != nil {
		return "", err
	}
	current, _ := attrs.Get("Mode")
	return current, nil
}

// Info returns the playback state of zone. Use Typed on the result for
// integer-cast values.
func (p *PlaybackAPI) Info(ctx context.Context, zone *Zone) (response.Attributes, error) {
	return p.core.attributes(ctx, "Playback/Info", zone.apply(endpoint.Params{}))
}

// PlaylistOptions tune Playback/Playlist. Zero values are the server
// defaults.
type PlaylistOptions struct {
	Shuffle          bool
	ActiveFile       *int
	ActiveFileOnly   bool
	PlayMode         string
	Fields           []string
	NoLocalFilenames bool
	PlayDoctor       bool
	SaveMode         string
	SaveName         string
	NoUI             bool
}

func (o PlaylistOptions) params(action string, zone *Zone) endpoint.Params {
	activeFile := -1
	if o.ActiveFile != nil {
		activeFile = *o.ActiveFile
	}
	params := endpoint.Params{
		"Action":           action,
		"ActiveFile":       activeFile,
		"Shuffle":          o.Shuffle,
		"ActiveFileOnly":   o.ActiveFileOnly,
		"NoLocalFilenames": o.NoLocalFilenames,
		"PlayDoctor":       o.PlayDoctor,
		"NoUI":             o.NoUI,
	}
	if o.PlayMode != "" {
		params["PlayMode"] = o.PlayMode
	}
	if o.SaveMode != "" {
		params["SaveMode"] = o.SaveMode
	}
	if o.SaveName != "" {
		params["SaveName"] = o.SaveName
	}
	if len(o.Fields) > 0 {
		params["Fields"] = strings.Join(o.Fields, ",")
	}
	return zone.apply(params)
}

// Playlist returns the files queued in zone.
func (p *PlaybackAPI) Playlist(ctx context.Context, zone *Zone, opts PlaylistOptions) ([]*record.Record, error) {
	return p.core.records(ctx, "Playback/Playlist", opts.params("MPL", zone))
}

// PlaylistAction runs Playback/Playlist with an action other than MPL,
// such as Save, and returns the raw reply.
func (p *PlaybackAPI) PlaylistAction(ctx context.Context, zone *Zone, action string, opts PlaylistOptions) (*endpoint.Response, error) {
	return p.core.send(ctx, "Playback/Playlist", opts.params(action, zone))
}

// SetPlaylist replaces the playlist of zone with files; active is the index
// of the playing file or -1.
func (p *PlaybackAPI) SetPlaylist(ctx context.Context, zone *Zone, files []*record.Record, active int) error {
	keys, err := FileKeys(files)
	if err != nil {
		return err
	}
	return p.SetSerializedPlaylist(ctx, zone, SerializeFileList(keys, active))
}

// SetSerializedPlaylist replaces the playlist with an already serialized
// file list.
func (p *PlaybackAPI) SetSerializedPlaylist(ctx context.Context, zone *Zone, playlist string) error {
	return p.core.call(ctx, "Playback/SetPlaylist", zone.apply(endpoint.Params{"Playlist": playlist}))
}

// LoadDSPPreset loads the named DSP preset in zone.
func (p *PlaybackAPI) LoadDSPPreset(ctx context.Context, zone *Zone, name string) error {
	return p.core.call(ctx, "Playback/LoadDSPPreset", zone.apply(endpoint.Params{"Name": name}))
}

func intAttribute(attrs response.Attributes, name, what string) (int, error) {
	raw, _ := attrs.Get(name)
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &mcwserr.DecodeError{What: what, Err: err}
	}
	return n, nil
}
