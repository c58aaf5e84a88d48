// Package mcws is a client for the JRiver Media Center web service (MCWS).
//
// A Server resolves its access key on first use and groups the API into
// sub-clients:
//
//	srv := mcws.New("ABC123", "user", "secret", endpoint.WithLogger(log))
//	files, err := srv.Files.Search(ctx, "[Artist]=[Miles Davis]", mcws.SearchOptions{})
//
// Records returned by Search and Playlist track edits; File.SetInfo writes
// back only the changed fields.
//
// A Server is not safe for concurrent use.
package mcws

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/strefethen/mcws-go/pkg/mcws/endpoint"
	"github.com/strefethen/mcws-go/pkg/mcws/record"
	"github.com/strefethen/mcws-go/pkg/mcws/response"
	"github.com/strefethen/mcws-go/pkg/mcws/schema"
)

// Server is one media server addressed by an access key.
type Server struct {
	Library  *LibraryAPI
	Playback *PlaybackAPI
	File     *FileAPI
	Files    *FilesAPI
	Recipes  *RecipesAPI

	core *core
}

// core is shared by all sub-clients of one Server.
type core struct {
	resolver *endpoint.Resolver
	registry *schema.Registry
	log      zerolog.Logger
}

// New creates a Server. Nothing is sent until the first call.
func New(key, username, password string, opts ...endpoint.Option) *Server {
	resolver := endpoint.New(key, username, password, opts...)
	c := &core{
		resolver: resolver,
		registry: schema.NewRegistry(resolver, resolver.Logger()),
		log:      resolver.Logger().With().Str("component", "mcws").Logger(),
	}

	s := &Server{core: c}
	s.Library = &LibraryAPI{core: c}
	s.Playback = &PlaybackAPI{core: c}
	s.File = &FileAPI{core: c}
	s.Files = &FilesAPI{core: c}
	s.Recipes = &RecipesAPI{playback: s.Playback, files: s.Files}
	return s
}

// Resolver exposes the connection state machine.
func (s *Server) Resolver() *endpoint.Resolver {
	return s.core.resolver
}

// Schema returns the cached field catalogue, fetching it on first use.
func (s *Server) Schema(ctx context.Context) (*schema.Schema, error) {
	return s.core.registry.Schema(ctx)
}

// Registry exposes the field catalogue cache.
func (s *Server) Registry() *schema.Registry {
	return s.core.registry
}

// Resolve re-runs endpoint resolution. See endpoint.Resolver.Resolve.
func (s *Server) Resolve(ctx context.Context) (bool, error) {
	return s.core.resolver.Resolve(ctx)
}

// Alive returns the server's identity attributes.
func (s *Server) Alive(ctx context.Context) (response.Attributes, error) {
	return s.core.attributes(ctx, "Alive", nil)
}

func (c *core) send(ctx context.Context, extension string, params endpoint.Params) (*endpoint.Response, error) {
	return c.resolver.Send(ctx, extension, params)
}

// call sends a request whose reply carries only a status.
func (c *core) call(ctx context.Context, extension string, params endpoint.Params) error {
	resp, err := c.send(ctx, extension, params)
	if err != nil {
		return err
	}
	return response.CheckStatus(resp.Body)
}

func (c *core) attributes(ctx context.Context, extension string, params endpoint.Params) (response.Attributes, error) {
	resp, err := c.send(ctx, extension, params)
	if err != nil {
		return nil, err
	}
	return response.ParseAttributes(resp.Body)
}

func (c *core) list(ctx context.Context, extension string, params endpoint.Params) ([]string, error) {
	resp, err := c.send(ctx, extension, params)
	if err != nil {
		return nil, err
	}
	return response.ParseList(resp.Body)
}

// records fetches the schema before the request so an MPL reply can be
// decoded.
func (c *core) records(ctx context.Context, extension string, params endpoint.Params) ([]*record.Record, error) {
	s, err := c.registry.Schema(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := c.send(ctx, extension, params)
	if err != nil {
		return nil, err
	}
	return response.ParseItems(resp.Body, s)
}
