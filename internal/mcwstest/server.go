// Package mcwstest provides fake MCWS and key lookup servers for tests.
package mcwstest

import (
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const apiPrefix = "/MCWS/v1/"

// Server is a fake media server answering MCWS control requests.
type Server struct {
	*httptest.Server
	Router chi.Router

	mu      sync.Mutex
	alive   bool
	hits    map[string]int
	queries map[string][]url.Values
}

// ServerOption configures a Server before it starts.
type ServerOption func(*serverConfig)

type serverConfig struct {
	username string
	password string
}

// WithBasicAuth requires HTTP basic credentials on every route.
func WithBasicAuth(username, password string) ServerOption {
	return func(cfg *serverConfig) {
		cfg.username = username
		cfg.password = password
	}
}

// NewServer starts a fake server that answers Alive until SetAlive(false).
// The server is closed when the test ends.
func NewServer(t testing.TB, opts ...ServerOption) *Server {
	t.Helper()

	cfg := serverConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Server{
		alive:   true,
		hits:    make(map[string]int),
		queries: make(map[string][]url.Values),
	}

	router := chi.NewRouter()
	router.Use(s.record)
	if cfg.username != "" {
		router.Use(middleware.BasicAuth("mcws", map[string]string{cfg.username: cfg.password}))
	}
	router.Get(apiPrefix+"Alive", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		alive := s.alive
		s.mu.Unlock()
		if !alive {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		WriteXML(w, Response("OK",
			Item{Name: "RuntimeGUID", Value: "{5B1C9F3E-6C2A-4B8E-9D3A-1F2E3D4C5B6A}"},
			Item{Name: "LibraryVersion", Value: "24"},
			Item{Name: "ProgramName", Value: "JRiver Media Center"},
			Item{Name: "ProgramVersion", Value: "31.0.87"},
			Item{Name: "FriendlyName", Value: "Office"},
			Item{Name: "AccessKey", Value: "ABC123"},
		))
	})

	s.Router = router
	s.Server = httptest.NewServer(router)
	t.Cleanup(s.Close)
	return s
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		extension := strings.TrimPrefix(r.URL.Path, apiPrefix)
		s.mu.Lock()
		s.hits[extension]++
		s.queries[extension] = append(s.queries[extension], r.URL.Query())
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// Host returns the listener's IP.
func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.Listener.Addr().String())
	return host
}

// Port returns the listener's port.
func (s *Server) Port() string {
	_, port, _ := net.SplitHostPort(s.Listener.Addr().String())
	return port
}

// Addr returns host:port of the listener.
func (s *Server) Addr() string {
	return s.Listener.Addr().String()
}

// SetAlive toggles the Alive endpoint between 200 and 503.
func (s *Server) SetAlive(alive bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alive = alive
}

// Handle registers h for GET extension.
func (s *Server) Handle(extension string, h http.HandlerFunc) {
	s.Router.Get(apiPrefix+extension, h)
}

// Reply registers a fixed 200 XML body for extension.
func (s *Server) Reply(extension, body string) {
	s.Handle(extension, func(w http.ResponseWriter, r *http.Request) {
		WriteXML(w, body)
	})
}

// Fail registers a fixed error status for extension.
func (s *Server) Fail(extension string, status int) {
	s.Handle(extension, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
}

// Hits returns how many requests reached extension.
func (s *Server) Hits(extension string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[extension]
}

// LastQuery returns the query of the latest request to extension.
func (s *Server) LastQuery(extension string) url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	queries := s.queries[extension]
	if len(queries) == 0 {
		return nil
	}
	return queries[len(queries)-1]
}

// WriteXML writes body with an XML content type.
func WriteXML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	_, _ = w.Write([]byte(body))
}

// LookupServer is a fake key lookup service.
type LookupServer struct {
	*httptest.Server

	mu    sync.Mutex
	reply string
	hits  int
	keys  []string
}

// NewLookupServer starts a lookup service answering every id with reply.
func NewLookupServer(t testing.TB, reply string) *LookupServer {
	t.Helper()

	ls := &LookupServer{reply: reply}
	router := chi.NewRouter()
	router.Get("/libraryserver/lookup", func(w http.ResponseWriter, r *http.Request) {
		ls.mu.Lock()
		ls.hits++
		ls.keys = append(ls.keys, r.URL.Query().Get("id"))
		body := ls.reply
		ls.mu.Unlock()
		WriteXML(w, body)
	})

	ls.Server = httptest.NewServer(router)
	t.Cleanup(ls.Close)
	return ls
}

// LookupURL returns the lookup endpoint URL.
func (ls *LookupServer) LookupURL() string {
	return ls.Server.URL + "/libraryserver/lookup"
}

// SetReply replaces the reply body.
func (ls *LookupServer) SetReply(reply string) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.reply = reply
}

// Hits returns the number of lookups served.
func (ls *LookupServer) Hits() int {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.hits
}

// Keys returns the ids looked up, in order.
func (ls *LookupServer) Keys() []string {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return append([]string(nil), ls.keys...)
}

// ErrConnectionRefused is returned by HostRouter for hosts marked down.
var ErrConnectionRefused = errors.New("mcwstest: connection refused")

// HostRouter is an http.RoundTripper that maps fictitious hosts (as handed
// out by a lookup reply) onto real test listeners, ignoring the port.
type HostRouter struct {
	mu     sync.Mutex
	routes map[string]string
	down   map[string]bool
	base   http.RoundTripper
}

// NewHostRouter returns a router passing unknown hosts through unchanged.
func NewHostRouter() *HostRouter {
	return &HostRouter{
		routes: make(map[string]string),
		down:   make(map[string]bool),
		base:   http.DefaultTransport,
	}
}

// Route sends requests for host to addr (host:port).
func (h *HostRouter) Route(host, addr string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.routes[host] = addr
	delete(h.down, host)
}

// Down makes requests for host fail with ErrConnectionRefused.
func (h *HostRouter) Down(host string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.down[host] = true
}

// RoundTrip implements http.RoundTripper.
func (h *HostRouter) RoundTrip(req *http.Request) (*http.Response, error) {
	host := req.URL.Hostname()

	h.mu.Lock()
	addr, routed := h.routes[host]
	down := h.down[host]
	h.mu.Unlock()

	if down {
		return nil, &net.OpError{Op: "dial", Net: "tcp", Err: ErrConnectionRefused}
	}
	if !routed {
		return h.base.RoundTrip(req)
	}

	out := req.Clone(req.Context())
	out.URL.Host = addr
	out.Host = addr
	return h.base.RoundTrip(out)
}

// Client returns an HTTP client using this router.
func (h *HostRouter) Client() *http.Client {
	return &http.Client{Transport: h}
}
