// Package endpoint resolves an MCWS access key to a reachable address and
// executes control requests against it.
//
// A Resolver walks a small state machine: Unknown, Local, Remote and
// Unreachable. Resolve re-probes a known local address, falls back to the
// key lookup service, and probes local candidates before the remote address.
// Send retries a failed request exactly once after re-resolving.
//
// A Resolver is not safe for concurrent use.
package endpoint

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	// LocalKey is the reserved access key addressing the server on this machine.
	LocalKey = "localhost"

	DefaultLookupURL = "http://webplay.jriver.com/libraryserver/lookup"
	DefaultAPIRoot   = "MCWS/v1"

	loopbackAddress = "127.0.0.1"
	defaultPort     = "52199"

	defaultLocalProbeTimeout  = 2 * time.Second
	defaultRemoteProbeTimeout = 3 * time.Second
	defaultLookupTimeout      = 5 * time.Second
	defaultRequestTimeout     = 30 * time.Second

	// maxAttempts bounds Send to the first try plus one resolve-and-retry.
	maxAttempts = 2
)

// Resolver owns the connection state for one access key.
type Resolver struct {
	key      string
	username string
	password string

	apiRoot            string
	lookupURL          string
	httpClient         *http.Client
	localProbeTimeout  time.Duration
	remoteProbeTimeout time.Duration
	lookupTimeout      time.Duration

	state    State
	restored bool

	log      zerolog.Logger
	baseLog  zerolog.Logger
	observer Observer
	store    StateStore
	now      func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the structured logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Resolver) {
		r.log = logger
	}
}

// WithHTTPClient replaces the pooled HTTP client shared by all requests.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Resolver) {
		if client != nil {
			r.httpClient = client
		}
	}
}

// WithRequestTimeout sets the overall timeout of the default HTTP client.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(r *Resolver) {
		if timeout > 0 {
			r.httpClient = newHTTPClient(timeout)
		}
	}
}

// WithLookupURL overrides the key lookup service URL.
func WithLookupURL(lookupURL string) Option {
	return func(r *Resolver) {
		if lookupURL != "" {
			r.lookupURL = lookupURL
		}
	}
}

// WithAPIRoot overrides the path prefix of control requests.
func WithAPIRoot(root string) Option {
	return func(r *Resolver) {
		if root != "" {
			r.apiRoot = root
		}
	}
}

// WithProbeTimeouts sets the per-attempt timeouts of local and remote
// reachability probes. Zero leaves a timeout unchanged.
func WithProbeTimeouts(local, remote time.Duration) Option {
	return func(r *Resolver) {
		if local > 0 {
			r.localProbeTimeout = local
		}
		if remote > 0 {
			r.remoteProbeTimeout = remote
		}
	}
}

// WithObserver installs a request lifecycle observer, e.g. a metrics collector.
func WithObserver(observer Observer) Option {
	return func(r *Resolver) {
		if observer != nil {
			r.observer = observer
		}
	}
}

// WithStateStore enables warm starts from previously persisted state.
func WithStateStore(store StateStore) Option {
	return func(r *Resolver) {
		r.store = store
	}
}

// New creates a Resolver. When username or password is empty, requests are
// sent without authentication. The reserved LocalKey starts out Local on the
// loopback address and never contacts the lookup service.
func New(key, username, password string, opts ...Option) *Resolver {
	r := &Resolver{
		key:                key,
		username:           username,
		password:           password,
		apiRoot:            DefaultAPIRoot,
		lookupURL:          DefaultLookupURL,
		httpClient:         newHTTPClient(defaultRequestTimeout),
		localProbeTimeout:  defaultLocalProbeTimeout,
		remoteProbeTimeout: defaultRemoteProbeTimeout,
		lookupTimeout:      defaultLookupTimeout,
		log:                zerolog.Nop(),
		observer:           nopObserver{},
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.baseLog = r.log
	r.log = r.log.With().Str("component", "endpoint").Str("access_key", key).Logger()

	if r.isLocalKey() {
		r.state = State{
			Strategy:        StrategyLocal,
			KeyID:           key,
			LocalCandidates: []string{loopbackAddress},
			ActiveLocal:     loopbackAddress,
			Port:            defaultPort,
		}
	}
	return r
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext:         (&net.Dialer{Timeout: timeout}).DialContext,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// Key returns the access key this resolver was created with.
func (r *Resolver) Key() string {
	return r.key
}

// Logger returns the logger passed with WithLogger, untagged.
func (r *Resolver) Logger() zerolog.Logger {
	return r.baseLog
}

// State returns a copy of the current connection state.
func (r *Resolver) State() State {
	return r.state.clone()
}

// Address returns the host for the active strategy, or "" when unresolved.
func (r *Resolver) Address() string {
	return r.state.Address()
}

// BaseURL returns the control API root for the active address, or "".
func (r *Resolver) BaseURL() string {
	return r.baseURL(r.state.Address())
}

func (r *Resolver) baseURL(host string) string {
	if host == "" || r.state.Port == "" {
		return ""
	}
	return fmt.Sprintf("http://%s/%s/", net.JoinHostPort(host, r.state.Port), r.apiRoot)
}

func (r *Resolver) isLocalKey() bool {
	return r.key == LocalKey
}

func (r *Resolver) hasCredentials() bool {
	return r.username != "" && r.password != ""
}

func (r *Resolver) authorize(req *http.Request) {
	if r.hasCredentials() {
		req.SetBasicAuth(r.username, r.password)
	}
}

// Resolve picks the best way to reach the server, contacting the lookup
// service when no usable strategy is known. It reports whether the server is
// reachable; an unreachable server is not an error. A key rejected by the
// lookup service yields *mcwserr.UnresolvableKeyError.
func (r *Resolver) Resolve(ctx context.Context) (bool, error) {
	start := r.now()
	ok, err := r.resolve(ctx)
	r.observer.ObserveResolve(r.state.Strategy, r.now().Sub(start), err)
	if err != nil {
		return false, err
	}
	if ok {
		r.persist(ctx)
	}
	return ok, nil
}

func (r *Resolver) resolve(ctx context.Context) (bool, error) {
	r.restore(ctx)
	r.log.Debug().Str("strategy", r.state.Strategy.String()).Msg("refreshing access key")

	if r.isLocalKey() {
		return r.settle(r.probeLocal(ctx), false), nil
	}

	if r.state.Strategy == StrategyLocal {
		if r.probeLocal(ctx) {
			return r.settle(true, false), nil
		}
		r.state.Strategy = StrategyUnknown
	}

	if r.state.Strategy == StrategyUnknown || r.state.Strategy == StrategyUnreachable {
		if err := r.lookup(ctx); err != nil {
			return false, err
		}
	}

	if r.probeLocal(ctx) {
		return r.settle(true, false), nil
	}
	if r.probeRemote(ctx) {
		return r.settle(false, true), nil
	}
	return r.settle(false, false), nil
}

// settle applies the outcome of a probe round to the strategy.
func (r *Resolver) settle(local, remote bool) bool {
	switch {
	case local:
		r.state.Strategy = StrategyLocal
	case remote:
		r.state.Strategy = StrategyRemote
	default:
		r.state.Strategy = StrategyUnreachable
		r.log.Warn().Msg("server unreachable via local and remote addresses")
		return false
	}
	r.log.Debug().Str("strategy", r.state.Strategy.String()).Str("address", r.state.Address()).Msg("connection strategy set")
	return true
}

func (r *Resolver) restore(ctx context.Context) {
	if r.store == nil || r.restored || r.isLocalKey() {
		return
	}
	r.restored = true
	if r.state.Strategy != StrategyUnknown {
		return
	}

	saved, ok, err := r.store.Load(ctx, r.key)
	if err != nil {
		r.log.Warn().Err(err).Msg("failed to load persisted state")
		return
	}
	if !ok || saved.Address() == "" || saved.Port == "" {
		return
	}
	if saved.Strategy != StrategyLocal && saved.Strategy != StrategyRemote {
		return
	}
	r.state = saved.clone()
	r.log.Debug().Str("strategy", saved.Strategy.String()).Msg("restored persisted state")
}

func (r *Resolver) persist(ctx context.Context) {
	if r.store == nil || r.isLocalKey() {
		return
	}
	if err := r.store.Save(ctx, r.key, r.state.clone()); err != nil {
		r.log.Warn().Err(err).Msg("failed to persist state")
	}
}
