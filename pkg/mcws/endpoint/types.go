package endpoint

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Strategy is the resolver's current way of reaching the server.
type Strategy int

const (
	StrategyUnknown Strategy = iota
	StrategyLocal
	StrategyRemote
	StrategyUnreachable
)

func (s Strategy) String() string {
	switch s {
	case StrategyUnknown:
		return "unknown"
	case StrategyLocal:
		return "local"
	case StrategyRemote:
		return "remote"
	case StrategyUnreachable:
		return "unreachable"
	default:
		return "invalid"
	}
}

// ParseStrategy is the inverse of Strategy.String. Unrecognized names map to
// StrategyUnknown.
func ParseStrategy(name string) Strategy {
	switch strings.ToLower(name) {
	case "local":
		return StrategyLocal
	case "remote":
		return StrategyRemote
	case "unreachable":
		return StrategyUnreachable
	default:
		return StrategyUnknown
	}
}

// State is the connection state owned by a Resolver.
// Local and Remote strategies always carry a concrete address.
type State struct {
	Strategy        Strategy
	KeyID           string
	LocalCandidates []string
	ActiveLocal     string
	Remote          string
	Port            string
	HTTPSPort       string
	HardwareIDs     []string
	LastResolvedAt  time.Time
}

// Address returns the host for the active strategy, or "" when none is usable.
func (s State) Address() string {
	switch s.Strategy {
	case StrategyLocal:
		return s.ActiveLocal
	case StrategyRemote:
		return s.Remote
	default:
		return ""
	}
}

func (s State) clone() State {
	out := s
	out.LocalCandidates = append([]string(nil), s.LocalCandidates...)
	out.HardwareIDs = append([]string(nil), s.HardwareIDs...)
	return out
}

// Params is a request's query payload. Entries whose value is nil (or a nil
// pointer) are absent and never transmitted.
type Params map[string]any

// Set stores value under key and returns p for chaining.
func (p Params) Set(key string, value any) Params {
	p[key] = value
	return p
}

// Encode builds the percent-encoded query string, keys in sorted order.
// Spaces are encoded as %20.
func (p Params) Encode() string {
	if len(p) == 0 {
		return ""
	}

	keys := make([]string, 0, len(p))
	for key, value := range p {
		if _, ok := formatParam(value); ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, key := range keys {
		value, _ := formatParam(p[key])
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(escapeQuery(key))
		b.WriteByte('=')
		b.WriteString(escapeQuery(value))
	}
	return b.String()
}

func formatParam(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case *string:
		if v == nil {
			return "", false
		}
		return *v, true
	case bool:
		if v {
			return "1", true
		}
		return "0", true
	case *bool:
		if v == nil {
			return "", false
		}
		return formatParam(*v)
	case int:
		return strconv.Itoa(v), true
	case *int:
		if v == nil {
			return "", false
		}
		return strconv.Itoa(*v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case *float64:
		if v == nil {
			return "", false
		}
		return strconv.FormatFloat(*v, 'f', -1, 64), true
	case fmt.Stringer:
		return v.String(), true
	default:
		return fmt.Sprint(v), true
	}
}

func escapeQuery(s string) string {
	// QueryEscape turns a literal '+' into %2B, so the remaining '+' are spaces.
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// Request is one control call. AllowStatus lists non-2xx statuses the caller
// wants returned as a Response rather than treated as failures.
type Request struct {
	Extension   string
	Params      Params
	AllowStatus []int
}

func (r Request) allows(status int) bool {
	if status >= 200 && status < 300 {
		return true
	}
	for _, allowed := range r.AllowStatus {
		if allowed == status {
			return true
		}
	}
	return false
}

// Response is the raw result of a control call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	RequestID  string
}

// Observer receives request lifecycle events. Implementations must be cheap;
// they run inline on the calling goroutine.
type Observer interface {
	ObserveRequest(extension string, status int, duration time.Duration, err error)
	ObserveRetry(extension string)
	ObserveResolve(strategy Strategy, duration time.Duration, err error)
	ObserveProbe(path string, ok bool)
}

type nopObserver struct{}

func (nopObserver) ObserveRequest(string, int, time.Duration, error) {}
func (nopObserver) ObserveRetry(string)                              {}
func (nopObserver) ObserveResolve(Strategy, time.Duration, error)    {}
func (nopObserver) ObserveProbe(string, bool)                        {}

// StateStore persists resolved state between process runs.
type StateStore interface {
	Load(ctx context.Context, key string) (State, bool, error)
	Save(ctx context.Context, key string, state State) error
}
