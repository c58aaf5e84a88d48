package endpoint

import (
	"context"
	"io"
	"net/http"
	"time"
)

const aliveExtension = "Alive"

// probeLocal tries each local candidate in order and activates the first one
// that answers.
func (r *Resolver) probeLocal(ctx context.Context) bool {
	for _, candidate := range r.state.LocalCandidates {
		if r.probe(ctx, "local", candidate, r.localProbeTimeout) {
			r.state.ActiveLocal = candidate
			return true
		}
	}
	return false
}

func (r *Resolver) probeRemote(ctx context.Context) bool {
	if r.state.Remote == "" {
		return false
	}
	return r.probe(ctx, "remote", r.state.Remote, r.remoteProbeTimeout)
}

// probe sends one liveness request bounded by timeout. Failures are logged
// and reported as false; they never surface as errors.
func (r *Resolver) probe(ctx context.Context, path, host string, timeout time.Duration) bool {
	base := r.baseURL(host)
	if base == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+aliveExtension, nil)
	if err != nil {
		r.log.Warn().Err(err).Str("address", host).Msg("failed to build probe request")
		r.observer.ObserveProbe(path, false)
		return false
	}
	r.authorize(req)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.log.Warn().Err(err).Str("path", path).Str("address", host).Msg("failed to connect")
		r.observer.ObserveProbe(path, false)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	ok := resp.StatusCode == http.StatusOK
	if !ok {
		r.log.Debug().Int("status", resp.StatusCode).Str("path", path).Str("address", host).Msg("probe rejected")
	}
	r.observer.ObserveProbe(path, ok)
	return ok
}
