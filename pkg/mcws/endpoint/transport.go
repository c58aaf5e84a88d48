package endpoint

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/strefethen/mcws-go/pkg/mcws/mcwserr"
)

// Send issues a GET for extension with params, resolving first if needed.
// A transport failure triggers one Resolve and one retry; the second failure
// is returned.
func (r *Resolver) Send(ctx context.Context, extension string, params Params) (*Response, error) {
	return r.Do(ctx, Request{Extension: extension, Params: params})
}

// Do is Send with per-request options.
func (r *Resolver) Do(ctx context.Context, req Request) (*Response, error) {
	if err := r.ensureAddress(ctx); err != nil {
		return nil, err
	}

	query := req.Params.Encode()
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			r.observer.ObserveRetry(req.Extension)
			r.log.Warn().Err(lastErr).Str("extension", req.Extension).Msg("request failed, re-resolving; next failure will be returned")
			ok, err := r.Resolve(ctx)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, fmt.Errorf("%w: %w", mcwserr.ErrUnreachable, lastErr)
			}
		}

		resp, err := r.attempt(ctx, req, query)
		if err == nil {
			return resp, nil
		}
		if !mcwserr.IsRetryable(err) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

// EnsureAddress resolves if no address is known yet and returns
// mcwserr.ErrUnreachable when none can be found.
func (r *Resolver) EnsureAddress(ctx context.Context) error {
	return r.ensureAddress(ctx)
}

func (r *Resolver) ensureAddress(ctx context.Context) error {
	if r.state.Strategy != StrategyUnknown && r.state.Address() != "" {
		return nil
	}
	ok, err := r.Resolve(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return mcwserr.ErrUnreachable
	}
	return nil
}

func (r *Resolver) attempt(ctx context.Context, req Request, query string) (*Response, error) {
	target := r.BaseURL() + req.Extension
	if query != "" {
		target += "?" + query
	}
	requestID := uuid.NewString()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	r.authorize(httpReq)
	httpReq.Header.Set("x-request-id", requestID)

	start := r.now()
	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		err = &mcwserr.TransportError{Extension: req.Extension, Err: err}
		r.observer.ObserveRequest(req.Extension, 0, r.now().Sub(start), err)
		r.log.Debug().Err(err).Str("request_id", requestID).Msg("request failed")
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		err = &mcwserr.TransportError{Extension: req.Extension, Err: err}
		r.observer.ObserveRequest(req.Extension, resp.StatusCode, r.now().Sub(start), err)
		return nil, err
	}

	if !req.allows(resp.StatusCode) {
		err = &mcwserr.TransportError{Extension: req.Extension, StatusCode: resp.StatusCode}
		r.observer.ObserveRequest(req.Extension, resp.StatusCode, r.now().Sub(start), err)
		r.log.Debug().Int("status", resp.StatusCode).Str("request_id", requestID).Str("extension", req.Extension).Msg("request rejected")
		return nil, err
	}

	r.observer.ObserveRequest(req.Extension, resp.StatusCode, r.now().Sub(start), nil)
	r.log.Debug().Int("status", resp.StatusCode).Str("request_id", requestID).Str("extension", req.Extension).Msg("request complete")

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		RequestID:  requestID,
	}, nil
}
