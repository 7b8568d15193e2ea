package fanout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/CatalystCode/elastic-osm-tiles/internal/errkind"
)

const defaultContentType = "application/json"

// Inbound client-identifying headers and the provider-facing names they are
// remapped to. Every other inbound header is dropped for fan-out calls.
const (
	sessionIDHeader = "X-SessionId"
	clientIDHeader  = "X-ClientId"

	sessionIdentifierHeader = "SessionIdentifier"
	clientIdentifierHeader  = "ClientIdentifier"
)

var relevantHeaders = map[string]string{
	sessionIDHeader: sessionIdentifierHeader,
	clientIDHeader:  clientIdentifierHeader,
}

// Provider is one named endpoint taking part in a fan-out.
type Provider struct {
	Key string
	URL string
}

// UpstreamError is a non-success response from a provider.
type UpstreamError struct {
	Provider   string
	StatusCode int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("provider %s returned status %d", e.Provider, e.StatusCode)
}

func (e *UpstreamError) Unwrap() error { return errkind.ErrUpstream }

// Envelope is implemented by provider response types so every result can be
// stamped with its source identity and timing.
type Envelope interface {
	StampSource(key string)
	StampStatus(status *ResponseStatus)
}

// Hooks are the per-call-site operations applied to each fan-out outcome:
// Validate may turn a success into a failure (or attach metadata), Log is a
// side-effecting step, PostProcess maps a validated success to the
// client-facing shape, and ConvertError does the same for a failure.
type Hooks[Req, Resp, Out any] interface {
	Validate(outcome Exceptional[Resp]) Exceptional[Resp]
	Log(outcome Exceptional[Resp], req Req)
	PostProcess(resp Resp, req Req) Out
	ConvertError(err error) Out
}

// Caller executes one GET or POST per provider endpoint, wraps outcomes into
// Exceptionals via Aggregate, and runs the hook pipeline over them.
//
// Resp is the provider response struct; PResp is its pointer type, which must
// implement Envelope so results can be stamped.
type Caller[Resp any, PResp interface {
	*Resp
	Envelope
}, Req, Out any] struct {
	Providers []Provider
	Client    *http.Client
	Limiter   *rate.Limiter
	Headers   http.Header
	Hooks     Hooks[Req, PResp, Out]
}

// CollectGet fans out one GET per provider and returns the processed
// outcomes observed before ctx is done.
func (c *Caller[Resp, PResp, Req, Out]) CollectGet(ctx context.Context, req Req) []Out {
	ops := make([]Operation[PResp], len(c.Providers))
	for i, provider := range c.Providers {
		provider := provider
		ops[i] = func(ctx context.Context) (PResp, error) {
			return c.send(ctx, provider, http.MethodGet, nil)
		}
	}
	return c.collect(ctx, ops, req)
}

// CollectPost fans out one POST per provider, writing the shared serialized
// payload to each, and returns the processed outcomes.
func (c *Caller[Resp, PResp, Req, Out]) CollectPost(ctx context.Context, payload []byte, req Req) []Out {
	ops := make([]Operation[PResp], len(c.Providers))
	for i, provider := range c.Providers {
		provider := provider
		ops[i] = func(ctx context.Context) (PResp, error) {
			return c.send(ctx, provider, http.MethodPost, payload)
		}
	}
	return c.collect(ctx, ops, req)
}

func (c *Caller[Resp, PResp, Req, Out]) collect(ctx context.Context, ops []Operation[PResp], req Req) []Out {
	outcomes := Aggregate(ctx, ops)

	out := make([]Out, 0, len(outcomes))
	for _, outcome := range outcomes {
		// A success carrying no payload means the provider had nothing for
		// this request (HTTP 204). Distinct from a failure; dropped here.
		if outcome.HasValue() && outcome.Value() == nil {
			continue
		}

		outcome = c.Hooks.Validate(outcome)
		c.Hooks.Log(outcome, req)

		if outcome.HasValue() {
			out = append(out, c.Hooks.PostProcess(outcome.Value(), req))
		} else {
			out = append(out, c.Hooks.ConvertError(outcome.Err()))
		}
	}
	return out
}

// send performs one HTTP call against a provider. A 204 returns a nil
// response (filtered by collect); an empty or null body is an
// InvalidResponse failure, never treated as absence.
func (c *Caller[Resp, PResp, Req, Out]) send(ctx context.Context, provider Provider, method string, payload []byte) (PResp, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fanout: rate limiter wait")
		}
	}

	start := time.Now()

	var body io.Reader
	if method == http.MethodPost {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, provider.URL, body)
	if err != nil {
		return nil, eris.Wrapf(err, "fanout: create %s request for %s", method, provider.Key)
	}
	httpReq.Header = c.requestHeaders()

	httpResp, err := c.client().Do(httpReq)
	if err != nil {
		return nil, eris.Wrapf(eris.Wrap(errkind.ErrUpstream, err.Error()), "fanout: call provider %s", provider.Key)
	}
	defer func() { _ = httpResp.Body.Close() }()

	if httpResp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, eris.Wrap(&UpstreamError{Provider: provider.Key, StatusCode: httpResp.StatusCode}, "fanout: provider response")
	}

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "fanout: read response from %s", provider.Key)
	}
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, errkind.InvalidResponse(fmt.Sprintf("fanout: provider %s returned an empty response body", provider.Key))
	}

	result := PResp(new(Resp))
	if err := json.Unmarshal(raw, result); err != nil {
		return nil, eris.Wrapf(eris.Wrap(errkind.ErrInvalidResponse, err.Error()), "fanout: decode response from %s", provider.Key)
	}

	result.StampSource(provider.Key)
	result.StampStatus(NewStatus(http.StatusOK, time.Since(start).Milliseconds()))
	return result, nil
}

// requestHeaders builds the provider-facing header set: the default content
// type plus the remapped client-identifying headers. Nothing else is
// forwarded.
func (c *Caller[Resp, PResp, Req, Out]) requestHeaders() http.Header {
	headers := http.Header{}
	headers.Set("Content-Type", defaultContentType)
	for inbound, outbound := range relevantHeaders {
		if v := c.Headers.Get(inbound); v != "" {
			headers.Set(outbound, v)
		}
	}
	return headers
}

func (c *Caller[Resp, PResp, Req, Out]) client() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	return http.DefaultClient
}
