// Package pipeline is the only path from the gateway to the game backend.
// It resolves URLs against the configured base, attaches the stored
// credential to every request, and turns every failure into an *APIError.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/ggame-miniapp/internal/credential"
)

// CredentialSource is the read side of a credential store.
type CredentialSource interface {
	Get(ctx context.Context, key string) (string, bool, error)
}

// Doer is satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RequestContext describes one backend call. It is built per call and
// never stored.
type RequestContext struct {
	Method   string
	Endpoint string
	Query    url.Values
	Body     any
}

// Get, Post and Put are shorthands for building a RequestContext.
func Get(endpoint string, query url.Values) RequestContext {
	return RequestContext{Method: http.MethodGet, Endpoint: endpoint, Query: query}
}

func Post(endpoint string, body any) RequestContext {
	return RequestContext{Method: http.MethodPost, Endpoint: endpoint, Body: body}
}

func Put(endpoint string, body any) RequestContext {
	return RequestContext{Method: http.MethodPut, Endpoint: endpoint, Body: body}
}

// Pipeline sends requests to the backend. It never retries and sets no
// timeout of its own; the caller's context is the only bound.
type Pipeline struct {
	baseURL string
	scheme  string
	creds   CredentialSource
	http    Doer
	log     *zap.Logger
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(d Doer) Option { return func(p *Pipeline) { p.http = d } }

// WithAuthScheme sets the word placed before the credential in the
// Authorization header. The default is "Bearer".
func WithAuthScheme(scheme string) Option {
	return func(p *Pipeline) {
		if s := strings.TrimSpace(scheme); s != "" {
			p.scheme = s
		}
	}
}

// WithLogger sets the logger for per-request debug lines.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// New returns a Pipeline for baseURL reading credentials from creds.
func New(baseURL string, creds CredentialSource, opts ...Option) *Pipeline {
	p := &Pipeline{
		baseURL: strings.TrimRight(baseURL, "/"),
		scheme:  "Bearer",
		creds:   creds,
		http:    &http.Client{},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// BaseURL returns the resolved backend base URL.
func (p *Pipeline) BaseURL() string { return p.baseURL }

// Do performs rc and returns the response body. A 2xx response with an
// empty body yields JSON null.
func (p *Pipeline) Do(ctx context.Context, rc RequestContext) (json.RawMessage, error) {
	req, err := p.build(ctx, rc)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := p.http.Do(req)
	if err != nil {
		p.log.Debug("backend request failed",
			zap.String("method", rc.Method), zap.String("endpoint", rc.Endpoint), zap.Error(err))
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	p.log.Debug("backend request",
		zap.String("method", rc.Method),
		zap.String("endpoint", rc.Endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))
	if err != nil {
		return nil, &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("read response: %v", err), Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp.StatusCode, body)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return json.RawMessage("null"), nil
	}
	return json.RawMessage(body), nil
}

// DoJSON performs rc and decodes the body into out. A nil out discards it.
func (p *Pipeline) DoJSON(ctx context.Context, rc RequestContext, out any) error {
	raw, err := p.Do(ctx, rc)
	if err != nil {
		return err
	}
	return decode(raw, out)
}

// DoCollection performs rc, unwraps a paginated envelope and decodes the
// list into out, which must point to a slice. A payload that is still not
// a list after unwrapping decodes as an empty list.
func (p *Pipeline) DoCollection(ctx context.Context, rc RequestContext, out any) error {
	raw, err := p.Do(ctx, rc)
	if err != nil {
		return err
	}
	list := UnwrapCollection(raw)
	if !isArray(list) {
		p.log.Debug("collection payload is not a list",
			zap.String("endpoint", rc.Endpoint), zap.ByteString("payload", truncate(list, 256)))
		list = json.RawMessage("[]")
	}
	return decode(list, out)
}

func (p *Pipeline) build(ctx context.Context, rc RequestContext) (*http.Request, error) {
	target := p.baseURL + "/" + strings.TrimLeft(rc.Endpoint, "/")
	if len(rc.Query) > 0 {
		target += "?" + rc.Query.Encode()
	}

	var body io.Reader
	if rc.Body != nil {
		data, err := json.Marshal(rc.Body)
		if err != nil {
			return nil, &APIError{Message: fmt.Sprintf("encode request: %v", err), Err: err}
		}
		body = bytes.NewReader(data)
	}

	method := rc.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, transportError(err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if p.creds != nil {
		token, ok, err := p.creds.Get(ctx, credential.KeyAccessCredential)
		if err != nil {
			return nil, &APIError{Message: fmt.Sprintf("read credential: %v", err), Err: err}
		}
		if ok && token != "" {
			req.Header.Set("Authorization", p.scheme+" "+token)
		}
	}
	return req, nil
}

func decode(raw json.RawMessage, out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{Message: fmt.Sprintf("decode response: %v", err), Err: err}
	}
	return nil
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}

// Identity returns the stored user identity. ok is false when none is
// stored or the pipeline has no credential source.
func (p *Pipeline) Identity(ctx context.Context) (string, bool, error) {
	if p.creds == nil {
		return "", false, nil
	}
	id, ok, err := p.creds.Get(ctx, credential.KeyUserIdentity)
	if err != nil {
		return "", false, &APIError{Message: fmt.Sprintf("read identity: %v", err), Err: err}
	}
	return id, ok && id != "", nil
}

// RequireIdentity is Identity for operations that address the player by id.
func (p *Pipeline) RequireIdentity(ctx context.Context) (string, error) {
	id, ok, err := p.Identity(ctx)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &APIError{Message: "no user identity stored", Err: ErrNoIdentity}
	}
	return id, nil
}
