/* Copyright 2026 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package request builds, sends, and interprets HTTP requests for
// fetch actions.
//
// Send runs a fixed pipeline: resolve expressions, assemble the
// target, merge headers, run the request interceptor, issue the
// request, decode the response, check the business envelope, extract
// the payload, and finally run the response or error interceptor.
package request

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Comcast/shoots/config"
	"github.com/Comcast/shoots/expr"
	"github.com/Comcast/shoots/logging"
	"github.com/Comcast/shoots/metrics"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"
)

// Response kinds.
const (
	JSON        = "json"
	Text        = "text"
	Blob        = "blob"
	ArrayBuffer = "arrayBuffer"
)

// Spec describes a request before expression resolution.
type Spec struct {
	URL           string
	Method        string
	Headers       map[string]interface{}
	Body          interface{}
	Params        map[string]interface{}
	ResponseType  string
	IgnoreBaseURL bool
}

// Outgoing is a fully resolved request.  The request interceptor
// receives (and may replace) it.
type Outgoing struct {
	Method       string
	URL          string
	Header       http.Header
	Body         interface{}
	ResponseType string
}

// Result is the outcome of Send.  Response (the full decoded body)
// is present even on failure when a response was received.
type Result struct {
	Key      string
	Success  bool
	Data     interface{}
	Response interface{}
	Status   int
	Header   http.Header
	Err      error
}

// Options are the programmatic parts of the orchestrator's
// configuration.
type Options struct {
	Client  *http.Client
	Eval    *expr.Evaluator
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// RequestInterceptor runs strictly before the request is
	// issued.  A failure means no request is issued.
	RequestInterceptor func(ctx context.Context, out *Outgoing) (*Outgoing, error)

	// ResponseInterceptor runs after a successful response.
	ResponseInterceptor func(ctx context.Context, r *Result) (*Result, error)

	// ErrorInterceptor runs after any failure.
	ErrorInterceptor func(ctx context.Context, r *Result) (*Result, error)

	// OnLoading observes each request's loading flag.
	OnLoading func(key string, loading bool)
}

// Orchestrator sends requests.  Each Orchestrator owns its loading
// flags.
type Orchestrator struct {
	cfg    *config.Config
	opts   Options
	client *http.Client
	log    *slog.Logger

	mu      sync.Mutex
	loading map[string]bool
}

// New makes an Orchestrator.  A nil cfg means config.Default().
func New(cfg *config.Config, opts Options) (*Orchestrator, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if opts.Eval == nil {
		opts.Eval = expr.NewEvaluator()
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	if cfg.Cookies && client.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, err
		}
		c := *client
		c.Jar = jar
		client = &c
	}
	return &Orchestrator{
		cfg:     cfg,
		opts:    opts,
		client:  client,
		log:     logging.OrDefault(opts.Logger),
		loading: make(map[string]bool),
	}, nil
}

// Client returns the HTTP client in use.
func (o *Orchestrator) Client() *http.Client {
	return o.client
}

// IsLoading reports the loading flag for the request with the given
// key.
func (o *Orchestrator) IsLoading(key string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.loading[key]
}

// Loading returns the keys of all requests whose flag is set.
func (o *Orchestrator) Loading() []string {
	o.mu.Lock()
	acc := make([]string, 0, len(o.loading))
	for k := range o.loading {
		acc = append(acc, k)
	}
	o.mu.Unlock()
	sort.Strings(acc)
	return acc
}

func (o *Orchestrator) setLoading(key string, loading bool) {
	o.mu.Lock()
	if loading {
		o.loading[key] = true
	} else {
		delete(o.loading, key)
	}
	o.mu.Unlock()

	o.opts.Metrics.Loading(loading)
	if o.opts.OnLoading != nil {
		o.opts.OnLoading(key, loading)
	}
}

// Send runs the pipeline.  It never returns nil.
func (o *Orchestrator) Send(ctx context.Context, spec *Spec, scope *expr.Scope) *Result {
	then := time.Now()
	r := o.send(ctx, spec, scope)
	outcome := "success"
	if !r.Success {
		outcome = "failure"
	}
	o.opts.Metrics.ObserveRequest(method(spec.Method), outcome, time.Since(then))
	return r
}

func method(m string) string {
	if m == "" {
		return http.MethodGet
	}
	return strings.ToUpper(m)
}

func (o *Orchestrator) send(ctx context.Context, spec *Spec, scope *expr.Scope) *Result {
	out, err := o.prepare(spec, scope)
	if err != nil {
		return o.failed(ctx, &Result{Err: err})
	}

	key := uuid.NewString()
	// The flag stays up until the interceptors have seen the result.
	o.setLoading(key, true)
	defer o.setLoading(key, false)

	if i := o.opts.RequestInterceptor; i != nil {
		next, err := i(ctx, out)
		if err != nil {
			o.log.Debug("request interceptor failed", "url", out.URL, "error", err)
			return o.failed(ctx, &Result{Key: key, Err: &InterceptorError{Stage: "request", Err: err}})
		}
		if next != nil {
			out = next
		}
	}

	r := o.do(ctx, out)
	r.Key = key

	if r.Err != nil {
		return o.failed(ctx, r)
	}
	return o.succeeded(ctx, r)
}

func (o *Orchestrator) failed(ctx context.Context, r *Result) *Result {
	r.Success = false
	if i := o.opts.ErrorInterceptor; i != nil {
		next, err := i(ctx, r)
		if err != nil {
			r.Err = &InterceptorError{Stage: "error", Err: err}
			return r
		}
		if next != nil {
			r = next
		}
	}
	return r
}

func (o *Orchestrator) succeeded(ctx context.Context, r *Result) *Result {
	r.Success = true
	if i := o.opts.ResponseInterceptor; i != nil {
		next, err := i(ctx, r)
		if err != nil {
			r.Success = false
			r.Err = &InterceptorError{Stage: "response", Err: err}
			return r
		}
		if next != nil {
			r = next
		}
	}
	return r
}

// prepare resolves the spec and assembles the outgoing request.
func (o *Orchestrator) prepare(spec *Spec, scope *expr.Scope) (*Outgoing, error) {
	ev := o.opts.Eval

	u, err := ev.Resolve(spec.URL, scope)
	if err != nil {
		return nil, err
	}

	params, err := ev.ResolveDeep(toGeneric(spec.Params), scope)
	if err != nil {
		return nil, err
	}

	headers, err := ev.ResolveDeep(toGeneric(spec.Headers), scope)
	if err != nil {
		return nil, err
	}

	body, err := ev.ResolveDeep(spec.Body, scope)
	if err != nil {
		return nil, err
	}
	if expr.IsUndefined(body) {
		body = nil
	}

	target, err := o.target(expr.ToString(u), spec.IgnoreBaseURL, params)
	if err != nil {
		return nil, err
	}

	h := make(http.Header)
	for k, v := range o.cfg.Header() {
		h.Set(k, v)
	}
	if m, is := headers.(map[string]interface{}); is {
		for k, v := range m {
			if expr.IsNullish(v) {
				h.Del(k)
				continue
			}
			h.Set(k, expr.ToString(v))
		}
	}
	if body != nil && h.Get("Content-Type") == "" {
		h.Set("Content-Type", "application/json")
	}

	rt := spec.ResponseType
	if rt == "" {
		rt = JSON
	}

	return &Outgoing{
		Method:       method(spec.Method),
		URL:          target,
		Header:       h,
		Body:         body,
		ResponseType: rt,
	}, nil
}

func toGeneric(m map[string]interface{}) interface{} {
	if m == nil {
		return nil
	}
	return m
}
