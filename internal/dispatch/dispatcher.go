// Package dispatch sends stored requests: it resolves variables, hands the
// payload to a transport and records the outcome in the request's history.
package dispatch

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/funnyzak/reqkit/internal/logger"
	"github.com/funnyzak/reqkit/internal/vars"
	"github.com/funnyzak/reqkit/internal/workspace"
	"github.com/funnyzak/reqkit/pkg/request"
)

// ResponseIDPrefix prefixes generated history entry ids.
const ResponseIDPrefix = "response"

// Transport performs one HTTP exchange.
type Transport interface {
	Do(ctx context.Context, p *request.Payload) (*request.HTTPResponse, error)
}

// Result describes one finished send.
type Result struct {
	RequestID  string                      `json:"request_id"`
	ResponseID string                      `json:"response_id,omitempty"`
	Skipped    bool                        `json:"skipped,omitempty"`
	Entry      request.ResponseHistoryItem `json:"entry"`
}

// Dispatcher sends requests held by a workspace store.
type Dispatcher struct {
	store     *workspace.Store
	envs      *vars.Environments
	transport Transport
	logger    logger.Logger
	dynamic   bool
	now       func() time.Time

	mu    sync.Mutex
	locks map[string]*requestLock
}

type requestLock struct {
	mu   sync.Mutex
	refs int
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithDynamicVariables enables the $uuid family of placeholders.
func WithDynamicVariables(enabled bool) Option {
	return func(d *Dispatcher) { d.dynamic = enabled }
}

// WithClock overrides the time source for history timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// New creates a dispatcher.
func New(store *workspace.Store, envs *vars.Environments, t Transport, log logger.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:     store,
		envs:      envs,
		transport: t,
		logger:    log,
		now:       time.Now,
		locks:     make(map[string]*requestLock),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SendOption adjusts a single send.
type SendOption func(*sendConfig)

type sendConfig struct {
	resolver *vars.Resolver
}

// UsingResolver resolves placeholders with r instead of the active
// environment.
func UsingResolver(r *vars.Resolver) SendOption {
	return func(c *sendConfig) { c.resolver = r }
}

// Send dispatches the active request. It reports false without recording
// anything when there is no active request or its URL is blank.
func (d *Dispatcher) Send(ctx context.Context, opts ...SendOption) (Result, bool) {
	id := d.store.ActiveRequestID()
	if id == "" {
		return Result{}, false
	}
	return d.SendRequest(ctx, id, opts...)
}

// SendRequest dispatches the request with the given id. The payload is
// captured when the call is made. Exchanges for the same request never
// overlap, so each outcome is recorded before the next one starts.
func (d *Dispatcher) SendRequest(ctx context.Context, requestID string, opts ...SendOption) (Result, bool) {
	item, ok := d.store.Request(requestID)
	if !ok || strings.TrimSpace(item.Request.URL) == "" {
		return Result{RequestID: requestID, Skipped: true}, false
	}

	cfg := sendConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	resolver := cfg.resolver
	if resolver == nil {
		resolver = d.envs.Resolver(vars.WithDynamic(d.dynamic))
	}

	payload := BuildPayload(item.Request, resolver)
	responseID := request.NewID(ResponseIDPrefix)

	d.store.BeginLoading()
	defer d.store.EndLoading()

	unlock := d.lock(requestID)
	defer unlock()

	start := d.now()
	resp, err := d.transport.Do(ctx, payload)

	var entry request.ResponseHistoryItem
	if err != nil {
		entry = request.NewErrorItem(responseID, d.now(), err)
		d.logger.Warn("Request failed",
			"request_id", requestID,
			"method", payload.Method,
			"url", payload.URL,
			"status", entry.Error.Status,
			"error", entry.Error.Message,
		)
	} else {
		entry = request.NewSuccessItem(responseID, d.now(), resp)
		d.logger.Info("Request completed",
			"request_id", requestID,
			"method", payload.Method,
			"url", payload.URL,
			"status", entry.Status(),
			"elapsed", d.now().Sub(start),
		)
	}

	if !d.store.RecordResponse(requestID, entry) {
		d.logger.Warn("Request removed before its response arrived", "request_id", requestID)
	}
	return Result{RequestID: requestID, ResponseID: responseID, Entry: entry}, true
}

// SendAll dispatches several requests with at most concurrency in flight.
// Results keep the order of ids; requests that were skipped are marked so.
// The only error returned is the context's.
func (d *Dispatcher) SendAll(ctx context.Context, ids []string, concurrency int, opts ...SendOption) ([]Result, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	results := make([]Result, len(ids))
	for i, id := range ids {
		results[i] = Result{RequestID: id, Skipped: true}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, id := range ids {
		if err := gctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if res, ok := d.SendRequest(gctx, id, opts...); ok {
				results[i] = res
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

// lock serializes sends per request and drops the entry once unused.
func (d *Dispatcher) lock(requestID string) func() {
	d.mu.Lock()
	l, ok := d.locks[requestID]
	if !ok {
		l = &requestLock{}
		d.locks[requestID] = l
	}
	l.refs++
	d.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		d.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(d.locks, requestID)
		}
		d.mu.Unlock()
	}
}
