package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/cookiejar"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/funnyzak/reqkit/internal/logger"
	"github.com/funnyzak/reqkit/pkg/request"
)

// Transport performs resolved requests over HTTP.
type Transport struct {
	client         *http.Client
	logger         logger.Logger
	defaultTimeout time.Duration
	retries        int
	retryBackoff   time.Duration
	maxConcurrent  int
	workerPool     chan struct{}
	limiter        *rate.Limiter
	maxBodyBytes   int64
	mu             sync.Mutex
	cond           *sync.Cond
	closed         bool
	activeCalls    int
}

// Options tunes the underlying client.
type Options struct {
	DefaultTimeout        time.Duration
	Retries               int
	RetryBackoff          time.Duration
	MaxConcurrent         int
	RateLimit             float64
	MaxResponseBytes      int64
	MaxIdleConns          int
	MaxIdleConnsPerHost   int
	IdleConnTimeout       time.Duration
	ResponseHeaderTimeout time.Duration
	TLSHandshakeTimeout   time.Duration
	TLSInsecureSkipVerify bool
	FollowRedirects       bool
	Cookies               bool
}

// ErrTransportClosed indicates the transport has been shut down.
var ErrTransportClosed = errors.New("transport is closed")

var methodPattern = regexp.MustCompile("^[!#$%&'*+\\-.^_`|~0-9A-Za-z]+$")

// New creates a transport.
func New(log logger.Logger, opts Options) *Transport {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 10
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          positiveOrDefault(opts.MaxIdleConns, 100),
		MaxIdleConnsPerHost:   positiveOrDefault(opts.MaxIdleConnsPerHost, opts.MaxConcurrent),
		IdleConnTimeout:       durationOrDefault(opts.IdleConnTimeout, 90*time.Second),
		ResponseHeaderTimeout: opts.ResponseHeaderTimeout,
		TLSHandshakeTimeout:   durationOrDefault(opts.TLSHandshakeTimeout, 10*time.Second),
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: opts.TLSInsecureSkipVerify,
		},
	}

	client := &http.Client{Transport: transport}
	if !opts.FollowRedirects {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	if opts.Cookies {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			log.Warn("Cookie jar disabled", "error", err)
		} else {
			client.Jar = jar
		}
	}

	t := &Transport{
		client:         client,
		logger:         log,
		defaultTimeout: durationOrDefault(opts.DefaultTimeout, request.DefaultTimeoutMs*time.Millisecond),
		retries:        opts.Retries,
		retryBackoff:   durationOrDefault(opts.RetryBackoff, time.Second),
		maxConcurrent:  opts.MaxConcurrent,
		workerPool:     make(chan struct{}, opts.MaxConcurrent),
		maxBodyBytes:   opts.MaxResponseBytes,
	}
	if opts.RateLimit > 0 {
		burst := int(math.Ceil(opts.RateLimit))
		t.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// Do performs p and returns the normalized response. Failures are returned
// as *request.HTTPError.
func (t *Transport) Do(ctx context.Context, p *request.Payload) (*request.HTTPResponse, error) {
	if p == nil {
		return nil, &request.HTTPError{Message: "Request failed: empty payload"}
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, &request.HTTPError{Message: ErrTransportClosed.Error()}
	}
	t.activeCalls++
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		t.activeCalls--
		if t.activeCalls == 0 {
			t.cond.Broadcast()
		}
		t.mu.Unlock()
	}()

	method := strings.ToUpper(strings.TrimSpace(p.Method))
	if method == "" {
		method = request.DefaultMethod
	}
	if !methodPattern.MatchString(method) {
		return nil, &request.HTTPError{Message: fmt.Sprintf("Invalid HTTP method: %s", p.Method)}
	}

	body, contentType, err := encodeBody(p)
	if err != nil {
		return nil, err
	}

	select {
	case t.workerPool <- struct{}{}:
	case <-ctx.Done():
		return nil, &request.HTTPError{Message: fmt.Sprintf("Request failed: %v", ctx.Err())}
	}
	defer func() { <-t.workerPool }()

	timeout := t.defaultTimeout
	if p.Timeout > 0 {
		timeout = time.Duration(p.Timeout) * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt <= t.retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * t.retryBackoff
			if backoff > 30*time.Second {
				backoff = 30 * time.Second
			}
			select {
			case <-ctx.Done():
				t.logger.Info("Send cancelled by context", "url", p.URL, "attempt", attempt+1)
				return nil, &request.HTTPError{Message: fmt.Sprintf("Request failed: %v", lastErr)}
			case <-time.After(backoff):
			}
		}

		if t.limiter != nil {
			if err := t.limiter.Wait(ctx); err != nil {
				return nil, &request.HTTPError{Message: fmt.Sprintf("Request failed: %v", err)}
			}
		}

		resp, err := t.do(ctx, method, p, body, contentType)
		if err == nil {
			t.logger.Info("Request sent",
				"method", method,
				"url", p.URL,
				"status", resp.Status,
				"duration_ms", resp.ResponseTime,
				"attempt", attempt+1,
			)
			return resp, nil
		}

		var he *request.HTTPError
		if errors.As(err, &he) && he.Status != 0 {
			return nil, err
		}
		lastErr = err
		t.logger.Warn("Send attempt failed",
			"url", p.URL,
			"error", err.Error(),
			"attempt", attempt+1,
		)
		if ctx.Err() != nil {
			break
		}
	}

	t.logger.Error("All send attempts failed",
		"url", p.URL,
		"final_error", lastErr.Error(),
		"total_attempts", t.retries+1,
	)
	return nil, lastErr
}

// do executes a single attempt.
func (t *Transport) do(ctx context.Context, method string, p *request.Payload, body []byte, contentType string) (*request.HTTPResponse, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.URL, reader)
	if err != nil {
		return nil, &request.HTTPError{Message: fmt.Sprintf("Request failed: %v", err)}
	}

	for key, value := range p.Headers {
		if strings.EqualFold(key, "Host") {
			req.Host = value
			continue
		}
		req.Header.Set(key, value)
	}
	if contentType != "" && (req.Header.Get("Content-Type") == "" || strings.HasPrefix(contentType, "multipart/")) {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &request.HTTPError{Message: fmt.Sprintf("Request failed: %v", err)}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			t.logger.Warn("Failed to close response body", "error", cerr)
		}
	}()

	var src io.Reader = resp.Body
	if t.maxBodyBytes > 0 {
		src = io.LimitReader(resp.Body, t.maxBodyBytes)
	}
	raw, err := io.ReadAll(src)
	if err != nil {
		return nil, &request.HTTPError{
			Message: fmt.Sprintf("Failed to read response body: %v", err),
			Status:  resp.StatusCode,
		}
	}
	return normalizeResponse(resp, raw, time.Since(start)), nil
}

// Client returns a plain client that shares the connection pool and TLS
// settings and is bounded by the default timeout.
func (t *Transport) Client() *http.Client {
	return &http.Client{Transport: t.client.Transport, Timeout: t.defaultTimeout}
}

// Close stops accepting sends and waits for in-flight ones.
func (t *Transport) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	for t.activeCalls > 0 {
		t.cond.Wait()
	}
	t.mu.Unlock()

	if transport, ok := t.client.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}

func positiveOrDefault(value, def int) int {
	if value > 0 {
		return value
	}
	return def
}

func durationOrDefault(value, def time.Duration) time.Duration {
	if value > 0 {
		return value
	}
	return def
}
