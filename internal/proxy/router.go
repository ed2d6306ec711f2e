package proxy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joegr/ReTurni/internal/metrics"
	"github.com/joegr/ReTurni/internal/models"
	"go.uber.org/zap"
)

// hopByHopHeaders are connection-scoped and never relayed in either
// direction.
var hopByHopHeaders = map[string]struct{}{
	"connection":          {},
	"keep-alive":          {},
	"proxy-authenticate":  {},
	"proxy-authorization": {},
	"te":                  {},
	"trailer":             {},
	"trailers":            {},
	"transfer-encoding":   {},
	"upgrade":             {},
}

// identityHeaders are asserted by the gateway alone. Inbound values
// are dropped before forwarding so clients cannot impersonate.
var identityHeaders = []string{"X-User-ID", "X-User-Email", "X-User-Role"}

// HTTPClient is satisfied by *http.Client and by test doubles.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Router forwards requests to downstream services by logical name.
// Unknown names are rejected, never guessed.
type Router struct {
	routes        map[string]string
	client        HTTPClient
	timeout       time.Duration
	healthTimeout time.Duration
	metrics       *metrics.Metrics
	logger        *zap.Logger
}

func NewRouter(routes map[string]string, timeout, healthTimeout time.Duration, m *metrics.Metrics, logger *zap.Logger) *Router {
	return &Router{
		routes:        routes,
		timeout:       timeout,
		healthTimeout: healthTimeout,
		metrics:       m,
		logger:        logger,
		client: &http.Client{
			// Redirects are relayed to the caller, not followed.
			CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// SetHTTPClient replaces the HTTP client, for testing.
func (r *Router) SetHTTPClient(client HTTPClient) {
	r.client = client
}

// ForwardRequest describes one downstream call.
type ForwardRequest struct {
	Service   string
	Method    string
	Path      string
	Query     string
	Header    http.Header
	Body      io.Reader
	Principal *models.Principal
	RequestID string
	ClientIP  string
}

// ForwardResponse is the downstream answer, relayed verbatim.
type ForwardResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Forward sends the request to the named service and returns the
// response. The gateway never retries; failures surface immediately
// as models.GatewayError values.
func (r *Router) Forward(ctx context.Context, freq *ForwardRequest) (*ForwardResponse, error) {
	base, ok := r.routes[freq.Service]
	if !ok {
		return nil, models.NewServiceNotFound(freq.Service)
	}

	url := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(freq.Path, "/")
	if freq.Query != "" {
		url += "?" + freq.Query
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, freq.Method, url, freq.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to build downstream request: %w", err)
	}

	copyInboundHeaders(req.Header, freq.Header)
	req.Header.Set("X-Request-ID", freq.RequestID)
	if freq.ClientIP != "" {
		req.Header.Set("X-Forwarded-For", freq.ClientIP)
	}
	if freq.Principal != nil {
		req.Header.Set("X-User-ID", freq.Principal.SubjectID)
		req.Header.Set("X-User-Email", freq.Principal.Email)
		req.Header.Set("X-User-Role", string(freq.Principal.Role))
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		r.metrics.ObserveServiceRequest(freq.Service, "error", time.Since(start))
		r.logger.Error("downstream request failed",
			zap.String("service", freq.Service),
			zap.String("url", url),
			zap.Error(err),
		)
		return nil, models.NewServiceUnavailable(freq.Service)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		r.metrics.ObserveServiceRequest(freq.Service, "error", time.Since(start))
		r.logger.Error("failed reading downstream response",
			zap.String("service", freq.Service),
			zap.Error(err),
		)
		return nil, models.NewServiceUnavailable(freq.Service)
	}

	r.metrics.ObserveServiceRequest(freq.Service, strconv.Itoa(resp.StatusCode), time.Since(start))

	return &ForwardResponse{
		StatusCode: resp.StatusCode,
		Header:     stripResponseHeaders(resp.Header),
		Body:       body,
	}, nil
}

// HealthCheck probes every routed service's /health endpoint in
// parallel and reports reachability by name.
func (r *Router) HealthCheck(ctx context.Context) map[string]bool {
	results := make(map[string]bool, len(r.routes))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for name, base := range r.routes {
		wg.Add(1)
		go func(name, base string) {
			defer wg.Done()
			healthy := r.probe(ctx, base)
			mu.Lock()
			results[name] = healthy
			mu.Unlock()
		}(name, base)
	}

	wg.Wait()
	return results
}

func (r *Router) probe(ctx context.Context, base string) bool {
	ctx, cancel := context.WithTimeout(ctx, r.healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(base, "/")+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// copyInboundHeaders relays the caller's headers minus hop-by-hop
// headers, identity headers, and fields the transport recomputes.
func copyInboundHeaders(dst, src http.Header) {
	for k, vv := range src {
		switch lower := strings.ToLower(k); {
		case isHopByHop(lower):
			continue
		case lower == "host" || lower == "content-length":
			continue
		}
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
	for _, k := range identityHeaders {
		dst.Del(k)
	}
}

func stripResponseHeaders(src http.Header) http.Header {
	dst := make(http.Header, len(src))
	for k, vv := range src {
		lower := strings.ToLower(k)
		if isHopByHop(lower) || lower == "content-length" {
			continue
		}
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
	return dst
}

func isHopByHop(lowerKey string) bool {
	_, ok := hopByHopHeaders[lowerKey]
	return ok
}
