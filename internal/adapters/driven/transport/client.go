// Package transport builds the shared HTTP clients used by remote memory
// stores. Clients verify certificate revocation, attach an optional API key
// header and throttle outgoing requests.
package transport

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ocsp"
	"golang.org/x/time/rate"
)

// Default client settings.
const (
	DefaultTimeout           = 30 * time.Second
	DefaultRequestsPerSecond = 50.0
	DefaultBurst             = 20
)

// ErrCertificateRevoked is returned when the server staples an OCSP response
// marking its certificate as revoked.
var ErrCertificateRevoked = errors.New("server certificate has been revoked")

// Options configures a client.
type Options struct {
	// APIKey is attached to every request when non-empty.
	APIKey string

	// APIKeyHeader is the header carrying the key (default: "api-key").
	APIKeyHeader string

	// APIKeyPrefix is prepended to the key, e.g. "Bearer ".
	APIKeyPrefix string

	// Timeout is the per-request timeout (default: 30s).
	Timeout time.Duration

	// RequestsPerSecond is the sustained request rate (default: 50).
	RequestsPerSecond float64

	// Burst is the maximum burst size (default: 20).
	Burst int
}

// NewClient creates an HTTP client. No connection is opened until the first request.
func NewClient(opts Options) *http.Client {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if opts.Burst <= 0 {
		opts.Burst = DefaultBurst
	}
	if opts.APIKeyHeader == "" {
		opts.APIKeyHeader = "api-key"
	}

	base := http.DefaultTransport.(*http.Transport).Clone()
	base.TLSClientConfig = &tls.Config{
		MinVersion:       tls.VersionTLS12,
		VerifyConnection: CheckRevocation,
	}

	var rt http.RoundTripper = base
	if opts.APIKey != "" {
		rt = &headerTransport{
			next:  rt,
			name:  opts.APIKeyHeader,
			value: opts.APIKeyPrefix + opts.APIKey,
		}
	}
	rt = &rateLimitedTransport{
		next:    rt,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
	}

	return &http.Client{
		Transport: rt,
		Timeout:   opts.Timeout,
	}
}

// CheckRevocation rejects connections whose leaf certificate is reported
// revoked by a stapled OCSP response. Servers that do not staple are accepted;
// chain verification has already run when this is called.
func CheckRevocation(cs tls.ConnectionState) error {
	if len(cs.OCSPResponse) == 0 {
		return nil
	}

	leaf, issuer := leafAndIssuer(cs)
	if leaf == nil || issuer == nil {
		return nil
	}

	resp, err := ocsp.ParseResponseForCert(cs.OCSPResponse, leaf, issuer)
	if err != nil {
		return fmt.Errorf("parse stapled OCSP response: %w", err)
	}
	if resp.Status == ocsp.Revoked {
		return fmt.Errorf("%w: serial %s", ErrCertificateRevoked, leaf.SerialNumber)
	}
	return nil
}

func leafAndIssuer(cs tls.ConnectionState) (leaf, issuer *x509.Certificate) {
	if len(cs.VerifiedChains) > 0 && len(cs.VerifiedChains[0]) > 1 {
		return cs.VerifiedChains[0][0], cs.VerifiedChains[0][1]
	}
	if len(cs.PeerCertificates) > 1 {
		return cs.PeerCertificates[0], cs.PeerCertificates[1]
	}
	return nil, nil
}

// EndpointURL builds the base URL of a server from host and port.
// A host that already carries a scheme keeps it; otherwise useTLS picks
// https or http. Any path on the host is dropped.
func EndpointURL(host string, port int, useTLS bool) (string, error) {
	scheme := "http"
	if useTLS {
		scheme = "https"
	}

	if strings.Contains(host, "://") {
		u, err := url.Parse(host)
		if err != nil {
			return "", fmt.Errorf("parse host %q: %w", host, err)
		}
		scheme = u.Scheme
		host = u.Hostname()
	}

	if host == "" {
		return "", fmt.Errorf("host is required")
	}

	u := url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
	}
	return u.String(), nil
}

// headerTransport adds a fixed header to every request.
type headerTransport struct {
	next  http.RoundTripper
	name  string
	value string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set(t.name, t.value)
	return t.next.RoundTrip(r)
}

// rateLimitedTransport waits on a token bucket before each request.
type rateLimitedTransport struct {
	next    http.RoundTripper
	limiter *rate.Limiter
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.next.RoundTrip(req)
}
