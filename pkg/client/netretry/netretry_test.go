package netretry_test

import (
	"errors"
	"testing"
	"time"

	"github.com/opendatahub-io/maasctl/pkg/client/netretry"
	"github.com/stretchr/testify/assert"
)

var (
	errForbidden       = errors.New(`subscriptions.operators.coreos.com is forbidden: User "dev" cannot create`)
	errNotFound        = errors.New(`kuadrants.kuadrant.io "kuadrant" not found`)
	errMaaSPort5000    = errors.New("dial maas-api:5000 refused by policy")
	errGateway502      = errors.New("maas gateway returned 502")
	errServiceUnavail  = errors.New("the server is currently unable to handle the request: Service Unavailable")
	errThanos504       = errors.New("query thanos-querier: 504 Gateway Timeout")
	errConnReset       = errors.New("read tcp 10.0.0.4:51234->10.0.0.1:6443: read: connection reset by peer")
	errConnRefused     = errors.New("dial tcp 127.0.0.1:6443: connect: connection refused")
	errTLSTimeout      = errors.New("net/http: TLS handshake timeout")
	errClientTimeout   = errors.New("Get \"https://maas.apps.example.com/health\": context deadline exceeded (Client.Timeout exceeded while awaiting headers)")
	errUnexpectedEOF   = errors.New("unexpected EOF")
	errNoSuchHost      = errors.New("dial tcp: lookup maas.apps.example.com: no such host")
	errHTTP2ConnLost   = errors.New("http2: client connection lost")
	errRateLimited     = errors.New("unexpected status 429 Too Many Requests")
	errInvalidManifest = errors.New("AuthPolicy gateway-auth-policy is invalid: spec.targetRef: Required value")
)

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil error", err: nil, expected: false},
		{name: "forbidden", err: errForbidden, expected: false},
		{name: "not found", err: errNotFound, expected: false},
		{name: "port 5000 not matched", err: errMaaSPort5000, expected: false},
		{name: "rate limited", err: errRateLimited, expected: false},
		{name: "invalid manifest", err: errInvalidManifest, expected: false},
		{name: "502 code", err: errGateway502, expected: true},
		{name: "503 text", err: errServiceUnavail, expected: true},
		{name: "504 code", err: errThanos504, expected: true},
		{name: "connection reset", err: errConnReset, expected: true},
		{name: "connection refused", err: errConnRefused, expected: true},
		{name: "TLS handshake timeout", err: errTLSTimeout, expected: true},
		{name: "client timeout", err: errClientTimeout, expected: true},
		{name: "unexpected EOF", err: errUnexpectedEOF, expected: true},
		{name: "no such host", err: errNoSuchHost, expected: true},
		{name: "http2 connection lost", err: errHTTP2ConnLost, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, netretry.IsRetryable(tt.err))
		})
	}
}

func TestExponentialDelay(t *testing.T) {
	t.Parallel()

	baseWait := time.Second
	maxWait := 10 * time.Second

	tests := []struct {
		name     string
		attempt  int
		expected time.Duration
	}{
		{name: "zero attempt treated as first", attempt: 0, expected: time.Second},
		{name: "first attempt", attempt: 1, expected: time.Second},
		{name: "third attempt", attempt: 3, expected: 4 * time.Second},
		{name: "capped", attempt: 5, expected: 10 * time.Second},
		{name: "overflow capped", attempt: 80, expected: 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, netretry.ExponentialDelay(tt.attempt, baseWait, maxWait))
		})
	}
}
