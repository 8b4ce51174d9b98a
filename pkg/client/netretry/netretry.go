// Package netretry classifies transient network errors seen when talking to
// the cluster API, the MaaS gateway, Prometheus and chart repositories.
package netretry

import (
	"regexp"
	"strings"
	"time"
)

// httpStatusCodePattern matches 5xx codes on word boundaries so ports such
// as ":5000" do not count.
var httpStatusCodePattern = regexp.MustCompile(`\b50[0-4]\b`)

var transientPatterns = []string{
	"Internal Server Error", "Bad Gateway",
	"Service Unavailable", "Gateway Timeout",
	"connection reset by peer", "connection refused",
	"i/o timeout", "TLS handshake timeout",
	"Client.Timeout exceeded", "unexpected EOF",
	"no such host", "http2: client connection lost",
	"no endpoints available for service",
}

// IsRetryable reports whether err looks like a transient network failure.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	errMsg := err.Error()

	for _, pattern := range transientPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}

	return httpStatusCodePattern.MatchString(errMsg)
}

// ExponentialDelay returns min(baseWait * 2^(attempt-1), maxWait).
func ExponentialDelay(
	attempt int,
	baseWait, maxWait time.Duration,
) time.Duration {
	const maxShift = 30

	if attempt < 1 {
		attempt = 1
	}

	if attempt > maxShift {
		return maxWait
	}

	delay := baseWait * time.Duration(1<<(attempt-1))
	if delay <= 0 {
		return maxWait
	}

	return min(delay, maxWait)
}
