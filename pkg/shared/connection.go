package shared

import (
	"net"
	"net/http"
	"time"
)

const (
	// DefaultDialTimeout bounds connection setup to the service and storage
	DefaultDialTimeout = 10 * time.Second

	// DefaultResponseHeaderTimeout bounds the wait for response headers
	DefaultResponseHeaderTimeout = 30 * time.Second

	// DefaultIdleTimeout bounds a stalled body read during a transfer
	DefaultIdleTimeout = 30 * time.Second

	maxIdleConnsPerHost = 16
)

// NewHTTPClient builds the client shared by metadata calls and transfers.
// It carries no overall timeout: metadata calls use per-call deadlines and
// streaming bodies are guarded by IdleReader.
func NewHTTPClient(headerTimeout time.Duration) *http.Client {
	if headerTimeout <= 0 {
		headerTimeout = DefaultResponseHeaderTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   DefaultDialTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.ResponseHeaderTimeout = headerTimeout
	transport.MaxIdleConnsPerHost = maxIdleConnsPerHost

	return &http.Client{Transport: transport}
}

// ShouldUseParallel reports whether a download of size bytes is split
// across range workers.
func ShouldUseParallel(size int64, acceptsRanges bool, cutoff int64) bool {
	return acceptsRanges && size > cutoff
}
