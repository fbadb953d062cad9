// Package httpclient builds the pooled HTTP clients used for upstream calls
// and asset downloads.
package httpclient

import (
	"net"
	"net/http"
	"time"

	"gatewire/config"
)

// ClientConfig holds transport and timeout settings.
type ClientConfig struct {
	MaxIdleConns          int
	MaxIdleConnsPerHost   int
	IdleConnTimeout       time.Duration
	Timeout               time.Duration
	DialTimeout           time.Duration
	KeepAlive             time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
	// DisableCompression stops the transport from negotiating gzip itself,
	// leaving Accept-Encoding and decoding to the caller.
	DisableCompression bool
}

// DefaultConfig returns defaults matching the upstream SDKs (10 minute timeouts).
func DefaultConfig() ClientConfig {
	return ClientConfig{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		IdleConnTimeout:       90 * time.Second,
		Timeout:               600 * time.Second,
		DialTimeout:           30 * time.Second,
		KeepAlive:             30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 600 * time.Second,
	}
}

// FromConfig applies the application HTTP settings to DefaultConfig.
func FromConfig(cfg config.HTTPConfig) ClientConfig {
	c := DefaultConfig()
	if cfg.Timeout > 0 {
		c.Timeout = cfg.Timeout
	}
	if cfg.ResponseHeaderTimeout > 0 {
		c.ResponseHeaderTimeout = cfg.ResponseHeaderTimeout
	}
	return c
}

// NewHTTPClient creates a client. A nil config uses DefaultConfig.
func NewHTTPClient(cfg *ClientConfig) *http.Client {
	if cfg == nil {
		d := DefaultConfig()
		cfg = &d
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.DialTimeout,
			KeepAlive: cfg.KeepAlive,
		}).DialContext,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		DisableCompression:    cfg.DisableCompression,
		ForceAttemptHTTP2:     true,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}
}

// NewDefaultHTTPClient is NewHTTPClient(nil).
func NewDefaultHTTPClient() *http.Client {
	return NewHTTPClient(nil)
}

// NewAssetClient returns a client for downloading generated media. It does
// its own content decoding so that brotli bodies can be accepted.
func NewAssetClient(cfg config.HTTPConfig) *http.Client {
	c := FromConfig(cfg)
	c.DisableCompression = true
	return NewHTTPClient(&c)
}
