// Package http builds pre-configured *http.Client instances with explicit
// timeout and connection-pool tuning rather than the zero-value
// http.Client, with presets for object-store uploads and health probes. No
// other package in this module imports it; the database engine's health
// check runs over SQL, not HTTP.
package http

import (
	"crypto/tls"
	"net/http"
	"time"
)

// ClientConfig controls timeout and transport tuning for one client.
// NewClient does not retry; MaxRetries is carried for callers that do.
type ClientConfig struct {
	Timeout                 time.Duration
	MaxRetries              int
	DisableSSLVerification  bool
	MaxIdleConns            int
	IdleConnTimeout         time.Duration
	TLSHandshakeTimeout     time.Duration
	ResponseHeaderTimeout   time.Duration
}

// DefaultClientConfig is a conservative general-purpose baseline.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:               30 * time.Second,
		MaxRetries:            3,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
	}
}

// ObjectStoreClientConfig tunes a client for large streamed uploads to the
// backup remote-upload step (C12): longer overall timeout, shorter
// per-response-header wait since the object store acks headers promptly
// even on a multi-gigabyte streamed body.
func ObjectStoreClientConfig(timeout time.Duration) ClientConfig {
	cfg := DefaultClientConfig()
	cfg.Timeout = timeout
	cfg.ResponseHeaderTimeout = timeout / 4
	return cfg
}

// HealthProbeClientConfig tunes a client for the database engine's
// keep-alive health check (C10): short timeout, no retries — a slow health
// probe should fail fast rather than mask a real outage.
func HealthProbeClientConfig(timeout time.Duration) ClientConfig {
	return ClientConfig{
		Timeout:               timeout,
		MaxRetries:            0,
		MaxIdleConns:          2,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   timeout / 2,
		ResponseHeaderTimeout: timeout / 2,
	}
}

// NewClient builds an *http.Client from config.
func NewClient(config ClientConfig) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:          config.MaxIdleConns,
		IdleConnTimeout:       config.IdleConnTimeout,
		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		ResponseHeaderTimeout: config.ResponseHeaderTimeout,
	}
	if config.DisableSSLVerification {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // explicit opt-in, dev-only object-store endpoints
	}
	return &http.Client{
		Timeout:   config.Timeout,
		Transport: transport,
	}
}

// NewClientWithTimeout builds a client from DefaultClientConfig with just
// the timeout overridden.
func NewClientWithTimeout(timeout time.Duration) *http.Client {
	cfg := DefaultClientConfig()
	cfg.Timeout = timeout
	return NewClient(cfg)
}

// NewDefaultClient builds a client from DefaultClientConfig.
func NewDefaultClient() *http.Client {
	return NewClient(DefaultClientConfig())
}
