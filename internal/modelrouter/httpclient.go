package modelrouter

import (
	"net/http"
	"time"
)

const defaultPoolSize = 8

// newHTTPClient builds a pooled client for a provider endpoint. Idle
// connections are trimmed aggressively since router calls are short-lived
// CLI/server requests, not a long-held daemon connection.
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        defaultPoolSize,
			MaxIdleConnsPerHost: defaultPoolSize,
			MaxConnsPerHost:     defaultPoolSize * 2,
			IdleConnTimeout:     10 * time.Second,
		},
	}
}
