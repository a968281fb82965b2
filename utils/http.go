package utils

import (
	"net/http"
	"time"
)

const defaultHTTPTimeout = 60 * time.Second

type HTTPClientOption func(*http.Client)

// WithTimeout 设置请求超时时间，为 0 时不限制
func WithTimeout(timeout time.Duration) HTTPClientOption {
	return func(c *http.Client) {
		c.Timeout = timeout
	}
}

func NewHTTPClient(opts ...HTTPClientOption) *http.Client {
	client := &http.Client{
		Timeout: defaultHTTPTimeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}
