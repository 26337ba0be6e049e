// Package proxy builds http clients that dial through a SOCKS5 proxy.
package proxy

import (
	"fmt"
	"net/http"
	"time"

	"golang.org/x/net/proxy"
)

// NewSocksClient returns a client whose connections go through socksAddr.
// An empty address returns a plain client with the same timeout.
func NewSocksClient(socksAddr string, timeout time.Duration) (*http.Client, error) {
	if socksAddr == "" {
		return &http.Client{Timeout: timeout}, nil
	}

	dialer, err := proxy.SOCKS5("tcp", socksAddr, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("socks5 %s: %w", socksAddr, err)
	}
	cd, ok := dialer.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("socks5 %s: dialer has no context support", socksAddr)
	}

	transport := &http.Transport{
		DialContext:         cd.DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}, nil
}
