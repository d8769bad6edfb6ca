// Package util holds HTTP plumbing shared by the letter fetcher and the
// embedding providers.
package util

import (
	"net/http"
	"net/url"
	"time"
)

// NewProxyFunc routes requests through the configured proxies. With no
// proxy configured the standard environment variables apply.
func NewProxyFunc(httpProxy, httpsProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	return func(req *http.Request) (*url.URL, error) {
		switch {
		case req.URL.Scheme == "https" && httpsProxy != "":
			return url.Parse(httpsProxy)
		case httpProxy != "":
			return url.Parse(httpProxy)
		default:
			return http.ProxyFromEnvironment(req)
		}
	}
}

// NewHTTPClient builds a client with a timeout, proxy routing and a cap on
// redirects. maxRedirects <= 0 keeps the net/http default of 10.
func NewHTTPClient(timeout time.Duration, httpProxy, httpsProxy string, maxRedirects int) *http.Client {
	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: NewProxyFunc(httpProxy, httpsProxy),
		},
	}
	if maxRedirects > 0 {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		}
	}
	return client
}
