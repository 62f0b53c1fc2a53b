// Package auth provides OAuth2 client credentials for outgoing HTTP calls.
package auth

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

// NewClient returns an HTTP client that sets a bearer token on every request.
// Tokens are fetched on first use and refreshed when they expire. When conf
// is disabled base is returned unchanged. A nil base means
// http.DefaultClient.
func NewClient(ctx context.Context, conf Conf, base *http.Client) *http.Client {
	if base == nil {
		base = http.DefaultClient
	}
	if !conf.Enabled() {
		return base
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	cc := conf.toOauth2Config()
	return &http.Client{
		Timeout: base.Timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.ReuseTokenSource(nil, cc.TokenSource(ctx)),
			Base:   base.Transport,
		},
	}
}
