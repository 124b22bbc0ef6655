// Package auth provides OAuth2 client-credentials authentication for
// outbound integrations such as webhook endpoints.
package auth

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// ClientCred caches an OAuth2 token obtained via the client credentials flow
// and refreshes it transparently once it expires.
type ClientCred struct {
	conf  oauth2ClientConfig
	token *oauth2.Token
}

type oauth2ClientConfig interface {
	Token(ctx context.Context) (*oauth2.Token, error)
}

// NewClientCred builds a credential source from the configuration.
func NewClientCred(conf Conf) *ClientCred {
	cfg := conf.toOauth2Config()
	return &ClientCred{conf: &cfg}
}

// GetToken returns a valid access token, requesting a new one if the cached
// token expired.
func (c *ClientCred) GetToken() (string, error) {
	if c.token != nil && c.token.Valid() {
		return c.token.AccessToken, nil
	}
	if err := c.refresh(); err != nil {
		return "", err
	}
	return c.token.AccessToken, nil
}

// ForceRefresh discards the cached token and requests a new one.
func (c *ClientCred) ForceRefresh() (string, error) {
	if err := c.refresh(); err != nil {
		return "", err
	}
	return c.token.AccessToken, nil
}

// SetAuthHeader stamps the Authorization header on the request, refreshing
// the token first if needed.
func (c *ClientCred) SetAuthHeader(r *http.Request) error {
	if c.token == nil || !c.token.Valid() {
		if err := c.refresh(); err != nil {
			return err
		}
	}
	c.token.SetAuthHeader(r)
	return nil
}

func (c *ClientCred) refresh() error {
	var err error
	c.token, err = c.conf.Token(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get token: %w", err)
	}
	return nil
}
