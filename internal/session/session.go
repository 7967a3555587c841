// Package session acquires the platform session token over HTTP. The socket
// client consumes only the opaque token string.
package session

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/coachpo/tradewire/config"
	"github.com/coachpo/tradewire/errs"
	"github.com/coachpo/tradewire/internal/observability"
)

const ssidCookie = "ssid"

// Client performs the login/logout round trips against the platform's HTTP
// auth endpoints.
type Client struct {
	http      *http.Client
	loginURL  string
	logoutURL string
}

// NewClient builds a session client from the platform settings. The cookie
// jar captures the session cookie set during login.
func NewClient(cfg config.Settings) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errs.New("session/new", errs.CodeAuth, errs.WithCause(err))
	}
	timeout := cfg.Timeouts.HTTP
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http:      &http.Client{Jar: jar, Timeout: timeout},
		loginURL:  cfg.Platform.LoginURL,
		logoutURL: cfg.Platform.LogoutURL,
	}, nil
}

// Login posts the credentials and returns the ssid session token.
func (c *Client) Login(ctx context.Context, creds config.Credentials) (string, error) {
	form := url.Values{}
	form.Set("identifier", creds.Identifier)
	form.Set("password", creds.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", errs.New("session/login", errs.CodeAuth, errs.WithCause(err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errs.New("session/login", errs.CodeAuth, errs.WithCause(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", errs.New("session/login", errs.CodeAuth,
			errs.WithStatus(resp.StatusCode),
			errs.WithRawMessage(string(body)),
			errs.WithMessage("login rejected"))
	}

	token := c.sessionToken(resp)
	if token == "" {
		return "", errs.New("session/login", errs.CodeAuth,
			errs.WithMessage("login response carried no session cookie"))
	}
	observability.Log().Info("session established")
	return token, nil
}

// Logout invalidates the server-side session. Errors are reported but the
// session cookie is cleared regardless.
func (c *Client) Logout(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.logoutURL, nil)
	if err != nil {
		return errs.New("session/logout", errs.CodeAuth, errs.WithCause(err))
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return errs.New("session/logout", errs.CodeAuth, errs.WithCause(err))
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return errs.New("session/logout", errs.CodeAuth, errs.WithStatus(resp.StatusCode))
	}
	return nil
}

// sessionToken finds the ssid cookie on the response or in the jar, covering
// platforms that set it on a redirect hop.
func (c *Client) sessionToken(resp *http.Response) string {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == ssidCookie {
			return cookie.Value
		}
	}
	if resp.Request != nil && resp.Request.URL != nil {
		for _, cookie := range c.http.Jar.Cookies(resp.Request.URL) {
			if cookie.Name == ssidCookie {
				return cookie.Value
			}
		}
	}
	return ""
}
