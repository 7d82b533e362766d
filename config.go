package authclient

import "time"

// Config holds client options
type Config interface {
	GetAPIBaseURL() string
	GetOriginHost() string
	GetCookieName() string
	GetCookieDomain() string
	GetCookiePath() string
	GetRememberedCookieDuration() time.Duration
	GetSessionCookieDuration() time.Duration
	GetSyncInterval() time.Duration
	GetRequestTimeout() time.Duration
	GetBroadcastKey() string
	GetLoginRoute() string
	GetLibraryURL() string
}

// ClientConfig is a plain-struct Config implementation.
type ClientConfig struct {
	APIBaseURL               string
	OriginHost               string
	CookieName               string
	CookieDomain             string
	CookiePath               string
	RememberedCookieDuration time.Duration
	SessionCookieDuration    time.Duration
	SyncInterval             time.Duration
	RequestTimeout           time.Duration
	BroadcastKey             string
	LoginRoute               string
	LibraryURL               string
}

// DefaultConfig returns a ClientConfig with the platform defaults filled in:
// a 30 day remembered cookie, a ~1 hour session cookie, a 5 second
// reconciliation interval and a 10 second request timeout.
func DefaultConfig(apiBaseURL, originHost string) *ClientConfig {
	return &ClientConfig{
		APIBaseURL:               apiBaseURL,
		OriginHost:               originHost,
		CookieName:               "auth_token",
		CookiePath:               "/",
		RememberedCookieDuration: 30 * 24 * time.Hour,
		SessionCookieDuration:    time.Hour,
		SyncInterval:             5 * time.Second,
		RequestTimeout:           10 * time.Second,
		BroadcastKey:             "auth_sync",
		LoginRoute:               "/login",
	}
}

func (c *ClientConfig) GetAPIBaseURL() string  { return c.APIBaseURL }
func (c *ClientConfig) GetOriginHost() string  { return c.OriginHost }
func (c *ClientConfig) GetCookieName() string  { return c.CookieName }
func (c *ClientConfig) GetCookiePath() string  { return c.CookiePath }
func (c *ClientConfig) GetBroadcastKey() string { return c.BroadcastKey }
func (c *ClientConfig) GetLoginRoute() string  { return c.LoginRoute }
func (c *ClientConfig) GetLibraryURL() string  { return c.LibraryURL }

// GetCookieDomain returns the domain the auth cookie is scoped to. Empty
// means host-only, which disables cross-subdomain sharing.
func (c *ClientConfig) GetCookieDomain() string { return c.CookieDomain }

func (c *ClientConfig) GetRememberedCookieDuration() time.Duration {
	if c.RememberedCookieDuration <= 0 {
		return 30 * 24 * time.Hour
	}
	return c.RememberedCookieDuration
}

func (c *ClientConfig) GetSessionCookieDuration() time.Duration {
	if c.SessionCookieDuration <= 0 {
		return time.Hour
	}
	return c.SessionCookieDuration
}

func (c *ClientConfig) GetSyncInterval() time.Duration {
	if c.SyncInterval <= 0 {
		return 5 * time.Second
	}
	return c.SyncInterval
}

func (c *ClientConfig) GetRequestTimeout() time.Duration {
	if c.RequestTimeout <= 0 {
		return 10 * time.Second
	}
	return c.RequestTimeout
}
