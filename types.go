package authclient

import (
	"context"
	"fmt"
	"time"
)

// Logger takes a message plus alternating key/value pairs, the slog calling
// convention, so hosts can drop in their structured logger of choice.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Gateway is the only component that talks to the network. Every method maps
// failure into the result's Success/Message pair, it never panics and never
// leaks transport errors to the caller.
type Gateway interface {
	Login(ctx context.Context, creds Credentials) *LoginResult
	VerifyToken(ctx context.Context, token string) *VerifyResult
	ChangePassword(ctx context.Context, token string, payload ChangePasswordPayload) *ChangePasswordResult
}

// TokenSource yields the current bearer token, or "" when logged out.
type TokenSource interface {
	Token() string
}

// Navigator lets the host application react to forced navigation. In the
// browser original these were window.location mutations; a desktop or TUI
// host maps them onto whatever "go to login" and "rebuild the UI" mean there.
type Navigator interface {
	RedirectToLogin()
	Reload()
}

// KeyValue is the minimal contract shared by the durable and ephemeral
// storage tiers. Get reports absence through its second return value, it
// never fails outward.
type KeyValue interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string) error
}

// WatchableStore is a KeyValue whose external changes can be observed. The
// broadcaster relies on it the way the original relied on storage events:
// a process is never notified of its own writes.
type WatchableStore interface {
	KeyValue
	Subscribe(fn func(key, oldValue, newValue string)) (cancel func(), err error)
}

// Cookie carries the attributes the jar needs to honor browser semantics.
// A zero Expires means the cookie lives until it is deleted.
type Cookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Domain   string    `json:"domain,omitempty"`
	Path     string    `json:"path,omitempty"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	HTTPOnly bool      `json:"http_only,omitempty"`
	SameSite string    `json:"same_site,omitempty"`
}

// CookieJar mirrors the browser cookie surface the persistence adapter
// depends on. Delete must match the domain and path the cookie was set with,
// otherwise it silently no-ops, exactly like a browser.
type CookieJar interface {
	Get(name string) (string, bool)
	Set(c Cookie) error
	Delete(name, domain, path string) error
}

type noopNavigator struct{}

func (noopNavigator) RedirectToLogin() {}
func (noopNavigator) Reload()          {}

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) { logLine("ERR", msg, args) }
func (d defLogger) Info(msg string, args ...any)  { logLine("INF", msg, args) }
func (d defLogger) Debug(msg string, args ...any) { logLine("DBG", msg, args) }

func logLine(level, msg string, args []any) {
	line := "[" + level + "] AUTH " + msg
	for i := 0; i+1 < len(args); i += 2 {
		line += fmt.Sprintf(" %v=%v", args[i], args[i+1])
	}
	fmt.Println(line)
}
