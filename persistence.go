package authclient

import (
	"encoding/json"
	"time"
)

// Storage keys shared with every sibling process. Changing any of these is a
// breaking change for running deployments.
const (
	KeyToken                = "auth_token"
	KeyUserData             = "user_data"
	KeyRememberMe           = "remember_me"
	KeyRememberMePreference = "remember_me_preference"
	KeySavedEmail           = "saved_email"
	KeySavedPassword        = "saved_password"
)

// TokenPersistence reads and writes the bearer token across the three
// physical tiers that hold the one logical value: the cross-subdomain cookie
// jar (authoritative), the durable store ("remember me") and the ephemeral
// store (everything else). At most one of durable/ephemeral holds the token
// at a time; the cookie mirrors whichever one is authoritative.
//
// Every read represents absence instead of failing; malformed cached data is
// logged and treated as a miss.
type TokenPersistence struct {
	cookies   CookieJar
	durable   KeyValue
	ephemeral KeyValue
	cfg       Config
	logger    Logger
}

func NewTokenPersistence(cookies CookieJar, durable, ephemeral KeyValue, cfg Config) *TokenPersistence {
	return &TokenPersistence{
		cookies:   cookies,
		durable:   durable,
		ephemeral: ephemeral,
		cfg:       cfg,
		logger:    defLogger{},
	}
}

func (p *TokenPersistence) WithLogger(logger Logger) *TokenPersistence {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// ReadToken checks the cookie first, then the durable store, then the
// ephemeral store. First hit wins, no merging. Hits below the cookie are
// promoted back into it so sibling subdomains converge on the next read.
func (p *TokenPersistence) ReadToken() string {
	if token, ok := p.cookies.Get(p.cfg.GetCookieName()); ok && token != "" {
		return token
	}

	if token, ok := p.durable.Get(KeyToken); ok && token != "" {
		p.setTokenCookie(token, p.cfg.GetRememberedCookieDuration())
		return token
	}

	if token, ok := p.ephemeral.Get(KeyToken); ok && token != "" {
		p.setTokenCookie(token, p.cfg.GetSessionCookieDuration())
		return token
	}

	return ""
}

// WriteToken writes the token through to the authoritative tier plus the
// cookie, and clears the other tier so only one of durable/ephemeral is ever
// populated.
func (p *TokenPersistence) WriteToken(token string, rememberMe bool) {
	if rememberMe {
		p.setTokenCookie(token, p.cfg.GetRememberedCookieDuration())
		p.setOrLog(p.durable, KeyToken, token)
		p.setOrLog(p.durable, KeyRememberMe, "true")
		p.setOrLog(p.durable, KeyRememberMePreference, "true")
		p.deleteOrLog(p.ephemeral, KeyToken)
		return
	}

	p.setTokenCookie(token, p.cfg.GetSessionCookieDuration())
	p.setOrLog(p.ephemeral, KeyToken, token)
	p.deleteOrLog(p.durable, KeyToken)
	p.deleteOrLog(p.durable, KeyRememberMe)
}

// ClearToken removes the token from every tier. The cookie delete has to
// carry the same domain and path the cookie was set with, otherwise the jar
// silently keeps it.
func (p *TokenPersistence) ClearToken() {
	if err := p.cookies.Delete(p.cfg.GetCookieName(), p.cfg.GetCookieDomain(), p.cfg.GetCookiePath()); err != nil {
		p.logger.Error("clear token cookie failed", "error", err)
	}
	p.deleteOrLog(p.durable, KeyToken)
	p.deleteOrLog(p.durable, KeyRememberMe)
	p.deleteOrLog(p.ephemeral, KeyToken)
}

// WriteUserCache mirrors the user profile alongside the token, in whichever
// tier is authoritative for the current session.
func (p *TokenPersistence) WriteUserCache(user *User, rememberMe bool) {
	if user == nil {
		return
	}

	raw, err := json.Marshal(user)
	if err != nil {
		p.logger.Error("marshal user cache failed", "error", err)
		return
	}

	if rememberMe {
		p.setOrLog(p.durable, KeyUserData, string(raw))
		p.deleteOrLog(p.ephemeral, KeyUserData)
	} else {
		p.setOrLog(p.ephemeral, KeyUserData, string(raw))
		p.deleteOrLog(p.durable, KeyUserData)
	}
}

// ReadUserCache tries the durable tier first, then the ephemeral one.
func (p *TokenPersistence) ReadUserCache() (*User, bool) {
	for _, kv := range []KeyValue{p.durable, p.ephemeral} {
		raw, ok := kv.Get(KeyUserData)
		if !ok || raw == "" {
			continue
		}
		user := &User{}
		if err := json.Unmarshal([]byte(raw), user); err != nil {
			p.logger.Error("discarding malformed user cache", "error", err)
			continue
		}
		return user, true
	}
	return nil, false
}

// ClearUserCache removes the cached profile from both tiers.
func (p *TokenPersistence) ClearUserCache() {
	p.deleteOrLog(p.durable, KeyUserData)
	p.deleteOrLog(p.ephemeral, KeyUserData)
}

// RememberMeEnabled reports whether the user opted into a remembered session.
func (p *TokenPersistence) RememberMeEnabled() bool {
	if val, ok := p.durable.Get(KeyRememberMePreference); ok && val == "true" {
		return true
	}
	val, ok := p.durable.Get(KeyRememberMe)
	return ok && val == "true"
}

// SaveCredentials stores the login form prefill values. The password half is
// only reachable through the store's explicit credential-recall opt-in.
func (p *TokenPersistence) SaveCredentials(email, password string) {
	p.setOrLog(p.durable, KeySavedEmail, email)
	if password != "" {
		p.setOrLog(p.durable, KeySavedPassword, password)
	}
}

func (p *TokenPersistence) SavedEmail() string {
	val, _ := p.durable.Get(KeySavedEmail)
	return val
}

func (p *TokenPersistence) SavedPassword() string {
	val, _ := p.durable.Get(KeySavedPassword)
	return val
}

// ClearRememberPreference removes the remember-me preference and any saved
// prefill values. Deliberately not part of ClearToken: the preference is a
// longer-lived record that survives logout.
func (p *TokenPersistence) ClearRememberPreference() {
	p.deleteOrLog(p.durable, KeyRememberMe)
	p.deleteOrLog(p.durable, KeyRememberMePreference)
	p.deleteOrLog(p.durable, KeySavedEmail)
	p.deleteOrLog(p.durable, KeySavedPassword)
}

func (p *TokenPersistence) setTokenCookie(token string, duration time.Duration) {
	err := p.cookies.Set(Cookie{
		Name:     p.cfg.GetCookieName(),
		Value:    token,
		Domain:   p.cfg.GetCookieDomain(),
		Path:     p.cfg.GetCookiePath(),
		Expires:  time.Now().Add(duration),
		Secure:   true,
		SameSite: "Lax",
	})
	if err != nil {
		p.logger.Error("set token cookie failed", "error", err)
	}
}

func (p *TokenPersistence) setOrLog(kv KeyValue, key, value string) {
	if err := kv.Set(key, value); err != nil {
		p.logger.Error("storage write failed", "key", key, "error", err)
	}
}

func (p *TokenPersistence) deleteOrLog(kv KeyValue, key string) {
	if err := kv.Delete(key); err != nil {
		p.logger.Error("storage delete failed", "key", key, "error", err)
	}
}
