package stores

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-authclient"
)

// FileCookieJar persists cookies with their attributes in a JSON file so
// sibling processes share them, and applies browser matching rules on read:
// a cookie is visible to a host when the host equals the cookie's domain or
// is a subdomain of it, and expired entries are dropped.
//
// Deletion follows browser semantics too: the name, domain and path must
// match the attributes the cookie was set with, otherwise the delete silently
// does nothing. Getting that wrong upstream produced undeletable sessions, so
// it is covered explicitly by tests.
type FileCookieJar struct {
	path string
	host string

	mu sync.Mutex
}

func NewFileCookieJar(path, host string) *FileCookieJar {
	return &FileCookieJar{path: path, host: host}
}

// Get returns the value of the first matching, unexpired cookie.
func (j *FileCookieJar) Get(name string) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	cookies, err := j.load()
	if err != nil {
		return "", false
	}

	now := time.Now()
	for _, c := range cookies {
		if c.Name != name {
			continue
		}
		if !c.Expires.IsZero() && !c.Expires.After(now) {
			continue
		}
		if !domainMatch(j.host, j.effectiveDomain(c)) {
			continue
		}
		return c.Value, true
	}
	return "", false
}

// Set stores the cookie, replacing any entry with the same name, domain and
// path. An empty Domain binds the cookie to the jar's host.
func (j *FileCookieJar) Set(c authclient.Cookie) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	cookies, err := j.load()
	if err != nil {
		return err
	}

	if c.Domain == "" {
		c.Domain = j.host
	}
	if c.Path == "" {
		c.Path = "/"
	}

	out := cookies[:0]
	for _, existing := range cookies {
		if existing.Name == c.Name && existing.Domain == c.Domain && existing.Path == c.Path {
			continue
		}
		out = append(out, existing)
	}
	out = append(out, c)

	return j.save(out)
}

// Delete removes the cookie only when name, domain and path all match.
func (j *FileCookieJar) Delete(name, domain, path string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	cookies, err := j.load()
	if err != nil {
		return err
	}

	if domain == "" {
		domain = j.host
	}
	if path == "" {
		path = "/"
	}

	out := cookies[:0]
	removed := false
	for _, c := range cookies {
		if c.Name == name && c.Domain == domain && c.Path == path {
			removed = true
			continue
		}
		out = append(out, c)
	}

	if !removed {
		return nil
	}
	return j.save(out)
}

func (j *FileCookieJar) effectiveDomain(c authclient.Cookie) string {
	if c.Domain == "" {
		return j.host
	}
	return c.Domain
}

// domainMatch implements the cookie domain-match rule: exact host, or host is
// a subdomain of the cookie domain. Leading dots are tolerated.
func domainMatch(host, domain string) bool {
	domain = strings.TrimPrefix(domain, ".")
	if host == domain {
		return true
	}
	return strings.HasSuffix(host, "."+domain)
}

func (j *FileCookieJar) load() ([]authclient.Cookie, error) {
	raw, err := os.ReadFile(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var cookies []authclient.Cookie
	if len(raw) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(raw, &cookies); err != nil {
		return nil, nil
	}
	return cookies, nil
}

func (j *FileCookieJar) save(cookies []authclient.Cookie) error {
	// Expired entries are purged on write so the jar does not grow forever.
	now := time.Now()
	kept := cookies[:0]
	for _, c := range cookies {
		if !c.Expires.IsZero() && !c.Expires.After(now) {
			continue
		}
		kept = append(kept, c)
	}

	raw, err := json.Marshal(kept)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(j.path), ".cookies-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), j.path)
}
