package stores_test

import (
	"path/filepath"
	"testing"
	"time"

	auth "github.com/goliatone/go-authclient"
	"github.com/goliatone/go-authclient/stores"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJar(t *testing.T, host string) *stores.FileCookieJar {
	t.Helper()
	return stores.NewFileCookieJar(filepath.Join(t.TempDir(), "cookies.json"), host)
}

func authCookie(value, domain string) auth.Cookie {
	return auth.Cookie{
		Name:    "auth_token",
		Value:   value,
		Domain:  domain,
		Path:    "/",
		Expires: time.Now().Add(time.Hour),
	}
}

func TestCookieJarRoundTrip(t *testing.T) {
	jar := newJar(t, "app.school.test")

	require.NoError(t, jar.Set(authCookie("tok-1", "")))

	val, ok := jar.Get("auth_token")
	assert.True(t, ok)
	assert.Equal(t, "tok-1", val)

	// same name, domain and path replaces rather than duplicates
	require.NoError(t, jar.Set(authCookie("tok-2", "")))
	val, _ = jar.Get("auth_token")
	assert.Equal(t, "tok-2", val)
}

func TestCookieJarDomainMatching(t *testing.T) {
	jar := newJar(t, "app.school.test")

	// a parent-domain cookie is visible to the subdomain host
	require.NoError(t, jar.Set(authCookie("tok-parent", ".school.test")))
	val, ok := jar.Get("auth_token")
	assert.True(t, ok)
	assert.Equal(t, "tok-parent", val)

	// an unrelated domain's cookie is not
	other := newJar(t, "app.school.test")
	require.NoError(t, other.Set(authCookie("tok-foreign", "other.example")))
	_, ok = other.Get("auth_token")
	assert.False(t, ok)
}

func TestCookieJarExpiry(t *testing.T) {
	jar := newJar(t, "app.school.test")

	c := authCookie("tok-short", "")
	c.Expires = time.Now().Add(30 * time.Millisecond)
	require.NoError(t, jar.Set(c))

	_, ok := jar.Get("auth_token")
	assert.True(t, ok)

	time.Sleep(50 * time.Millisecond)
	_, ok = jar.Get("auth_token")
	assert.False(t, ok, "expired cookies read as absent")
}

func TestCookieJarDeleteNeedsMatchingAttributes(t *testing.T) {
	jar := newJar(t, "app.school.test")

	require.NoError(t, jar.Set(authCookie("tok-1", ".school.test")))

	// wrong domain: the delete silently does nothing and the session lives on
	require.NoError(t, jar.Delete("auth_token", "app.school.test", "/"))
	_, ok := jar.Get("auth_token")
	assert.True(t, ok)

	// wrong path: same
	require.NoError(t, jar.Delete("auth_token", ".school.test", "/admin"))
	_, ok = jar.Get("auth_token")
	assert.True(t, ok)

	// matching attributes: gone
	require.NoError(t, jar.Delete("auth_token", ".school.test", "/"))
	_, ok = jar.Get("auth_token")
	assert.False(t, ok)
}

func TestCookieJarSharedBetweenInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	a := stores.NewFileCookieJar(path, "app.school.test")
	b := stores.NewFileCookieJar(path, "library.school.test")

	require.NoError(t, a.Set(authCookie("tok-shared", ".school.test")))

	// the sibling subdomain sees the parent-domain cookie through the file
	val, ok := b.Get("auth_token")
	assert.True(t, ok)
	assert.Equal(t, "tok-shared", val)
}
