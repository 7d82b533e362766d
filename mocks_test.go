package authclient_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	auth "github.com/goliatone/go-authclient"
	"github.com/goliatone/go-authclient/stores"
)

// mockGateway is a scriptable Gateway double.
type mockGateway struct {
	mu sync.Mutex

	loginResult  *auth.LoginResult
	verifyResult *auth.VerifyResult
	changeResult *auth.ChangePasswordResult

	loginCalls  int
	verifyCalls int

	// when set, VerifyToken blocks until the channel is closed, letting tests
	// race a logout against an in-flight verification
	verifyGate chan struct{}

	lastVerifyToken string
}

func (m *mockGateway) Login(_ context.Context, _ auth.Credentials) *auth.LoginResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loginCalls++
	if m.loginResult == nil {
		return &auth.LoginResult{Message: "Login failed"}
	}
	return m.loginResult
}

func (m *mockGateway) VerifyToken(_ context.Context, token string) *auth.VerifyResult {
	m.mu.Lock()
	gate := m.verifyGate
	m.verifyCalls++
	m.lastVerifyToken = token
	result := m.verifyResult
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if result == nil {
		return &auth.VerifyResult{Message: "Token verification failed"}
	}
	return result
}

func (m *mockGateway) ChangePassword(_ context.Context, _ string, _ auth.ChangePasswordPayload) *auth.ChangePasswordResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.changeResult == nil {
		return &auth.ChangePasswordResult{Message: "Failed to change password"}
	}
	return m.changeResult
}

func (m *mockGateway) verifyCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.verifyCalls
}

// recordingNavigator counts forced navigations.
type recordingNavigator struct {
	mu        sync.Mutex
	redirects int
	reloads   int
}

func (n *recordingNavigator) RedirectToLogin() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.redirects++
}

func (n *recordingNavigator) Reload() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reloads++
}

func (n *recordingNavigator) redirectCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.redirects
}

func (n *recordingNavigator) reloadCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.reloads
}

// fakeWatchable is an in-memory WatchableStore that notifies every subscriber
// synchronously, standing in for the shared broadcast file.
type fakeWatchable struct {
	mu   sync.Mutex
	data map[string]string
	subs []func(key, oldValue, newValue string)
}

func newFakeWatchable() *fakeWatchable {
	return &fakeWatchable{data: map[string]string{}}
}

func (f *fakeWatchable) Get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	val, ok := f.data[key]
	return val, ok
}

func (f *fakeWatchable) Set(key, value string) error {
	f.mu.Lock()
	old := f.data[key]
	f.data[key] = value
	subs := append([]func(string, string, string){}, f.subs...)
	f.mu.Unlock()

	for _, fn := range subs {
		fn(key, old, value)
	}
	return nil
}

func (f *fakeWatchable) Delete(key string) error {
	f.mu.Lock()
	old, ok := f.data[key]
	delete(f.data, key)
	subs := append([]func(string, string, string){}, f.subs...)
	f.mu.Unlock()

	if !ok {
		return nil
	}
	for _, fn := range subs {
		fn(key, old, "")
	}
	return nil
}

func (f *fakeWatchable) Subscribe(fn func(key, oldValue, newValue string)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, fn)
	return func() {}, nil
}

// harness wires a SessionStore against real file-backed tiers in a temp dir.
type harness struct {
	cfg         *auth.ClientConfig
	gateway     *mockGateway
	navigator   *recordingNavigator
	jar         *stores.FileCookieJar
	durable     *stores.FileStore
	ephemeral   *stores.MemoryStore
	persistence *auth.TokenPersistence
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	dir := t.TempDir()
	cfg := auth.DefaultConfig("http://api.school.test", "app.school.test")
	cfg.CookieDomain = ".school.test"

	durable, err := stores.NewFileStore(filepath.Join(dir, "local.json"))
	if err != nil {
		t.Fatalf("file store: %v", err)
	}

	h := &harness{
		cfg:       cfg,
		gateway:   &mockGateway{},
		navigator: &recordingNavigator{},
		jar:       stores.NewFileCookieJar(filepath.Join(dir, "cookies.json"), cfg.OriginHost),
		durable:   durable,
		ephemeral: stores.NewMemoryStore(),
	}
	h.persistence = auth.NewTokenPersistence(h.jar, h.durable, h.ephemeral, cfg)
	return h
}

func (h *harness) newStore(t *testing.T, opts ...auth.SessionOption) *auth.SessionStore {
	t.Helper()
	opts = append([]auth.SessionOption{
		auth.WithNavigator(h.navigator),
		auth.WithSyncInterval(20 * time.Millisecond),
	}, opts...)
	s := auth.NewSessionStore(h.gateway, h.persistence, h.cfg, opts...)
	t.Cleanup(s.Close)
	return s
}

func okLogin(token string) *auth.LoginResult {
	return &auth.LoginResult{
		Success: true,
		Token:   token,
		User: &auth.APIUser{
			ID:   "usr-1",
			Name: "Sok Dara",
		},
		Roles:   []string{"Head_Department"},
		Message: "Login successful",
	}
}
