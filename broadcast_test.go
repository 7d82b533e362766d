package authclient_test

import (
	"context"
	"sync"
	"testing"
	"time"

	auth "github.com/goliatone/go-authclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func siblingConfig(origin string) *auth.ClientConfig {
	cfg := auth.DefaultConfig("http://api.school.test", origin)
	cfg.CookieDomain = ".school.test"
	return cfg
}

func TestBroadcastReachesSiblingsOnly(t *testing.T) {
	shared := newFakeWatchable()

	a := auth.NewBroadcaster(shared, siblingConfig("tab-a.school.test"))
	b := auth.NewBroadcaster(shared, siblingConfig("tab-b.school.test"))

	var mu sync.Mutex
	var aGot, bGot []auth.BroadcastMessage

	cancelA, err := a.Subscribe(func(msg auth.BroadcastMessage) {
		mu.Lock()
		defer mu.Unlock()
		aGot = append(aGot, msg)
	})
	require.NoError(t, err)
	defer cancelA()

	cancelB, err := b.Subscribe(func(msg auth.BroadcastMessage) {
		mu.Lock()
		defer mu.Unlock()
		bGot = append(bGot, msg)
	})
	require.NoError(t, err)
	defer cancelB()

	a.Publish(auth.BroadcastActionLogout, nil)

	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, aGot, "a publisher never hears its own announcement")
	require.Len(t, bGot, 1)
	assert.Equal(t, auth.BroadcastActionLogout, bGot[0].Action)
	assert.Equal(t, "tab-a.school.test", bGot[0].Origin)
	assert.NotZero(t, bGot[0].Timestamp)
}

func TestBroadcastMessageIsRemovedAfterPublish(t *testing.T) {
	shared := newFakeWatchable()
	a := auth.NewBroadcaster(shared, siblingConfig("tab-a.school.test"))

	a.Publish(auth.BroadcastActionLogin, &auth.User{ID: "usr-1"})

	_, ok := shared.Get("auth_sync")
	assert.True(t, ok, "the message is readable right after publish")

	assert.Eventually(t, func() bool {
		_, ok := shared.Get("auth_sync")
		return !ok
	}, time.Second, 10*time.Millisecond, "the key frees up so repeat events still fire")
}

func TestBroadcastDropsMalformedPayloads(t *testing.T) {
	shared := newFakeWatchable()
	b := auth.NewBroadcaster(shared, siblingConfig("tab-b.school.test"))

	got := 0
	cancel, err := b.Subscribe(func(auth.BroadcastMessage) { got++ })
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, shared.Set("auth_sync", "{not json"))
	require.NoError(t, shared.Set("unrelated_key", `{"action":"logout"}`))
	require.NoError(t, shared.Delete("auth_sync")) // clears read as empty, not as messages

	assert.Equal(t, 0, got)
}

func TestSiblingLogoutTearsDownSession(t *testing.T) {
	shared := newFakeWatchable()
	h := newHarness(t)
	h.gateway.loginResult = okLogin("tok-a")

	s := h.newStore(t, auth.WithBroadcaster(auth.NewBroadcaster(shared, h.cfg)))

	_, err := s.Login(context.Background(), auth.Credentials{Email: "dara@school.test", Password: "pw"}, true)
	require.NoError(t, err)

	sibling := auth.NewBroadcaster(shared, siblingConfig("tab-b.school.test"))
	sibling.Publish(auth.BroadcastActionLogout, nil)

	assert.False(t, s.IsAuthenticated())
	assert.GreaterOrEqual(t, h.navigator.redirectCount(), 1)
}

func TestSiblingLoginAdoptsSession(t *testing.T) {
	shared := newFakeWatchable()
	h := newHarness(t)

	s := h.newStore(t, auth.WithBroadcaster(auth.NewBroadcaster(shared, h.cfg)))
	require.False(t, s.IsAuthenticated())

	// the sibling already persisted the token before announcing
	h.persistence.WriteToken("tok-sibling", true)

	sibling := auth.NewBroadcaster(shared, siblingConfig("tab-b.school.test"))
	sibling.Publish(auth.BroadcastActionLogin, &auth.User{
		ID:   "usr-5",
		Role: auth.RoleTeacher,
	})

	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, "tok-sibling", s.Token())
	assert.Equal(t, auth.RoleTeacher, s.UserRole())
	assert.GreaterOrEqual(t, h.navigator.reloadCount(), 1)
}

func TestOwnLoginDoesNotEchoBack(t *testing.T) {
	shared := newFakeWatchable()
	h := newHarness(t)
	h.gateway.loginResult = okLogin("tok-a")

	s := h.newStore(t, auth.WithBroadcaster(auth.NewBroadcaster(shared, h.cfg)))

	_, err := s.Login(context.Background(), auth.Credentials{Email: "dara@school.test", Password: "pw"}, true)
	require.NoError(t, err)

	// the fake delivers synchronously, so any self-echo would already have
	// forced a reload by now
	assert.Equal(t, 0, h.navigator.reloadCount())
}
