package stores_test

import (
	"testing"

	"github.com/goliatone/go-authclient/stores"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := stores.NewMemoryStore()

	_, ok := s.Get("auth_token")
	assert.False(t, ok)

	require.NoError(t, s.Set("auth_token", "tok-1"))
	val, ok := s.Get("auth_token")
	assert.True(t, ok)
	assert.Equal(t, "tok-1", val)

	require.NoError(t, s.Delete("auth_token"))
	_, ok = s.Get("auth_token")
	assert.False(t, ok)
}
