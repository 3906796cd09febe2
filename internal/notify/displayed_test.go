package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/pgportal/internal/credential"
	"github.com/nhle/pgportal/internal/model"
)

func TestDisplayedPersistsImmediately(t *testing.T) {
	vault := credential.NewMemoryVault()
	d := NewDisplayed(vault)
	require.NoError(t, d.Load())

	require.NoError(t, d.Add("a", "b", "a", ""))
	assert.True(t, d.Has("a"))
	assert.Equal(t, 2, d.Len())

	raw, err := vault.Get(credential.KeyDisplayedNotifications)
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, raw)

	reloaded := NewDisplayed(vault)
	require.NoError(t, reloaded.Load())
	assert.True(t, reloaded.Has("b"))
}

func TestDisplayedLoadGarbled(t *testing.T) {
	vault := credential.NewMemoryVault()
	require.NoError(t, vault.Set(credential.KeyDisplayedNotifications, "{"))

	d := NewDisplayed(vault)
	assert.Error(t, d.Load())
	assert.Zero(t, d.Len())
}

func TestSurfaceUnseenDedupesAcrossReconnect(t *testing.T) {
	vault := credential.NewMemoryVault()
	unread := []model.Notification{
		{ID: "n1", Message: "Progress approved", Category: "success"},
		{ID: "n2", Message: "Seen already", Read: true},
		{ID: "n3", Message: "Semester opens", Category: "info"},
	}

	r := NewRegistry(5, 0)
	d := NewDisplayed(vault)
	require.NoError(t, d.Load())

	alerts, err := SurfaceUnseen(r, d, unread)
	require.NoError(t, err)
	assert.Equal(t, []string{"Progress approved", "Semester opens"}, messages(alerts))

	// Same list again in this process: nothing new.
	alerts, err = SurfaceUnseen(r, d, unread)
	require.NoError(t, err)
	assert.Empty(t, alerts)

	// Reconnect with a fresh registry and a reloaded set.
	r2 := NewRegistry(5, 0)
	d2 := NewDisplayed(vault)
	require.NoError(t, d2.Load())
	alerts, err = SurfaceUnseen(r2, d2, unread)
	require.NoError(t, err)
	assert.Empty(t, alerts)
	assert.Empty(t, r2.Visible())
}
