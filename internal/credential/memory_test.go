package credential

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryVault(t *testing.T) {
	v := NewMemoryVault()

	_, err := v.Get("token")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, v.Set("token", "abc"))
	got, err := v.Get("token")
	require.NoError(t, err)
	assert.Equal(t, "abc", got)

	require.NoError(t, v.Remove("token"))
	require.NoError(t, v.Remove("token"))
	assert.Equal(t, 0, v.Len())
}
