package requests

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/pgportal/internal/keys"
	"github.com/nhle/pgportal/internal/model"
	"github.com/nhle/pgportal/internal/portal"
)

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func sample() []model.ProgressUpdate {
	return []model.ProgressUpdate{
		{ID: 1, StudentName: "Ada", Title: "Chapter 1", Status: model.ProgressPending},
		{ID: 2, StudentName: "Alan", Title: "Chapter 2", Status: model.ProgressApproved},
		{ID: 3, StudentName: "Grace", Title: "Chapter 3", Status: model.ProgressPending},
	}
}

func TestDefaultFilterShowsPending(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 24)
	m.SetItems(sample())
	assert.Equal(t, model.ProgressPending, m.Filter())

	sel, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, int64(1), sel.ID)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "", m.Filter())
}

func TestApproveEmitsReview(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 24)
	m.SetItems(sample())
	m, _ = m.Update(runeKey('j'))

	_, cmd := m.Update(runeKey('A'))
	require.NotNil(t, cmd)
	assert.Equal(t, ReviewMsg{ID: 3, Decision: portal.DecisionApprove}, cmd())

	// Already pending: nothing to send.
	_, cmd = m.Update(runeKey('P'))
	assert.Nil(t, cmd)
}

func TestReadOnlyIgnoresReviewKeys(t *testing.T) {
	m := NewReadOnly(keys.DefaultKeyMap(), 80, 24)
	m.SetItems(sample())

	_, cmd := m.Update(runeKey('A'))
	assert.Nil(t, cmd)
}

func TestFocusClearsFilterToReachItem(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 24)
	m.SetItems(sample())

	require.True(t, m.Focus(2))
	assert.Equal(t, "", m.Filter())
	sel, _ := m.Selected()
	assert.Equal(t, int64(2), sel.ID)
	assert.False(t, m.Focus(99))
}
