package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	assert.Equal(t, CommandMsg{Name: "refresh"}, Parse("  refresh "))
	assert.Equal(t, CommandMsg{Name: "avatar", Args: "/tmp/me.png"}, Parse("avatar /tmp/me.png"))
	assert.Equal(t, CommandMsg{Name: "dismiss all"}, Parse("dismiss  all"))
	assert.Equal(t, CommandMsg{Name: "logout"}, Parse("LOGOUT"))
}
