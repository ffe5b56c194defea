package toast

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndExpire(t *testing.T) {
	m := New()
	cmd := m.Add("saved", Success, time.Millisecond)
	require.NotNil(t, cmd)
	require.True(t, m.HasToasts())
	assert.Contains(t, m.View(), "saved")

	msg := cmd()
	expired, ok := msg.(ExpiredMsg)
	require.True(t, ok)
	assert.Equal(t, m.Toasts()[0].ID, expired.ID)

	m, _ = m.Update(msg)
	assert.False(t, m.HasToasts())
	assert.Empty(t, m.View())
}

func TestKeepsNewest(t *testing.T) {
	m := New()
	for i := range 5 {
		m.Add(fmt.Sprintf("toast %d", i), Info, time.Minute)
	}

	toasts := m.Toasts()
	require.Len(t, toasts, 3)
	assert.Equal(t, "toast 2", toasts[0].Message)
	assert.Equal(t, "toast 4", toasts[2].Message)
}

func TestUnknownExpiryIgnored(t *testing.T) {
	m := New()
	m.Add("still here", Warning, time.Minute)
	m, _ = m.Update(ExpiredMsg{ID: "nope"})
	assert.True(t, m.HasToasts())
}
