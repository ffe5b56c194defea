package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/laundryguy77/PeanutChat-sub001/internal/config"
	"github.com/laundryguy77/PeanutChat-sub001/sdk/chat"
)

func TestNewControllerUsesReadBufferSize(t *testing.T) {
	cfg := config.Default()
	cfg.ReadBufferSize = 64

	ctrl := newController(cfg, newClient(cfg), chat.Callbacks{})
	assert.Equal(t, 64, ctrl.ReadBufferSize())
	assert.False(t, ctrl.IsStreaming())
}
