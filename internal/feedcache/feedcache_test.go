package feedcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig_HasShortTTL(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 10*time.Second, cfg.TTL)
	assert.NotEmpty(t, cfg.Addr)
}

func TestGet_MissOnUnreachableRedisDoesNotPanic(t *testing.T) {
	c := New(Config{Addr: "127.0.0.1:1", DB: 0, TTL: time.Second})
	var dest map[string]any
	ok := c.Get(context.Background(), "missing", &dest)
	assert.False(t, ok)
}
